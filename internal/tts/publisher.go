package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/errors"
)

// CacheTTL is how long a synthesized audio URL is remembered.
const CacheTTL = 7 * 24 * time.Hour

// Cache remembers the storage URL of synthesized audio.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Store uploads audio and returns its public URL.
type Store interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Published is the outcome of Publish.
type Published struct {
	URL      string `json:"audio_url"`
	Provider string `json:"provider"`
	Cached   bool   `json:"cached"`
	Size     int    `json:"-"`
}

// Hash identifies a request independently of the provider that serves it.
func Hash(req Request) string {
	req.Language = NormalizeLanguage(req.Language)
	data, _ := json.Marshal(req)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CacheKey is the Redis key for a request.
func CacheKey(req Request) string {
	return "tts:" + Hash(req)
}

// ObjectKey is the storage key for a request's audio.
func ObjectKey(req Request) string {
	return "tts/" + Hash(req) + ".mp3"
}

// Publisher synthesizes audio once, uploads it and caches the URL.
type Publisher struct {
	synth *Synthesizer
	store Store
	cache Cache
	log   zerolog.Logger
}

// NewPublisher creates a new publisher. cache may be nil.
func NewPublisher(synth *Synthesizer, store Store, cache Cache, log zerolog.Logger) *Publisher {
	return &Publisher{synth: synth, store: store, cache: cache, log: log}
}

// Publish returns a URL for the request's audio, synthesizing and uploading
// it on a cache miss. Cache errors are logged and ignored.
func (p *Publisher) Publish(ctx context.Context, req Request) (*Published, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Validation(err.Error()).WithMessageID("validation.field_invalid")
	}

	key := CacheKey(req)
	if p.cache != nil {
		url, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			p.log.Warn().Err(err).Str("key", key).Msg("TTS cache lookup failed")
		} else if ok {
			return &Published{URL: url, Provider: "cache", Cached: true}, nil
		}
	}

	if p.store == nil {
		return nil, errors.Storage("object storage not configured", nil)
	}

	res, err := p.synth.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}

	url, err := p.store.Upload(ctx, ObjectKey(req), res.Audio, res.ContentType)
	if err != nil {
		return nil, errors.Storage("failed to upload audio", err)
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, url, CacheTTL); err != nil {
			p.log.Warn().Err(err).Str("key", key).Msg("TTS cache store failed")
		}
	}

	p.log.Info().
		Str("provider", res.Provider).
		Int("bytes", len(res.Audio)).
		Int("segments", len(req.Segments)).
		Msg("Audio synthesized")

	return &Published{URL: url, Provider: res.Provider, Size: len(res.Audio)}, nil
}
