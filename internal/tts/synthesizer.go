package tts

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/client"
	"github.com/windfall/lingo_service/internal/errors"
)

// ContentTypeMP3 is the content type of all synthesized audio.
const ContentTypeMP3 = "audio/mpeg"

// Request is a provider-independent synthesis request.
type Request struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Validate checks that there is something to say and that every segment is
// well formed.
func (r Request) Validate() error {
	if len(r.Segments) == 0 {
		return fmt.Errorf("no segments to synthesize")
	}
	for i, seg := range r.Segments {
		if err := seg.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return nil
}

// Result is synthesized audio and the provider that produced it.
type Result struct {
	Audio       []byte
	ContentType string
	Provider    string
}

// Provider turns a request into MP3 audio.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// SSMLClient renders SSML documents.
type SSMLClient interface {
	Synthesize(ctx context.Context, ssml, format string) ([]byte, error)
}

// SpeechClient renders plain text with a named voice.
type SpeechClient interface {
	Speech(ctx context.Context, text, voice string, speed float64) ([]byte, error)
}

// AzureProvider synthesizes the whole request as one SSML document.
type AzureProvider struct {
	client SSMLClient
}

// NewAzureProvider creates a new Azure provider.
func NewAzureProvider(c SSMLClient) *AzureProvider {
	return &AzureProvider{client: c}
}

// Name identifies the provider.
func (p *AzureProvider) Name() string {
	return "azure"
}

// Synthesize builds SSML and sends it to Azure.
func (p *AzureProvider) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	ssml, err := BuildSSML(req.Language, req.Segments)
	if err != nil {
		return nil, err
	}
	return p.client.Synthesize(ctx, ssml, client.AzureFormatMP3)
}

// OpenAIProvider synthesizes each segment separately and concatenates the
// MP3 streams. Styles and pitch have no OpenAI equivalent and are dropped.
type OpenAIProvider struct {
	client      SpeechClient
	femaleVoice string
	maleVoice   string
}

// NewOpenAIProvider creates a new OpenAI provider. defaultVoice is used for
// female and unspecified speakers.
func NewOpenAIProvider(c SpeechClient, defaultVoice string) *OpenAIProvider {
	if defaultVoice == "" {
		defaultVoice = "nova"
	}
	return &OpenAIProvider{client: c, femaleVoice: defaultVoice, maleVoice: "onyx"}
}

// Name identifies the provider.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Synthesize renders every segment and joins the audio.
func (p *OpenAIProvider) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	var audio []byte
	for i, seg := range req.Segments {
		part, err := p.client.Speech(ctx, strings.TrimSpace(seg.Text), p.voiceFor(seg), SpeedFromRate(seg.Rate))
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		audio = append(audio, part...)
	}
	return audio, nil
}

func (p *OpenAIProvider) voiceFor(seg Segment) string {
	gender := seg.Gender
	if seg.Voice != "" {
		if v, ok := LookupVoice(seg.Voice); ok {
			gender = v.Gender
		}
	}
	if gender == GenderMale {
		return p.maleVoice
	}
	return p.femaleVoice
}

var namedSpeeds = map[string]float64{
	"x-slow": 0.5, "slow": 0.75, "medium": 1, "default": 1, "fast": 1.25, "x-fast": 1.5,
}

// SpeedFromRate converts an SSML rate to an OpenAI speed multiplier within
// 0.25..4.
func SpeedFromRate(rate string) float64 {
	speed := 1.0
	switch {
	case rate == "":
	case namedSpeeds[rate] != 0:
		speed = namedSpeeds[rate]
	case strings.HasSuffix(rate, "%"):
		if pct, err := strconv.ParseFloat(strings.TrimSuffix(rate, "%"), 64); err == nil {
			speed = 1 + pct/100
		}
	default:
		if m, err := strconv.ParseFloat(rate, 64); err == nil {
			speed = m
		}
	}

	if speed < 0.25 {
		return 0.25
	}
	if speed > 4 {
		return 4
	}
	return speed
}

// Synthesizer tries providers in order until one succeeds.
type Synthesizer struct {
	providers []Provider
	log       zerolog.Logger
}

// NewSynthesizer creates a new synthesizer. Nil providers are skipped.
func NewSynthesizer(log zerolog.Logger, providers ...Provider) *Synthesizer {
	s := &Synthesizer{log: log}
	for _, p := range providers {
		if p != nil {
			s.providers = append(s.providers, p)
		}
	}
	return s
}

// Providers returns the provider names in fallback order.
func (s *Synthesizer) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.Name())
	}
	return names
}

// Synthesize returns audio from the first provider that succeeds.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Validation(err.Error()).WithMessageID("validation.field_invalid")
	}
	if len(s.providers) == 0 {
		return nil, errors.AIService("no tts provider configured", nil).WithMessageID("ai.not_configured")
	}

	var errs []error
	for _, p := range s.providers {
		audio, err := p.Synthesize(ctx, req)
		if err == nil && len(audio) > 0 {
			return &Result{Audio: audio, ContentType: ContentTypeMP3, Provider: p.Name()}, nil
		}
		if err == nil {
			err = fmt.Errorf("empty audio")
		}
		if ctx.Err() != nil {
			return nil, errors.Timeout("tts cancelled")
		}

		s.log.Warn().Err(err).Str("provider", p.Name()).Msg("TTS provider failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}

	return nil, errors.AIService("all tts providers failed", stderrors.Join(errs...)).
		WithMessageID("tts.all_providers_failed")
}
