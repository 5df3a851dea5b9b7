package service

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/client"
	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/repository"
	"github.com/windfall/lingo_service/internal/tts"
)

// PronunciationAssessor scores speech against a reference text.
type PronunciationAssessor interface {
	AssessPronunciation(ctx context.Context, audio []byte, referenceText, language string) (*client.PronunciationResult, error)
}

// ReplyQueue hands tutor replies from the background worker to the
// polling request.
type ReplyQueue interface {
	RPush(ctx context.Context, key string, value interface{}) error
	SetExpiry(ctx context.Context, key string, ttl time.Duration) error
	BLPop(ctx context.Context, timeout time.Duration, key string) ([]byte, error)
}

// Reply queue settings
const (
	replyKeyPrefix   = "speaking:reply:"
	replyTTL         = 60 * time.Second
	replyWait        = 10 * time.Second
	replyBudget      = 45 * time.Second
	maxReferenceText = 1000
)

func replyKey(requestID string) string {
	return replyKeyPrefix + requestID
}

// AssessRequest is a recording to score.
type AssessRequest struct {
	Audio           []byte
	ReferenceText   string
	Language        string
	LessonID        *uuid.UUID
	DurationSeconds int
}

// AssessmentResult is a scored recording.
type AssessmentResult struct {
	Transcript    string                     `json:"transcript"`
	Accuracy      float64                    `json:"accuracy"`
	Fluency       float64                    `json:"fluency"`
	Completeness  float64                    `json:"completeness"`
	Prosody       float64                    `json:"prosody"`
	Pronunciation float64                    `json:"pronunciation"`
	Words         []client.PronunciationWord `json:"words"`
	XPEarned      int                        `json:"xp_earned"`
	Gamification  *repository.Gamification   `json:"gamification"`
}

// ConverseRequest is one spoken turn of a tutoring conversation.
type ConverseRequest struct {
	Audio    []byte
	Filename string
	Language string
	Level    string
	History  []ChatTurn
}

// ConverseAccepted is returned while the tutor reply is being prepared.
type ConverseAccepted struct {
	RequestID  string `json:"request_id"`
	Transcript string `json:"transcript"`
}

// SpeakingReply is the tutor's answer to a spoken turn.
type SpeakingReply struct {
	RequestID  string `json:"request_id"`
	Transcript string `json:"transcript"`
	Reply      string `json:"reply"`
	AudioURL   string `json:"audio_url,omitempty"`
	Failed     bool   `json:"failed,omitempty"`
}

// The user id travels with the queued reply but is not shown to clients.
type queuedReply struct {
	SpeakingReply
	Owner uuid.UUID `json:"owner"`
}

// SpeakingService scores pronunciation and runs spoken tutoring turns.
type SpeakingService struct {
	assessor PronunciationAssessor
	ai       *AIService
	history  *HistoryService
	queue    ReplyQueue
	log      zerolog.Logger
	wait     time.Duration
	wg       sync.WaitGroup
}

// NewSpeakingService creates a new SpeakingService. assessor and queue may
// be nil when Azure or Redis are not configured.
func NewSpeakingService(assessor PronunciationAssessor, ai *AIService, history *HistoryService, queue ReplyQueue, log zerolog.Logger) *SpeakingService {
	return &SpeakingService{
		assessor: assessor,
		ai:       ai,
		history:  history,
		queue:    queue,
		log:      log,
		wait:     replyWait,
	}
}

// Assess scores a recording and records it as speaking practice.
func (s *SpeakingService) Assess(ctx context.Context, userID uuid.UUID, req AssessRequest) (*AssessmentResult, error) {
	if len(req.Audio) == 0 {
		return nil, errors.Validation("audio is required").WithMessageID("validation.audio_required")
	}
	reference, err := requireText("reference_text", req.ReferenceText, maxReferenceText)
	if err != nil {
		return nil, err
	}
	if s.assessor == nil {
		return nil, errors.AIService("pronunciation assessment not configured", nil).WithMessageID("ai.not_configured")
	}

	r, err := s.assessor.AssessPronunciation(ctx, req.Audio, reference, tts.NormalizeLanguage(req.Language))
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Timeout("assessment cancelled")
		}
		return nil, errors.AIService("pronunciation assessment failed", err).WithMessageID("speaking.assessment_failed")
	}

	res := &AssessmentResult{
		Transcript:    r.RecognizedText,
		Accuracy:      r.AccuracyScore,
		Fluency:       r.FluencyScore,
		Completeness:  r.CompletenessScore,
		Prosody:       r.ProsodyScore,
		Pronunciation: r.PronunciationScore,
		Words:         r.Words,
	}
	if res.Words == nil {
		res.Words = []client.PronunciationWord{}
	}

	details, err := json.Marshal(map[string]interface{}{
		"reference_text": reference,
		"transcript":     r.RecognizedText,
		"accuracy":       r.AccuracyScore,
		"fluency":        r.FluencyScore,
		"completeness":   r.CompletenessScore,
	})
	if err != nil {
		return nil, errors.InternalWrap("failed to encode details", err)
	}
	score := int(math.Round(r.PronunciationScore))
	recorded, err := s.history.Record(ctx, userID, RecordActivityRequest{
		LessonID:        req.LessonID,
		ActivityType:    repository.ActivitySpeaking,
		Score:           &score,
		DurationSeconds: req.DurationSeconds,
		Details:         details,
	})
	if err != nil {
		return nil, err
	}

	res.XPEarned = recorded.XPEarned
	res.Gamification = recorded.Gamification
	return res, nil
}

// Converse transcribes a spoken turn and prepares the tutor reply in the
// background. The reply is collected with Reply.
func (s *SpeakingService) Converse(ctx context.Context, userID uuid.UUID, req ConverseRequest) (*ConverseAccepted, error) {
	if s.queue == nil {
		return nil, errors.AIService("reply queue not configured", nil).WithMessageID("ai.not_configured")
	}

	transcript, err := s.ai.Transcribe(ctx, req.Audio, req.Filename, req.Language)
	if err != nil {
		return nil, err
	}
	if transcript == "" {
		return nil, fieldInvalid("audio")
	}

	requestID := uuid.NewString()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.respond(requestID, userID, transcript, req)
	}()

	return &ConverseAccepted{RequestID: requestID, Transcript: transcript}, nil
}

// respond runs detached from the request so that it outlives it.
func (s *SpeakingService) respond(requestID string, userID uuid.UUID, transcript string, req ConverseRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), replyBudget)
	defer cancel()

	log := s.log.With().Str("request_id", requestID).Str("user_id", userID.String()).Logger()
	reply := queuedReply{
		SpeakingReply: SpeakingReply{RequestID: requestID, Transcript: transcript},
		Owner:         userID,
	}

	chat, err := s.ai.Chat(ctx, ChatRequest{
		Message:  transcript,
		History:  req.History,
		Language: req.Language,
		Level:    req.Level,
	})
	if err != nil {
		log.Error().Err(err).Msg("Tutor reply failed")
		reply.Failed = true
	} else {
		reply.Reply = chat.Reply
		audio, err := s.ai.TTS(ctx, TTSRequest{Text: chat.Reply, Language: req.Language})
		if err != nil {
			log.Warn().Err(err).Msg("Tutor reply audio failed, sending text only")
		} else {
			reply.AudioURL = audio.URL
		}
	}

	key := replyKey(requestID)
	if err := s.queue.RPush(ctx, key, reply); err != nil {
		log.Error().Err(err).Msg("Failed to queue tutor reply")
		return
	}
	if err := s.queue.SetExpiry(ctx, key, replyTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to set reply expiry")
	}
}

// Reply waits for the tutor reply of a Converse request.
func (s *SpeakingService) Reply(ctx context.Context, userID uuid.UUID, requestID string) (*SpeakingReply, error) {
	if _, err := uuid.Parse(requestID); err != nil {
		return nil, fieldInvalid("request_id")
	}
	if s.queue == nil {
		return nil, errors.AIService("reply queue not configured", nil).WithMessageID("ai.not_configured")
	}

	data, err := s.queue.BLPop(ctx, s.wait, replyKey(requestID))
	if client.IsNil(err) {
		return nil, errors.Timeout("reply not ready").WithMessageID("speaking.reply_not_ready")
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Timeout("reply wait cancelled").WithMessageID("speaking.reply_not_ready")
		}
		return nil, errors.InternalWrap("failed to read reply", err)
	}

	var reply queuedReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, errors.InternalWrap("failed to decode reply", err)
	}
	if reply.Owner != userID {
		return nil, errors.NotFound("speaking_reply")
	}
	if reply.Failed {
		return nil, errors.AIService("tutor reply failed", nil)
	}
	return &reply.SpeakingReply, nil
}

// Wait blocks until background replies have finished.
func (s *SpeakingService) Wait() {
	s.wg.Wait()
}
