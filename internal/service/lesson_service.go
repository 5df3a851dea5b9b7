package service

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/repository"
	"github.com/windfall/lingo_service/internal/tts"
)

// Lesson limits
const (
	maxLessonTitle       = 200
	maxLessonDescription = 2000
	wordsPerSecond       = 2.5
)

var lessonTypes = map[string]bool{
	repository.LessonListening: true,
	repository.LessonReading:   true,
	repository.LessonSpeaking:  true,
}

// LessonQuery filters the lesson list. Empty fields match everything.
type LessonQuery struct {
	Type     string
	Level    string
	Language string
	Topic    string
	Query    string
}

// CreateLessonRequest creates a lesson by hand.
type CreateLessonRequest struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Type            string          `json:"type"`
	Level           string          `json:"level"`
	Language        string          `json:"language"`
	Topic           string          `json:"topic"`
	Content         json.RawMessage `json:"content"`
	AudioURL        string          `json:"audio_url"`
	DurationSeconds int             `json:"duration_seconds"`
	IsPublished     bool            `json:"is_published"`
}

// UpdateLessonRequest edits a lesson. Nil fields are kept.
type UpdateLessonRequest struct {
	Title           *string         `json:"title"`
	Description     *string         `json:"description"`
	Level           *string         `json:"level"`
	Topic           *string         `json:"topic"`
	Content         json.RawMessage `json:"content"`
	AudioURL        *string         `json:"audio_url"`
	DurationSeconds *int            `json:"duration_seconds"`
	IsPublished     *bool           `json:"is_published"`
}

// GenerateLessonRequest asks for an AI listening lesson.
type GenerateLessonRequest struct {
	Topic    string `json:"topic"`
	Level    string `json:"level"`
	Language string `json:"language"`
	Turns    int    `json:"turns"`
}

// LessonService manages lessons.
type LessonService struct {
	repo repository.LessonRepository
	ai   *AIService
	log  zerolog.Logger
}

// NewLessonService creates a new LessonService.
func NewLessonService(repo repository.LessonRepository, ai *AIService, log zerolog.Logger) *LessonService {
	return &LessonService{repo: repo, ai: ai, log: log}
}

// visibleLesson loads a lesson the user may see: published ones and their
// own drafts. Other drafts are reported as missing.
func visibleLesson(ctx context.Context, repo repository.LessonRepository, id, userID uuid.UUID) (*repository.Lesson, error) {
	l, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoErr(err, "lesson", "get lesson")
	}
	if !l.IsPublished && !isOwner(l.CreatedBy, userID) {
		return nil, errors.NotFound("lesson")
	}
	return l, nil
}

// List returns published lessons and the user's own drafts, newest first.
func (s *LessonService) List(ctx context.Context, userID uuid.UUID, q LessonQuery, page Page) (*List[*repository.Lesson], error) {
	if q.Type != "" && !lessonTypes[q.Type] {
		return nil, fieldInvalid("type")
	}
	if q.Level != "" {
		level, err := normalizeLevel(q.Level)
		if err != nil {
			return nil, err
		}
		q.Level = level
	}
	if q.Language != "" {
		q.Language = tts.NormalizeLanguage(q.Language)
	}

	items, total, err := s.repo.List(ctx, repository.LessonFilter{
		ViewerID: userID,
		Type:     q.Type,
		Level:    q.Level,
		Language: q.Language,
		Topic:    strings.TrimSpace(q.Topic),
		Query:    strings.TrimSpace(q.Query),
		Limit:    page.Limit,
		Offset:   page.Offset(),
	})
	if err != nil {
		return nil, repoErr(err, "lesson", "list lessons")
	}
	return newList(items, total, page), nil
}

// Get returns a lesson the user may see.
func (s *LessonService) Get(ctx context.Context, userID, id uuid.UUID) (*repository.Lesson, error) {
	return visibleLesson(ctx, s.repo, id, userID)
}

// Create stores a lesson owned by userID.
func (s *LessonService) Create(ctx context.Context, userID uuid.UUID, req CreateLessonRequest) (*repository.Lesson, error) {
	title, err := requireText("title", req.Title, maxLessonTitle)
	if err != nil {
		return nil, err
	}
	if !lessonTypes[req.Type] {
		return nil, fieldInvalid("type")
	}
	level, err := normalizeLevel(req.Level)
	if err != nil {
		return nil, err
	}
	if len([]rune(req.Description)) > maxLessonDescription {
		return nil, fieldTooLong("description", maxLessonDescription)
	}
	if req.DurationSeconds < 0 {
		return nil, outOfRange("duration_seconds", 0, maxActivitySeconds)
	}
	content, err := lessonContent(req.Content)
	if err != nil {
		return nil, err
	}

	owner := userID
	l := &repository.Lesson{
		Title:           title,
		Description:     strings.TrimSpace(req.Description),
		Type:            req.Type,
		Level:           level,
		Language:        tts.NormalizeLanguage(req.Language),
		Topic:           strings.TrimSpace(req.Topic),
		Content:         content,
		AudioURL:        strings.TrimSpace(req.AudioURL),
		DurationSeconds: req.DurationSeconds,
		IsPublished:     req.IsPublished,
		CreatedBy:       &owner,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, repoErr(err, "lesson", "create lesson")
	}
	return l, nil
}

func lessonContent(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return json.RawMessage(`{}`), nil
	}
	if !json.Valid(raw) {
		return nil, fieldInvalid("content")
	}
	return raw, nil
}

// owned loads a lesson only its creator may change.
func (s *LessonService) owned(ctx context.Context, userID, id uuid.UUID) (*repository.Lesson, error) {
	l, err := visibleLesson(ctx, s.repo, id, userID)
	if err != nil {
		return nil, err
	}
	if !isOwner(l.CreatedBy, userID) {
		return nil, notOwner()
	}
	return l, nil
}

// Update edits a lesson the user created.
func (s *LessonService) Update(ctx context.Context, userID, id uuid.UUID, req UpdateLessonRequest) (*repository.Lesson, error) {
	l, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if l.Title, err = requireText("title", *req.Title, maxLessonTitle); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		if len([]rune(*req.Description)) > maxLessonDescription {
			return nil, fieldTooLong("description", maxLessonDescription)
		}
		l.Description = strings.TrimSpace(*req.Description)
	}
	if req.Level != nil {
		if l.Level, err = normalizeLevel(*req.Level); err != nil {
			return nil, err
		}
	}
	if req.Topic != nil {
		l.Topic = strings.TrimSpace(*req.Topic)
	}
	if len(req.Content) > 0 {
		if l.Content, err = lessonContent(req.Content); err != nil {
			return nil, err
		}
	}
	if req.AudioURL != nil {
		l.AudioURL = strings.TrimSpace(*req.AudioURL)
	}
	if req.DurationSeconds != nil {
		if *req.DurationSeconds < 0 {
			return nil, outOfRange("duration_seconds", 0, maxActivitySeconds)
		}
		l.DurationSeconds = *req.DurationSeconds
	}
	if req.IsPublished != nil {
		l.IsPublished = *req.IsPublished
	}

	if err := s.repo.Update(ctx, l); err != nil {
		return nil, repoErr(err, "lesson", "update lesson")
	}
	return l, nil
}

// Delete removes a lesson the user created.
func (s *LessonService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return repoErr(s.repo.Delete(ctx, id), "lesson", "delete lesson")
}

// Generate writes a dialogue, voices it and stores it as a private
// listening lesson. The lesson is kept without audio when synthesis fails.
func (s *LessonService) Generate(ctx context.Context, userID uuid.UUID, req GenerateLessonRequest) (*repository.Lesson, error) {
	conv, err := s.ai.GenerateConversation(ctx, ConversationRequest{
		Topic:    req.Topic,
		Level:    req.Level,
		Language: req.Language,
		Turns:    req.Turns,
	})
	if err != nil {
		return nil, err
	}
	level, _ := normalizeLevel(req.Level)
	lang := tts.NormalizeLanguage(req.Language)

	content, err := json.Marshal(conv)
	if err != nil {
		return nil, errors.InternalWrap("failed to encode lesson content", err)
	}

	owner := userID
	l := &repository.Lesson{
		Title:       conv.Title,
		Description: conv.Summary,
		Type:        repository.LessonListening,
		Level:       level,
		Language:    lang,
		Topic:       strings.TrimSpace(req.Topic),
		Content:     content,
		CreatedBy:   &owner,
	}

	audio := DialogueAudio(lang, conv.Lines)
	l.DurationSeconds = speechSeconds(audio)
	published, err := s.ai.Publish(ctx, audio)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("Lesson audio failed, saving without audio")
	} else {
		l.AudioURL = published.URL
	}

	if err := s.repo.Create(ctx, l); err != nil {
		return nil, repoErr(err, "lesson", "create lesson")
	}
	return l, nil
}

// speechSeconds estimates how long a request takes to speak at a
// conversational pace, pauses included.
func speechSeconds(req tts.Request) int {
	words, pauses := 0, 0
	for _, seg := range req.Segments {
		words += len(strings.Fields(seg.Text))
		pauses += seg.BreakAfter
	}
	return int(math.Ceil(float64(words)/wordsPerSecond + float64(pauses)/1000))
}
