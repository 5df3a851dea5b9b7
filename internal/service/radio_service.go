package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/repository"
	"github.com/windfall/lingo_service/internal/tts"
)

// Radio limits
const (
	DefaultRadioMinutes = 3
	MaxRadioMinutes     = 10
	radioWordsPerMinute = 130
)

// RadioRequest asks for a radio episode.
type RadioRequest struct {
	Topic    string `json:"topic"`
	Language string `json:"language"`
	Level    string `json:"level"`
	Minutes  int    `json:"minutes"`
}

// RadioScript is a two-host show.
type RadioScript struct {
	Title      string           `json:"title"`
	Summary    string           `json:"summary"`
	Lines      []DialogueLine   `json:"lines"`
	Vocabulary []VocabularyItem `json:"vocabulary"`
}

// RadioService produces and manages radio episodes.
type RadioService struct {
	repo repository.RadioRepository
	ai   *AIService
	log  zerolog.Logger
}

// NewRadioService creates a new RadioService.
func NewRadioService(repo repository.RadioRepository, ai *AIService, log zerolog.Logger) *RadioService {
	return &RadioService{repo: repo, ai: ai, log: log}
}

// Generate writes a script, voices both hosts and stores the episode.
// An episode is only stored when its audio was published.
func (s *RadioService) Generate(ctx context.Context, userID uuid.UUID, req RadioRequest) (*repository.RadioEpisode, error) {
	topic, err := requireText("topic", req.Topic, 200)
	if err != nil {
		return nil, err
	}
	level, err := normalizeLevel(req.Level)
	if err != nil {
		return nil, err
	}
	minutes := req.Minutes
	if minutes == 0 {
		minutes = DefaultRadioMinutes
	}
	if minutes < 1 || minutes > MaxRadioMinutes {
		return nil, outOfRange("minutes", 1, MaxRadioMinutes)
	}
	lang := tts.NormalizeLanguage(req.Language)

	system := "You write scripts for a friendly language-learning radio show with two hosts. Reply with JSON only."
	prompt := fmt.Sprintf(`Write a %s radio segment about %q for CEFR %s listeners, about %d words long.
Hosts: "Mai" (female) and "Nam" (male). Alternate hosts, open with a greeting and close with a sign-off.
Return JSON: {"title": string, "summary": string (Vietnamese),
"lines": [{"speaker": "Mai" or "Nam", "gender": "female" or "male", "text": string, "translation": string (Vietnamese),
"emotion": one of "neutral","happy","excited","calm","serious","surprised","friendly"}],
"vocabulary": [{"word": string, "meaning": string (Vietnamese), "example": string}]}`,
		languageName(lang), topic, level, minutes*radioWordsPerMinute)

	script, err := generateJSON(ctx, s.ai, system, prompt, func(sc *RadioScript) error {
		lines := sc.Lines[:0]
		for _, l := range sc.Lines {
			if strings.TrimSpace(l.Text) != "" {
				lines = append(lines, l)
			}
		}
		sc.Lines = lines
		if len(sc.Lines) < 2 {
			return fmt.Errorf("script needs at least two lines")
		}
		if strings.TrimSpace(sc.Title) == "" {
			sc.Title = topic
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	audio := DialogueAudio(lang, script.Lines)
	for i := range audio.Segments {
		if audio.Segments[i].Style == "" {
			audio.Segments[i].Style = "chat"
		}
	}
	published, err := s.ai.Publish(ctx, audio)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(script)
	if err != nil {
		return nil, errors.InternalWrap("failed to encode radio script", err)
	}

	ep := &repository.RadioEpisode{
		UserID:          userID,
		Title:           script.Title,
		Topic:           topic,
		Language:        lang,
		Level:           level,
		Script:          raw,
		AudioURL:        published.URL,
		DurationSeconds: speechSeconds(audio),
	}
	if err := s.repo.Create(ctx, ep); err != nil {
		return nil, repoErr(err, "radio_episode", "create radio episode")
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("provider", published.Provider).
		Int("lines", len(script.Lines)).
		Msg("Radio episode generated")
	return ep, nil
}

// List returns the user's episodes, newest first.
func (s *RadioService) List(ctx context.Context, userID uuid.UUID, page Page) (*List[*repository.RadioEpisode], error) {
	items, total, err := s.repo.ListByUser(ctx, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, repoErr(err, "radio_episode", "list radio episodes")
	}
	return newList(items, total, page), nil
}

// Get returns one of the user's episodes.
func (s *RadioService) Get(ctx context.Context, userID, id uuid.UUID) (*repository.RadioEpisode, error) {
	ep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoErr(err, "radio_episode", "get radio episode")
	}
	if ep.UserID != userID {
		return nil, errors.NotFound("radio_episode")
	}
	return ep, nil
}

// Delete removes one of the user's episodes.
func (s *RadioService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return repoErr(s.repo.Delete(ctx, id), "radio_episode", "delete radio episode")
}
