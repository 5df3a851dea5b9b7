package service

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/windfall/lingo_service/internal/repository"
)

const maxActivitySeconds = 24 * 60 * 60

var activityTypes = map[string]bool{
	repository.ActivityListening: true,
	repository.ActivitySpeaking:  true,
	repository.ActivityReading:   true,
	repository.ActivityRadio:     true,
}

// RecordActivityRequest is a finished practice activity. ID may be set by
// offline clients so that replays are ignored.
type RecordActivityRequest struct {
	ID              *uuid.UUID      `json:"id"`
	LessonID        *uuid.UUID      `json:"lesson_id"`
	ActivityType    string          `json:"activity_type"`
	Score           *int            `json:"score"`
	DurationSeconds int             `json:"duration_seconds"`
	Details         json.RawMessage `json:"details"`
	CompletedAt     *time.Time      `json:"completed_at"`
}

// RecordResult is the stored entry and the user's counters after the award.
type RecordResult struct {
	Entry        *repository.HistoryEntry `json:"entry"`
	XPEarned     int                      `json:"xp_earned"`
	Duplicate    bool                     `json:"duplicate"`
	Gamification *repository.Gamification `json:"gamification"`
}

// HistoryStats summarizes a user's practice.
type HistoryStats struct {
	ByType          []repository.ActivityStats `json:"by_type"`
	TotalActivities int                        `json:"total_activities"`
	TotalMinutes    int                        `json:"total_minutes"`
	TotalXP         int                        `json:"total_xp"`
	AverageScore    *float64                   `json:"average_score"`
}

// HistoryService records practice and awards XP for it.
type HistoryService struct {
	repo         repository.HistoryRepository
	gamification *GamificationService
	now          func() time.Time
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(repo repository.HistoryRepository, gamification *GamificationService) *HistoryService {
	return &HistoryService{repo: repo, gamification: gamification, now: time.Now}
}

func validActivity(activityType string) error {
	if !activityTypes[activityType] {
		return fieldInvalid("activity_type")
	}
	return nil
}

// Record stores an activity and awards its XP in one transaction.
// Replaying an id that is already stored awards nothing.
func (s *HistoryService) Record(ctx context.Context, userID uuid.UUID, req RecordActivityRequest) (*RecordResult, error) {
	if err := validActivity(req.ActivityType); err != nil {
		return nil, err
	}
	if req.Score != nil && (*req.Score < 0 || *req.Score > 100) {
		return nil, outOfRange("score", 0, 100)
	}
	if req.DurationSeconds < 0 || req.DurationSeconds > maxActivitySeconds {
		return nil, outOfRange("duration_seconds", 0, maxActivitySeconds)
	}
	if len(req.Details) > 0 && !json.Valid(req.Details) {
		return nil, fieldInvalid("details")
	}

	now := s.now()
	completed := now
	if req.CompletedAt != nil && !req.CompletedAt.IsZero() && req.CompletedAt.Before(now) {
		completed = *req.CompletedAt
	}

	entry := &repository.HistoryEntry{
		UserID:          userID,
		LessonID:        req.LessonID,
		ActivityType:    req.ActivityType,
		Score:           req.Score,
		DurationSeconds: req.DurationSeconds,
		XPEarned:        XPFor(req.ActivityType, req.Score, req.DurationSeconds),
		Details:         req.Details,
		CompletedAt:     completed,
	}
	if req.ID != nil {
		entry.ID = *req.ID
	}

	g, inserted, err := s.repo.Insert(ctx, entry, s.gamification.awardFunc(entry.XPEarned, completed))
	if err != nil {
		return nil, repoErr(err, "history", "record activity")
	}
	if !inserted {
		g, err := s.gamification.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &RecordResult{Entry: entry, Duplicate: true, Gamification: g}, nil
	}
	return &RecordResult{Entry: entry, XPEarned: entry.XPEarned, Gamification: s.gamification.view(g)}, nil
}

// List returns the user's history, newest first. An empty activityType
// lists every type.
func (s *HistoryService) List(ctx context.Context, userID uuid.UUID, activityType string, page Page) (*List[*repository.HistoryEntry], error) {
	if activityType != "" {
		if err := validActivity(activityType); err != nil {
			return nil, err
		}
	}
	items, total, err := s.repo.List(ctx, userID, activityType, page.Limit, page.Offset())
	if err != nil {
		return nil, repoErr(err, "history", "list history")
	}
	return newList(items, total, page), nil
}

// Stats aggregates the user's history. The overall average weighs each
// type by its number of scored activities.
func (s *HistoryService) Stats(ctx context.Context, userID uuid.UUID) (*HistoryStats, error) {
	byType, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return nil, repoErr(err, "history", "get history stats")
	}

	stats := &HistoryStats{ByType: byType}
	if stats.ByType == nil {
		stats.ByType = []repository.ActivityStats{}
	}

	var seconds, scored int
	var scoreSum float64
	for _, t := range byType {
		stats.TotalActivities += t.Count
		stats.TotalXP += t.TotalXP
		seconds += t.TotalSeconds
		if t.AverageScore != nil && t.ScoredCount > 0 {
			scored += t.ScoredCount
			scoreSum += *t.AverageScore * float64(t.ScoredCount)
		}
	}
	stats.TotalMinutes = seconds / 60
	if scored > 0 {
		avg := math.Round(scoreSum/float64(scored)*10) / 10
		stats.AverageScore = &avg
	}
	return stats, nil
}

// Delete removes one entry. XP already awarded is kept.
func (s *HistoryService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return repoErr(s.repo.Delete(ctx, userID, id), "history", "delete history")
}

// Clear removes the user's whole history and returns how many entries
// were deleted.
func (s *HistoryService) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.DeleteAll(ctx, userID)
	if err != nil {
		return 0, repoErr(err, "history", "clear history")
	}
	return n, nil
}
