package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/repository"
)

func newHistoryService() (*HistoryService, *fakeHistory, *fakeGamification) {
	gam := newFakeGamification()
	history := &fakeHistory{gam: gam}
	return NewHistoryService(history, NewGamificationService(gam, time.UTC)), history, gam
}

func TestHistoryService_RecordAwardsXP(t *testing.T) {
	svc, history, gam := newHistoryService()
	userID := uuid.New()

	res, err := svc.Record(context.Background(), userID, RecordActivityRequest{
		ActivityType:    repository.ActivityListening,
		Score:           intPtr(90),
		DurationSeconds: 240,
	})
	require.NoError(t, err)
	assert.Equal(t, 23, res.XPEarned)
	assert.Equal(t, 23, res.Entry.XPEarned)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 23, res.Gamification.XP)
	assert.Equal(t, 1, res.Gamification.CurrentStreak)

	require.Len(t, history.rows, 1)
	assert.Equal(t, 23, gam.rows[userID].XP)
}

func TestHistoryService_RecordIsIdempotent(t *testing.T) {
	svc, history, gam := newHistoryService()
	userID := uuid.New()
	id := uuid.New()
	req := RecordActivityRequest{ID: &id, ActivityType: repository.ActivityRadio}

	_, err := svc.Record(context.Background(), userID, req)
	require.NoError(t, err)
	res, err := svc.Record(context.Background(), userID, req)
	require.NoError(t, err)

	assert.True(t, res.Duplicate)
	assert.Zero(t, res.XPEarned)
	assert.Len(t, history.rows, 1)
	assert.Equal(t, 15, gam.rows[userID].XP)
}

func TestHistoryService_RecordRetriesFailedAward(t *testing.T) {
	svc, history, gam := newHistoryService()
	userID := uuid.New()
	id := uuid.New()
	req := RecordActivityRequest{ID: &id, ActivityType: repository.ActivityRadio}

	history.awardErr = fmt.Errorf("connection reset")
	_, err := svc.Record(context.Background(), userID, req)
	assert.True(t, errors.IsCode(err, errors.ErrDatabase))
	assert.Empty(t, history.rows, "entry rolled back with its award")

	history.awardErr = nil
	res, err := svc.Record(context.Background(), userID, req)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 15, res.XPEarned)
	assert.Equal(t, 15, gam.rows[userID].XP)
	assert.Len(t, history.rows, 1)
}

func TestHistoryService_RecordMissingLesson(t *testing.T) {
	svc, history, _ := newHistoryService()
	history.insertErr = fmt.Errorf("insert history: %w", repository.ErrForeignKey)
	lessonID := uuid.New()

	_, err := svc.Record(context.Background(), uuid.New(), RecordActivityRequest{
		LessonID:     &lessonID,
		ActivityType: repository.ActivityListening,
	})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrValidation, appErr.Code)
	assert.Equal(t, "validation.reference_missing", appErr.MessageID)
}

func TestHistoryService_RecordValidation(t *testing.T) {
	svc, _, _ := newHistoryService()
	future := time.Now().Add(time.Hour)

	tests := map[string]RecordActivityRequest{
		"unknown type":     {ActivityType: "dancing"},
		"score too high":   {ActivityType: repository.ActivityReading, Score: intPtr(101)},
		"negative seconds": {ActivityType: repository.ActivityReading, DurationSeconds: -1},
		"bad details":      {ActivityType: repository.ActivityReading, Details: json.RawMessage(`{oops`)},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), uuid.New(), req)
			assert.True(t, errors.IsCode(err, errors.ErrValidation))
		})
	}

	t.Run("future completion is clamped", func(t *testing.T) {
		res, err := svc.Record(context.Background(), uuid.New(), RecordActivityRequest{
			ActivityType: repository.ActivityReading,
			CompletedAt:  &future,
		})
		require.NoError(t, err)
		assert.True(t, res.Entry.CompletedAt.Before(future))
	})
}

func TestHistoryService_ListFiltersByType(t *testing.T) {
	svc, _, _ := newHistoryService()
	userID := uuid.New()
	for _, activity := range []string{repository.ActivityListening, repository.ActivityReading, repository.ActivityListening} {
		_, err := svc.Record(context.Background(), userID, RecordActivityRequest{ActivityType: activity})
		require.NoError(t, err)
	}

	list, err := svc.List(context.Background(), userID, repository.ActivityListening, NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)

	all, err := svc.List(context.Background(), userID, "", NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)

	_, err = svc.List(context.Background(), userID, "dancing", NewPage(1, 10))
	assert.True(t, errors.IsCode(err, errors.ErrValidation))
}

func TestHistoryService_Stats(t *testing.T) {
	svc, _, _ := newHistoryService()
	userID := uuid.New()
	record := func(activity string, score *int, seconds int) {
		_, err := svc.Record(context.Background(), userID, RecordActivityRequest{
			ActivityType: activity, Score: score, DurationSeconds: seconds,
		})
		require.NoError(t, err)
	}
	record(repository.ActivityListening, intPtr(80), 300)
	record(repository.ActivityListening, intPtr(60), 300)
	record(repository.ActivityReading, intPtr(100), 120)
	record(repository.ActivityRadio, nil, 600)

	stats, err := svc.Stats(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalActivities)
	assert.Equal(t, 22, stats.TotalMinutes)
	require.NotNil(t, stats.AverageScore)
	assert.InDelta(t, 80.0, *stats.AverageScore, 0.001)
	assert.Len(t, stats.ByType, 3)
}

func TestHistoryService_StatsEmpty(t *testing.T) {
	svc, _, _ := newHistoryService()

	stats, err := svc.Stats(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalActivities)
	assert.Nil(t, stats.AverageScore)
	assert.NotNil(t, stats.ByType)
}

func TestHistoryService_DeleteAndClear(t *testing.T) {
	svc, _, _ := newHistoryService()
	userID := uuid.New()
	res, err := svc.Record(context.Background(), userID, RecordActivityRequest{ActivityType: repository.ActivityRadio})
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), userID, RecordActivityRequest{ActivityType: repository.ActivityRadio})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), userID, res.Entry.ID))
	err = svc.Delete(context.Background(), userID, res.Entry.ID)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))

	n, err := svc.Clear(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
