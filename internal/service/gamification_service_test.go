package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/lingo_service/internal/repository"
)

func intPtr(v int) *int { return &v }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestXPFor(t *testing.T) {
	tests := []struct {
		name     string
		activity string
		score    *int
		duration int
		want     int
	}{
		{"listening perfect", repository.ActivityListening, intPtr(100), 0, 20},
		{"listening no score", repository.ActivityListening, nil, 0, 10},
		{"reading 80", repository.ActivityReading, intPtr(80), 0, 21},
		{"speaking 55", repository.ActivitySpeaking, intPtr(55), 0, 10},
		{"radio ignores score", repository.ActivityRadio, intPtr(100), 0, 15},
		{"score clamped high", repository.ActivityReading, intPtr(300), 0, 25},
		{"score clamped low", repository.ActivityReading, intPtr(-40), 0, 5},
		{"duration bonus", repository.ActivityListening, nil, 185, 13},
		{"duration bonus capped", repository.ActivityListening, nil, 3600, 20},
		{"unknown type", "dancing", intPtr(100), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, XPFor(tt.activity, tt.score, tt.duration))
		})
	}
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, 1, LevelFor(0))
	assert.Equal(t, 1, LevelFor(99))
	assert.Equal(t, 2, LevelFor(100))
	assert.Equal(t, 2, LevelFor(399))
	assert.Equal(t, 3, LevelFor(400))
	assert.Equal(t, 11, LevelFor(10000))
}

func TestCivilDay(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)

	// 20:00 UTC is already the next morning in Vietnam.
	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, day(2026, 3, 2), civilDay(at, loc))
	assert.Equal(t, day(2026, 3, 1), civilDay(at, time.UTC))
}

func TestApplyActivity(t *testing.T) {
	t.Run("first activity starts a streak", func(t *testing.T) {
		g := &repository.Gamification{}
		applyActivity(g, day(2026, 3, 1), 20)
		assert.Equal(t, 20, g.XP)
		assert.Equal(t, 1, g.CurrentStreak)
		assert.Equal(t, 1, g.LongestStreak)
		assert.Equal(t, 20, g.DailyXP)
	})

	t.Run("same day adds daily xp", func(t *testing.T) {
		last := day(2026, 3, 1)
		g := &repository.Gamification{XP: 20, CurrentStreak: 3, LongestStreak: 5, LastActivityDate: &last, DailyXP: 20}
		applyActivity(g, day(2026, 3, 1), 10)
		assert.Equal(t, 3, g.CurrentStreak)
		assert.Equal(t, 30, g.DailyXP)
	})

	t.Run("next day extends streak", func(t *testing.T) {
		last := day(2026, 3, 1)
		g := &repository.Gamification{CurrentStreak: 5, LongestStreak: 5, LastActivityDate: &last, DailyXP: 40}
		applyActivity(g, day(2026, 3, 2), 10)
		assert.Equal(t, 6, g.CurrentStreak)
		assert.Equal(t, 6, g.LongestStreak)
		assert.Equal(t, 10, g.DailyXP)
		assert.Equal(t, day(2026, 3, 2), *g.LastActivityDate)
	})

	t.Run("gap resets streak", func(t *testing.T) {
		last := day(2026, 3, 1)
		g := &repository.Gamification{CurrentStreak: 7, LongestStreak: 9, LastActivityDate: &last}
		applyActivity(g, day(2026, 3, 5), 10)
		assert.Equal(t, 1, g.CurrentStreak)
		assert.Equal(t, 9, g.LongestStreak)
	})

	t.Run("older activity only adds xp", func(t *testing.T) {
		last := day(2026, 3, 5)
		g := &repository.Gamification{XP: 100, CurrentStreak: 2, LongestStreak: 2, LastActivityDate: &last, DailyXP: 15}
		applyActivity(g, day(2026, 3, 1), 10)
		assert.Equal(t, 110, g.XP)
		assert.Equal(t, 2, g.CurrentStreak)
		assert.Equal(t, 15, g.DailyXP)
		assert.Equal(t, day(2026, 3, 5), *g.LastActivityDate)
	})

	t.Run("month boundary", func(t *testing.T) {
		last := day(2026, 2, 28)
		g := &repository.Gamification{CurrentStreak: 1, LastActivityDate: &last}
		applyActivity(g, day(2026, 3, 1), 10)
		assert.Equal(t, 2, g.CurrentStreak)
	})
}

func TestGamificationService_AwardAndGet(t *testing.T) {
	repo := newFakeGamification()
	svc := NewGamificationService(repo, time.UTC)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	userID := uuid.New()

	g, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Level)
	assert.Zero(t, g.XP)

	_, err = repo.Update(context.Background(), userID, svc.awardFunc(60, now.Add(-24*time.Hour)))
	require.NoError(t, err)
	_, err = repo.Update(context.Background(), userID, svc.awardFunc(60, now))
	require.NoError(t, err)

	g, err = svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 120, g.XP)
	assert.Equal(t, 2, g.Level)
	assert.Equal(t, 2, g.CurrentStreak)
	assert.Equal(t, 60, g.DailyXP)
}

func TestGamificationService_GetViewsStaleCounters(t *testing.T) {
	repo := newFakeGamification()
	userID := uuid.New()
	last := day(2026, 3, 7)
	repo.rows[userID] = &repository.Gamification{
		UserID: userID, XP: 300, Level: 2, CurrentStreak: 4, LongestStreak: 6,
		LastActivityDate: &last, DailyXP: 25,
	}

	svc := NewGamificationService(repo, time.UTC)

	svc.now = func() time.Time { return time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC) }
	g, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 4, g.CurrentStreak, "yesterday keeps the streak alive")
	assert.Zero(t, g.DailyXP)

	svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	g, err = svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, g.CurrentStreak)
	assert.Equal(t, 6, g.LongestStreak)
	assert.Equal(t, 4, repo.rows[userID].CurrentStreak, "stored row untouched")
}
