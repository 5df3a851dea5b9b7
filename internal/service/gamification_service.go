package service

import (
	"context"
	stderrors "errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/windfall/lingo_service/internal/repository"
)

// XP rules
const (
	radioXP          = 15
	maxDurationBonus = 10
)

// XPFor returns the XP earned for an activity. Scores are clamped to
// 0..100; a missing score counts as zero. Every full minute of practice
// adds one XP, up to ten.
func XPFor(activityType string, score *int, durationSeconds int) int {
	s := 0
	if score != nil {
		s = *score
	}
	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}

	var xp int
	switch activityType {
	case repository.ActivityListening:
		xp = 10 + s/10
	case repository.ActivityReading:
		xp = s/5 + 5
	case repository.ActivitySpeaking:
		xp = s/10 + 5
	case repository.ActivityRadio:
		xp = radioXP
	}

	if durationSeconds > 0 {
		bonus := durationSeconds / 60
		if bonus > maxDurationBonus {
			bonus = maxDurationBonus
		}
		xp += bonus
	}
	return xp
}

// LevelFor returns floor(sqrt(xp/100)) + 1.
func LevelFor(xp int) int {
	if xp <= 0 {
		return 1
	}
	return int(math.Floor(math.Sqrt(float64(xp)/100))) + 1
}

// civilDay returns t's calendar date in loc as midnight UTC, the form in
// which dates are stored.
func civilDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// applyActivity adds xp earned on day to g and advances the streak.
// Activities older than the last active day only add XP.
func applyActivity(g *repository.Gamification, day time.Time, xp int) {
	g.XP += xp
	g.Level = LevelFor(g.XP)

	switch {
	case g.LastActivityDate == nil:
		g.CurrentStreak = 1
		g.DailyXP = xp
	case day.Equal(*g.LastActivityDate):
		if g.CurrentStreak == 0 {
			g.CurrentStreak = 1
		}
		g.DailyXP += xp
	case day.Before(*g.LastActivityDate):
		return
	case day.Equal(g.LastActivityDate.AddDate(0, 0, 1)):
		g.CurrentStreak++
		g.DailyXP = xp
	default:
		g.CurrentStreak = 1
		g.DailyXP = xp
	}

	d := day
	g.LastActivityDate = &d
	if g.CurrentStreak > g.LongestStreak {
		g.LongestStreak = g.CurrentStreak
	}
}

// GamificationService awards XP and tracks streaks.
type GamificationService struct {
	repo repository.GamificationRepository
	loc  *time.Location
	now  func() time.Time
}

// NewGamificationService creates a new GamificationService. Calendar days
// are taken in loc.
func NewGamificationService(repo repository.GamificationRepository, loc *time.Location) *GamificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &GamificationService{repo: repo, loc: loc, now: time.Now}
}

// awardFunc returns the counter update that credits xp earned at the given
// time.
func (s *GamificationService) awardFunc(xp int, at time.Time) func(g *repository.Gamification) error {
	day := civilDay(at, s.loc)
	return func(g *repository.Gamification) error {
		applyActivity(g, day, xp)
		return nil
	}
}

// Get returns the user's counters as of today. A streak whose last day is
// before yesterday reads as zero, and daily XP resets each day.
func (s *GamificationService) Get(ctx context.Context, userID uuid.UUID) (*repository.Gamification, error) {
	g, err := s.repo.Get(ctx, userID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return &repository.Gamification{UserID: userID, Level: 1}, nil
	}
	if err != nil {
		return nil, repoErr(err, "gamification", "get gamification")
	}
	return s.view(g), nil
}

func (s *GamificationService) view(g *repository.Gamification) *repository.Gamification {
	out := *g
	if out.LastActivityDate == nil {
		return &out
	}

	today := civilDay(s.now(), s.loc)
	last := *out.LastActivityDate
	if !last.Equal(today) {
		out.DailyXP = 0
	}
	if last.Before(today.AddDate(0, 0, -1)) {
		out.CurrentStreak = 0
	}
	return &out
}
