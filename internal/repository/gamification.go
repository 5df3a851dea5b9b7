package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/windfall/lingo_service/internal/client"
)

// Gamification holds a user's XP, level and streak counters.
type Gamification struct {
	UserID           uuid.UUID  `json:"-"`
	XP               int        `json:"xp"`
	Level            int        `json:"level"`
	CurrentStreak    int        `json:"current_streak"`
	LongestStreak    int        `json:"longest_streak"`
	LastActivityDate *time.Time `json:"last_activity_date"`
	DailyXP          int        `json:"daily_xp"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ReminderCandidate is a user due for a practice reminder. CurrentStreak is
// zero unless the streak ends yesterday.
type ReminderCandidate struct {
	UserID        uuid.UUID
	UILanguage    string
	CurrentStreak int
}

// GamificationRepository defines the interface for gamification data access.
type GamificationRepository interface {
	// Get returns ErrNotFound when the user has no counters yet.
	Get(ctx context.Context, userID uuid.UUID) (*Gamification, error)
	// Update applies fn to the current counters under a row lock and stores
	// the result. A missing row starts from zero.
	Update(ctx context.Context, userID uuid.UUID, fn func(g *Gamification) error) (*Gamification, error)
	// ReminderCandidates lists users with notifications enabled, the given
	// reminder hour and no activity on today.
	ReminderCandidates(ctx context.Context, today time.Time, hour int) ([]ReminderCandidate, error)
}

// PostgresGamificationRepository implements GamificationRepository with PostgreSQL.
type PostgresGamificationRepository struct {
	db *client.PostgresClient
}

// NewPostgresGamificationRepository creates a new PostgresGamificationRepository.
func NewPostgresGamificationRepository(db *client.PostgresClient) *PostgresGamificationRepository {
	return &PostgresGamificationRepository{db: db}
}

func (r *PostgresGamificationRepository) Get(ctx context.Context, userID uuid.UUID) (*Gamification, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	query := `
		SELECT user_id, xp, level, current_streak, longest_streak, last_activity_date, daily_xp, updated_at
		FROM gamification
		WHERE user_id = $1
	`

	var g Gamification
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(
		&g.UserID,
		&g.XP,
		&g.Level,
		&g.CurrentStreak,
		&g.LongestStreak,
		&g.LastActivityDate,
		&g.DailyXP,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, wrap(err, "get gamification")
	}
	return &g, nil
}

func (r *PostgresGamificationRepository) Update(ctx context.Context, userID uuid.UUID, fn func(g *Gamification) error) (*Gamification, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	var g *Gamification
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		var err error
		g, err = updateGamification(ctx, tx, userID, fn)
		return err
	})
	if err != nil {
		return nil, wrap(err, "update gamification")
	}
	return g, nil
}

// updateGamification locks the user's counters inside tx, applies fn and
// stores the result. A missing row starts from zero.
func updateGamification(ctx context.Context, tx pgx.Tx, userID uuid.UUID, fn func(g *Gamification) error) (*Gamification, error) {
	if _, err := tx.Exec(ctx,
		`INSERT INTO gamification (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return nil, err
	}

	var g Gamification
	err := tx.QueryRow(ctx, `
		SELECT user_id, xp, level, current_streak, longest_streak, last_activity_date, daily_xp, updated_at
		FROM gamification
		WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(
		&g.UserID,
		&g.XP,
		&g.Level,
		&g.CurrentStreak,
		&g.LongestStreak,
		&g.LastActivityDate,
		&g.DailyXP,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := fn(&g); err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `
		UPDATE gamification
		SET xp = $1, level = $2, current_streak = $3, longest_streak = $4,
		    last_activity_date = $5, daily_xp = $6, updated_at = NOW()
		WHERE user_id = $7
		RETURNING updated_at
	`,
		g.XP,
		g.Level,
		g.CurrentStreak,
		g.LongestStreak,
		g.LastActivityDate,
		g.DailyXP,
		userID,
	).Scan(&g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *PostgresGamificationRepository) ReminderCandidates(ctx context.Context, today time.Time, hour int) ([]ReminderCandidate, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	// users without a settings row get the defaults; a streak only counts
	// when it is still alive, i.e. the last activity was yesterday
	query := `
		SELECT p.id, COALESCE(s.ui_language, 'vi'),
		       CASE WHEN g.last_activity_date = $1::date - 1 THEN g.current_streak ELSE 0 END
		FROM profiles p
		LEFT JOIN user_settings s ON s.user_id = p.id
		LEFT JOIN gamification g ON g.user_id = p.id
		WHERE COALESCE(s.notifications_enabled, TRUE)
		  AND COALESCE(s.reminder_hour, 19) = $2
		  AND (g.last_activity_date IS NULL OR g.last_activity_date < $1::date)
	`

	rows, err := r.db.Pool.Query(ctx, query, today.Format("2006-01-02"), hour)
	if err != nil {
		return nil, wrap(err, "list reminder candidates")
	}
	defer rows.Close()

	var out []ReminderCandidate
	for rows.Next() {
		var c ReminderCandidate
		if err := rows.Scan(&c.UserID, &c.UILanguage, &c.CurrentStreak); err != nil {
			return nil, wrap(err, "scan reminder candidate")
		}
		out = append(out, c)
	}
	return out, wrap(rows.Err(), "iterate reminder candidates")
}
