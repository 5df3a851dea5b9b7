package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/windfall/lingo_service/internal/client"
)

// Activity types
const (
	ActivityListening = "listening"
	ActivitySpeaking  = "speaking"
	ActivityReading   = "reading"
	ActivityRadio     = "radio"
)

// HistoryEntry is one completed practice activity.
type HistoryEntry struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"-"`
	LessonID        *uuid.UUID      `json:"lesson_id,omitempty"`
	ActivityType    string          `json:"activity_type"`
	Score           *int            `json:"score,omitempty"`
	DurationSeconds int             `json:"duration_seconds"`
	XPEarned        int             `json:"xp_earned"`
	Details         json.RawMessage `json:"details,omitempty"`
	CompletedAt     time.Time       `json:"completed_at"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ActivityStats aggregates one activity type.
type ActivityStats struct {
	ActivityType string   `json:"activity_type"`
	Count        int      `json:"count"`
	ScoredCount  int      `json:"scored_count"`
	TotalSeconds int      `json:"total_seconds"`
	AverageScore *float64 `json:"average_score,omitempty"`
	TotalXP      int      `json:"total_xp"`
}

// HistoryRepository defines the interface for history data access.
type HistoryRepository interface {
	// Insert stores e and applies award to the user's gamification counters
	// in the same transaction, so an entry never exists without its XP. A
	// row with the same id is left untouched, award is skipped and inserted
	// reports false. A nil award only stores the entry.
	Insert(ctx context.Context, e *HistoryEntry, award func(g *Gamification) error) (g *Gamification, inserted bool, err error)
	List(ctx context.Context, userID uuid.UUID, activityType string, limit, offset int) ([]*HistoryEntry, int, error)
	Stats(ctx context.Context, userID uuid.UUID) ([]ActivityStats, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
	// ChangedSince lists entries the server received after since.
	ChangedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*HistoryEntry, error)
}

// PostgresHistoryRepository implements HistoryRepository with PostgreSQL.
type PostgresHistoryRepository struct {
	db *client.PostgresClient
}

// NewPostgresHistoryRepository creates a new PostgresHistoryRepository.
func NewPostgresHistoryRepository(db *client.PostgresClient) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

const historyColumns = `id, user_id, lesson_id, activity_type, score, duration_seconds, xp_earned, details, completed_at, created_at`

func scanHistory(row pgx.Row) (*HistoryEntry, error) {
	var e HistoryEntry
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.LessonID,
		&e.ActivityType,
		&e.Score,
		&e.DurationSeconds,
		&e.XPEarned,
		&e.Details,
		&e.CompletedAt,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PostgresHistoryRepository) Insert(ctx context.Context, e *HistoryEntry, award func(g *Gamification) error) (*Gamification, bool, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, false, ErrNotConfigured
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if len(e.Details) == 0 {
		e.Details = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO history (
			id, user_id, lesson_id, activity_type, score, duration_seconds, xp_earned, details, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at
	`

	var g *Gamification
	inserted := true
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query,
			e.ID,
			e.UserID,
			e.LessonID,
			e.ActivityType,
			e.Score,
			e.DurationSeconds,
			e.XPEarned,
			e.Details,
			e.CompletedAt,
		).Scan(&e.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			inserted = false
			return nil
		}
		if err != nil || award == nil {
			return err
		}

		g, err = updateGamification(ctx, tx, e.UserID, award)
		return err
	})
	if err != nil {
		return nil, false, wrap(err, "insert history")
	}
	return g, inserted, nil
}

func (r *PostgresHistoryRepository) List(ctx context.Context, userID uuid.UUID, activityType string, limit, offset int) ([]*HistoryEntry, int, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, 0, ErrNotConfigured
	}

	var total int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM history WHERE user_id = $1 AND ($2 = '' OR activity_type = $2)`,
		userID, activityType,
	).Scan(&total)
	if err != nil {
		return nil, 0, wrap(err, "count history")
	}

	query := `
		SELECT ` + historyColumns + `
		FROM history
		WHERE user_id = $1 AND ($2 = '' OR activity_type = $2)
		ORDER BY completed_at DESC
		LIMIT $3 OFFSET $4
	`
	entries, err := r.query(ctx, query, userID, activityType, limit, offset)
	return entries, total, err
}

func (r *PostgresHistoryRepository) Stats(ctx context.Context, userID uuid.UUID) ([]ActivityStats, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	query := `
		SELECT activity_type, COUNT(*), COUNT(score), COALESCE(SUM(duration_seconds), 0), AVG(score)::float8, COALESCE(SUM(xp_earned), 0)
		FROM history
		WHERE user_id = $1
		GROUP BY activity_type
		ORDER BY activity_type
	`
	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, wrap(err, "get history stats")
	}
	defer rows.Close()

	var stats []ActivityStats
	for rows.Next() {
		var s ActivityStats
		if err := rows.Scan(&s.ActivityType, &s.Count, &s.ScoredCount, &s.TotalSeconds, &s.AverageScore, &s.TotalXP); err != nil {
			return nil, wrap(err, "scan history stats")
		}
		stats = append(stats, s)
	}
	return stats, wrap(rows.Err(), "iterate history stats")
}

func (r *PostgresHistoryRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM history WHERE id = $1 AND user_id = $2`, id, userID)
	return affected(tag, err, "delete history")
}

func (r *PostgresHistoryRepository) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	if r.db == nil || r.db.Pool == nil {
		return 0, ErrNotConfigured
	}

	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM history WHERE user_id = $1`, userID)
	if err != nil {
		return 0, wrap(err, "clear history")
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresHistoryRepository) ChangedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*HistoryEntry, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	query := `
		SELECT ` + historyColumns + `
		FROM history
		WHERE user_id = $1 AND created_at > $2
		ORDER BY created_at
	`
	return r.query(ctx, query, userID, since)
}

func (r *PostgresHistoryRepository) query(ctx context.Context, query string, args ...interface{}) ([]*HistoryEntry, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(err, "list history")
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, wrap(err, "scan history")
		}
		entries = append(entries, e)
	}
	return entries, wrap(rows.Err(), "iterate history")
}
