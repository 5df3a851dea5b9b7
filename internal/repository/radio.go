package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/windfall/lingo_service/internal/client"
)

// RadioEpisode is a generated two-host audio show.
type RadioEpisode struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	Title           string          `json:"title"`
	Topic           string          `json:"topic"`
	Language        string          `json:"language"`
	Level           string          `json:"level"`
	Script          json.RawMessage `json:"script"`
	AudioURL        string          `json:"audio_url"`
	DurationSeconds int             `json:"duration_seconds"`
	CreatedAt       time.Time       `json:"created_at"`
}

// RadioRepository defines the interface for radio episode data access.
type RadioRepository interface {
	Create(ctx context.Context, e *RadioEpisode) error
	GetByID(ctx context.Context, id uuid.UUID) (*RadioEpisode, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*RadioEpisode, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PostgresRadioRepository implements RadioRepository with PostgreSQL.
type PostgresRadioRepository struct {
	db *client.PostgresClient
}

// NewPostgresRadioRepository creates a new PostgresRadioRepository.
func NewPostgresRadioRepository(db *client.PostgresClient) *PostgresRadioRepository {
	return &PostgresRadioRepository{db: db}
}

const radioColumns = `id, user_id, title, topic, language, level, script, audio_url, duration_seconds, created_at`

func scanRadio(row pgx.Row) (*RadioEpisode, error) {
	var e RadioEpisode
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Title,
		&e.Topic,
		&e.Language,
		&e.Level,
		&e.Script,
		&e.AudioURL,
		&e.DurationSeconds,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PostgresRadioRepository) Create(ctx context.Context, e *RadioEpisode) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	query := `
		INSERT INTO radio_episodes (user_id, title, topic, language, level, script, audio_url, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query,
		e.UserID,
		e.Title,
		e.Topic,
		e.Language,
		e.Level,
		e.Script,
		e.AudioURL,
		e.DurationSeconds,
	).Scan(&e.ID, &e.CreatedAt)
	return wrap(err, "create radio episode")
}

func (r *PostgresRadioRepository) GetByID(ctx context.Context, id uuid.UUID) (*RadioEpisode, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	e, err := scanRadio(r.db.Pool.QueryRow(ctx, `SELECT `+radioColumns+` FROM radio_episodes WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(err, "get radio episode")
	}
	return e, nil
}

func (r *PostgresRadioRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*RadioEpisode, int, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, 0, ErrNotConfigured
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM radio_episodes WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, wrap(err, "count radio episodes")
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+radioColumns+`
		FROM radio_episodes
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, wrap(err, "list radio episodes")
	}
	defer rows.Close()

	var episodes []*RadioEpisode
	for rows.Next() {
		e, err := scanRadio(rows)
		if err != nil {
			return nil, 0, wrap(err, "scan radio episode")
		}
		episodes = append(episodes, e)
	}
	return episodes, total, wrap(rows.Err(), "iterate radio episodes")
}

func (r *PostgresRadioRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM radio_episodes WHERE id = $1`, id)
	return affected(tag, err, "delete radio episode")
}
