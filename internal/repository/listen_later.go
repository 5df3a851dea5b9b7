package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/windfall/lingo_service/internal/client"
)

// ListenLaterItem queues a lesson for later.
type ListenLaterItem struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	LessonID  uuid.UUID `json:"lesson_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ListenLaterRepository defines the interface for listen-later data access.
type ListenLaterRepository interface {
	// Add returns ErrAlreadyExists when the lesson is already queued.
	Add(ctx context.Context, item *ListenLaterItem) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*ListenLaterItem, int, error)
	Remove(ctx context.Context, userID, lessonID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)
}

// PostgresListenLaterRepository implements ListenLaterRepository with PostgreSQL.
type PostgresListenLaterRepository struct {
	db *client.PostgresClient
}

// NewPostgresListenLaterRepository creates a new PostgresListenLaterRepository.
func NewPostgresListenLaterRepository(db *client.PostgresClient) *PostgresListenLaterRepository {
	return &PostgresListenLaterRepository{db: db}
}

func (r *PostgresListenLaterRepository) Add(ctx context.Context, item *ListenLaterItem) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	query := `
		INSERT INTO listen_later (user_id, lesson_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query, item.UserID, item.LessonID).Scan(&item.ID, &item.CreatedAt)
	return wrap(err, "add listen later")
}

func (r *PostgresListenLaterRepository) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*ListenLaterItem, int, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, 0, ErrNotConfigured
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM listen_later WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, wrap(err, "count listen later")
	}

	query := `
		SELECT id, user_id, lesson_id, created_at
		FROM listen_later
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, wrap(err, "list listen later")
	}
	defer rows.Close()

	var items []*ListenLaterItem
	for rows.Next() {
		var item ListenLaterItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.LessonID, &item.CreatedAt); err != nil {
			return nil, 0, wrap(err, "scan listen later")
		}
		items = append(items, &item)
	}
	return items, total, wrap(rows.Err(), "iterate listen later")
}

func (r *PostgresListenLaterRepository) Remove(ctx context.Context, userID, lessonID uuid.UUID) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM listen_later WHERE user_id = $1 AND lesson_id = $2`, userID, lessonID)
	return affected(tag, err, "remove listen later")
}

func (r *PostgresListenLaterRepository) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	if r.db == nil || r.db.Pool == nil {
		return 0, ErrNotConfigured
	}

	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM listen_later WHERE user_id = $1`, userID)
	if err != nil {
		return 0, wrap(err, "clear listen later")
	}
	return tag.RowsAffected(), nil
}
