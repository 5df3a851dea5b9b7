package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/windfall/lingo_service/internal/client"
)

// Feedback is a message sent by a user about the app.
type Feedback struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"-"`
	Category  string          `json:"category"`
	Message   string          `json:"message"`
	Rating    *int            `json:"rating,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// FeedbackRepository defines the interface for feedback data access.
type FeedbackRepository interface {
	Create(ctx context.Context, f *Feedback) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Feedback, int, error)
}

// PostgresFeedbackRepository implements FeedbackRepository with PostgreSQL.
type PostgresFeedbackRepository struct {
	db *client.PostgresClient
}

// NewPostgresFeedbackRepository creates a new PostgresFeedbackRepository.
func NewPostgresFeedbackRepository(db *client.PostgresClient) *PostgresFeedbackRepository {
	return &PostgresFeedbackRepository{db: db}
}

func (r *PostgresFeedbackRepository) Create(ctx context.Context, f *Feedback) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}
	if len(f.Metadata) == 0 {
		f.Metadata = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO feedback (user_id, category, message, rating, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query, f.UserID, f.Category, f.Message, f.Rating, f.Metadata).
		Scan(&f.ID, &f.CreatedAt)
	return wrap(err, "create feedback")
}

func (r *PostgresFeedbackRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Feedback, int, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, 0, ErrNotConfigured
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM feedback WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, wrap(err, "count feedback")
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, category, message, rating, metadata, created_at
		FROM feedback
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, wrap(err, "list feedback")
	}
	defer rows.Close()

	var list []*Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.UserID, &f.Category, &f.Message, &f.Rating, &f.Metadata, &f.CreatedAt); err != nil {
			return nil, 0, wrap(err, "scan feedback")
		}
		list = append(list, &f)
	}
	return list, total, wrap(rows.Err(), "iterate feedback")
}
