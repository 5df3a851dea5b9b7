package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/windfall/lingo_service/internal/client"
)

// DeviceToken is a push token registered by a client app.
type DeviceToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notification is an in-app message.
type Notification struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"-"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Data      json.RawMessage `json:"data,omitempty"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// DeviceTokenRepository defines the interface for device token data access.
type DeviceTokenRepository interface {
	// Upsert registers the token for d.UserID, taking it over from any
	// previous owner.
	Upsert(ctx context.Context, d *DeviceToken) error
	Delete(ctx context.Context, userID uuid.UUID, token string) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*DeviceToken, error)
}

// NotificationRepository defines the interface for notification data access.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// PostgresDeviceTokenRepository implements DeviceTokenRepository with PostgreSQL.
type PostgresDeviceTokenRepository struct {
	db *client.PostgresClient
}

// NewPostgresDeviceTokenRepository creates a new PostgresDeviceTokenRepository.
func NewPostgresDeviceTokenRepository(db *client.PostgresClient) *PostgresDeviceTokenRepository {
	return &PostgresDeviceTokenRepository{db: db}
}

func (r *PostgresDeviceTokenRepository) Upsert(ctx context.Context, d *DeviceToken) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	query := `
		INSERT INTO device_tokens (user_id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := r.db.Pool.QueryRow(ctx, query, d.UserID, d.Token, d.Platform).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	return wrap(err, "upsert device token")
}

func (r *PostgresDeviceTokenRepository) Delete(ctx context.Context, userID uuid.UUID, token string) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM device_tokens WHERE user_id = $1 AND token = $2`, userID, token)
	return affected(tag, err, "delete device token")
}

func (r *PostgresDeviceTokenRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*DeviceToken, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, token, platform, created_at, updated_at
		FROM device_tokens
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, wrap(err, "list device tokens")
	}
	defer rows.Close()

	var tokens []*DeviceToken
	for rows.Next() {
		var d DeviceToken
		if err := rows.Scan(&d.ID, &d.UserID, &d.Token, &d.Platform, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, wrap(err, "scan device token")
		}
		tokens = append(tokens, &d)
	}
	return tokens, wrap(rows.Err(), "iterate device tokens")
}

// PostgresNotificationRepository implements NotificationRepository with PostgreSQL.
type PostgresNotificationRepository struct {
	db *client.PostgresClient
}

// NewPostgresNotificationRepository creates a new PostgresNotificationRepository.
func NewPostgresNotificationRepository(db *client.PostgresClient) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *Notification) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}
	if len(n.Data) == 0 {
		n.Data = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO notifications (user_id, type, title, body, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query, n.UserID, n.Type, n.Title, n.Body, n.Data).Scan(&n.ID, &n.CreatedAt)
	return wrap(err, "create notification")
}

func (r *PostgresNotificationRepository) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, 0, ErrNotConfigured
	}

	var total int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND (NOT $2 OR read_at IS NULL)`,
		userID, unreadOnly,
	).Scan(&total)
	if err != nil {
		return nil, 0, wrap(err, "count notifications")
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, type, title, body, data, read_at, created_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR read_at IS NULL)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, wrap(err, "list notifications")
	}
	defer rows.Close()

	var list []*Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Data, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, 0, wrap(err, "scan notification")
		}
		list = append(list, &n)
	}
	return list, total, wrap(rows.Err(), "iterate notifications")
}

func (r *PostgresNotificationRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	if r.db == nil || r.db.Pool == nil {
		return 0, ErrNotConfigured
	}

	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID,
	).Scan(&count)
	return count, wrap(err, "count unread notifications")
}

func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE notifications SET read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	return affected(tag, err, "mark notification read")
}

func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if r.db == nil || r.db.Pool == nil {
		return 0, ErrNotConfigured
	}

	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE user_id = $1 AND read_at IS NULL`, userID,
	)
	if err != nil {
		return 0, wrap(err, "mark all notifications read")
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresNotificationRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	return affected(tag, err, "delete notification")
}
