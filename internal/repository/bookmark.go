package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/windfall/lingo_service/internal/client"
)

// Bookmark marks a lesson for a user. Deleted bookmarks keep a tombstone in
// DeletedAt so offline clients learn about the removal. UpdatedAt is the
// edit time used for last-write-wins, which a syncing client may set in the
// past; ChangedAt is when the server stored the row.
type Bookmark struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"-"`
	LessonID  uuid.UUID  `json:"lesson_id"`
	Note      string     `json:"note"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	ChangedAt time.Time  `json:"-"`
}

// BookmarkRepository defines the interface for bookmark data access.
type BookmarkRepository interface {
	// Upsert creates the bookmark or revives and updates a deleted one.
	Upsert(ctx context.Context, b *Bookmark) error
	// UpsertIfNewer writes b only when no row exists or b.UpdatedAt is newer
	// than the stored row. applied reports whether the write happened.
	UpsertIfNewer(ctx context.Context, b *Bookmark) (applied bool, err error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Bookmark, error)
	GetByLesson(ctx context.Context, userID, lessonID uuid.UUID) (*Bookmark, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Bookmark, int, error)
	UpdateNote(ctx context.Context, userID, id uuid.UUID, note string) (*Bookmark, error)
	SoftDelete(ctx context.Context, userID, id uuid.UUID) error
	// ChangedSince lists rows the server stored after since, tombstones
	// included.
	ChangedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*Bookmark, error)
}

// PostgresBookmarkRepository implements BookmarkRepository with PostgreSQL.
type PostgresBookmarkRepository struct {
	db *client.PostgresClient
}

// NewPostgresBookmarkRepository creates a new PostgresBookmarkRepository.
func NewPostgresBookmarkRepository(db *client.PostgresClient) *PostgresBookmarkRepository {
	return &PostgresBookmarkRepository{db: db}
}

const bookmarkColumns = `id, user_id, lesson_id, note, created_at, updated_at, deleted_at, changed_at`

func scanBookmark(row pgx.Row) (*Bookmark, error) {
	var b Bookmark
	if err := row.Scan(&b.ID, &b.UserID, &b.LessonID, &b.Note, &b.CreatedAt, &b.UpdatedAt, &b.DeletedAt, &b.ChangedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PostgresBookmarkRepository) Upsert(ctx context.Context, b *Bookmark) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	query := `
		INSERT INTO bookmarks (user_id, lesson_id, note)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			note = EXCLUDED.note, deleted_at = NULL, updated_at = NOW(), changed_at = NOW()
		RETURNING ` + bookmarkColumns

	stored, err := scanBookmark(r.db.Pool.QueryRow(ctx, query, b.UserID, b.LessonID, b.Note))
	if err != nil {
		return wrap(err, "upsert bookmark")
	}
	*b = *stored
	return nil
}

func (r *PostgresBookmarkRepository) UpsertIfNewer(ctx context.Context, b *Bookmark) (bool, error) {
	if r.db == nil || r.db.Pool == nil {
		return false, ErrNotConfigured
	}

	query := `
		INSERT INTO bookmarks (user_id, lesson_id, note, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $4, $5)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			note = EXCLUDED.note, updated_at = EXCLUDED.updated_at, deleted_at = EXCLUDED.deleted_at,
			changed_at = NOW()
		WHERE bookmarks.updated_at < EXCLUDED.updated_at
	`
	tag, err := r.db.Pool.Exec(ctx, query, b.UserID, b.LessonID, b.Note, b.UpdatedAt, b.DeletedAt)
	if err != nil {
		return false, wrap(err, "sync bookmark")
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresBookmarkRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*Bookmark, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`
	b, err := scanBookmark(r.db.Pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, wrap(err, "get bookmark")
	}
	return b, nil
}

func (r *PostgresBookmarkRepository) GetByLesson(ctx context.Context, userID, lessonID uuid.UUID) (*Bookmark, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks WHERE user_id = $1 AND lesson_id = $2 AND deleted_at IS NULL`
	b, err := scanBookmark(r.db.Pool.QueryRow(ctx, query, userID, lessonID))
	if err != nil {
		return nil, wrap(err, "get bookmark by lesson")
	}
	return b, nil
}

func (r *PostgresBookmarkRepository) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Bookmark, int, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, 0, ErrNotConfigured
	}

	var total int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookmarks WHERE user_id = $1 AND deleted_at IS NULL`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, wrap(err, "count bookmarks")
	}

	query := `
		SELECT ` + bookmarkColumns + `
		FROM bookmarks
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	bookmarks, err := r.query(ctx, query, userID, limit, offset)
	return bookmarks, total, err
}

func (r *PostgresBookmarkRepository) UpdateNote(ctx context.Context, userID, id uuid.UUID, note string) (*Bookmark, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	query := `
		UPDATE bookmarks SET note = $1, updated_at = NOW(), changed_at = NOW()
		WHERE id = $2 AND user_id = $3 AND deleted_at IS NULL
		RETURNING ` + bookmarkColumns
	b, err := scanBookmark(r.db.Pool.QueryRow(ctx, query, note, id, userID))
	if err != nil {
		return nil, wrap(err, "update bookmark")
	}
	return b, nil
}

func (r *PostgresBookmarkRepository) SoftDelete(ctx context.Context, userID, id uuid.UUID) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE bookmarks SET deleted_at = NOW(), updated_at = NOW(), changed_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, id, userID)
	return affected(tag, err, "delete bookmark")
}

func (r *PostgresBookmarkRepository) ChangedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*Bookmark, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	query := `
		SELECT ` + bookmarkColumns + `
		FROM bookmarks
		WHERE user_id = $1 AND changed_at > $2
		ORDER BY changed_at
	`
	return r.query(ctx, query, userID, since)
}

func (r *PostgresBookmarkRepository) query(ctx context.Context, query string, args ...interface{}) ([]*Bookmark, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(err, "list bookmarks")
	}
	defer rows.Close()

	var bookmarks []*Bookmark
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, wrap(err, "scan bookmark")
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, wrap(rows.Err(), "iterate bookmarks")
}
