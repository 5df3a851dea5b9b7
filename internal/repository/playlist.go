package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/windfall/lingo_service/internal/client"
)

// Playlist is an ordered, user-owned list of lessons.
type Playlist struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	IsPublic    bool            `json:"is_public"`
	ItemCount   int             `json:"item_count"`
	Items       []*PlaylistItem `json:"items,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PlaylistItem is a lesson at a position in a playlist. Positions start at
// 1 and have no gaps.
type PlaylistItem struct {
	ID         uuid.UUID `json:"id"`
	PlaylistID uuid.UUID `json:"playlist_id"`
	LessonID   uuid.UUID `json:"lesson_id"`
	Position   int       `json:"position"`
	AddedAt    time.Time `json:"added_at"`
}

// PlaylistRepository defines the interface for playlist data access.
type PlaylistRepository interface {
	Create(ctx context.Context, p *Playlist) error
	GetByID(ctx context.Context, id uuid.UUID) (*Playlist, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Playlist, int, error)
	Update(ctx context.Context, p *Playlist) error
	Delete(ctx context.Context, id uuid.UUID) error

	Items(ctx context.Context, playlistID uuid.UUID) ([]*PlaylistItem, error)
	// AddItem appends at the end. ErrAlreadyExists when the lesson is present.
	AddItem(ctx context.Context, playlistID, lessonID uuid.UUID) (*PlaylistItem, error)
	// RemoveItem deletes the lesson and closes the position gap.
	RemoveItem(ctx context.Context, playlistID, lessonID uuid.UUID) error
	// Reorder assigns positions 1..n in the given lesson order.
	Reorder(ctx context.Context, playlistID uuid.UUID, lessonIDs []uuid.UUID) error
}

// PostgresPlaylistRepository implements PlaylistRepository with PostgreSQL.
type PostgresPlaylistRepository struct {
	db *client.PostgresClient
}

// NewPostgresPlaylistRepository creates a new PostgresPlaylistRepository.
func NewPostgresPlaylistRepository(db *client.PostgresClient) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{db: db}
}

const playlistSelect = `
	SELECT p.id, p.user_id, p.name, p.description, p.is_public,
	       (SELECT COUNT(*) FROM playlist_items i WHERE i.playlist_id = p.id),
	       p.created_at, p.updated_at
	FROM playlists p
`

func scanPlaylist(row pgx.Row) (*Playlist, error) {
	var p Playlist
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.IsPublic, &p.ItemCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresPlaylistRepository) Create(ctx context.Context, p *Playlist) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	query := `
		INSERT INTO playlists (user_id, name, description, is_public)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.Pool.QueryRow(ctx, query, p.UserID, p.Name, p.Description, p.IsPublic).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return wrap(err, "create playlist")
}

func (r *PostgresPlaylistRepository) GetByID(ctx context.Context, id uuid.UUID) (*Playlist, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	p, err := scanPlaylist(r.db.Pool.QueryRow(ctx, playlistSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, wrap(err, "get playlist")
	}
	return p, nil
}

func (r *PostgresPlaylistRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Playlist, int, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, 0, ErrNotConfigured
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM playlists WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, wrap(err, "count playlists")
	}

	rows, err := r.db.Pool.Query(ctx, playlistSelect+`
		WHERE p.user_id = $1
		ORDER BY p.updated_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, wrap(err, "list playlists")
	}
	defer rows.Close()

	var playlists []*Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, 0, wrap(err, "scan playlist")
		}
		playlists = append(playlists, p)
	}
	return playlists, total, wrap(rows.Err(), "iterate playlists")
}

func (r *PostgresPlaylistRepository) Update(ctx context.Context, p *Playlist) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	query := `
		UPDATE playlists
		SET name = $1, description = $2, is_public = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`
	err := r.db.Pool.QueryRow(ctx, query, p.Name, p.Description, p.IsPublic, p.ID).Scan(&p.UpdatedAt)
	return wrap(err, "update playlist")
}

func (r *PostgresPlaylistRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	return affected(tag, err, "delete playlist")
}

func (r *PostgresPlaylistRepository) Items(ctx context.Context, playlistID uuid.UUID) ([]*PlaylistItem, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, playlist_id, lesson_id, position, added_at
		FROM playlist_items
		WHERE playlist_id = $1
		ORDER BY position
	`, playlistID)
	if err != nil {
		return nil, wrap(err, "list playlist items")
	}
	defer rows.Close()

	var items []*PlaylistItem
	for rows.Next() {
		var item PlaylistItem
		if err := rows.Scan(&item.ID, &item.PlaylistID, &item.LessonID, &item.Position, &item.AddedAt); err != nil {
			return nil, wrap(err, "scan playlist item")
		}
		items = append(items, &item)
	}
	return items, wrap(rows.Err(), "iterate playlist items")
}

func (r *PostgresPlaylistRepository) AddItem(ctx context.Context, playlistID, lessonID uuid.UUID) (*PlaylistItem, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	item := PlaylistItem{PlaylistID: playlistID, LessonID: lessonID}
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		// serializes concurrent appends to the same playlist
		if _, err := tx.Exec(ctx, `SELECT id FROM playlists WHERE id = $1 FOR UPDATE`, playlistID); err != nil {
			return err
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO playlist_items (playlist_id, lesson_id, position)
			SELECT $1, $2, COALESCE(MAX(position), 0) + 1 FROM playlist_items WHERE playlist_id = $1
			RETURNING id, position, added_at
		`, playlistID, lessonID).Scan(&item.ID, &item.Position, &item.AddedAt)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE playlists SET updated_at = NOW() WHERE id = $1`, playlistID)
		return err
	})
	if err != nil {
		return nil, wrap(err, "add playlist item")
	}
	return &item, nil
}

func (r *PostgresPlaylistRepository) RemoveItem(ctx context.Context, playlistID, lessonID uuid.UUID) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		var position int
		err := tx.QueryRow(ctx, `
			DELETE FROM playlist_items WHERE playlist_id = $1 AND lesson_id = $2
			RETURNING position
		`, playlistID, lessonID).Scan(&position)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE playlist_items SET position = position - 1
			WHERE playlist_id = $1 AND position > $2
		`, playlistID, position); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE playlists SET updated_at = NOW() WHERE id = $1`, playlistID)
		return err
	})
	return wrap(err, "remove playlist item")
}

func (r *PostgresPlaylistRepository) Reorder(ctx context.Context, playlistID uuid.UUID, lessonIDs []uuid.UUID) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i, lessonID := range lessonIDs {
			batch.Queue(`
				UPDATE playlist_items SET position = $1
				WHERE playlist_id = $2 AND lesson_id = $3
			`, i+1, playlistID, lessonID)
		}
		batch.Queue(`UPDATE playlists SET updated_at = NOW() WHERE id = $1`, playlistID)
		return tx.SendBatch(ctx, batch).Close()
	})
	return wrap(err, "reorder playlist")
}
