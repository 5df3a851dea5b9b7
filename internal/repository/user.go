package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/windfall/lingo_service/internal/client"
)

// Profile is the public profile of a Supabase auth user.
type Profile struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	AvatarURL      string    `json:"avatar_url"`
	NativeLanguage string    `json:"native_language"`
	TargetLanguage string    `json:"target_language"`
	Level          string    `json:"level"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProfileRepository defines the interface for profile data access.
type ProfileRepository interface {
	// GetOrCreate returns the profile, inserting p when no row exists.
	GetOrCreate(ctx context.Context, p *Profile) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
}

// UserDataRepository removes everything stored for a user.
type UserDataRepository interface {
	DeleteAll(ctx context.Context, userID uuid.UUID) error
}

// PostgresProfileRepository implements ProfileRepository and
// UserDataRepository with PostgreSQL.
type PostgresProfileRepository struct {
	db *client.PostgresClient
}

// NewPostgresProfileRepository creates a new PostgresProfileRepository.
func NewPostgresProfileRepository(db *client.PostgresClient) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db}
}

const profileColumns = `id, email, display_name, avatar_url, native_language, target_language, level, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.DisplayName,
		&p.AvatarURL,
		&p.NativeLanguage,
		&p.TargetLanguage,
		&p.Level,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetOrCreate inserts the profile if missing and returns the stored row.
func (r *PostgresProfileRepository) GetOrCreate(ctx context.Context, p *Profile) (*Profile, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	query := `
		INSERT INTO profiles (id, email, display_name, avatar_url, native_language, target_language, level)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING ` + profileColumns

	stored, err := scanProfile(r.db.Pool.QueryRow(ctx, query,
		p.ID,
		p.Email,
		p.DisplayName,
		p.AvatarURL,
		p.NativeLanguage,
		p.TargetLanguage,
		p.Level,
	))
	if err != nil {
		return nil, wrap(err, "get or create profile")
	}
	return stored, nil
}

// Update writes the editable profile fields.
func (r *PostgresProfileRepository) Update(ctx context.Context, p *Profile) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	query := `
		UPDATE profiles
		SET display_name = $1, avatar_url = $2, native_language = $3,
		    target_language = $4, level = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING created_at, updated_at, email
	`
	err := r.db.Pool.QueryRow(ctx, query,
		p.DisplayName,
		p.AvatarURL,
		p.NativeLanguage,
		p.TargetLanguage,
		p.Level,
		p.ID,
	).Scan(&p.CreatedAt, &p.UpdatedAt, &p.Email)
	return wrap(err, "update profile")
}

// DeleteAll removes the user's rows from every table in one transaction.
func (r *PostgresProfileRepository) DeleteAll(ctx context.Context, userID uuid.UUID) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	// children before parents
	statements := []string{
		`DELETE FROM playlist_items WHERE playlist_id IN (SELECT id FROM playlists WHERE user_id = $1)`,
		`DELETE FROM playlists WHERE user_id = $1`,
		`DELETE FROM bookmarks WHERE user_id = $1`,
		`DELETE FROM listen_later WHERE user_id = $1`,
		`DELETE FROM history WHERE user_id = $1`,
		`DELETE FROM feedback WHERE user_id = $1`,
		`DELETE FROM notifications WHERE user_id = $1`,
		`DELETE FROM device_tokens WHERE user_id = $1`,
		`DELETE FROM radio_episodes WHERE user_id = $1`,
		`DELETE FROM lessons WHERE created_by = $1 AND is_published = FALSE`,
		`UPDATE lessons SET created_by = NULL WHERE created_by = $1`,
		`DELETE FROM gamification WHERE user_id = $1`,
		`DELETE FROM user_settings WHERE user_id = $1`,
		`DELETE FROM profiles WHERE id = $1`,
	}

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt, userID); err != nil {
				return err
			}
		}
		return nil
	})
	return wrap(err, "delete user data")
}
