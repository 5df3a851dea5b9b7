package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/windfall/lingo_service/internal/client"
)

// Settings are a user's app preferences.
type Settings struct {
	UserID               uuid.UUID `json:"-"`
	DailyGoalMinutes     int       `json:"daily_goal_minutes"`
	PreferredVoiceGender string    `json:"preferred_voice_gender"`
	PlaybackSpeed        float64   `json:"playback_speed"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	ReminderHour         int       `json:"reminder_hour"`
	UILanguage           string    `json:"ui_language"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DefaultSettings returns the settings of a user who never saved any.
func DefaultSettings(userID uuid.UUID) *Settings {
	return &Settings{
		UserID:               userID,
		DailyGoalMinutes:     15,
		PreferredVoiceGender: "female",
		PlaybackSpeed:        1.0,
		NotificationsEnabled: true,
		ReminderHour:         19,
		UILanguage:           "vi",
	}
}

// SettingsRepository defines the interface for settings data access.
type SettingsRepository interface {
	// Get returns ErrNotFound when the user has no saved settings.
	Get(ctx context.Context, userID uuid.UUID) (*Settings, error)
	// Upsert stores s and sets UpdatedAt to s.UpdatedAt, or NOW() when zero.
	Upsert(ctx context.Context, s *Settings) error
}

// PostgresSettingsRepository implements SettingsRepository with PostgreSQL.
type PostgresSettingsRepository struct {
	db *client.PostgresClient
}

// NewPostgresSettingsRepository creates a new PostgresSettingsRepository.
func NewPostgresSettingsRepository(db *client.PostgresClient) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

func (r *PostgresSettingsRepository) Get(ctx context.Context, userID uuid.UUID) (*Settings, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	query := `
		SELECT user_id, daily_goal_minutes, preferred_voice_gender, playback_speed,
		       notifications_enabled, reminder_hour, ui_language, updated_at
		FROM user_settings
		WHERE user_id = $1
	`

	var s Settings
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&s.DailyGoalMinutes,
		&s.PreferredVoiceGender,
		&s.PlaybackSpeed,
		&s.NotificationsEnabled,
		&s.ReminderHour,
		&s.UILanguage,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, wrap(err, "get settings")
	}
	return &s, nil
}

func (r *PostgresSettingsRepository) Upsert(ctx context.Context, s *Settings) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		updatedAt = &s.UpdatedAt
	}

	query := `
		INSERT INTO user_settings (
			user_id, daily_goal_minutes, preferred_voice_gender, playback_speed,
			notifications_enabled, reminder_hour, ui_language, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
		ON CONFLICT (user_id) DO UPDATE SET
			daily_goal_minutes = EXCLUDED.daily_goal_minutes,
			preferred_voice_gender = EXCLUDED.preferred_voice_gender,
			playback_speed = EXCLUDED.playback_speed,
			notifications_enabled = EXCLUDED.notifications_enabled,
			reminder_hour = EXCLUDED.reminder_hour,
			ui_language = EXCLUDED.ui_language,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`
	err := r.db.Pool.QueryRow(ctx, query,
		s.UserID,
		s.DailyGoalMinutes,
		s.PreferredVoiceGender,
		s.PlaybackSpeed,
		s.NotificationsEnabled,
		s.ReminderHour,
		s.UILanguage,
		updatedAt,
	).Scan(&s.UpdatedAt)
	return wrap(err, "upsert settings")
}
