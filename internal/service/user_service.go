package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/repository"
)

// AccountDeleter removes the auth user behind an account.
type AccountDeleter interface {
	DeleteUser(ctx context.Context, userID string) error
}

// UpdateProfileRequest holds editable profile fields. Nil fields are kept.
type UpdateProfileRequest struct {
	DisplayName    *string `json:"display_name"`
	AvatarURL      *string `json:"avatar_url"`
	NativeLanguage *string `json:"native_language"`
	TargetLanguage *string `json:"target_language"`
	Level          *string `json:"level"`
}

// UpdateSettingsRequest holds editable settings. Nil fields are kept.
type UpdateSettingsRequest struct {
	DailyGoalMinutes     *int     `json:"daily_goal_minutes"`
	PreferredVoiceGender *string  `json:"preferred_voice_gender"`
	PlaybackSpeed        *float64 `json:"playback_speed"`
	NotificationsEnabled *bool    `json:"notifications_enabled"`
	ReminderHour         *int     `json:"reminder_hour"`
	UILanguage           *string  `json:"ui_language"`
}

// UserService manages profiles, settings and account deletion.
type UserService struct {
	profiles     repository.ProfileRepository
	settings     repository.SettingsRepository
	data         repository.UserDataRepository
	gamification *GamificationService
	accounts     AccountDeleter
	log          zerolog.Logger
}

// NewUserService creates a new UserService. accounts may be nil, in which
// case only the application data is deleted.
func NewUserService(
	profiles repository.ProfileRepository,
	settings repository.SettingsRepository,
	data repository.UserDataRepository,
	gamification *GamificationService,
	accounts AccountDeleter,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		profiles:     profiles,
		settings:     settings,
		data:         data,
		gamification: gamification,
		accounts:     accounts,
		log:          log,
	}
}

// Profile returns the user's profile, creating it from the token claims on
// first access.
func (s *UserService) Profile(ctx context.Context, claims *Claims) (*repository.Profile, error) {
	name := claims.Email
	if i := strings.Index(name, "@"); i > 0 {
		name = name[:i]
	}

	p, err := s.profiles.GetOrCreate(ctx, &repository.Profile{
		ID:             claims.UserID,
		Email:          claims.Email,
		DisplayName:    name,
		NativeLanguage: "vi",
		TargetLanguage: "en",
		Level:          "A1",
	})
	if err != nil {
		return nil, repoErr(err, "profile", "get profile")
	}
	return p, nil
}

// UpdateProfile applies the non-nil fields of req.
func (s *UserService) UpdateProfile(ctx context.Context, claims *Claims, req UpdateProfileRequest) (*repository.Profile, error) {
	p, err := s.Profile(ctx, claims)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		name, err := requireText("display_name", *req.DisplayName, 50)
		if err != nil {
			return nil, err
		}
		p.DisplayName = name
	}
	if req.AvatarURL != nil {
		url := strings.TrimSpace(*req.AvatarURL)
		if url != "" && !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
			return nil, fieldInvalid("avatar_url")
		}
		p.AvatarURL = url
	}
	if req.NativeLanguage != nil {
		lang, err := requireText("native_language", *req.NativeLanguage, 10)
		if err != nil {
			return nil, err
		}
		p.NativeLanguage = lang
	}
	if req.TargetLanguage != nil {
		lang, err := requireText("target_language", *req.TargetLanguage, 10)
		if err != nil {
			return nil, err
		}
		p.TargetLanguage = lang
	}
	if req.Level != nil {
		level, err := normalizeLevel(*req.Level)
		if err != nil {
			return nil, err
		}
		p.Level = level
	}

	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, repoErr(err, "profile", "update profile")
	}
	return p, nil
}

// Settings returns the user's settings, or the defaults if never saved.
func (s *UserService) Settings(ctx context.Context, userID uuid.UUID) (*repository.Settings, error) {
	st, err := s.settings.Get(ctx, userID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return repository.DefaultSettings(userID), nil
	}
	if err != nil {
		return nil, repoErr(err, "settings", "get settings")
	}
	return st, nil
}

// UpdateSettings validates and stores the non-nil fields of req.
func (s *UserService) UpdateSettings(ctx context.Context, userID uuid.UUID, req UpdateSettingsRequest) (*repository.Settings, error) {
	st, err := s.Settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := applySettings(st, req); err != nil {
		return nil, err
	}

	st.UpdatedAt = time.Time{}
	if err := s.settings.Upsert(ctx, st); err != nil {
		return nil, repoErr(err, "settings", "update settings")
	}
	return st, nil
}

func applySettings(st *repository.Settings, req UpdateSettingsRequest) error {
	if v := req.DailyGoalMinutes; v != nil {
		if *v < 5 || *v > 240 {
			return outOfRange("daily_goal_minutes", 5, 240)
		}
		st.DailyGoalMinutes = *v
	}
	if v := req.PreferredVoiceGender; v != nil {
		switch *v {
		case "female", "male":
			st.PreferredVoiceGender = *v
		default:
			return fieldInvalid("preferred_voice_gender")
		}
	}
	if v := req.PlaybackSpeed; v != nil {
		if *v < 0.5 || *v > 2.0 {
			return outOfRange("playback_speed", 0.5, 2.0)
		}
		st.PlaybackSpeed = *v
	}
	if v := req.NotificationsEnabled; v != nil {
		st.NotificationsEnabled = *v
	}
	if v := req.ReminderHour; v != nil {
		if *v < 0 || *v > 23 {
			return outOfRange("reminder_hour", 0, 23)
		}
		st.ReminderHour = *v
	}
	if v := req.UILanguage; v != nil {
		switch *v {
		case "vi", "en":
			st.UILanguage = *v
		default:
			return fieldInvalid("ui_language")
		}
	}
	return nil
}

// Gamification returns the user's XP, level and streak.
func (s *UserService) Gamification(ctx context.Context, userID uuid.UUID) (*repository.Gamification, error) {
	return s.gamification.Get(ctx, userID)
}

// DeleteAccount removes all of the user's data and then the auth user.
func (s *UserService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if err := s.data.DeleteAll(ctx, userID); err != nil {
		return repoErr(err, "profile", "delete user data")
	}

	if s.accounts == nil {
		s.log.Warn().Str("user_id", userID.String()).Msg("Supabase admin not configured, auth user kept")
		return nil
	}
	if err := s.accounts.DeleteUser(ctx, userID.String()); err != nil {
		return errors.InternalWrap("failed to delete auth user", err)
	}

	s.log.Info().Str("user_id", userID.String()).Msg("Account deleted")
	return nil
}
