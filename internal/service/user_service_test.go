package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/logger"
)

type userFixture struct {
	svc      *UserService
	profiles *fakeProfiles
	settings *fakeSettings
	data     *fakeUserData
	accounts *fakeAccounts
}

func newUserFixture() *userFixture {
	f := &userFixture{
		profiles: newFakeProfiles(),
		settings: newFakeSettings(),
		data:     &fakeUserData{},
		accounts: &fakeAccounts{},
	}
	gam := NewGamificationService(newFakeGamification(), time.UTC)
	f.svc = NewUserService(f.profiles, f.settings, f.data, gam, f.accounts, logger.NewNop())
	return f
}

func testClaims() *Claims {
	return &Claims{UserID: uuid.New(), Email: "lan.nguyen@example.com", Role: "authenticated"}
}

func strPtr(s string) *string { return &s }

func TestUserService_ProfileCreatedOnFirstAccess(t *testing.T) {
	f := newUserFixture()
	claims := testClaims()

	p, err := f.svc.Profile(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, p.ID)
	assert.Equal(t, "lan.nguyen", p.DisplayName)
	assert.Equal(t, "vi", p.NativeLanguage)
	assert.Equal(t, "A1", p.Level)

	p.DisplayName = "Lan"
	require.NoError(t, f.profiles.Update(context.Background(), p))

	again, err := f.svc.Profile(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, "Lan", again.DisplayName)
}

func TestUserService_UpdateProfile(t *testing.T) {
	f := newUserFixture()
	claims := testClaims()

	p, err := f.svc.UpdateProfile(context.Background(), claims, UpdateProfileRequest{
		DisplayName: strPtr("  Lan  "),
		Level:       strPtr("b2"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Lan", p.DisplayName)
	assert.Equal(t, "B2", p.Level)
	assert.Equal(t, "en", p.TargetLanguage)

	tests := map[string]UpdateProfileRequest{
		"empty name":  {DisplayName: strPtr(" ")},
		"bad level":   {Level: strPtr("D1")},
		"bad avatar":  {AvatarURL: strPtr("ftp://x/y.png")},
		"long locale": {TargetLanguage: strPtr("english-of-the-queen")},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.UpdateProfile(context.Background(), claims, req)
			assert.True(t, errors.IsCode(err, errors.ErrValidation))
		})
	}
}

func TestUserService_SettingsDefaults(t *testing.T) {
	f := newUserFixture()
	userID := uuid.New()

	st, err := f.svc.Settings(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 15, st.DailyGoalMinutes)
	assert.Equal(t, "vi", st.UILanguage)
	assert.Empty(t, f.settings.rows)
}

func TestUserService_UpdateSettings(t *testing.T) {
	f := newUserFixture()
	userID := uuid.New()
	goal, hour, speed := 30, 7, 1.25

	st, err := f.svc.UpdateSettings(context.Background(), userID, UpdateSettingsRequest{
		DailyGoalMinutes: &goal,
		ReminderHour:     &hour,
		PlaybackSpeed:    &speed,
		UILanguage:       strPtr("en"),
	})
	require.NoError(t, err)
	assert.Equal(t, 30, st.DailyGoalMinutes)
	assert.Equal(t, 7, st.ReminderHour)
	assert.Equal(t, "en", st.UILanguage)
	assert.Equal(t, "female", st.PreferredVoiceGender)
	assert.False(t, st.UpdatedAt.IsZero())

	stored, err := f.settings.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1.25, stored.PlaybackSpeed)
}

func TestApplySettings_Ranges(t *testing.T) {
	tooSmall, tooLate, tooFast := 2, 24, 3.0
	tests := map[string]UpdateSettingsRequest{
		"goal":     {DailyGoalMinutes: &tooSmall},
		"hour":     {ReminderHour: &tooLate},
		"speed":    {PlaybackSpeed: &tooFast},
		"gender":   {PreferredVoiceGender: strPtr("robot")},
		"language": {UILanguage: strPtr("fr")},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			f := newUserFixture()
			_, err := f.svc.UpdateSettings(context.Background(), uuid.New(), req)
			assert.True(t, errors.IsCode(err, errors.ErrValidation))
		})
	}
}

func TestUserService_DeleteAccount(t *testing.T) {
	f := newUserFixture()
	userID := uuid.New()

	require.NoError(t, f.svc.DeleteAccount(context.Background(), userID))
	assert.Equal(t, []uuid.UUID{userID}, f.data.deleted)
	assert.Equal(t, []string{userID.String()}, f.accounts.deleted)
}

func TestUserService_DeleteAccountWithoutAdmin(t *testing.T) {
	data := &fakeUserData{}
	svc := NewUserService(newFakeProfiles(), newFakeSettings(), data, nil, nil, logger.NewNop())

	require.NoError(t, svc.DeleteAccount(context.Background(), uuid.New()))
	assert.Len(t, data.deleted, 1)
}

func TestUserService_DeleteAccountFailures(t *testing.T) {
	f := newUserFixture()
	f.data.err = fmt.Errorf("connection reset")
	err := f.svc.DeleteAccount(context.Background(), uuid.New())
	assert.True(t, errors.IsCode(err, errors.ErrDatabase))
	assert.Empty(t, f.accounts.deleted)

	f = newUserFixture()
	f.accounts.err = fmt.Errorf("503")
	err = f.svc.DeleteAccount(context.Background(), uuid.New())
	assert.True(t, errors.IsCode(err, errors.ErrInternal))
}
