package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/windfall/lingo_service/internal/config"
	"github.com/windfall/lingo_service/internal/errors"
	httphandler "github.com/windfall/lingo_service/internal/handler/http"
	"github.com/windfall/lingo_service/internal/logger"
	"github.com/windfall/lingo_service/internal/service"
)

type staticValidator struct {
	userID uuid.UUID
}

func (v staticValidator) ValidateToken(token string) (*service.Claims, error) {
	if token != "good" {
		return nil, errors.Unauthorized("invalid token").WithMessageID("auth.invalid_token")
	}
	return &service.Claims{UserID: v.userID}, nil
}

// newTestRouter mounts handlers without services; the requests below
// never get past validation.
func newTestRouter() http.Handler {
	cfg := &config.Config{
		DefaultLanguage:    "vi",
		AIRateLimit:        0.001,
		AIRateBurst:        1,
		CORSAllowedOrigins: []string{"*"},
		CORSAllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		CORSAllowedHeaders: []string{"Authorization", "Content-Type"},
	}
	log := logger.NewNop()
	h := Handlers{
		Health:        httphandler.NewHealthHandler(nil),
		AI:            httphandler.NewAIHandler(log, nil),
		Lessons:       httphandler.NewLessonHandler(log, nil),
		Bookmarks:     httphandler.NewBookmarkHandler(log, nil),
		History:       httphandler.NewHistoryHandler(log, nil),
		ListenLater:   httphandler.NewListenLaterHandler(log, nil),
		Playlists:     httphandler.NewPlaylistHandler(log, nil),
		Feedback:      httphandler.NewFeedbackHandler(log, nil),
		Notifications: httphandler.NewNotificationHandler(log, nil),
		Radio:         httphandler.NewRadioHandler(log, nil),
		Reading:       httphandler.NewReadingHandler(log, nil),
		Speaking:      httphandler.NewSpeakingHandler(log, nil),
		Sync:          httphandler.NewSyncHandler(log, nil),
		Users:         httphandler.NewUserHandler(log, nil),
	}
	return NewRouter(cfg, log, h, staticValidator{userID: uuid.New()}, nil)
}

func do(router http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter()

	for _, path := range []string{"/health", "/ready", "/live"} {
		assert.Equal(t, http.StatusOK, do(router, http.MethodGet, path, "", "").Code, path)
	}
}

func TestRouter_RequiresAuth(t *testing.T) {
	router := newTestRouter()

	rec := do(router, http.MethodGet, "/api/lessons", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Thiếu mã xác thực.")
	assert.Equal(t, "vi", rec.Header().Get("Content-Language"))

	rec = do(router, http.MethodGet, "/api/lessons?lang=en", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "en", rec.Header().Get("Content-Language"))

	rec = do(router, http.MethodGet, "/api/user/profile", "bad", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_PathParams(t *testing.T) {
	router := newTestRouter()

	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/api/lessons/not-an-id", "good", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodDelete, "/api/playlists/x/items/y", "good", "").Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/unknown", "good", "").Code)
}

func TestRouter_RateLimitsAIRoutes(t *testing.T) {
	router := newTestRouter()

	rec := do(router, http.MethodPost, "/api/ai/chat", "good", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, "/api/ai/chat", "good", "{")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Other routes are not limited.
	rec = do(router, http.MethodGet, "/api/lessons/not-an-id", "good", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
