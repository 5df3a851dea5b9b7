package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/middleware"
	"github.com/windfall/lingo_service/internal/repository"
	"github.com/windfall/lingo_service/internal/service"
	"github.com/windfall/lingo_service/pkg/response"
)

// UserService is the part of service.UserService the user routes use.
type UserService interface {
	Profile(ctx context.Context, claims *service.Claims) (*repository.Profile, error)
	UpdateProfile(ctx context.Context, claims *service.Claims, req service.UpdateProfileRequest) (*repository.Profile, error)
	Settings(ctx context.Context, userID uuid.UUID) (*repository.Settings, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, req service.UpdateSettingsRequest) (*repository.Settings, error)
	Gamification(ctx context.Context, userID uuid.UUID) (*repository.Gamification, error)
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

// UserHandler handles the profile, settings and account endpoints.
type UserHandler struct {
	log   zerolog.Logger
	users UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(log zerolog.Logger, users UserService) *UserHandler {
	return &UserHandler{log: log, users: users}
}

func claimsFrom(r *http.Request) (*service.Claims, error) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		return nil, errors.Unauthorized("missing user").WithMessageID("auth.missing_token")
	}
	return claims, nil
}

// Profile handles GET /api/user/profile
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	p, err := h.users.Profile(r.Context(), claims)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

// UpdateProfile handles PUT /api/user/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	var req service.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	p, err := h.users.UpdateProfile(r.Context(), claims, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

// Settings handles GET /api/user/settings
func (h *UserHandler) Settings(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	st, err := h.users.Settings(r.Context(), user)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, st)
}

// UpdateSettings handles PUT /api/user/settings
func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	var req service.UpdateSettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	st, err := h.users.UpdateSettings(r.Context(), user, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, st)
}

// Gamification handles GET /api/user/gamification
func (h *UserHandler) Gamification(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	g, err := h.users.Gamification(r.Context(), user)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, g)
}

// DeleteAccount handles DELETE /api/user
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	if err := h.users.DeleteAccount(r.Context(), user); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.NoContent(w)
}
