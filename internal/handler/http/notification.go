package http

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/repository"
	"github.com/windfall/lingo_service/internal/service"
	"github.com/windfall/lingo_service/pkg/response"
)

// NotificationService is the part of service.NotificationService the
// notification routes use.
type NotificationService interface {
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page service.Page) (*service.NotificationList, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	RegisterDevice(ctx context.Context, userID uuid.UUID, token, platform string) (*repository.DeviceToken, error)
	RemoveDevice(ctx context.Context, userID uuid.UUID, token string) error
}

// NotificationHandler handles the notification and device endpoints.
type NotificationHandler struct {
	log           zerolog.Logger
	notifications NotificationService
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(log zerolog.Logger, notifications NotificationService) *NotificationHandler {
	return &NotificationHandler{log: log, notifications: notifications}
}

type notificationPage struct {
	Items  []*repository.Notification `json:"items"`
	Unread int                        `json:"unread"`
}

// List handles GET /api/notifications?unread&page&limit
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	list, err := h.notifications.List(r.Context(), user, queryBool(r, "unread"), pageFrom(r))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSONWithMeta(w, http.StatusOK,
		notificationPage{Items: list.Items, Unread: list.Unread},
		response.NewMeta(list.Page.Number, list.Page.Limit, list.Total))
}

// MarkRead handles PUT /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	if err := h.notifications.MarkRead(r.Context(), user, id); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.NoContent(w)
}

// MarkAllRead handles PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	n, err := h.notifications.MarkAllRead(r.Context(), user)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// Delete handles DELETE /api/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	if err := h.notifications.Delete(r.Context(), user, id); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.NoContent(w)
}

type deviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// RegisterDevice handles POST /api/notifications/devices
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	var req deviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	d, err := h.notifications.RegisterDevice(r.Context(), user, req.Token, req.Platform)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.Created(w, d)
}

// RemoveDevice handles DELETE /api/notifications/devices/{token}
func (h *NotificationHandler) RemoveDevice(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	token, err := url.PathUnescape(chi.URLParam(r, "token"))
	if err != nil {
		handleError(w, r, h.log, invalidBody())
		return
	}

	if err := h.notifications.RemoveDevice(r.Context(), user, token); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.NoContent(w)
}
