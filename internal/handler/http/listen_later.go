package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/repository"
	"github.com/windfall/lingo_service/internal/service"
	"github.com/windfall/lingo_service/pkg/response"
)

// ListenLaterService is the part of service.ListenLaterService the
// listen-later routes use.
type ListenLaterService interface {
	Add(ctx context.Context, userID, lessonID uuid.UUID) (*repository.ListenLaterItem, error)
	List(ctx context.Context, userID uuid.UUID, page service.Page) (*service.List[*repository.ListenLaterItem], error)
	Remove(ctx context.Context, userID, lessonID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)
}

// ListenLaterHandler handles the listen-later queue endpoints.
type ListenLaterHandler struct {
	log   zerolog.Logger
	queue ListenLaterService
}

// NewListenLaterHandler creates a new listen-later handler.
func NewListenLaterHandler(log zerolog.Logger, queue ListenLaterService) *ListenLaterHandler {
	return &ListenLaterHandler{log: log, queue: queue}
}

type lessonRef struct {
	LessonID uuid.UUID `json:"lesson_id"`
}

// List handles GET /api/listen-later
func (h *ListenLaterHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	list, err := h.queue.List(r.Context(), user, pageFrom(r))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeList(w, list)
}

// Add handles POST /api/listen-later
func (h *ListenLaterHandler) Add(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	var req lessonRef
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	item, err := h.queue.Add(r.Context(), user, req.LessonID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.Created(w, item)
}

// Remove handles DELETE /api/listen-later/{lessonID}
func (h *ListenLaterHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	lessonID, err := pathID(r, "lessonID")
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	if err := h.queue.Remove(r.Context(), user, lessonID); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.NoContent(w)
}

// Clear handles DELETE /api/listen-later
func (h *ListenLaterHandler) Clear(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	n, err := h.queue.Clear(r.Context(), user)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
