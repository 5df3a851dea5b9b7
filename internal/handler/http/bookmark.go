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

// BookmarkService is the part of service.BookmarkService the bookmark
// routes use.
type BookmarkService interface {
	Add(ctx context.Context, userID uuid.UUID, req service.AddBookmarkRequest) (*repository.Bookmark, error)
	List(ctx context.Context, userID uuid.UUID, page service.Page) (*service.List[*repository.Bookmark], error)
	UpdateNote(ctx context.Context, userID, id uuid.UUID, note string) (*repository.Bookmark, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Check(ctx context.Context, userID, lessonID uuid.UUID) (*service.BookmarkStatus, error)
}

// BookmarkHandler handles the bookmark endpoints.
type BookmarkHandler struct {
	log       zerolog.Logger
	bookmarks BookmarkService
}

// NewBookmarkHandler creates a new bookmark handler.
func NewBookmarkHandler(log zerolog.Logger, bookmarks BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{log: log, bookmarks: bookmarks}
}

// List handles GET /api/bookmarks
func (h *BookmarkHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	list, err := h.bookmarks.List(r.Context(), user, pageFrom(r))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeList(w, list)
}

// Add handles POST /api/bookmarks
func (h *BookmarkHandler) Add(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	var req service.AddBookmarkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	b, err := h.bookmarks.Add(r.Context(), user, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.Created(w, b)
}

type noteRequest struct {
	Note string `json:"note"`
}

// UpdateNote handles PUT /api/bookmarks/{id}
func (h *BookmarkHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
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
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	b, err := h.bookmarks.UpdateNote(r.Context(), user, id, req.Note)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, b)
}

// Delete handles DELETE /api/bookmarks/{id}
func (h *BookmarkHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.bookmarks.Delete(r.Context(), user, id); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.NoContent(w)
}

// Check handles GET /api/bookmarks/check/{lessonID}
func (h *BookmarkHandler) Check(w http.ResponseWriter, r *http.Request) {
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

	status, err := h.bookmarks.Check(r.Context(), user, lessonID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, status)
}
