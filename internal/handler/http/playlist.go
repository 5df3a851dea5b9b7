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

// PlaylistService is the part of service.PlaylistService the playlist
// routes use.
type PlaylistService interface {
	Create(ctx context.Context, userID uuid.UUID, req service.CreatePlaylistRequest) (*repository.Playlist, error)
	List(ctx context.Context, userID uuid.UUID, page service.Page) (*service.List[*repository.Playlist], error)
	Get(ctx context.Context, userID, id uuid.UUID) (*repository.Playlist, error)
	Update(ctx context.Context, userID, id uuid.UUID, req service.UpdatePlaylistRequest) (*repository.Playlist, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	AddItem(ctx context.Context, userID, id, lessonID uuid.UUID) (*repository.PlaylistItem, error)
	RemoveItem(ctx context.Context, userID, id, lessonID uuid.UUID) error
	Reorder(ctx context.Context, userID, id uuid.UUID, lessonIDs []uuid.UUID) ([]*repository.PlaylistItem, error)
}

// PlaylistHandler handles the playlist endpoints.
type PlaylistHandler struct {
	log       zerolog.Logger
	playlists PlaylistService
}

// NewPlaylistHandler creates a new playlist handler.
func NewPlaylistHandler(log zerolog.Logger, playlists PlaylistService) *PlaylistHandler {
	return &PlaylistHandler{log: log, playlists: playlists}
}

// List handles GET /api/playlists
func (h *PlaylistHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	list, err := h.playlists.List(r.Context(), user, pageFrom(r))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeList(w, list)
}

// Create handles POST /api/playlists
func (h *PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	var req service.CreatePlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	p, err := h.playlists.Create(r.Context(), user, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.Created(w, p)
}

// Get handles GET /api/playlists/{id}
func (h *PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	p, err := h.playlists.Get(r.Context(), user, id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

// Update handles PUT /api/playlists/{id}
func (h *PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
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
	var req service.UpdatePlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	p, err := h.playlists.Update(r.Context(), user, id, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/playlists/{id}
func (h *PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.playlists.Delete(r.Context(), user, id); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.NoContent(w)
}

// AddItem handles POST /api/playlists/{id}/items
func (h *PlaylistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
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
	var req lessonRef
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	item, err := h.playlists.AddItem(r.Context(), user, id, req.LessonID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.Created(w, item)
}

// RemoveItem handles DELETE /api/playlists/{id}/items/{lessonID}
func (h *PlaylistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
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
	lessonID, err := pathID(r, "lessonID")
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	if err := h.playlists.RemoveItem(r.Context(), user, id, lessonID); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.NoContent(w)
}

type reorderRequest struct {
	LessonIDs []uuid.UUID `json:"lesson_ids"`
}

// Reorder handles PUT /api/playlists/{id}/items/order
func (h *PlaylistHandler) Reorder(w http.ResponseWriter, r *http.Request) {
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
	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	items, err := h.playlists.Reorder(r.Context(), user, id, req.LessonIDs)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}
