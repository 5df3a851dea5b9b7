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

// RadioService is the part of service.RadioService the radio routes use.
type RadioService interface {
	Generate(ctx context.Context, userID uuid.UUID, req service.RadioRequest) (*repository.RadioEpisode, error)
	List(ctx context.Context, userID uuid.UUID, page service.Page) (*service.List[*repository.RadioEpisode], error)
	Get(ctx context.Context, userID, id uuid.UUID) (*repository.RadioEpisode, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// RadioHandler handles the radio endpoints.
type RadioHandler struct {
	log   zerolog.Logger
	radio RadioService
}

// NewRadioHandler creates a new radio handler.
func NewRadioHandler(log zerolog.Logger, radio RadioService) *RadioHandler {
	return &RadioHandler{log: log, radio: radio}
}

// Generate handles POST /api/radio/generate
func (h *RadioHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	var req service.RadioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	episode, err := h.radio.Generate(r.Context(), user, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.Created(w, episode)
}

// List handles GET /api/radio
func (h *RadioHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	list, err := h.radio.List(r.Context(), user, pageFrom(r))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeList(w, list)
}

// Get handles GET /api/radio/{id}
func (h *RadioHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	episode, err := h.radio.Get(r.Context(), user, id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, episode)
}

// Delete handles DELETE /api/radio/{id}
func (h *RadioHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.radio.Delete(r.Context(), user, id); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.NoContent(w)
}
