package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/service"
	"github.com/windfall/lingo_service/pkg/response"
)

// ReadingService is the part of service.ReadingService the reading routes
// use.
type ReadingService interface {
	Generate(ctx context.Context, userID uuid.UUID, req service.ReadingRequest) (*service.ReadingView, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*service.ReadingView, error)
	Submit(ctx context.Context, userID, id uuid.UUID, req service.SubmitReadingRequest) (*service.ReadingResult, error)
}

// ReadingHandler handles the reading practice endpoints.
type ReadingHandler struct {
	log     zerolog.Logger
	reading ReadingService
}

// NewReadingHandler creates a new reading handler.
func NewReadingHandler(log zerolog.Logger, reading ReadingService) *ReadingHandler {
	return &ReadingHandler{log: log, reading: reading}
}

// Generate handles POST /api/reading/generate
func (h *ReadingHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	var req service.ReadingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	view, err := h.reading.Generate(r.Context(), user, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.Created(w, view)
}

// Get handles GET /api/reading/{id}
func (h *ReadingHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	view, err := h.reading.Get(r.Context(), user, id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, view)
}

// Submit handles POST /api/reading/{id}/submit
func (h *ReadingHandler) Submit(w http.ResponseWriter, r *http.Request) {
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
	var req service.SubmitReadingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	res, err := h.reading.Submit(r.Context(), user, id, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}
