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

// HistoryService is the part of service.HistoryService the history routes
// use.
type HistoryService interface {
	Record(ctx context.Context, userID uuid.UUID, req service.RecordActivityRequest) (*service.RecordResult, error)
	List(ctx context.Context, userID uuid.UUID, activityType string, page service.Page) (*service.List[*repository.HistoryEntry], error)
	Stats(ctx context.Context, userID uuid.UUID) (*service.HistoryStats, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)
}

// HistoryHandler handles the practice history endpoints.
type HistoryHandler struct {
	log     zerolog.Logger
	history HistoryService
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(log zerolog.Logger, history HistoryService) *HistoryHandler {
	return &HistoryHandler{log: log, history: history}
}

// Record handles POST /api/history
func (h *HistoryHandler) Record(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	var req service.RecordActivityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	res, err := h.history.Record(r.Context(), user, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if res.Duplicate {
		response.JSON(w, http.StatusOK, res)
		return
	}
	response.Created(w, res)
}

// List handles GET /api/history?type&page&limit
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	list, err := h.history.List(r.Context(), user, r.URL.Query().Get("type"), pageFrom(r))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeList(w, list)
}

// Stats handles GET /api/history/stats
func (h *HistoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	stats, err := h.history.Stats(r.Context(), user)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, stats)
}

// Delete handles DELETE /api/history/{id}
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.history.Delete(r.Context(), user, id); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.NoContent(w)
}

// Clear handles DELETE /api/history
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	n, err := h.history.Clear(r.Context(), user)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
