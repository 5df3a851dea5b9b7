package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/service"
	"github.com/windfall/lingo_service/pkg/response"
)

// SyncService merges offline changes.
type SyncService interface {
	Sync(ctx context.Context, userID uuid.UUID, req service.SyncRequest) (*service.SyncResponse, error)
}

// SyncHandler handles offline sync.
type SyncHandler struct {
	log  zerolog.Logger
	sync SyncService
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(log zerolog.Logger, sync SyncService) *SyncHandler {
	return &SyncHandler{log: log, sync: sync}
}

// Sync handles POST /api/sync
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	var req service.SyncRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	res, err := h.sync.Sync(r.Context(), user, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}
