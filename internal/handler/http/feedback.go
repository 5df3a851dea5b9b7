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

// FeedbackService is the part of service.FeedbackService the feedback
// routes use.
type FeedbackService interface {
	Submit(ctx context.Context, userID uuid.UUID, req service.FeedbackRequest) (*repository.Feedback, error)
	List(ctx context.Context, userID uuid.UUID, page service.Page) (*service.List[*repository.Feedback], error)
}

// FeedbackHandler handles the feedback endpoints.
type FeedbackHandler struct {
	log      zerolog.Logger
	feedback FeedbackService
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(log zerolog.Logger, feedback FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{log: log, feedback: feedback}
}

// Submit handles POST /api/feedback
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	var req service.FeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	fb, err := h.feedback.Submit(r.Context(), user, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.Created(w, fb)
}

// List handles GET /api/feedback
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	list, err := h.feedback.List(r.Context(), user, pageFrom(r))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeList(w, list)
}
