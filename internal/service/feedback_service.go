package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/windfall/lingo_service/internal/repository"
)

const maxFeedbackLength = 2000

var feedbackCategories = map[string]bool{"bug": true, "feature": true, "content": true, "other": true}

// FeedbackRequest is feedback sent from the app.
type FeedbackRequest struct {
	Category string          `json:"category"`
	Message  string          `json:"message"`
	Rating   *int            `json:"rating"`
	Metadata json.RawMessage `json:"metadata"`
}

// FeedbackService stores user feedback.
type FeedbackService struct {
	repo repository.FeedbackRepository
}

// NewFeedbackService creates a new FeedbackService.
func NewFeedbackService(repo repository.FeedbackRepository) *FeedbackService {
	return &FeedbackService{repo: repo}
}

// Submit validates and stores feedback. An empty category means "other".
func (s *FeedbackService) Submit(ctx context.Context, userID uuid.UUID, req FeedbackRequest) (*repository.Feedback, error) {
	category := req.Category
	if category == "" {
		category = "other"
	}
	if !feedbackCategories[category] {
		return nil, fieldInvalid("category")
	}
	message, err := requireText("message", req.Message, maxFeedbackLength)
	if err != nil {
		return nil, err
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		return nil, outOfRange("rating", 1, 5)
	}
	if len(req.Metadata) > 0 && !json.Valid(req.Metadata) {
		return nil, fieldInvalid("metadata")
	}

	f := &repository.Feedback{
		UserID:   userID,
		Category: category,
		Message:  message,
		Rating:   req.Rating,
		Metadata: req.Metadata,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, repoErr(err, "feedback", "submit feedback")
	}
	return f, nil
}

// List returns the user's own feedback.
func (s *FeedbackService) List(ctx context.Context, userID uuid.UUID, page Page) (*List[*repository.Feedback], error) {
	items, total, err := s.repo.ListByUser(ctx, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, repoErr(err, "feedback", "list feedback")
	}
	return newList(items, total, page), nil
}
