package service

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"

	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/repository"
)

// ListenLaterService manages the listen-later queue.
type ListenLaterService struct {
	repo    repository.ListenLaterRepository
	lessons repository.LessonRepository
}

// NewListenLaterService creates a new ListenLaterService.
func NewListenLaterService(repo repository.ListenLaterRepository, lessons repository.LessonRepository) *ListenLaterService {
	return &ListenLaterService{repo: repo, lessons: lessons}
}

// Add queues a lesson. Queuing it twice is a conflict.
func (s *ListenLaterService) Add(ctx context.Context, userID, lessonID uuid.UUID) (*repository.ListenLaterItem, error) {
	if lessonID == uuid.Nil {
		return nil, fieldRequired("lesson_id")
	}
	if _, err := visibleLesson(ctx, s.lessons, lessonID, userID); err != nil {
		return nil, err
	}

	item := &repository.ListenLaterItem{UserID: userID, LessonID: lessonID}
	err := s.repo.Add(ctx, item)
	if stderrors.Is(err, repository.ErrAlreadyExists) {
		return nil, errors.Conflict("lesson already in listen later").WithMessageID("conflict.listen_later_exists")
	}
	if err != nil {
		return nil, repoErr(err, "listen_later", "add to listen later")
	}
	return item, nil
}

// List returns the queue, newest first.
func (s *ListenLaterService) List(ctx context.Context, userID uuid.UUID, page Page) (*List[*repository.ListenLaterItem], error) {
	items, total, err := s.repo.List(ctx, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, repoErr(err, "listen_later", "list listen later")
	}
	return newList(items, total, page), nil
}

// Remove takes a lesson off the queue.
func (s *ListenLaterService) Remove(ctx context.Context, userID, lessonID uuid.UUID) error {
	return repoErr(s.repo.Remove(ctx, userID, lessonID), "listen_later", "remove from listen later")
}

// Clear empties the queue.
func (s *ListenLaterService) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.Clear(ctx, userID)
	if err != nil {
		return 0, repoErr(err, "listen_later", "clear listen later")
	}
	return n, nil
}
