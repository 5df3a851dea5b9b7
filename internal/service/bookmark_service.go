package service

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"

	"github.com/windfall/lingo_service/internal/repository"
)

const maxNoteLength = 500

// AddBookmarkRequest bookmarks a lesson.
type AddBookmarkRequest struct {
	LessonID uuid.UUID `json:"lesson_id"`
	Note     string    `json:"note"`
}

// BookmarkStatus tells whether a lesson is bookmarked.
type BookmarkStatus struct {
	Bookmarked bool                 `json:"bookmarked"`
	Bookmark   *repository.Bookmark `json:"bookmark,omitempty"`
}

// BookmarkService manages bookmarks.
type BookmarkService struct {
	repo    repository.BookmarkRepository
	lessons repository.LessonRepository
}

// NewBookmarkService creates a new BookmarkService.
func NewBookmarkService(repo repository.BookmarkRepository, lessons repository.LessonRepository) *BookmarkService {
	return &BookmarkService{repo: repo, lessons: lessons}
}

func checkNote(note string) error {
	if len([]rune(note)) > maxNoteLength {
		return fieldTooLong("note", maxNoteLength)
	}
	return nil
}

// Add bookmarks a lesson. Bookmarking it again updates the note and
// revives a deleted bookmark.
func (s *BookmarkService) Add(ctx context.Context, userID uuid.UUID, req AddBookmarkRequest) (*repository.Bookmark, error) {
	if req.LessonID == uuid.Nil {
		return nil, fieldRequired("lesson_id")
	}
	if err := checkNote(req.Note); err != nil {
		return nil, err
	}
	if _, err := visibleLesson(ctx, s.lessons, req.LessonID, userID); err != nil {
		return nil, err
	}

	b := &repository.Bookmark{UserID: userID, LessonID: req.LessonID, Note: req.Note}
	if err := s.repo.Upsert(ctx, b); err != nil {
		return nil, repoErr(err, "bookmark", "add bookmark")
	}
	return b, nil
}

// List returns the user's live bookmarks.
func (s *BookmarkService) List(ctx context.Context, userID uuid.UUID, page Page) (*List[*repository.Bookmark], error) {
	items, total, err := s.repo.List(ctx, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, repoErr(err, "bookmark", "list bookmarks")
	}
	return newList(items, total, page), nil
}

// UpdateNote replaces a bookmark's note.
func (s *BookmarkService) UpdateNote(ctx context.Context, userID, id uuid.UUID, note string) (*repository.Bookmark, error) {
	if err := checkNote(note); err != nil {
		return nil, err
	}
	b, err := s.repo.UpdateNote(ctx, userID, id, note)
	if err != nil {
		return nil, repoErr(err, "bookmark", "update bookmark")
	}
	return b, nil
}

// Delete soft-deletes a bookmark so that sync clients see the removal.
func (s *BookmarkService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return repoErr(s.repo.SoftDelete(ctx, userID, id), "bookmark", "delete bookmark")
}

// Check reports whether the user has bookmarked a lesson.
func (s *BookmarkService) Check(ctx context.Context, userID, lessonID uuid.UUID) (*BookmarkStatus, error) {
	b, err := s.repo.GetByLesson(ctx, userID, lessonID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return &BookmarkStatus{}, nil
	}
	if err != nil {
		return nil, repoErr(err, "bookmark", "check bookmark")
	}
	return &BookmarkStatus{Bookmarked: true, Bookmark: b}, nil
}
