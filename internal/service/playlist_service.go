package service

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"

	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/repository"
)

// Playlist limits
const (
	maxPlaylistName        = 100
	maxPlaylistDescription = 500
)

// CreatePlaylistRequest creates a playlist.
type CreatePlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

// UpdatePlaylistRequest edits a playlist. Nil fields are kept.
type UpdatePlaylistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

// PlaylistService manages playlists and their ordered items.
type PlaylistService struct {
	repo    repository.PlaylistRepository
	lessons repository.LessonRepository
}

// NewPlaylistService creates a new PlaylistService.
func NewPlaylistService(repo repository.PlaylistRepository, lessons repository.LessonRepository) *PlaylistService {
	return &PlaylistService{repo: repo, lessons: lessons}
}

func checkDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if len([]rune(description)) > maxPlaylistDescription {
		return "", fieldTooLong("description", maxPlaylistDescription)
	}
	return description, nil
}

// Create makes a new playlist owned by userID.
func (s *PlaylistService) Create(ctx context.Context, userID uuid.UUID, req CreatePlaylistRequest) (*repository.Playlist, error) {
	name, err := requireText("name", req.Name, maxPlaylistName)
	if err != nil {
		return nil, err
	}
	description, err := checkDescription(req.Description)
	if err != nil {
		return nil, err
	}

	p := &repository.Playlist{UserID: userID, Name: name, Description: description, IsPublic: req.IsPublic}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, repoErr(err, "playlist", "create playlist")
	}
	return p, nil
}

// List returns the user's playlists.
func (s *PlaylistService) List(ctx context.Context, userID uuid.UUID, page Page) (*List[*repository.Playlist], error) {
	items, total, err := s.repo.ListByUser(ctx, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, repoErr(err, "playlist", "list playlists")
	}
	return newList(items, total, page), nil
}

// Get returns a playlist with its items. Private playlists of other users
// are reported as missing.
func (s *PlaylistService) Get(ctx context.Context, userID, id uuid.UUID) (*repository.Playlist, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoErr(err, "playlist", "get playlist")
	}
	if p.UserID != userID && !p.IsPublic {
		return nil, errors.NotFound("playlist")
	}

	items, err := s.repo.Items(ctx, id)
	if err != nil {
		return nil, repoErr(err, "playlist", "get playlist items")
	}
	p.Items = items
	p.ItemCount = len(items)
	return p, nil
}

// owned loads a playlist the user may modify.
func (s *PlaylistService) owned(ctx context.Context, userID, id uuid.UUID) (*repository.Playlist, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoErr(err, "playlist", "get playlist")
	}
	if p.UserID != userID {
		if p.IsPublic {
			return nil, notOwner()
		}
		return nil, errors.NotFound("playlist")
	}
	return p, nil
}

// Update edits a playlist the user owns.
func (s *PlaylistService) Update(ctx context.Context, userID, id uuid.UUID, req UpdatePlaylistRequest) (*repository.Playlist, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if p.Name, err = requireText("name", *req.Name, maxPlaylistName); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		if p.Description, err = checkDescription(*req.Description); err != nil {
			return nil, err
		}
	}
	if req.IsPublic != nil {
		p.IsPublic = *req.IsPublic
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, repoErr(err, "playlist", "update playlist")
	}
	return p, nil
}

// Delete removes a playlist the user owns together with its items.
func (s *PlaylistService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return repoErr(s.repo.Delete(ctx, id), "playlist", "delete playlist")
}

// AddItem appends a lesson to the end of the playlist.
func (s *PlaylistService) AddItem(ctx context.Context, userID, id, lessonID uuid.UUID) (*repository.PlaylistItem, error) {
	if lessonID == uuid.Nil {
		return nil, fieldRequired("lesson_id")
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	if _, err := visibleLesson(ctx, s.lessons, lessonID, userID); err != nil {
		return nil, err
	}

	item, err := s.repo.AddItem(ctx, id, lessonID)
	if stderrors.Is(err, repository.ErrAlreadyExists) {
		return nil, errors.Conflict("lesson already in playlist").WithMessageID("conflict.playlist_item_exists")
	}
	if err != nil {
		return nil, repoErr(err, "playlist", "add playlist item")
	}
	return item, nil
}

// RemoveItem takes a lesson out of the playlist. Later items move up.
func (s *PlaylistService) RemoveItem(ctx context.Context, userID, id, lessonID uuid.UUID) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return repoErr(s.repo.RemoveItem(ctx, id, lessonID), "playlist_item", "remove playlist item")
}

// Reorder sets the item order. lessonIDs must name every current item
// exactly once.
func (s *PlaylistService) Reorder(ctx context.Context, userID, id uuid.UUID, lessonIDs []uuid.UUID) ([]*repository.PlaylistItem, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}

	items, err := s.repo.Items(ctx, id)
	if err != nil {
		return nil, repoErr(err, "playlist", "get playlist items")
	}
	if !isPermutation(items, lessonIDs) {
		return nil, errors.Validation("lesson_ids must list every playlist item once").
			WithMessageID("validation.invalid_order")
	}

	if err := s.repo.Reorder(ctx, id, lessonIDs); err != nil {
		return nil, repoErr(err, "playlist", "reorder playlist")
	}
	items, err = s.repo.Items(ctx, id)
	if err != nil {
		return nil, repoErr(err, "playlist", "get playlist items")
	}
	return items, nil
}

func isPermutation(items []*repository.PlaylistItem, lessonIDs []uuid.UUID) bool {
	if len(items) != len(lessonIDs) {
		return false
	}
	current := make(map[uuid.UUID]bool, len(items))
	for _, it := range items {
		current[it.LessonID] = true
	}
	for _, id := range lessonIDs {
		if !current[id] {
			return false
		}
		delete(current, id)
	}
	return true
}
