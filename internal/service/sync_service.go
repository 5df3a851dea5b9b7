package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/repository"
)

// Sync limits
const (
	maxSyncItems = 500
	clockSkew    = 5 * time.Minute
)

// SyncBookmark is a bookmark change made offline. A set DeletedAt removes
// the bookmark.
type SyncBookmark struct {
	LessonID  uuid.UUID  `json:"lesson_id"`
	Note      string     `json:"note"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at"`
}

// SyncSettings is a settings change made offline.
type SyncSettings struct {
	UpdateSettingsRequest
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncRequest pushes offline changes and asks for server changes since
// the last sync. A zero Since returns everything.
type SyncRequest struct {
	Since     time.Time               `json:"since"`
	History   []RecordActivityRequest `json:"history"`
	Bookmarks []SyncBookmark          `json:"bookmarks"`
	Settings  *SyncSettings           `json:"settings"`
}

// SyncRejection is a pushed change the server did not apply.
type SyncRejection struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// SyncResponse carries the server changes and the rejected pushes.
type SyncResponse struct {
	ServerTime time.Time                  `json:"server_time"`
	History    []*repository.HistoryEntry `json:"history"`
	Bookmarks  []*repository.Bookmark     `json:"bookmarks"`
	Settings   *repository.Settings       `json:"settings"`
	Rejected   []SyncRejection            `json:"rejected"`
}

// Rejection reasons
const (
	rejectInvalid = "invalid"
	rejectStale   = "stale"
)

// SyncService reconciles offline clients with the server.
type SyncService struct {
	history     *HistoryService
	historyRepo repository.HistoryRepository
	bookmarks   repository.BookmarkRepository
	lessons     repository.LessonRepository
	users       *UserService
	settings    repository.SettingsRepository
	log         zerolog.Logger
	now         func() time.Time
}

// NewSyncService creates a new SyncService.
func NewSyncService(
	history *HistoryService,
	historyRepo repository.HistoryRepository,
	bookmarks repository.BookmarkRepository,
	lessons repository.LessonRepository,
	users *UserService,
	settings repository.SettingsRepository,
	log zerolog.Logger,
) *SyncService {
	return &SyncService{
		history:     history,
		historyRepo: historyRepo,
		bookmarks:   bookmarks,
		lessons:     lessons,
		users:       users,
		settings:    settings,
		log:         log,
		now:         time.Now,
	}
}

// Sync applies the pushed changes and returns what changed on the server.
// History is inserted once per id; bookmarks and settings keep the newest
// write.
func (s *SyncService) Sync(ctx context.Context, userID uuid.UUID, req SyncRequest) (*SyncResponse, error) {
	if len(req.History) > maxSyncItems {
		return nil, outOfRange("history", 0, maxSyncItems)
	}
	if len(req.Bookmarks) > maxSyncItems {
		return nil, outOfRange("bookmarks", 0, maxSyncItems)
	}

	now := s.now()
	res := &SyncResponse{ServerTime: now, Rejected: []SyncRejection{}}

	for _, h := range req.History {
		if err := s.pushHistory(ctx, userID, h); err != nil {
			if !errors.IsCode(err, errors.ErrValidation) {
				return nil, err
			}
			res.Rejected = append(res.Rejected, SyncRejection{Kind: "history", ID: historyID(h), Reason: rejectInvalid})
		}
	}

	for _, b := range req.Bookmarks {
		reason, err := s.pushBookmark(ctx, userID, b, now)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			res.Rejected = append(res.Rejected, SyncRejection{Kind: "bookmark", ID: b.LessonID.String(), Reason: reason})
		}
	}

	settings, err := s.users.Settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Settings != nil {
		settings, err = s.pushSettings(ctx, settings, *req.Settings, now, res)
		if err != nil {
			return nil, err
		}
	}
	res.Settings = settings

	if res.History, err = s.historyRepo.ChangedSince(ctx, userID, req.Since); err != nil {
		return nil, repoErr(err, "history", "list history changes")
	}
	if res.Bookmarks, err = s.bookmarks.ChangedSince(ctx, userID, req.Since); err != nil {
		return nil, repoErr(err, "bookmark", "list bookmark changes")
	}
	if res.History == nil {
		res.History = []*repository.HistoryEntry{}
	}
	if res.Bookmarks == nil {
		res.Bookmarks = []*repository.Bookmark{}
	}

	s.log.Debug().
		Str("user_id", userID.String()).
		Int("pushed_history", len(req.History)).
		Int("pushed_bookmarks", len(req.Bookmarks)).
		Int("rejected", len(res.Rejected)).
		Msg("Sync completed")
	return res, nil
}

func historyID(h RecordActivityRequest) string {
	if h.ID == nil {
		return ""
	}
	return h.ID.String()
}

// pushHistory returns a validation error for items that can never apply,
// including ones whose lesson is gone or hidden from the user.
func (s *SyncService) pushHistory(ctx context.Context, userID uuid.UUID, h RecordActivityRequest) error {
	if h.ID == nil || *h.ID == uuid.Nil {
		return fieldRequired("id")
	}
	if h.LessonID != nil {
		if err := s.lessonUsable(ctx, *h.LessonID, userID); err != nil {
			return err
		}
	}
	_, err := s.history.Record(ctx, userID, h)
	return err
}

// lessonUsable maps a missing or hidden lesson to a validation error.
func (s *SyncService) lessonUsable(ctx context.Context, lessonID, userID uuid.UUID) error {
	_, err := visibleLesson(ctx, s.lessons, lessonID, userID)
	if errors.IsCode(err, errors.ErrNotFound) {
		return fieldInvalid("lesson_id")
	}
	return err
}

// pushBookmark returns a rejection reason, or "" when the change applied.
func (s *SyncService) pushBookmark(ctx context.Context, userID uuid.UUID, b SyncBookmark, now time.Time) (string, error) {
	if b.LessonID == uuid.Nil || b.UpdatedAt.IsZero() || checkNote(b.Note) != nil {
		return rejectInvalid, nil
	}
	if err := s.lessonUsable(ctx, b.LessonID, userID); err != nil {
		if errors.IsCode(err, errors.ErrValidation) {
			return rejectInvalid, nil
		}
		return "", err
	}

	updated := clampFuture(b.UpdatedAt, now)
	deleted := b.DeletedAt
	if deleted != nil {
		d := clampFuture(*deleted, now)
		deleted = &d
	}

	applied, err := s.bookmarks.UpsertIfNewer(ctx, &repository.Bookmark{
		UserID:    userID,
		LessonID:  b.LessonID,
		Note:      b.Note,
		UpdatedAt: updated,
		DeletedAt: deleted,
	})
	if err != nil {
		err = repoErr(err, "bookmark", "sync bookmark")
		if errors.IsCode(err, errors.ErrValidation) {
			return rejectInvalid, nil
		}
		return "", err
	}
	if !applied {
		return rejectStale, nil
	}
	return "", nil
}

// clampFuture replaces client times too far ahead of the server with now.
func clampFuture(t, now time.Time) time.Time {
	if t.After(now.Add(clockSkew)) {
		return now
	}
	return t
}

func (s *SyncService) pushSettings(ctx context.Context, current *repository.Settings, pushed SyncSettings, now time.Time, res *SyncResponse) (*repository.Settings, error) {
	if pushed.UpdatedAt.IsZero() {
		res.Rejected = append(res.Rejected, SyncRejection{Kind: "settings", Reason: rejectInvalid})
		return current, nil
	}
	if !pushed.UpdatedAt.After(current.UpdatedAt) {
		res.Rejected = append(res.Rejected, SyncRejection{Kind: "settings", Reason: rejectStale})
		return current, nil
	}

	next := *current
	if err := applySettings(&next, pushed.UpdateSettingsRequest); err != nil {
		res.Rejected = append(res.Rejected, SyncRejection{Kind: "settings", Reason: rejectInvalid})
		return current, nil
	}
	next.UpdatedAt = pushed.UpdatedAt
	if next.UpdatedAt.After(now) {
		next.UpdatedAt = now
	}
	if err := s.settings.Upsert(ctx, &next); err != nil {
		return nil, repoErr(err, "settings", "sync settings")
	}
	return &next, nil
}
