package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/windfall/lingo_service/internal/client"
	"github.com/windfall/lingo_service/internal/repository"
	"github.com/windfall/lingo_service/internal/tts"
)

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type fakeProfiles struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*repository.Profile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{rows: map[uuid.UUID]*repository.Profile{}}
}

func (f *fakeProfiles) GetOrCreate(ctx context.Context, p *repository.Profile) (*repository.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.rows[p.ID]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *p
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.rows[p.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeProfiles) Update(ctx context.Context, p *repository.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[p.ID]; !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

type fakeUserData struct {
	deleted []uuid.UUID
	err     error
}

func (f *fakeUserData) DeleteAll(ctx context.Context, userID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, userID)
	return nil
}

type fakeAccounts struct {
	deleted []string
	err     error
}

func (f *fakeAccounts) DeleteUser(ctx context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, userID)
	return nil
}

type fakeSettings struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*repository.Settings
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{rows: map[uuid.UUID]*repository.Settings{}}
}

func (f *fakeSettings) Get(ctx context.Context, userID uuid.UUID) (*repository.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSettings) Upsert(ctx context.Context, s *repository.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	cp := *s
	f.rows[s.UserID] = &cp
	return nil
}

type fakeGamification struct {
	mu         sync.Mutex
	rows       map[uuid.UUID]*repository.Gamification
	candidates []repository.ReminderCandidate
	lastHour   int
}

func newFakeGamification() *fakeGamification {
	return &fakeGamification{rows: map[uuid.UUID]*repository.Gamification{}}
}

func (f *fakeGamification) Get(ctx context.Context, userID uuid.UUID) (*repository.Gamification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.rows[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGamification) Update(ctx context.Context, userID uuid.UUID, fn func(g *repository.Gamification) error) (*repository.Gamification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.rows[userID]
	if !ok {
		g = &repository.Gamification{UserID: userID, Level: 1}
	}
	cp := *g
	if err := fn(&cp); err != nil {
		return nil, err
	}
	f.rows[userID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeGamification) ReminderCandidates(ctx context.Context, today time.Time, hour int) ([]repository.ReminderCandidate, error) {
	f.lastHour = hour
	return f.candidates, nil
}

type fakeLessons struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*repository.Lesson
}

func newFakeLessons() *fakeLessons {
	return &fakeLessons{rows: map[uuid.UUID]*repository.Lesson{}}
}

func (f *fakeLessons) add(l *repository.Lesson) *repository.Lesson {
	_ = f.Create(context.Background(), l)
	return l
}

func (f *fakeLessons) Create(ctx context.Context, l *repository.Lesson) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = uuid.New()
	l.CreatedAt = time.Now().Add(time.Duration(len(f.rows)) * time.Millisecond)
	l.UpdatedAt = l.CreatedAt
	cp := *l
	f.rows[l.ID] = &cp
	return nil
}

func (f *fakeLessons) GetByID(ctx context.Context, id uuid.UUID) (*repository.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLessons) List(ctx context.Context, filter repository.LessonFilter) ([]*repository.Lesson, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.Lesson
	for _, l := range f.rows {
		if !l.IsPublished && !isOwner(l.CreatedBy, filter.ViewerID) {
			continue
		}
		if filter.Type != "" && l.Type != filter.Type {
			continue
		}
		if filter.Level != "" && l.Level != filter.Level {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(l.Title), strings.ToLower(filter.Query)) {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.Limit, filter.Offset), len(out), nil
}

func (f *fakeLessons) Update(ctx context.Context, l *repository.Lesson) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[l.ID]; !ok {
		return repository.ErrNotFound
	}
	l.UpdatedAt = time.Now()
	cp := *l
	f.rows[l.ID] = &cp
	return nil
}

func (f *fakeLessons) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeBookmarks struct {
	mu   sync.Mutex
	rows []*repository.Bookmark
	err  error
	now  func() time.Time
}

func (f *fakeBookmarks) clock() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now()
}

func (f *fakeBookmarks) find(userID, lessonID uuid.UUID) *repository.Bookmark {
	for _, b := range f.rows {
		if b.UserID == userID && b.LessonID == lessonID {
			return b
		}
	}
	return nil
}

func (f *fakeBookmarks) Upsert(ctx context.Context, b *repository.Bookmark) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.clock()
	if existing := f.find(b.UserID, b.LessonID); existing != nil {
		existing.Note = b.Note
		existing.DeletedAt = nil
		existing.UpdatedAt = now
		existing.ChangedAt = now
		*b = *existing
		return nil
	}
	b.ID = uuid.New()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.ChangedAt = now
	cp := *b
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeBookmarks) UpsertIfNewer(ctx context.Context, b *repository.Bookmark) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if existing := f.find(b.UserID, b.LessonID); existing != nil {
		if !existing.UpdatedAt.Before(b.UpdatedAt) {
			return false, nil
		}
		existing.Note = b.Note
		existing.UpdatedAt = b.UpdatedAt
		existing.DeletedAt = b.DeletedAt
		existing.ChangedAt = f.clock()
		return true, nil
	}
	cp := *b
	cp.ID = uuid.New()
	cp.CreatedAt = b.UpdatedAt
	cp.ChangedAt = f.clock()
	f.rows = append(f.rows, &cp)
	return true, nil
}

func (f *fakeBookmarks) GetByID(ctx context.Context, userID, id uuid.UUID) (*repository.Bookmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.rows {
		if b.ID == id && b.UserID == userID && b.DeletedAt == nil {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeBookmarks) GetByLesson(ctx context.Context, userID, lessonID uuid.UUID) (*repository.Bookmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b := f.find(userID, lessonID); b != nil && b.DeletedAt == nil {
		cp := *b
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeBookmarks) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*repository.Bookmark, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.Bookmark
	for _, b := range f.rows {
		if b.UserID == userID && b.DeletedAt == nil {
			cp := *b
			out = append(out, &cp)
		}
	}
	return paginate(out, limit, offset), len(out), nil
}

func (f *fakeBookmarks) UpdateNote(ctx context.Context, userID, id uuid.UUID, note string) (*repository.Bookmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.rows {
		if b.ID == id && b.UserID == userID && b.DeletedAt == nil {
			b.Note = note
			b.UpdatedAt = f.clock()
			b.ChangedAt = b.UpdatedAt
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeBookmarks) SoftDelete(ctx context.Context, userID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.rows {
		if b.ID == id && b.UserID == userID && b.DeletedAt == nil {
			now := f.clock()
			b.DeletedAt = &now
			b.UpdatedAt = now
			b.ChangedAt = now
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeBookmarks) ChangedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*repository.Bookmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.Bookmark
	for _, b := range f.rows {
		if b.UserID == userID && b.ChangedAt.After(since) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeHistory struct {
	mu       sync.Mutex
	rows     []*repository.HistoryEntry
	gam       *fakeGamification
	insertErr error
	awardErr  error
}

// Insert mirrors the transactional repository: a failed award leaves no
// row behind.
func (f *fakeHistory) Insert(ctx context.Context, e *repository.HistoryEntry, award func(g *repository.Gamification) error) (*repository.Gamification, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if f.insertErr != nil {
		return nil, false, f.insertErr
	}
	for _, existing := range f.rows {
		if existing.ID == e.ID {
			return nil, false, nil
		}
	}

	var g *repository.Gamification
	if award != nil {
		if f.awardErr != nil {
			return nil, false, f.awardErr
		}
		if f.gam == nil {
			f.gam = newFakeGamification()
		}
		var err error
		if g, err = f.gam.Update(ctx, e.UserID, award); err != nil {
			return nil, false, err
		}
	}

	e.CreatedAt = time.Now()
	cp := *e
	f.rows = append(f.rows, &cp)
	return g, true, nil
}

func (f *fakeHistory) List(ctx context.Context, userID uuid.UUID, activityType string, limit, offset int) ([]*repository.HistoryEntry, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.HistoryEntry
	for _, e := range f.rows {
		if e.UserID == userID && (activityType == "" || e.ActivityType == activityType) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return paginate(out, limit, offset), len(out), nil
}

func (f *fakeHistory) Stats(ctx context.Context, userID uuid.UUID) ([]repository.ActivityStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byType := map[string]*repository.ActivityStats{}
	sums := map[string]float64{}
	var types []string
	for _, e := range f.rows {
		if e.UserID != userID {
			continue
		}
		s, ok := byType[e.ActivityType]
		if !ok {
			s = &repository.ActivityStats{ActivityType: e.ActivityType}
			byType[e.ActivityType] = s
			types = append(types, e.ActivityType)
		}
		s.Count++
		s.TotalSeconds += e.DurationSeconds
		s.TotalXP += e.XPEarned
		if e.Score != nil {
			s.ScoredCount++
			sums[e.ActivityType] += float64(*e.Score)
		}
	}
	sort.Strings(types)
	var out []repository.ActivityStats
	for _, t := range types {
		s := byType[t]
		if s.ScoredCount > 0 {
			avg := sums[t] / float64(s.ScoredCount)
			s.AverageScore = &avg
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeHistory) Delete(ctx context.Context, userID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.rows {
		if e.ID == id && e.UserID == userID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeHistory) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*repository.HistoryEntry
	var n int64
	for _, e := range f.rows {
		if e.UserID == userID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	f.rows = kept
	return n, nil
}

func (f *fakeHistory) ChangedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*repository.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.HistoryEntry
	for _, e := range f.rows {
		if e.UserID == userID && e.CreatedAt.After(since) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeListenLater struct {
	rows []*repository.ListenLaterItem
}

func (f *fakeListenLater) Add(ctx context.Context, item *repository.ListenLaterItem) error {
	for _, r := range f.rows {
		if r.UserID == item.UserID && r.LessonID == item.LessonID {
			return repository.ErrAlreadyExists
		}
	}
	item.ID = uuid.New()
	item.CreatedAt = time.Now()
	cp := *item
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeListenLater) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*repository.ListenLaterItem, int, error) {
	var out []*repository.ListenLaterItem
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return paginate(out, limit, offset), len(out), nil
}

func (f *fakeListenLater) Remove(ctx context.Context, userID, lessonID uuid.UUID) error {
	for i, r := range f.rows {
		if r.UserID == userID && r.LessonID == lessonID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeListenLater) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	var kept []*repository.ListenLaterItem
	var n int64
	for _, r := range f.rows {
		if r.UserID == userID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return n, nil
}

type fakePlaylists struct {
	rows  map[uuid.UUID]*repository.Playlist
	items map[uuid.UUID][]*repository.PlaylistItem
}

func newFakePlaylists() *fakePlaylists {
	return &fakePlaylists{
		rows:  map[uuid.UUID]*repository.Playlist{},
		items: map[uuid.UUID][]*repository.PlaylistItem{},
	}
}

func (f *fakePlaylists) Create(ctx context.Context, p *repository.Playlist) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakePlaylists) GetByID(ctx context.Context, id uuid.UUID) (*repository.Playlist, error) {
	p, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	cp.ItemCount = len(f.items[id])
	return &cp, nil
}

func (f *fakePlaylists) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*repository.Playlist, int, error) {
	var out []*repository.Playlist
	for _, p := range f.rows {
		if p.UserID == userID {
			cp := *p
			cp.ItemCount = len(f.items[p.ID])
			out = append(out, &cp)
		}
	}
	return paginate(out, limit, offset), len(out), nil
}

func (f *fakePlaylists) Update(ctx context.Context, p *repository.Playlist) error {
	if _, ok := f.rows[p.ID]; !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakePlaylists) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	delete(f.items, id)
	return nil
}

func (f *fakePlaylists) Items(ctx context.Context, playlistID uuid.UUID) ([]*repository.PlaylistItem, error) {
	out := make([]*repository.PlaylistItem, 0, len(f.items[playlistID]))
	for _, it := range f.items[playlistID] {
		cp := *it
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakePlaylists) AddItem(ctx context.Context, playlistID, lessonID uuid.UUID) (*repository.PlaylistItem, error) {
	max := 0
	for _, it := range f.items[playlistID] {
		if it.LessonID == lessonID {
			return nil, repository.ErrAlreadyExists
		}
		if it.Position > max {
			max = it.Position
		}
	}
	item := &repository.PlaylistItem{
		ID:         uuid.New(),
		PlaylistID: playlistID,
		LessonID:   lessonID,
		Position:   max + 1,
		AddedAt:    time.Now(),
	}
	f.items[playlistID] = append(f.items[playlistID], item)
	cp := *item
	return &cp, nil
}

func (f *fakePlaylists) RemoveItem(ctx context.Context, playlistID, lessonID uuid.UUID) error {
	items := f.items[playlistID]
	for i, it := range items {
		if it.LessonID != lessonID {
			continue
		}
		removed := it.Position
		items = append(items[:i], items[i+1:]...)
		for _, other := range items {
			if other.Position > removed {
				other.Position--
			}
		}
		f.items[playlistID] = items
		return nil
	}
	return repository.ErrNotFound
}

func (f *fakePlaylists) Reorder(ctx context.Context, playlistID uuid.UUID, lessonIDs []uuid.UUID) error {
	for i, id := range lessonIDs {
		for _, it := range f.items[playlistID] {
			if it.LessonID == id {
				it.Position = i + 1
			}
		}
	}
	return nil
}

type fakeFeedback struct {
	rows []*repository.Feedback
}

func (f *fakeFeedback) Create(ctx context.Context, fb *repository.Feedback) error {
	fb.ID = uuid.New()
	fb.CreatedAt = time.Now()
	cp := *fb
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeFeedback) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*repository.Feedback, int, error) {
	var out []*repository.Feedback
	for _, fb := range f.rows {
		if fb.UserID == userID {
			out = append(out, fb)
		}
	}
	return paginate(out, limit, offset), len(out), nil
}

type fakeDevices struct {
	rows []*repository.DeviceToken
}

func (f *fakeDevices) Upsert(ctx context.Context, d *repository.DeviceToken) error {
	for _, existing := range f.rows {
		if existing.Token == d.Token {
			existing.UserID = d.UserID
			existing.Platform = d.Platform
			existing.UpdatedAt = time.Now()
			*d = *existing
			return nil
		}
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeDevices) Delete(ctx context.Context, userID uuid.UUID, token string) error {
	for i, d := range f.rows {
		if d.UserID == userID && d.Token == token {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeDevices) ListByUser(ctx context.Context, userID uuid.UUID) ([]*repository.DeviceToken, error) {
	var out []*repository.DeviceToken
	for _, d := range f.rows {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeNotifications struct {
	mu   sync.Mutex
	rows []*repository.Notification
}

func (f *fakeNotifications) Create(ctx context.Context, n *repository.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	cp := *n
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeNotifications) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*repository.Notification, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.Notification
	for _, n := range f.rows {
		if n.UserID == userID && (!unreadOnly || n.ReadAt == nil) {
			cp := *n
			out = append(out, &cp)
		}
	}
	return paginate(out, limit, offset), len(out), nil
}

func (f *fakeNotifications) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.rows {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotifications) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.rows {
		if n.ID == id && n.UserID == userID {
			if n.ReadAt == nil {
				now := time.Now()
				n.ReadAt = &now
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeNotifications) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	now := time.Now()
	for _, row := range f.rows {
		if row.UserID == userID && row.ReadAt == nil {
			row.ReadAt = &now
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) Delete(ctx context.Context, userID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.rows {
		if n.ID == id && n.UserID == userID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeRadio struct {
	rows map[uuid.UUID]*repository.RadioEpisode
}

func newFakeRadio() *fakeRadio {
	return &fakeRadio{rows: map[uuid.UUID]*repository.RadioEpisode{}}
}

func (f *fakeRadio) Create(ctx context.Context, e *repository.RadioEpisode) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	cp := *e
	f.rows[e.ID] = &cp
	return nil
}

func (f *fakeRadio) GetByID(ctx context.Context, id uuid.UUID) (*repository.RadioEpisode, error) {
	e, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeRadio) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*repository.RadioEpisode, int, error) {
	var out []*repository.RadioEpisode
	for _, e := range f.rows {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return paginate(out, limit, offset), len(out), nil
}

func (f *fakeRadio) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeChat struct {
	name    string
	replies []string
	err     error
	calls   int
	last    []client.ChatMessage
}

func (f *fakeChat) Name() string { return f.name }

func (f *fakeChat) Chat(ctx context.Context, messages []client.ChatMessage, jsonMode bool) (string, error) {
	f.calls++
	f.last = messages
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

type fakeTranscriber struct {
	name string
	text string
	err  error
}

func (f *fakeTranscriber) Name() string { return f.name }

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	return f.text, f.err
}

type fakePublisher struct {
	mu       sync.Mutex
	requests []tts.Request
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, req tts.Request) (*tts.Published, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &tts.Published{URL: "https://cdn.test/" + tts.ObjectKey(req), Provider: "azure", Size: 48000}, nil
}
