package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/i18n"
	"github.com/windfall/lingo_service/internal/repository"
)

// Broadcaster fans a message out to the subscribers of a channel.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, value interface{}) error
}

// ReminderSource lists the users due for a practice reminder.
type ReminderSource interface {
	ReminderCandidates(ctx context.Context, today time.Time, hour int) ([]repository.ReminderCandidate, error)
}

// Notification types
const (
	NotificationReminder = "reminder"
	NotificationSystem   = "system"
)

// NotificationChannelPrefix prefixes the per-user broadcast channel.
const NotificationChannelPrefix = "notifications:"

// NotificationChannel returns the broadcast channel of a user.
func NotificationChannel(userID uuid.UUID) string {
	return NotificationChannelPrefix + userID.String()
}

var platforms = map[string]bool{"ios": true, "android": true, "web": true}

// CreateNotificationRequest is a notification to deliver.
type CreateNotificationRequest struct {
	Type  string          `json:"type"`
	Title string          `json:"title"`
	Body  string          `json:"body"`
	Data  json.RawMessage `json:"data"`
}

// NotificationList is a page of notifications with the unread count.
type NotificationList struct {
	*List[*repository.Notification]
	Unread int
}

// NotificationService stores notifications, pushes them to connected
// clients and sends practice reminders.
type NotificationService struct {
	repo        repository.NotificationRepository
	devices     repository.DeviceTokenRepository
	reminders   ReminderSource
	broadcaster Broadcaster
	loc         *time.Location
	log         zerolog.Logger
}

// NewNotificationService creates a new NotificationService. broadcaster
// may be nil, in which case notifications are only stored.
func NewNotificationService(
	repo repository.NotificationRepository,
	devices repository.DeviceTokenRepository,
	reminders ReminderSource,
	broadcaster Broadcaster,
	loc *time.Location,
	log zerolog.Logger,
) *NotificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationService{
		repo:        repo,
		devices:     devices,
		reminders:   reminders,
		broadcaster: broadcaster,
		loc:         loc,
		log:         log,
	}
}

// Create stores a notification and pushes it to the user's open
// connections. A failed push is logged; the notification stays stored.
func (s *NotificationService) Create(ctx context.Context, userID uuid.UUID, req CreateNotificationRequest) (*repository.Notification, error) {
	title, err := requireText("title", req.Title, 200)
	if err != nil {
		return nil, err
	}
	body, err := requireText("body", req.Body, 1000)
	if err != nil {
		return nil, err
	}
	kind := req.Type
	if kind == "" {
		kind = NotificationSystem
	}
	data := req.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	if !json.Valid(data) {
		return nil, fieldInvalid("data")
	}

	n := &repository.Notification{UserID: userID, Type: kind, Title: title, Body: body, Data: data}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, repoErr(err, "notification", "create notification")
	}

	if s.broadcaster != nil {
		if err := s.broadcaster.Publish(ctx, NotificationChannel(userID), n); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("Failed to broadcast notification")
		}
	}
	return n, nil
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page Page) (*NotificationList, error) {
	items, total, err := s.repo.List(ctx, userID, unreadOnly, page.Limit, page.Offset())
	if err != nil {
		return nil, repoErr(err, "notification", "list notifications")
	}
	unread, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, repoErr(err, "notification", "count unread notifications")
	}
	return &NotificationList{List: newList(items, total, page), Unread: unread}, nil
}

// MarkRead marks one notification read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return repoErr(s.repo.MarkRead(ctx, userID, id), "notification", "mark notification read")
}

// MarkAllRead marks every notification read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, repoErr(err, "notification", "mark notifications read")
	}
	return n, nil
}

// Delete removes one notification.
func (s *NotificationService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return repoErr(s.repo.Delete(ctx, userID, id), "notification", "delete notification")
}

// RegisterDevice stores a push token. A token registered by another user
// moves to this one.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID uuid.UUID, token, platform string) (*repository.DeviceToken, error) {
	token, err := requireText("token", token, 4096)
	if err != nil {
		return nil, err
	}
	if !platforms[platform] {
		return nil, fieldInvalid("platform")
	}

	d := &repository.DeviceToken{UserID: userID, Token: token, Platform: platform}
	if err := s.devices.Upsert(ctx, d); err != nil {
		return nil, repoErr(err, "device_token", "register device")
	}
	return d, nil
}

// RemoveDevice forgets a push token.
func (s *NotificationService) RemoveDevice(ctx context.Context, userID uuid.UUID, token string) error {
	return repoErr(s.devices.Delete(ctx, userID, token), "device_token", "remove device")
}

// SendReminders notifies users whose reminder hour is now and who have not
// practiced today, in their interface language. It returns how many
// reminders were sent.
func (s *NotificationService) SendReminders(ctx context.Context, now time.Time) (int, error) {
	local := now.In(s.loc)
	candidates, err := s.reminders.ReminderCandidates(ctx, civilDay(now, s.loc), local.Hour())
	if err != nil {
		return 0, repoErr(err, "gamification", "list reminder candidates")
	}

	sent := 0
	for _, c := range candidates {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		body := i18n.T(c.UILanguage, "notification.reminder.body", nil)
		if c.CurrentStreak > 0 {
			body = i18n.T(c.UILanguage, "notification.reminder.streak_body", map[string]interface{}{"streak": c.CurrentStreak})
		}
		data, _ := json.Marshal(map[string]int{"streak": c.CurrentStreak})

		_, err := s.Create(ctx, c.UserID, CreateNotificationRequest{
			Type:  NotificationReminder,
			Title: i18n.T(c.UILanguage, "notification.reminder.title", nil),
			Body:  body,
			Data:  data,
		})
		if err != nil {
			s.log.Error().Err(err).Str("user_id", c.UserID.String()).Msg("Failed to send reminder")
			continue
		}
		sent++
	}
	return sent, nil
}
