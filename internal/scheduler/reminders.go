package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	runTimeout = 5 * time.Minute
	lockTTL    = time.Hour
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ReminderSender sends the practice reminders due at now.
type ReminderSender interface {
	SendReminders(ctx context.Context, now time.Time) (int, error)
}

// RunLock claims a reminder run so that only one server instance sends it.
type RunLock interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// ReminderScheduler runs the practice reminder job on a cron schedule in
// the app timezone. Each local hour is sent at most once per instance, and
// at most once overall when a RunLock is shared between instances.
type ReminderScheduler struct {
	sender   ReminderSender
	lock     RunLock
	schedule string
	loc      *time.Location
	log      zerolog.Logger

	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
	sending  bool
	lastSent string
	now      func() time.Time
}

// NewReminderScheduler validates schedule and creates a stopped scheduler.
// lock may be nil on a single instance.
func NewReminderScheduler(sender ReminderSender, lock RunLock, schedule string, loc *time.Location, log zerolog.Logger) (*ReminderScheduler, error) {
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderScheduler{
		sender:   sender,
		lock:     lock,
		schedule: schedule,
		loc:      loc,
		log:      log.With().Str("component", "reminder_scheduler").Logger(),
		cron:     cron.New(cron.WithParser(parser), cron.WithLocation(loc)),
		now:      time.Now,
	}, nil
}

// runKey names the local hour a run belongs to.
func (s *ReminderScheduler) runKey(t time.Time) string {
	return "reminders:" + t.In(s.loc).Format("2006-01-02:15")
}

// Start schedules the job. It stops when ctx is cancelled.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	s.cron.Start()
	s.running = true

	s.log.Info().Str("schedule", s.schedule).Msg("Reminder scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop stops scheduling and waits for a running job to finish.
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.log.Info().Msg("Reminder scheduler stopped")
}

// RunOnce sends the reminders due now. It is a no-op while a run is in
// progress or when the current hour was already sent. A failed run
// releases the hour so a later attempt can retry it.
func (s *ReminderScheduler) RunOnce(ctx context.Context) {
	start := s.now()
	key := s.runKey(start)

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		s.log.Warn().Msg("Previous reminder run still in progress, skipping")
		return
	}
	if s.lastSent == key {
		s.mu.Unlock()
		s.log.Debug().Str("run", key).Msg("Reminders already sent for this hour, skipping")
		return
	}
	s.sending = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runTimeout)
	defer cancel()

	if s.lock != nil {
		claimed, err := s.lock.SetNX(ctx, key, start.UTC().Format(time.RFC3339), lockTTL)
		if err != nil {
			s.log.Error().Err(err).Str("run", key).Msg("Failed to claim reminder run")
			return
		}
		if !claimed {
			s.log.Debug().Str("run", key).Msg("Reminder run claimed by another instance")
			s.markSent(key)
			return
		}
	}

	sent, err := s.sender.SendReminders(ctx, start)
	if err != nil {
		s.log.Error().Err(err).Int("sent", sent).Msg("Reminder run failed")
		if s.lock != nil {
			if err := s.lock.Del(ctx, key); err != nil {
				s.log.Warn().Err(err).Str("run", key).Msg("Failed to release reminder run")
			}
		}
		return
	}
	s.markSent(key)
	s.log.Info().
		Int("sent", sent).
		Dur("duration", time.Since(start)).
		Msg("Reminder run finished")
}

func (s *ReminderScheduler) markSent(key string) {
	s.mu.Lock()
	s.lastSent = key
	s.mu.Unlock()
}
