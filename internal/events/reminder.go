package events

import (
	"context"
	"time"

	"hallbook/pkg/logger"
	"hallbook/pkg/model"
)

// ReminderSource claims approved bookings starting inside window. A claimed
// booking is not returned again unless its reminder is released.
type ReminderSource interface {
	ClaimDueReminders(ctx context.Context, window time.Duration) ([]*model.Booking, error)
	ReleaseReminder(ctx context.Context, id string) error
}

type ReminderScanner struct {
	source    ReminderSource
	publisher Publisher
	window    time.Duration
	interval  time.Duration
	log       *logger.Logger
}

func NewReminderScanner(source ReminderSource, publisher Publisher, window, interval time.Duration, log *logger.Logger) *ReminderScanner {
	return &ReminderScanner{
		source:    source,
		publisher: publisher,
		window:    window,
		interval:  interval,
		log:       log.Component("reminders"),
	}
}

// ScanOnce publishes one reminder per due booking and returns how many were
// published. A reminder that fails to publish is released for the next scan.
func (s *ReminderScanner) ScanOnce(ctx context.Context) (int, error) {
	due, err := s.source.ClaimDueReminders(ctx, s.window)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, b := range due {
		if err := s.publisher.Publish(ctx, NewBookingEvent(BookingReminder, b, "", "")); err != nil {
			s.log.Error("Failed to publish booking reminder", "booking_id", b.ID, "error", err)
			if err := s.source.ReleaseReminder(ctx, b.ID); err != nil {
				s.log.Error("Failed to release booking reminder", "booking_id", b.ID, "error", err)
			}
			continue
		}
		sent++
	}
	return sent, nil
}

// Run scans every interval until ctx is cancelled.
func (s *ReminderScanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Reminder scanner started", "window", s.window, "interval", s.interval)
	for {
		sent, err := s.ScanOnce(ctx)
		if err != nil {
			s.log.Error("Reminder scan failed", "error", err)
		} else if sent > 0 {
			s.log.Info("Booking reminders sent", "count", sent)
		}

		select {
		case <-ctx.Done():
			s.log.Info("Reminder scanner stopped")
			return
		case <-ticker.C:
		}
	}
}
