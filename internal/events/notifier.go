package events

import (
	"context"
	"errors"
	"fmt"

	notifications "hallbook/internal/notifications/service"
	"hallbook/pkg/logger"
	"hallbook/pkg/middleware"
	"hallbook/pkg/model"
)

// AdminDirectory lists the users who review booking requests.
type AdminDirectory interface {
	AdminIDs(ctx context.Context) ([]string, error)
}

// Notifier turns lifecycle events into inbox items.
type Notifier struct {
	notifications notifications.NotificationService
	admins        AdminDirectory
	log           *logger.Logger
}

func NewNotifier(svc notifications.NotificationService, admins AdminDirectory, log *logger.Logger) *Notifier {
	return &Notifier{notifications: svc, admins: admins, log: log.Component("notifier")}
}

func (n *Notifier) Handle(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	var requests []*model.NotificationRequest
	switch ev.Type {
	case BookingCreated:
		requests = append(requests, notifications.BookingCreated(ev.Booking.UserID, ev.Booking))
		adminIDs, err := n.admins.AdminIDs(ctx)
		if err != nil {
			return fmt.Errorf("failed to list admins: %w", err)
		}
		for _, id := range adminIDs {
			requests = append(requests, notifications.NewBookingRequest(id, ev.Booking))
		}
	case BookingApproved:
		requests = append(requests, notifications.BookingApproved(ev.Booking.UserID, ev.Booking))
	case BookingRejected:
		requests = append(requests, notifications.BookingRejected(ev.Booking.UserID, ev.Booking, ev.Reason))
	case BookingCancelled:
		// Owners who cancel their own booking do not need to be told.
		if ev.ActorID != ev.Booking.UserID {
			requests = append(requests, notifications.BookingCancelled(ev.Booking.UserID, ev.Booking, ev.Reason))
		}
	case BookingReminder:
		requests = append(requests, notifications.BookingReminder(ev.Booking.UserID, ev.Booking))
	case SlotAvailable:
		requests = append(requests, notifications.SlotAvailable(ev.Entry.UserID, ev.Entry))
	}

	var errs []error
	for _, req := range requests {
		if req.UserID == "" {
			continue
		}
		if _, err := n.notifications.Create(ctx, req); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		n.log.Error("Failed to deliver notifications",
			"request_id", middleware.RequestID(ctx),
			"event_id", ev.ID,
			"type", ev.Type,
			"failed", len(errs),
			"error", err,
		)
		return errs[0]
	}

	n.log.Debug("Event handled",
		"request_id", middleware.RequestID(ctx),
		"event_id", ev.ID,
		"type", ev.Type,
		"notifications", len(requests),
	)
	return nil
}
