// Package events carries booking lifecycle events from the HTTP handlers to
// the notifier, either in process or through a broker.
package events

import (
	"errors"
	"fmt"
	"time"

	"hallbook/pkg/model"

	"github.com/google/uuid"
)

type Type string

const (
	BookingCreated   Type = "booking.created"
	BookingApproved  Type = "booking.approved"
	BookingRejected  Type = "booking.rejected"
	BookingCancelled Type = "booking.cancelled"
	BookingReminder  Type = "booking.reminder"
	SlotAvailable    Type = "waiting.slot_available"
)

var ErrUnknownEventType = errors.New("unknown event type")

type Event struct {
	ID         string                  `json:"id"`
	Type       Type                    `json:"type"`
	OccurredAt time.Time               `json:"occurred_at"`
	ActorID    string                  `json:"actor_id,omitempty"`
	Reason     string                  `json:"reason,omitempty"`
	Booking    *model.Booking          `json:"booking,omitempty"`
	Entry      *model.WaitingListEntry `json:"entry,omitempty"`
}

func NewBookingEvent(t Type, b *model.Booking, actorID, reason string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Reason:     reason,
		Booking:    b,
	}
}

func NewSlotAvailableEvent(e *model.WaitingListEntry) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       SlotAvailable,
		OccurredAt: time.Now().UTC(),
		Entry:      e,
	}
}

// Key is the partition key: events about the same booking stay ordered.
func (e Event) Key() string {
	if e.Booking != nil {
		return e.Booking.ID
	}
	if e.Entry != nil {
		return e.Entry.ID
	}
	return e.ID
}

func (e Event) Validate() error {
	switch e.Type {
	case BookingCreated, BookingApproved, BookingRejected, BookingCancelled, BookingReminder:
		if e.Booking == nil {
			return fmt.Errorf("%s event without booking", e.Type)
		}
	case SlotAvailable:
		if e.Entry == nil {
			return fmt.Errorf("%s event without waiting list entry", e.Type)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEventType, e.Type)
	}
	return nil
}
