package model

import "time"

type NotificationType string

const (
	NotificationBookingCreated    NotificationType = "booking_created"
	NotificationBookingApproved   NotificationType = "booking_approved"
	NotificationBookingRejected   NotificationType = "booking_rejected"
	NotificationBookingCancelled  NotificationType = "booking_cancelled"
	NotificationBookingReminder   NotificationType = "booking_reminder"
	NotificationSlotAvailable     NotificationType = "slot_available"
	NotificationNewBookingRequest NotificationType = "new_booking_request"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationBookingCreated, NotificationBookingApproved, NotificationBookingRejected,
		NotificationBookingCancelled, NotificationBookingReminder, NotificationSlotAvailable,
		NotificationNewBookingRequest:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

type NotificationData struct {
	BookingID     string `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	WaitingListID string `json:"waiting_list_id,omitempty" bson:"waiting_list_id,omitempty"`
}

type Notification struct {
	ID        string           `json:"id" bson:"id"`
	UserID    string           `json:"user_id" bson:"user_id"`
	Type      NotificationType `json:"type" bson:"type"`
	Title     string           `json:"title" bson:"title"`
	Message   string           `json:"message" bson:"message"`
	Data      NotificationData `json:"data" bson:"data"`
	Priority  Priority         `json:"priority" bson:"priority"`
	Read      bool             `json:"read" bson:"read"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
	ReadAt    *time.Time       `json:"read_at,omitempty" bson:"read_at,omitempty"`
}

// NotificationRequest is the input used to place an item in a user's inbox.
type NotificationRequest struct {
	UserID   string           `json:"user_id" validate:"required"`
	Type     NotificationType `json:"type" validate:"required,oneof=booking_created booking_approved booking_rejected booking_cancelled booking_reminder slot_available new_booking_request"`
	Title    string           `json:"title" validate:"required,max=200"`
	Message  string           `json:"message" validate:"required,max=1000"`
	Data     NotificationData `json:"data"`
	Priority Priority         `json:"priority,omitempty" validate:"omitempty,oneof=normal high"`
}
