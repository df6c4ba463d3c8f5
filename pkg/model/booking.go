package model

import (
	"time"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusApproved  BookingStatus = "approved"
	StatusRejected  BookingStatus = "rejected"
	StatusCancelled BookingStatus = "cancelled"
)

// IsActive reports whether a booking in this status still holds its slot.
func (s BookingStatus) IsActive() bool {
	switch s {
	case StatusPending, StatusApproved:
		return true
	case StatusRejected, StatusCancelled:
		return false
	default:
		return false
	}
}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo applies the lifecycle guard. Re-applying the current
// status is allowed so callers can refresh stamps idempotently.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	if s == next {
		return next != StatusPending
	}
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected || next == StatusCancelled
	case StatusApproved:
		return next == StatusCancelled
	case StatusRejected, StatusCancelled:
		return false
	default:
		return false
	}
}

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

type Recurring struct {
	Enabled     bool      `json:"enabled" bson:"enabled"`
	Frequency   Frequency `json:"frequency,omitempty" bson:"frequency,omitempty" validate:"required_if=Enabled true,omitempty,oneof=daily weekly monthly"`
	Occurrences int       `json:"occurrences,omitempty" bson:"occurrences,omitempty" validate:"required_if=Enabled true,omitempty,min=1,max=52"`
	EndDate     string    `json:"end_date,omitempty" bson:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	IsRecurring bool      `json:"is_recurring,omitempty" bson:"is_recurring,omitempty"`
}

type Booking struct {
	ID                 string        `json:"id" bson:"id"`
	Hall               string        `json:"hall" bson:"hall"`
	Date               string        `json:"date" bson:"date"`
	TimeFrom           string        `json:"time_from" bson:"time_from"`
	TimeTo             string        `json:"time_to" bson:"time_to"`
	Department         string        `json:"department" bson:"department"`
	Reason             string        `json:"reason" bson:"reason"`
	UserID             string        `json:"user_id" bson:"user_id"`
	Status             BookingStatus `json:"status" bson:"status"`
	ApprovedBy         string        `json:"approved_by,omitempty" bson:"approved_by,omitempty"`
	ApprovedAt         *time.Time    `json:"approved_at,omitempty" bson:"approved_at,omitempty"`
	RejectionReason    string        `json:"rejection_reason,omitempty" bson:"rejection_reason,omitempty"`
	CancellationReason string        `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	ReminderSentAt     *time.Time    `json:"reminder_sent_at,omitempty" bson:"reminder_sent_at,omitempty"`
	Recurring          *Recurring    `json:"recurring,omitempty" bson:"recurring,omitempty"`
	ParentBookingID    string        `json:"parent_booking_id,omitempty" bson:"parent_booking_id,omitempty"`
	CreatedAt          time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" bson:"updated_at"`
}

// BookingRequest is a submission from a user. UserID is stamped by the
// caller from the authenticated identity, never taken from the body.
type BookingRequest struct {
	Hall             string     `json:"hall" validate:"required,hall"`
	Date             string     `json:"date" validate:"required,datetime=2006-01-02"`
	TimeFrom         string     `json:"time_from" validate:"required,clock"`
	TimeTo           string     `json:"time_to" validate:"required,clock"`
	Department       string     `json:"department" validate:"required,min=2,max=100"`
	Reason           string     `json:"reason" validate:"required,min=3,max=500"`
	UserID           string     `json:"-" validate:"required"`
	Recurring        *Recurring `json:"recurring,omitempty" validate:"omitempty"`
	AddToWaitingList bool       `json:"add_to_waiting_list,omitempty"`
}

type BookingFilter struct {
	UserID     string        `json:"user_id,omitempty"`
	Status     BookingStatus `json:"status,omitempty"`
	Hall       string        `json:"hall,omitempty"`
	Date       string        `json:"date,omitempty"`
	Department string        `json:"department,omitempty"`
	DateFrom   string        `json:"date_from,omitempty"`
	DateTo     string        `json:"date_to,omitempty"`
}

func (f BookingFilter) Match(b *Booking) bool {
	if f.UserID != "" && b.UserID != f.UserID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Hall != "" && b.Hall != f.Hall {
		return false
	}
	if f.Date != "" && b.Date != f.Date {
		return false
	}
	if f.Department != "" && b.Department != f.Department {
		return false
	}
	if f.DateFrom != "" && b.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && b.Date > f.DateTo {
		return false
	}
	return true
}

type Slot struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Available bool   `json:"available"`
}

type MonthCount struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type BookingStats struct {
	Total        int            `json:"total"`
	Pending      int            `json:"pending"`
	Approved     int            `json:"approved"`
	Rejected     int            `json:"rejected"`
	Cancelled    int            `json:"cancelled"`
	ByHall       map[string]int `json:"by_hall"`
	ByDepartment map[string]int `json:"by_department"`
	ByMonth      []MonthCount   `json:"by_month"`
}
