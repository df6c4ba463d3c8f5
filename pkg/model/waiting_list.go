package model

import "time"

// WaitingListEntry is a queued request for a slot that was taken at submission
// time. It is never converted into a booking automatically.
type WaitingListEntry struct {
	ID         string     `json:"id" bson:"id"`
	Hall       string     `json:"hall" bson:"hall"`
	Date       string     `json:"date" bson:"date"`
	TimeFrom   string     `json:"time_from" bson:"time_from"`
	TimeTo     string     `json:"time_to" bson:"time_to"`
	Department string     `json:"department" bson:"department"`
	Reason     string     `json:"reason" bson:"reason"`
	UserID     string     `json:"user_id" bson:"user_id"`
	Recurring  *Recurring `json:"recurring,omitempty" bson:"recurring,omitempty"`
	AddedAt    time.Time  `json:"added_at" bson:"added_at"`
	Notified   bool       `json:"notified" bson:"notified"`
	NotifiedAt *time.Time `json:"notified_at,omitempty" bson:"notified_at,omitempty"`
}
