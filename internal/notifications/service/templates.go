package service

import (
	"fmt"

	"hallbook/pkg/model"
)

func BookingCreated(userID string, b *model.Booking) *model.NotificationRequest {
	return &model.NotificationRequest{
		UserID:   userID,
		Type:     model.NotificationBookingCreated,
		Title:    "Booking Created",
		Message:  fmt.Sprintf("Your booking for %s on %s has been submitted for approval.", b.Hall, b.Date),
		Data:     model.NotificationData{BookingID: b.ID},
		Priority: model.PriorityNormal,
	}
}

func BookingApproved(userID string, b *model.Booking) *model.NotificationRequest {
	return &model.NotificationRequest{
		UserID:   userID,
		Type:     model.NotificationBookingApproved,
		Title:    "Booking Approved",
		Message:  fmt.Sprintf("Your booking for %s on %s has been approved!", b.Hall, b.Date),
		Data:     model.NotificationData{BookingID: b.ID},
		Priority: model.PriorityHigh,
	}
}

func BookingRejected(userID string, b *model.Booking, reason string) *model.NotificationRequest {
	return &model.NotificationRequest{
		UserID:   userID,
		Type:     model.NotificationBookingRejected,
		Title:    "Booking Rejected",
		Message:  fmt.Sprintf("Your booking for %s on %s was rejected. Reason: %s", b.Hall, b.Date, reason),
		Data:     model.NotificationData{BookingID: b.ID},
		Priority: model.PriorityHigh,
	}
}

func BookingCancelled(userID string, b *model.Booking, reason string) *model.NotificationRequest {
	message := fmt.Sprintf("Your booking for %s on %s has been cancelled.", b.Hall, b.Date)
	if reason != "" {
		message += " Reason: " + reason
	}
	return &model.NotificationRequest{
		UserID:   userID,
		Type:     model.NotificationBookingCancelled,
		Title:    "Booking Cancelled",
		Message:  message,
		Data:     model.NotificationData{BookingID: b.ID},
		Priority: model.PriorityNormal,
	}
}

func BookingReminder(userID string, b *model.Booking) *model.NotificationRequest {
	return &model.NotificationRequest{
		UserID:   userID,
		Type:     model.NotificationBookingReminder,
		Title:    "Upcoming Booking",
		Message:  fmt.Sprintf("Reminder: You have a booking for %s on %s at %s.", b.Hall, b.Date, b.TimeFrom),
		Data:     model.NotificationData{BookingID: b.ID},
		Priority: model.PriorityNormal,
	}
}

func SlotAvailable(userID string, e *model.WaitingListEntry) *model.NotificationRequest {
	return &model.NotificationRequest{
		UserID:   userID,
		Type:     model.NotificationSlotAvailable,
		Title:    "Slot Available",
		Message:  fmt.Sprintf("A slot is now available for %s on %s. Book now!", e.Hall, e.Date),
		Data:     model.NotificationData{WaitingListID: e.ID},
		Priority: model.PriorityHigh,
	}
}

func NewBookingRequest(adminID string, b *model.Booking) *model.NotificationRequest {
	return &model.NotificationRequest{
		UserID:   adminID,
		Type:     model.NotificationNewBookingRequest,
		Title:    "New Booking Request",
		Message:  fmt.Sprintf("New booking request for %s on %s requires your approval.", b.Hall, b.Date),
		Data:     model.NotificationData{BookingID: b.ID},
		Priority: model.PriorityHigh,
	}
}
