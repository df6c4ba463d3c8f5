package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrSlotTaken = errors.New("time slot overlaps an active booking")

	ErrInvalidTimeRange = errors.New("time_to must be after time_from")

	ErrInvalidTransition = errors.New("booking status transition not allowed")

	ErrInvalidFrequency = errors.New("unknown recurrence frequency")

	ErrUnknownExportFormat = errors.New("unknown export format")
)
