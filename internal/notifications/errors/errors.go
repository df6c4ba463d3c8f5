package errors

import "errors"

var (
	ErrNotFound     = errors.New("notification not found")
	ErrInvalidID    = errors.New("invalid notification ID")
	ErrMissingOwner = errors.New("notification owner is required")
)
