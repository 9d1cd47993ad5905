package services

import "errors"

// Domain errors returned by services; handlers map them to HTTP statuses.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSlotUnavailable   = errors.New("slot is not available")
	ErrSlotTaken         = errors.New("slot was just booked by someone else")
)
