package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation group not found")

	ErrInvalidGroupID = errors.New("invalid reservation group ID format")

	ErrSlotLocked = errors.New("reservation slot is locked by another request")
)
