package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a replay session slug is unknown.
	ErrSessionNotFound = errors.New("replay session not found")
	// ErrSessionCompleted is returned when appending to a finished session.
	ErrSessionCompleted = errors.New("replay session already completed")
)
