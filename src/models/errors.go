package models

import "errors"

// Domain-level sentinel errors for business logic
// These errors should not contain HTTP-specific information

var (
	// ErrSessionNotFound indicates that a session with the given ID does not exist
	// or was already reclaimed by the idle sweep
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionCompleted indicates that the session already reached its
	// terminal state and accepts no further updates
	ErrSessionCompleted = errors.New("session already completed")

	// ErrNoActiveConfig indicates that no flip-challenge configuration is
	// currently active, so a session cannot be started
	ErrNoActiveConfig = errors.New("no active challenge configuration")
)
