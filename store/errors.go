package store

import "errors"

// Error Handling Guidelines:
// - Services/Stores: Use fmt.Errorf("context: %w", err) for wrapping errors
// - Handlers: Use apperrors.* functions for HTTP-appropriate errors

// Predefined errors for the store layer.
var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrNoQueuedSubmissions indicates the claim query found nothing to
	// process; the drain loop treats this as "backlog empty".
	ErrNoQueuedSubmissions = errors.New("no queued submissions")

	// ErrConflict indicates a conflict, e.g., a verification code collision.
	ErrConflict = errors.New("conflict")

	// ErrAlreadyProcessed indicates the submission already has a receipt
	// recorded, i.e. another worker settled it first.
	ErrAlreadyProcessed = errors.New("submission already has a receipt")
)
