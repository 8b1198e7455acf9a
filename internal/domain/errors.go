package domain

import "errors"

// Sentinel errors shared across services and repositories.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput is returned when the request fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRateLimited is returned when an upstream API answers 429/402 or a
	// configured send cap is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrAlreadySent is returned when an email log row already exists for the
	// (attendee, event, email type) triple.
	ErrAlreadySent = errors.New("notification already sent")
)
