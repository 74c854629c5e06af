package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrAlreadySettled   = errors.New("position already settled")
	ErrQuoteUnavailable = errors.New("quote unavailable")
	ErrNonFinitePrice   = errors.New("non-finite price")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrRateLimited      = errors.New("rate limited")
	ErrLockHeld         = errors.New("lock already held")
	ErrContextDone      = errors.New("context cancelled")
)
