package usecase

import (
	"errors"
	"fmt"
)

// Error kinds. Callers branch on these with errors.Is; the specific errors
// below wrap exactly one of them.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidState = errors.New("invalid state")
	ErrExpired      = errors.New("expired")
)

var (
	ErrMatchNotFound    = fmt.Errorf("%w: match", ErrNotFound)
	ErrProviderNotFound = fmt.Errorf("%w: provider", ErrNotFound)
	ErrJobNotFound      = fmt.Errorf("%w: job", ErrNotFound)

	ErrNotMatchOwner = fmt.Errorf("%w: match belongs to another provider", ErrUnauthorized)

	ErrMatchNotPending    = fmt.Errorf("%w: match is no longer pending", ErrInvalidState)
	ErrJobAlreadyAssigned = fmt.Errorf("%w: job already has an accepted match", ErrInvalidState)
	ErrJobNotAssignable   = fmt.Errorf("%w: job cannot be assigned", ErrInvalidState)
	ErrJobBusy            = fmt.Errorf("%w: job is locked by another acceptance", ErrInvalidState)

	ErrMatchExpired = fmt.Errorf("%w: match has expired", ErrExpired)
)
