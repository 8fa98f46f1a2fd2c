package engine

import "errors"

var (
	// ErrValidation covers bad input: wrong bracket size, empty or
	// duplicate aliases. Nothing is written when it is returned.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned for unknown tournament or match ids.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyCompleted is returned when completing a match that is
	// no longer pending. The call is a no-op.
	ErrAlreadyCompleted = errors.New("match already completed")

	// ErrInvalidWinner is returned when the reported winner is neither
	// player of the match.
	ErrInvalidWinner = errors.New("winner is not part of this match")

	// ErrInvariant indicates a bracket state that validated input can
	// never produce, e.g. an odd winner count during round advancement.
	// It is a programming defect, not a user error.
	ErrInvariant = errors.New("bracket invariant violated")
)
