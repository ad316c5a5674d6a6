package services

import "errors"

// Shared service-level errors, mapped to HTTP statuses by the handlers.
var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrEntrantNotFound    = errors.New("entrant not found")
	ErrMatchNotFound      = errors.New("match not found")

	// ErrInsufficientEntrants - fewer than two eligible entrants remain for
	// pairing. The caller decides whether to retry (e.g. after a check-in).
	ErrInsufficientEntrants = errors.New("fewer than two eligible entrants to pair")

	// ErrIncompleteField - the configured bracket cut cannot be satisfied.
	ErrIncompleteField = errors.New("not enough ranked entrants to fill the bracket")

	// ErrRoundAlreadyPaired - the round already has matches. Re-pairing goes
	// through the rematch operation, which discards the old round first.
	ErrRoundAlreadyPaired = errors.New("round already has pairings")

	// ErrInvalidResult - outcome outside the allowed vocabulary, or a report
	// against a synthetic bye (byes are immutable).
	ErrInvalidResult = errors.New("invalid match result")

	// ErrTournamentMismatch - the match does not belong to the tournament
	// named in the request.
	ErrTournamentMismatch = errors.New("match does not belong to the given tournament")

	ErrEntrantTournamentMismatch = errors.New("entrant does not belong to the given tournament")
)
