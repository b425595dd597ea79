package game

import "errors"

// Domain errors for the game package.
var (
	// ErrGameNotFound is returned when a game ID does not exist.
	ErrGameNotFound = errors.New("game: not found")

	// ErrOwnerNotFound is returned when toggling ownership for a user that does not exist.
	ErrOwnerNotFound = errors.New("game: owner not found")

	// ErrMissingParameter is returned when a required field is empty.
	ErrMissingParameter = errors.New("game: missing required parameter")
)
