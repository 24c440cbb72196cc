package services

import "errors"

// Shared errors used across services and the HTTP/WebSocket mapping.
var (
	// Not found
	ErrMatchNotFound      = errors.New("match not found")
	ErrScoreNotFound      = errors.New("match score not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrTournamentNotFound = errors.New("tournament not found")

	// Scoring command errors; returned to the originating connection only.
	ErrInvalidPointWinner  = errors.New("point winner must be player 1 or 2")
	ErrMatchAlreadyDecided = errors.New("match already has a winner")
	ErrNothingToUndo       = errors.New("no points to undo")

	// Validation and business rules
	ErrValidationFailed     = errors.New("validation failed")
	ErrInvalidBestOf        = errors.New("best_of must be 3 or 5")
	ErrInvalidMatchPlayers  = errors.New("a match needs two distinct players")
	ErrTournamentDateRange  = errors.New("tournament end date must be after start date")
	ErrPlayerNameRequired   = errors.New("player name is required")
	ErrUnsupportedAvatar    = errors.New("avatar must be a jpeg, png or webp image")

	// Conflicts
	ErrTournamentNameConflict = errors.New("tournament name already exists")

	// Authentication
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")

	// PersistenceFailure wraps store errors so callers can report a failed
	// command without exposing driver details. The command leaves no
	// partial write behind.
	ErrPersistenceFailure = errors.New("persistence failure")
)
