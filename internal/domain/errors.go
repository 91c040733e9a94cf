package domain

import "errors"

var (
	// ErrInsufficientContent means fewer than ten active items exist; the
	// service must not serve rounds in this state.
	ErrInsufficientContent = errors.New("not enough active content items")
	// ErrInvalidRoundID is returned for a round id that does not match the
	// current day or the expected format.
	ErrInvalidRoundID = errors.New("invalid round id")
	// ErrInvalidRoundIndex is returned for a round index outside [0, 10).
	ErrInvalidRoundIndex = errors.New("invalid round index")
	// ErrRoundNotUnlocked means the user tried to skip ahead of the round
	// they must finish first.
	ErrRoundNotUnlocked = errors.New("round not unlocked yet")
	// ErrSessionNotStarted means progress was updated before the day's
	// session was started.
	ErrSessionNotStarted = errors.New("daily session not started")
	// ErrSessionAlreadyCompleted is returned on writes to a completed
	// session when bypass mode is off.
	ErrSessionAlreadyCompleted = errors.New("daily session already completed")
	// ErrCategoryNotWhitelisted means a hard-mode free-text guess is not in
	// the category directory; the guess is rejected without being scored.
	ErrCategoryNotWhitelisted = errors.New("category not in directory")
)
