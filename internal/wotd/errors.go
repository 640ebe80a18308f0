package wotd

import "errors"

// Errors returned by the engine.
var (
	// ErrNoChannel means a round reset was requested with no configured
	// channel and no explicit one. It signals a call-site mistake.
	ErrNoChannel = errors.New("round reset requested but no channel is defined")

	// ErrWrongChannel is returned when an operator resets from a channel other
	// than the configured one.
	ErrWrongChannel = errors.New("the game runs in another channel")

	// ErrResetInProgress is returned when a reset is dropped because another
	// one is already running.
	ErrResetInProgress = errors.New("round reset already in progress")

	// ErrRoundChanged is returned when a win was abandoned because the round
	// was reset during the obscuring delay.
	ErrRoundChanged = errors.New("round changed before the win was recorded")

	ErrInvalidHour   = errors.New("hour must be between 0 and 23")
	ErrInvalidMinute = errors.New("minute must be between 0 and 59")
)
