package lock

import "errors"

// Lock-related errors.
var (
	// ErrBusy is returned by TryDo when another holder owns the key.
	ErrBusy = errors.New("operation already in progress")
)
