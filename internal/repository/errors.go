// Package repository provides persistence for the game record.
package repository

import "errors"

// Common errors for repository operations.
var (
	ErrConfigNotFound = errors.New("game config not found")
)
