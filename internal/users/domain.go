// Package users manages the user-position binding. User records are owned by
// the external user-management system; this package reads user rows and
// mutates only the position reference.
package users

import (
	"errors"
	"time"
)

var (
	// ErrUnknownUser indicates the user record does not exist.
	ErrUnknownUser = errors.New("users: unknown user")
	// ErrUnknownPosition indicates the referenced position does not exist.
	ErrUnknownPosition = errors.New("users: unknown position")
	// ErrNoPosition indicates the user has no bound position.
	ErrNoPosition = errors.New("users: no position bound")
)

// User is the slice of the externally-owned user record this engine reads.
// Each user references at most one position; there are no per-user grants.
type User struct {
	ID         int64
	Email      string
	Name       string
	PositionID int64
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
