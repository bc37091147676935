// Package authz derives a user's effective capabilities from their bound
// position and enforces them per request. Checks are pure reads and run
// fully in parallel; every check produces exactly one audited decision.
package authz

import (
	"errors"
	"time"
)

// ErrStorageUnavailable wraps storage collaborator failures. The engine
// denies while this condition holds (fail-closed); callers may retry with
// backoff.
var ErrStorageUnavailable = errors.New("authz: storage unavailable")

// Outcome of an authorization check.
type Outcome string

const (
	OutcomeAllow Outcome = "ALLOW"
	OutcomeDeny  Outcome = "DENY"
)

// Reason explains a deny. Allows carry no reason.
type Reason string

const (
	ReasonNone                   Reason = ""
	ReasonNoPosition             Reason = "no_position"
	ReasonInsufficientPermission Reason = "insufficient_permission"
	ReasonStorageUnavailable     Reason = "storage_unavailable"
)

// Decision is the transient result of one check. It is handed to the audit
// recorder and then discarded; the engine never persists it.
type Decision struct {
	ID        string
	UserID    int64
	Required  []string
	Effective []string
	Outcome   Outcome
	Reason    Reason
	CheckedAt time.Time
}

// Allowed reports whether the decision permits the operation.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}
