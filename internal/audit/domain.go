// Package audit delivers authorization decisions and registry changes to the
// audit trail. Records are enqueued durably before the producing call
// returns, then drained into PostgreSQL by the worker (at-least-once).
package audit

import "time"

// DecisionRecord captures a single authorization decision.
type DecisionRecord struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Required  []string  `json:"required"`
	Effective []string  `json:"effective"`
	Outcome   string    `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// ChangeRecord captures a mutation to the position registry or to a
// user-position binding.
type ChangeRecord struct {
	ID       string         `json:"id"`
	ActorID  int64          `json:"actor_id"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
	At       time.Time      `json:"at"`
}

// Change actions recorded by the registry and binding services.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionBind   = "BIND"
)

// Entities referenced by change records.
const (
	EntityPosition = "positions"
	EntityBinding  = "user_positions"
)
