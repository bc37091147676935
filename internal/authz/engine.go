package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aegis-authz/aegis/internal/audit"
	"github.com/aegis-authz/aegis/internal/catalog"
	"github.com/aegis-authz/aegis/internal/users"
)

// BindingPort resolves a user's bound position.
type BindingPort interface {
	CurrentPosition(ctx context.Context, userID int64) (int64, error)
}

// RegistryPort resolves the permission set a position grants right now.
type RegistryPort interface {
	EffectivePermissions(ctx context.Context, positionID int64) ([]string, error)
}

// Observer receives decision outcomes for metrics.
type Observer interface {
	ObserveDecision(outcome, reason string)
}

// Engine answers authorization checks.
type Engine struct {
	catalog  *catalog.Catalog
	binding  BindingPort
	registry RegistryPort
	cache    *PermissionCache
	recorder audit.Recorder
	observer Observer
	logger   *slog.Logger
}

// NewEngine constructs the engine. cache may be nil to disable caching.
func NewEngine(cat *catalog.Catalog, binding BindingPort, registry RegistryPort, cache *PermissionCache, recorder audit.Recorder, logger *slog.Logger) *Engine {
	return &Engine{
		catalog:  cat,
		binding:  binding,
		registry: registry,
		cache:    cache,
		recorder: recorder,
		logger:   logger,
	}
}

// WithObserver attaches a decision observer and returns the engine.
func (e *Engine) WithObserver(o Observer) *Engine {
	e.observer = o
	return e
}

// Catalog exposes the engine's permission catalog, letting route definitions
// validate their required permissions at startup.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

type mode int

const (
	modeAll mode = iota
	modeAny
)

// Check decides whether the user holds the single required permission.
func (e *Engine) Check(ctx context.Context, userID int64, permission string) (Decision, error) {
	return e.check(ctx, userID, modeAll, []string{permission})
}

// CheckAll decides whether the user holds every listed permission. An empty
// requirement allows once the user's position resolves.
func (e *Engine) CheckAll(ctx context.Context, userID int64, permissions ...string) (Decision, error) {
	return e.check(ctx, userID, modeAll, permissions)
}

// CheckAny decides whether the user holds at least one listed permission. An
// empty requirement allows once the user's position resolves.
func (e *Engine) CheckAny(ctx context.Context, userID int64, permissions ...string) (Decision, error) {
	return e.check(ctx, userID, modeAny, permissions)
}

func (e *Engine) check(ctx context.Context, userID int64, m mode, required []string) (Decision, error) {
	// A required permission outside the catalog is a defect in the calling
	// route definition, not a denial. Fail loudly before any lookup and
	// before any audit record: typos must never masquerade as denies.
	if err := e.catalog.Require(required...); err != nil {
		return Decision{}, err
	}

	d := Decision{
		ID:        uuid.NewString(),
		UserID:    userID,
		Required:  required,
		CheckedAt: time.Now().UTC(),
	}

	positionID, err := e.binding.CurrentPosition(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNoPosition) || errors.Is(err, users.ErrUnknownUser) {
			// No implicit guest set: an unbound user is denied everything,
			// including an empty requirement list.
			d.Outcome = OutcomeDeny
			d.Reason = ReasonNoPosition
			return e.record(ctx, d, nil)
		}
		return e.denyUnavailable(ctx, d, err)
	}

	effective, err := e.effective(ctx, positionID)
	if err != nil {
		return e.denyUnavailable(ctx, d, err)
	}
	d.Effective = effective

	if e.satisfied(m, required, effective) {
		d.Outcome = OutcomeAllow
	} else {
		d.Outcome = OutcomeDeny
		d.Reason = ReasonInsufficientPermission
	}
	return e.record(ctx, d, nil)
}

func (e *Engine) effective(ctx context.Context, positionID int64) ([]string, error) {
	loader := func(ctx context.Context) ([]string, error) {
		return e.registry.EffectivePermissions(ctx, positionID)
	}
	if e.cache != nil {
		return e.cache.Effective(ctx, positionID, loader)
	}
	return loader(ctx)
}

func (e *Engine) satisfied(m mode, required, effective []string) bool {
	set := make(map[string]struct{}, len(effective))
	for _, p := range effective {
		set[p] = struct{}{}
	}
	switch m {
	case modeAny:
		if len(required) == 0 {
			return true
		}
		for _, r := range required {
			if _, ok := set[r]; ok {
				return true
			}
		}
		return false
	default:
		for _, r := range required {
			if _, ok := set[r]; !ok {
				return false
			}
		}
		return true
	}
}

// denyUnavailable converts a storage fault into a fail-closed deny.
func (e *Engine) denyUnavailable(ctx context.Context, d Decision, cause error) (Decision, error) {
	d.Outcome = OutcomeDeny
	d.Reason = ReasonStorageUnavailable
	d.Effective = nil
	return e.record(ctx, d, fmt.Errorf("%w: %v", ErrStorageUnavailable, cause))
}

// record forwards the decision to the audit sink before returning it. A
// decision whose audit record cannot be durably queued does not count: the
// engine denies instead, so nothing returns unaudited.
func (e *Engine) record(ctx context.Context, d Decision, checkErr error) (Decision, error) {
	if e.recorder != nil {
		rec := audit.DecisionRecord{
			ID:        d.ID,
			UserID:    d.UserID,
			Required:  d.Required,
			Effective: d.Effective,
			Outcome:   string(d.Outcome),
			Reason:    string(d.Reason),
			CheckedAt: d.CheckedAt,
		}
		if err := e.recorder.RecordDecision(ctx, rec); err != nil {
			if e.logger != nil {
				e.logger.Error("record decision", slog.Any("error", err), slog.String("decision_id", d.ID))
			}
			d.Outcome = OutcomeDeny
			d.Reason = ReasonStorageUnavailable
			if checkErr == nil {
				checkErr = fmt.Errorf("%w: audit: %v", ErrStorageUnavailable, err)
			}
			if e.observer != nil {
				e.observer.ObserveDecision(string(d.Outcome), string(d.Reason))
			}
			return d, checkErr
		}
	}
	if e.observer != nil {
		e.observer.ObserveDecision(string(d.Outcome), string(d.Reason))
	}
	return d, checkErr
}
