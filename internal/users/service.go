package users

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aegis-authz/aegis/internal/audit"
	"github.com/aegis-authz/aegis/internal/identity"
)

// RepositoryPort defines data access methods for user bindings.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (User, error)
	CurrentPosition(ctx context.Context, userID int64) (int64, error)
	SetPosition(ctx context.Context, userID, positionID int64) error
}

// Invalidator bumps the resolved-permission cache after binding mutations.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service handles user-position binding logic.
type Service struct {
	repo     RepositoryPort
	recorder audit.Recorder
	cache    Invalidator
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, recorder audit.Recorder, cache Invalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, recorder: recorder, cache: cache, logger: logger}
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// CurrentPosition returns the user's bound position id. ErrNoPosition when
// the binding is empty.
func (s *Service) CurrentPosition(ctx context.Context, userID int64) (int64, error) {
	return s.repo.CurrentPosition(ctx, userID)
}

// Bind assigns the position to the user. Effective permissions change on the
// next check: the cache version is bumped before Bind returns.
func (s *Service) Bind(ctx context.Context, userID, positionID int64) error {
	if err := s.repo.SetPosition(ctx, userID, positionID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			return fmt.Errorf("users: invalidate cache: %w", err)
		}
	}
	if s.recorder == nil {
		return nil
	}
	var actor int64
	if p, ok := identity.FromContext(ctx); ok {
		actor = p.UserID
	}
	rec := audit.ChangeRecord{
		ID:       uuid.NewString(),
		ActorID:  actor,
		Action:   audit.ActionBind,
		Entity:   audit.EntityBinding,
		EntityID: fmt.Sprintf("%d", userID),
		Meta:     map[string]any{"position_id": positionID},
		At:       time.Now().UTC(),
	}
	if err := s.recorder.RecordChange(ctx, rec); err != nil {
		if s.logger != nil {
			s.logger.Error("record binding change", slog.Any("error", err))
		}
		return fmt.Errorf("users: record change: %w", err)
	}
	return nil
}
