package positions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aegis-authz/aegis/internal/audit"
	"github.com/aegis-authz/aegis/internal/catalog"
	"github.com/aegis-authz/aegis/internal/identity"
)

// RepositoryPort defines data access methods for positions.
type RepositoryPort interface {
	List(ctx context.Context) ([]Position, error)
	Get(ctx context.Context, id int64) (Position, error)
	Create(ctx context.Context, p Position) (Position, error)
	Update(ctx context.Context, p Position) (Position, error)
	Delete(ctx context.Context, id int64) error
	BoundUsers(ctx context.Context, id int64) (int64, error)
}

// Invalidator bumps the resolved-permission cache after registry mutations.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service handles position registry business logic.
type Service struct {
	repo     RepositoryPort
	catalog  *catalog.Catalog
	recorder audit.Recorder
	cache    Invalidator
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, cat *catalog.Catalog, recorder audit.Recorder, cache Invalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, catalog: cat, recorder: recorder, cache: cache, logger: logger}
}

// CreateInput carries the fields accepted when creating a position.
type CreateInput struct {
	Name          string
	NameLocalized string
	Description   string
	Level         int
	Permissions   []string
}

// UpdateInput carries the fields accepted when updating a position.
type UpdateInput struct {
	Name          string
	NameLocalized string
	Description   string
	Level         int
	Permissions   []string
}

// Create inserts a new position after validating its permission set against
// the catalog. Positions created through the API never hold the full-catalog
// grant; that flag belongs to the seeded administrator position alone.
func (s *Service) Create(ctx context.Context, in CreateInput) (Position, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Position{}, fmt.Errorf("%w: name required", ErrInvalidPermissionSet)
	}
	perms, err := s.normalize(in.Permissions)
	if err != nil {
		return Position{}, err
	}
	created, err := s.repo.Create(ctx, Position{
		Name:          name,
		NameLocalized: strings.TrimSpace(in.NameLocalized),
		Description:   strings.TrimSpace(in.Description),
		Level:         in.Level,
		Permissions:   perms,
	})
	if err != nil {
		return Position{}, err
	}
	if err := s.afterMutation(ctx, audit.ActionCreate, created.ID, map[string]any{
		"name":        created.Name,
		"permissions": created.Permissions,
	}); err != nil {
		return Position{}, err
	}
	return created, nil
}

// Update rewrites a position atomically. Shrinking the full-catalog-grant
// position below the complete catalog fails with ErrProtectedPosition.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Position, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Position{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = existing.Name
	}
	perms, err := s.normalize(in.Permissions)
	if err != nil {
		return Position{}, err
	}
	if existing.FullCatalogGrant {
		if !coversCatalog(perms, s.catalog.Codes()) {
			return Position{}, ErrProtectedPosition
		}
		// The grant stays structural: no snapshot is stored, the position
		// keeps tracking the catalog as it grows.
		perms = nil
	}
	updated, err := s.repo.Update(ctx, Position{
		ID:               id,
		Name:             name,
		NameLocalized:    strings.TrimSpace(in.NameLocalized),
		Description:      strings.TrimSpace(in.Description),
		Level:            in.Level,
		FullCatalogGrant: existing.FullCatalogGrant,
		Permissions:      perms,
	})
	if err != nil {
		return Position{}, err
	}
	if err := s.afterMutation(ctx, audit.ActionUpdate, id, map[string]any{
		"name":        updated.Name,
		"permissions": updated.Permissions,
	}); err != nil {
		return Position{}, err
	}
	return updated, nil
}

// Delete removes a position. The full-catalog-grant position cannot be
// deleted; positions with bound users fail with ErrPositionInUse and remain
// unchanged.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.FullCatalogGrant {
		return ErrProtectedPosition
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.afterMutation(ctx, audit.ActionDelete, id, map[string]any{
		"name": existing.Name,
	})
}

// Get fetches a position by ID.
func (s *Service) Get(ctx context.Context, id int64) (Position, error) {
	return s.repo.Get(ctx, id)
}

// List returns all positions.
func (s *Service) List(ctx context.Context) ([]Position, error) {
	return s.repo.List(ctx)
}

// EffectivePermissions resolves the permission set a position grants right
// now: the stored snapshot, or the entire catalog for the full-grant
// position.
func (s *Service) EffectivePermissions(ctx context.Context, id int64) ([]string, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.FullCatalogGrant {
		return s.catalog.Codes(), nil
	}
	out := make([]string, len(p.Permissions))
	copy(out, p.Permissions)
	return out, nil
}

// normalize deduplicates the requested codes and validates them against the
// catalog. All-or-nothing: one unknown code rejects the whole set.
func (s *Service) normalize(codes []string) ([]string, error) {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	if err := s.catalog.Require(out...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPermissionSet, err)
	}
	return out, nil
}

// afterMutation invalidates the resolved-permission cache and records the
// change. Both must succeed before the mutation returns so no check observes
// a stale set and no change goes unaudited.
func (s *Service) afterMutation(ctx context.Context, action string, id int64, meta map[string]any) error {
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			return fmt.Errorf("positions: invalidate cache: %w", err)
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
		Action:   action,
		Entity:   audit.EntityPosition,
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
		At:       time.Now().UTC(),
	}
	if err := s.recorder.RecordChange(ctx, rec); err != nil {
		if s.logger != nil {
			s.logger.Error("record position change", slog.Any("error", err))
		}
		return fmt.Errorf("positions: record change: %w", err)
	}
	return nil
}

func coversCatalog(perms, all []string) bool {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	for _, code := range all {
		if _, ok := set[code]; !ok {
			return false
		}
	}
	return true
}
