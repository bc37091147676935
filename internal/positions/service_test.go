package positions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-authz/aegis/internal/audit"
	"github.com/aegis-authz/aegis/internal/catalog"
)

type mockRepository struct {
	byID   map[int64]Position
	nextID int64

	createErr error
	updateErr error
	deleteErr error
	getErr    error

	boundUsers map[int64]int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		byID:       make(map[int64]Position),
		nextID:     1,
		boundUsers: make(map[int64]int64),
	}
}

func (m *mockRepository) List(ctx context.Context) ([]Position, error) {
	out := make([]Position, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Position, error) {
	if m.getErr != nil {
		return Position{}, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return Position{}, ErrUnknownPosition
	}
	return p, nil
}

func (m *mockRepository) Create(ctx context.Context, p Position) (Position, error) {
	if m.createErr != nil {
		return Position{}, m.createErr
	}
	for _, existing := range m.byID {
		if FoldName(existing.Name) == FoldName(p.Name) {
			return Position{}, ErrDuplicateName
		}
	}
	p.ID = m.nextID
	m.nextID++
	m.byID[p.ID] = p
	return p, nil
}

func (m *mockRepository) Update(ctx context.Context, p Position) (Position, error) {
	if m.updateErr != nil {
		return Position{}, m.updateErr
	}
	if _, ok := m.byID[p.ID]; !ok {
		return Position{}, ErrUnknownPosition
	}
	m.byID[p.ID] = p
	return p, nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.byID[id]; !ok {
		return ErrUnknownPosition
	}
	if m.boundUsers[id] > 0 {
		return ErrPositionInUse
	}
	delete(m.byID, id)
	return nil
}

func (m *mockRepository) BoundUsers(ctx context.Context, id int64) (int64, error) {
	return m.boundUsers[id], nil
}

type mockRecorder struct {
	decisions []audit.DecisionRecord
	changes   []audit.ChangeRecord
	err       error
}

func (m *mockRecorder) RecordDecision(ctx context.Context, rec audit.DecisionRecord) error {
	if m.err != nil {
		return m.err
	}
	m.decisions = append(m.decisions, rec)
	return nil
}

func (m *mockRecorder) RecordChange(ctx context.Context, rec audit.ChangeRecord) error {
	if m.err != nil {
		return m.err
	}
	m.changes = append(m.changes, rec)
	return nil
}

type mockInvalidator struct {
	bumps int
	err   error
}

func (m *mockInvalidator) Bump(ctx context.Context) error {
	if m.err != nil {
		return m.err
	}
	m.bumps++
	return nil
}

func newTestService(t *testing.T) (*Service, *mockRepository, *mockRecorder, *mockInvalidator) {
	t.Helper()
	repo := newMockRepository()
	rec := &mockRecorder{}
	inv := &mockInvalidator{}
	return NewService(repo, catalog.Builtin(), rec, inv, nil), repo, rec, inv
}

func TestCreateValidatesPermissionSet(t *testing.T) {
	svc, repo, rec, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateInput{
		Name:        "Auditor",
		Permissions: []string{catalog.PermViewAssets, "view_asetts"},
	})
	require.ErrorIs(t, err, ErrInvalidPermissionSet)
	assert.Empty(t, repo.byID, "nothing may be written when validation fails")
	assert.Empty(t, rec.changes)
}

func TestCreateDeduplicatesAndRecords(t *testing.T) {
	svc, _, rec, inv := newTestService(t)

	p, err := svc.Create(context.Background(), CreateInput{
		Name:        "Auditor",
		Level:       2,
		Permissions: []string{catalog.PermViewAssets, catalog.PermViewAssets, " " + catalog.PermGenerateReports},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{catalog.PermViewAssets, catalog.PermGenerateReports}, p.Permissions)
	assert.Equal(t, 1, inv.bumps)
	require.Len(t, rec.changes, 1)
	assert.Equal(t, audit.ActionCreate, rec.changes[0].Action)
	assert.Equal(t, audit.EntityPosition, rec.changes[0].Entity)
}

func TestCreateDuplicateNameCaseInsensitive(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Branch Manager", Permissions: []string{catalog.PermViewAssets}})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Name: "BRANCH MANAGER", Permissions: []string{catalog.PermViewAssets}})
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestUpdateProtectedPositionCannotShrink(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	repo.byID[1] = Position{ID: 1, Name: "System Administrator", FullCatalogGrant: true}
	repo.nextID = 2

	_, err := svc.Update(context.Background(), 1, UpdateInput{
		Name:        "System Administrator",
		Permissions: []string{catalog.PermViewAssets},
	})
	require.ErrorIs(t, err, ErrProtectedPosition)
	assert.True(t, repo.byID[1].FullCatalogGrant, "position must remain unchanged")
}

func TestUpdateProtectedPositionKeepsStructuralGrant(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	repo.byID[1] = Position{ID: 1, Name: "System Administrator", FullCatalogGrant: true}
	repo.nextID = 2

	updated, err := svc.Update(context.Background(), 1, UpdateInput{
		Name:        "System Administrator",
		Permissions: catalog.Builtin().Codes(),
	})
	require.NoError(t, err)
	assert.True(t, updated.FullCatalogGrant)
	assert.Empty(t, updated.Permissions, "full grant stores no snapshot")
}

func TestUpdateIsAllOrNothing(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	repo.byID[1] = Position{ID: 1, Name: "Auditor", Permissions: []string{catalog.PermViewAssets}}
	repo.nextID = 2

	_, err := svc.Update(context.Background(), 1, UpdateInput{
		Permissions: []string{catalog.PermViewAssets, "not_a_permission"},
	})
	require.ErrorIs(t, err, ErrInvalidPermissionSet)
	assert.Equal(t, []string{catalog.PermViewAssets}, repo.byID[1].Permissions)
}

func TestDeleteProtectedPosition(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	repo.byID[1] = Position{ID: 1, Name: "System Administrator", FullCatalogGrant: true}

	err := svc.Delete(context.Background(), 1)
	require.ErrorIs(t, err, ErrProtectedPosition)
	assert.Contains(t, repo.byID, int64(1))
}

func TestDeletePositionInUse(t *testing.T) {
	svc, repo, rec, _ := newTestService(t)
	repo.byID[2] = Position{ID: 2, Name: "Auditor", Permissions: []string{catalog.PermViewAssets}}
	repo.boundUsers[2] = 3

	err := svc.Delete(context.Background(), 2)
	require.ErrorIs(t, err, ErrPositionInUse)
	assert.Contains(t, repo.byID, int64(2), "position must remain after a failed delete")
	assert.Equal(t, []string{catalog.PermViewAssets}, repo.byID[2].Permissions)
	assert.Empty(t, rec.changes)
}

func TestDeleteBumpsCacheAndAudits(t *testing.T) {
	svc, repo, rec, inv := newTestService(t)
	repo.byID[2] = Position{ID: 2, Name: "Auditor"}

	require.NoError(t, svc.Delete(context.Background(), 2))
	assert.NotContains(t, repo.byID, int64(2))
	assert.Equal(t, 1, inv.bumps)
	require.Len(t, rec.changes, 1)
	assert.Equal(t, audit.ActionDelete, rec.changes[0].Action)
}

func TestMutationFailsWhenAuditUnavailable(t *testing.T) {
	repo := newMockRepository()
	rec := &mockRecorder{err: errors.New("queue down")}
	svc := NewService(repo, catalog.Builtin(), rec, &mockInvalidator{}, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		Name:        "Auditor",
		Permissions: []string{catalog.PermViewAssets},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record change")
}

func TestEffectivePermissionsSnapshotVersusFullGrant(t *testing.T) {
	base := catalog.Builtin()
	extended, err := base.Extend(catalog.Permission{
		Code:   "export_audit_logs",
		Name:   "Export Audit Logs",
		Module: catalog.ModuleSystem,
	})
	require.NoError(t, err)

	repo := newMockRepository()
	repo.byID[1] = Position{ID: 1, Name: "System Administrator", FullCatalogGrant: true}
	repo.byID[2] = Position{ID: 2, Name: "Auditor", Permissions: []string{catalog.PermViewAssets, catalog.PermGenerateReports}}

	svc := NewService(repo, extended, &mockRecorder{}, &mockInvalidator{}, nil)

	adminPerms, err := svc.EffectivePermissions(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, adminPerms, "export_audit_logs", "full grant tracks catalog additions")
	assert.Len(t, adminPerms, extended.Len())

	auditorPerms, err := svc.EffectivePermissions(context.Background(), 2)
	require.NoError(t, err)
	assert.NotContains(t, auditorPerms, "export_audit_logs", "snapshots never auto-inherit")
	assert.ElementsMatch(t, []string{catalog.PermViewAssets, catalog.PermGenerateReports}, auditorPerms)
}

func TestFoldNameIsCaseless(t *testing.T) {
	assert.Equal(t, FoldName("System Administrator"), FoldName("SYSTEM administrator"))
	assert.Equal(t, FoldName("مدير النظام"), FoldName("مدير النظام"))
}
