package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-authz/aegis/internal/audit"
	"github.com/aegis-authz/aegis/internal/catalog"
	"github.com/aegis-authz/aegis/internal/users"
)

type stubBinding struct {
	positions map[int64]int64
	err       error
}

func (s *stubBinding) CurrentPosition(ctx context.Context, userID int64) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	pos, ok := s.positions[userID]
	if !ok {
		return 0, users.ErrUnknownUser
	}
	if pos == 0 {
		return 0, users.ErrNoPosition
	}
	return pos, nil
}

type stubRegistry struct {
	sets map[int64][]string
	err  error
}

func (s *stubRegistry) EffectivePermissions(ctx context.Context, positionID int64) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.sets[positionID], nil
}

type captureRecorder struct {
	decisions []audit.DecisionRecord
	err       error
}

func (c *captureRecorder) RecordDecision(ctx context.Context, rec audit.DecisionRecord) error {
	if c.err != nil {
		return c.err
	}
	c.decisions = append(c.decisions, rec)
	return nil
}

func (c *captureRecorder) RecordChange(ctx context.Context, rec audit.ChangeRecord) error {
	return nil
}

const (
	posAuditor = int64(2)
	posAdmin   = int64(1)

	userAuditor = int64(10)
	userAdmin   = int64(11)
	userUnbound = int64(12)
)

func newTestEngine(t *testing.T) (*Engine, *captureRecorder) {
	t.Helper()
	binding := &stubBinding{positions: map[int64]int64{
		userAuditor: posAuditor,
		userAdmin:   posAdmin,
		userUnbound: 0,
	}}
	registry := &stubRegistry{sets: map[int64][]string{
		posAuditor: {catalog.PermViewAssets, catalog.PermGenerateReports},
		posAdmin:   catalog.Builtin().Codes(),
	}}
	rec := &captureRecorder{}
	return NewEngine(catalog.Builtin(), binding, registry, nil, rec, nil), rec
}

func TestCheckAllowAndDeny(t *testing.T) {
	engine, rec := newTestEngine(t)
	ctx := context.Background()

	d, err := engine.Check(ctx, userAuditor, catalog.PermViewAssets)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAllow, d.Outcome)
	assert.True(t, d.Allowed())

	d, err = engine.Check(ctx, userAuditor, catalog.PermManageAssets)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeny, d.Outcome)
	assert.Equal(t, ReasonInsufficientPermission, d.Reason)

	require.Len(t, rec.decisions, 2, "every check produces exactly one audit record")
	assert.Equal(t, string(OutcomeAllow), rec.decisions[0].Outcome)
	assert.Equal(t, string(OutcomeDeny), rec.decisions[1].Outcome)
	assert.Equal(t, userAuditor, rec.decisions[0].UserID)
	assert.Equal(t, []string{catalog.PermViewAssets}, rec.decisions[0].Required)
	assert.NotEmpty(t, rec.decisions[0].ID)
	assert.NotEqual(t, rec.decisions[0].ID, rec.decisions[1].ID)
}

func TestCheckUnknownPermissionIsLoud(t *testing.T) {
	engine, rec := newTestEngine(t)

	_, err := engine.Check(context.Background(), userAdmin, "view_asetts")
	require.ErrorIs(t, err, catalog.ErrUnknownPermission)
	assert.Empty(t, rec.decisions, "a caller defect is not a decision and is never audited")
}

func TestUnboundUserAlwaysDenied(t *testing.T) {
	engine, rec := newTestEngine(t)
	ctx := context.Background()

	d, err := engine.Check(ctx, userUnbound, catalog.PermViewAssets)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeny, d.Outcome)
	assert.Equal(t, ReasonNoPosition, d.Reason)

	// Even an empty requirement list denies without a position.
	d, err = engine.CheckAll(ctx, userUnbound)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeny, d.Outcome)
	assert.Equal(t, ReasonNoPosition, d.Reason)

	// Unknown users resolve the same way.
	d, err = engine.Check(ctx, 999, catalog.PermViewAssets)
	require.NoError(t, err)
	assert.Equal(t, ReasonNoPosition, d.Reason)

	assert.Len(t, rec.decisions, 3)
}

func TestEmptyRequirementWithPositionAllows(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	d, err := engine.CheckAll(ctx, userAuditor)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAllow, d.Outcome)

	d, err = engine.CheckAny(ctx, userAuditor)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAllow, d.Outcome)
}

func TestCompositeChecks(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	d, err := engine.CheckAny(ctx, userAuditor, catalog.PermManageAssets, catalog.PermViewAssets)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAllow, d.Outcome)

	// No partial credit: all means all.
	d, err = engine.CheckAll(ctx, userAuditor, catalog.PermViewAssets, catalog.PermManageAssets)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeny, d.Outcome)
	assert.Equal(t, ReasonInsufficientPermission, d.Reason)

	d, err = engine.CheckAll(ctx, userAuditor, catalog.PermViewAssets, catalog.PermGenerateReports)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAllow, d.Outcome)
}

func TestStorageFaultFailsClosed(t *testing.T) {
	binding := &stubBinding{err: errors.New("connection refused")}
	rec := &captureRecorder{}
	engine := NewEngine(catalog.Builtin(), binding, &stubRegistry{}, nil, rec, nil)

	d, err := engine.Check(context.Background(), userAuditor, catalog.PermViewAssets)
	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, OutcomeDeny, d.Outcome)
	assert.Equal(t, ReasonStorageUnavailable, d.Reason)
	require.Len(t, rec.decisions, 1, "storage-fault denies are audited too")
	assert.Equal(t, string(ReasonStorageUnavailable), rec.decisions[0].Reason)
}

func TestRegistryFaultFailsClosed(t *testing.T) {
	binding := &stubBinding{positions: map[int64]int64{userAuditor: posAuditor}}
	registry := &stubRegistry{err: errors.New("timeout")}
	engine := NewEngine(catalog.Builtin(), binding, registry, nil, &captureRecorder{}, nil)

	d, err := engine.Check(context.Background(), userAuditor, catalog.PermViewAssets)
	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, OutcomeDeny, d.Outcome)
}

func TestAuditFailureDeniesInsteadOfReturningUnaudited(t *testing.T) {
	binding := &stubBinding{positions: map[int64]int64{userAuditor: posAuditor}}
	registry := &stubRegistry{sets: map[int64][]string{posAuditor: {catalog.PermViewAssets}}}
	rec := &captureRecorder{err: errors.New("queue full")}
	engine := NewEngine(catalog.Builtin(), binding, registry, nil, rec, nil)

	d, err := engine.Check(context.Background(), userAuditor, catalog.PermViewAssets)
	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, OutcomeDeny, d.Outcome)
	assert.Equal(t, ReasonStorageUnavailable, d.Reason)
}

func TestSnapshotDoesNotInheritCatalogAdditions(t *testing.T) {
	extended, err := catalog.Builtin().Extend(catalog.Permission{
		Code:   "export_audit_logs",
		Name:   "Export Audit Logs",
		Module: catalog.ModuleSystem,
	})
	require.NoError(t, err)

	binding := &stubBinding{positions: map[int64]int64{
		userAuditor: posAuditor,
		userAdmin:   posAdmin,
	}}
	// The admin position is a full-catalog grant: its registry resolution
	// tracks the extended catalog, while the auditor keeps its snapshot.
	registry := &stubRegistry{sets: map[int64][]string{
		posAuditor: {catalog.PermViewAssets, catalog.PermGenerateReports},
		posAdmin:   extended.Codes(),
	}}
	engine := NewEngine(extended, binding, registry, nil, &captureRecorder{}, nil)
	ctx := context.Background()

	d, err := engine.Check(ctx, userAuditor, "export_audit_logs")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeny, d.Outcome)
	assert.Equal(t, ReasonInsufficientPermission, d.Reason)

	d, err = engine.Check(ctx, userAdmin, "export_audit_logs")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAllow, d.Outcome)
}

func TestEmptyPermissionSetDeniesEverything(t *testing.T) {
	binding := &stubBinding{positions: map[int64]int64{userAuditor: posAuditor}}
	registry := &stubRegistry{sets: map[int64][]string{posAuditor: {}}}
	engine := NewEngine(catalog.Builtin(), binding, registry, nil, &captureRecorder{}, nil)

	for _, code := range catalog.Builtin().Codes() {
		d, err := engine.Check(context.Background(), userAuditor, code)
		require.NoError(t, err)
		assert.Equal(t, OutcomeDeny, d.Outcome, "permission %s", code)
	}
}
