package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCatalog(t *testing.T) {
	c := Builtin()
	require.Equal(t, BuiltinVersion, c.Version())
	require.Equal(t, 31, c.Len())

	assert.True(t, c.Has(PermManageAssets))
	assert.True(t, c.Has(PermViewAuditLogs))
	assert.False(t, c.Has("manage_asets"))

	perm, err := c.Get(PermScanBarcodes)
	require.NoError(t, err)
	assert.Equal(t, "Scan Barcodes", perm.Name)
	assert.Equal(t, ModuleBarcode, perm.Module)
}

func TestNewRejectsDuplicateCodes(t *testing.T) {
	_, err := New(1, []Permission{
		{Code: "view_assets", Name: "View Assets", Module: ModuleAsset},
		{Code: "view_assets", Name: "View Assets Again", Module: ModuleAsset},
	})
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestRequireFailsFastOnUnknownCode(t *testing.T) {
	c := Builtin()
	require.NoError(t, c.Require(PermViewAssets, PermManageAssets))

	err := c.Require(PermViewAssets, "view_asetts")
	require.ErrorIs(t, err, ErrUnknownPermission)
	assert.Contains(t, err.Error(), "view_asetts")
}

func TestExtendIsAdditiveAndBumpsVersion(t *testing.T) {
	base := Builtin()
	extended, err := base.Extend(Permission{
		Code:   "export_audit_logs",
		Name:   "Export Audit Logs",
		Module: ModuleSystem,
	})
	require.NoError(t, err)

	assert.Equal(t, base.Version()+1, extended.Version())
	assert.Equal(t, base.Len()+1, extended.Len())
	assert.True(t, extended.Has("export_audit_logs"))

	// The original catalog stays intact for in-flight readers.
	assert.False(t, base.Has("export_audit_logs"))

	_, err = extended.Extend(Permission{Code: PermViewAssets})
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestCodesAreSorted(t *testing.T) {
	c := Builtin()
	codes := c.Codes()
	require.Len(t, codes, c.Len())
	for i := 1; i < len(codes); i++ {
		assert.Less(t, codes[i-1], codes[i])
	}
}
