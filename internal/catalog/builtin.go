package catalog

// Permission codes grouped by platform module.
const (
	// Company management.
	PermManageCompany = "manage_company"
	PermViewCompany   = "view_company"

	// Branch management.
	PermManageBranches = "manage_branches"
	PermViewBranches   = "view_branches"

	// Warehouse management.
	PermManageWarehouses = "manage_warehouses"
	PermViewWarehouses   = "view_warehouses"

	// User management.
	PermManageUsers        = "manage_users"
	PermViewUsers          = "view_users"
	PermResetUserPasswords = "reset_user_passwords"

	// Position management.
	PermManagePositions = "manage_positions"
	PermViewPositions   = "view_positions"

	// Permission management.
	PermManagePermissions = "manage_permissions"
	PermViewPermissions   = "view_permissions"

	// Asset management.
	PermManageAssets          = "manage_assets"
	PermViewAssets            = "view_assets"
	PermDeleteAssets          = "delete_assets"
	PermTransferAssets        = "transfer_assets"
	PermManageAssetCategories = "manage_asset_categories"
	PermViewAssetCategories   = "view_asset_categories"

	// Maintenance.
	PermManageMaintenance = "manage_maintenance"
	PermViewMaintenance   = "view_maintenance"

	// Reports.
	PermGenerateReports      = "generate_reports"
	PermViewFinancialReports = "view_financial_reports"
	PermExportData           = "export_data"

	// Barcode system.
	PermGenerateBarcodes = "generate_barcodes"
	PermScanBarcodes     = "scan_barcodes"

	// File management.
	PermUploadFiles = "upload_files"
	PermDeleteFiles = "delete_files"

	// System administration.
	PermSystemAdmin          = "system_admin"
	PermViewAuditLogs        = "view_audit_logs"
	PermManageSystemSettings = "manage_system_settings"
)

// Module grouping names.
const (
	ModuleCompany     = "company"
	ModuleBranch      = "branch"
	ModuleWarehouse   = "warehouse"
	ModuleUser        = "user"
	ModulePosition    = "position"
	ModulePermission  = "permission"
	ModuleAsset       = "asset"
	ModuleMaintenance = "maintenance"
	ModuleReport      = "report"
	ModuleBarcode     = "barcode"
	ModuleFile        = "file"
	ModuleSystem      = "system"
)

// BuiltinVersion identifies the shipped catalog revision.
const BuiltinVersion = 1

// Builtin returns the catalog of the fixed-assets platform.
func Builtin() *Catalog {
	c, err := New(BuiltinVersion, builtinPermissions())
	if err != nil {
		// The builtin list is a compile-time constant; a duplicate here is
		// unreachable short of a bad edit to this file.
		panic(err)
	}
	return c
}

func builtinPermissions() []Permission {
	return []Permission{
		{Code: PermManageCompany, Name: "Manage Company", Module: ModuleCompany},
		{Code: PermViewCompany, Name: "View Company", Module: ModuleCompany},

		{Code: PermManageBranches, Name: "Manage Branches", Module: ModuleBranch},
		{Code: PermViewBranches, Name: "View Branches", Module: ModuleBranch},

		{Code: PermManageWarehouses, Name: "Manage Warehouses", Module: ModuleWarehouse},
		{Code: PermViewWarehouses, Name: "View Warehouses", Module: ModuleWarehouse},

		{Code: PermManageUsers, Name: "Manage Users", Module: ModuleUser},
		{Code: PermViewUsers, Name: "View Users", Module: ModuleUser},
		{Code: PermResetUserPasswords, Name: "Reset User Passwords", Module: ModuleUser},

		{Code: PermManagePositions, Name: "Manage Positions", Module: ModulePosition},
		{Code: PermViewPositions, Name: "View Positions", Module: ModulePosition},

		{Code: PermManagePermissions, Name: "Manage Permissions", Module: ModulePermission},
		{Code: PermViewPermissions, Name: "View Permissions", Module: ModulePermission},

		{Code: PermManageAssets, Name: "Manage Assets", Module: ModuleAsset},
		{Code: PermViewAssets, Name: "View Assets", Module: ModuleAsset},
		{Code: PermDeleteAssets, Name: "Delete Assets", Module: ModuleAsset},
		{Code: PermTransferAssets, Name: "Transfer Assets", Module: ModuleAsset},
		{Code: PermManageAssetCategories, Name: "Manage Asset Categories", Module: ModuleAsset},
		{Code: PermViewAssetCategories, Name: "View Asset Categories", Module: ModuleAsset},

		{Code: PermManageMaintenance, Name: "Manage Asset Maintenance", Module: ModuleMaintenance},
		{Code: PermViewMaintenance, Name: "View Asset Maintenance", Module: ModuleMaintenance},

		{Code: PermGenerateReports, Name: "Generate Reports", Module: ModuleReport},
		{Code: PermViewFinancialReports, Name: "View Financial Reports", Module: ModuleReport},
		{Code: PermExportData, Name: "Export Data", Module: ModuleReport},

		{Code: PermGenerateBarcodes, Name: "Generate Barcodes", Module: ModuleBarcode},
		{Code: PermScanBarcodes, Name: "Scan Barcodes", Module: ModuleBarcode},

		{Code: PermUploadFiles, Name: "Upload Files", Module: ModuleFile},
		{Code: PermDeleteFiles, Name: "Delete Files", Module: ModuleFile},

		{Code: PermSystemAdmin, Name: "System Administration", Module: ModuleSystem},
		{Code: PermViewAuditLogs, Name: "View Audit Logs", Module: ModuleSystem},
		{Code: PermManageSystemSettings, Name: "Manage System Settings", Module: ModuleSystem},
	}
}

// UserScopes lists all permissions related to user management.
func UserScopes() []string {
	return []string{PermManageUsers, PermViewUsers, PermResetUserPasswords}
}

// PositionScopes lists all permissions related to position management.
func PositionScopes() []string {
	return []string{PermManagePositions, PermViewPositions}
}

// AssetScopes lists all permissions related to asset management.
func AssetScopes() []string {
	return []string{
		PermManageAssets,
		PermViewAssets,
		PermDeleteAssets,
		PermTransferAssets,
		PermManageAssetCategories,
		PermViewAssetCategories,
	}
}

// SystemScopes lists all permissions related to system administration.
func SystemScopes() []string {
	return []string{PermSystemAdmin, PermViewAuditLogs, PermManageSystemSettings}
}
