// Package positions manages the position registry: named roles carrying an
// explicit permission snapshot, plus the protected full-catalog-grant
// administrator position.
package positions

import (
	"errors"
	"time"

	"golang.org/x/text/cases"
)

var (
	// ErrUnknownPosition indicates the position does not exist.
	ErrUnknownPosition = errors.New("positions: unknown position")
	// ErrDuplicateName indicates a case-insensitive name collision.
	ErrDuplicateName = errors.New("positions: duplicate name")
	// ErrInvalidPermissionSet indicates a permission outside the catalog.
	ErrInvalidPermissionSet = errors.New("positions: invalid permission set")
	// ErrPositionInUse indicates users are still bound to the position.
	ErrPositionInUse = errors.New("positions: position in use")
	// ErrProtectedPosition indicates a forbidden mutation of the
	// full-catalog-grant position.
	ErrProtectedPosition = errors.New("positions: protected position")
)

// Position is a named role. For FullCatalogGrant positions the stored
// snapshot is empty and the effective permission set is the catalog at read
// time, so newly added permissions apply immediately. All other positions
// hold an explicit snapshot and never auto-inherit catalog additions.
type Position struct {
	ID               int64
	Name             string
	NameLocalized    string
	Description      string
	Level            int
	FullCatalogGrant bool
	Permissions      []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

var nameFolder = cases.Fold()

// FoldName produces the caseless form used for duplicate detection. Unicode
// case folding rather than ASCII lowering, since display names are localized.
func FoldName(name string) string {
	return nameFolder.String(name)
}
