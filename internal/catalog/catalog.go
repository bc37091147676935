// Package catalog holds the closed set of permission identifiers recognised
// by the authorization engine. The catalog is fixed at process start; new
// permissions are only ever added, never removed.
package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownPermission indicates a permission code outside the catalog.
// Hitting it means the caller referenced a code that was never registered,
// which is a defect in the caller, not an authorization denial.
var ErrUnknownPermission = errors.New("catalog: unknown permission")

// ErrDuplicateCode indicates two catalog entries sharing a code.
var ErrDuplicateCode = errors.New("catalog: duplicate permission code")

// Permission is an atomic capability.
type Permission struct {
	Code   string
	Name   string
	Module string
}

// Catalog is an immutable, versioned permission set. All reads are safe for
// concurrent use; mutation happens only by deriving a new Catalog via Extend.
type Catalog struct {
	version int
	byCode  map[string]Permission
	ordered []Permission
}

// New builds a catalog from the given permissions.
func New(version int, perms []Permission) (*Catalog, error) {
	byCode := make(map[string]Permission, len(perms))
	ordered := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if p.Code == "" {
			return nil, fmt.Errorf("%w: empty code", ErrDuplicateCode)
		}
		if _, ok := byCode[p.Code]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, p.Code)
		}
		byCode[p.Code] = p
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Code < ordered[j].Code })
	return &Catalog{version: version, byCode: byCode, ordered: ordered}, nil
}

// Version returns the catalog version. It increases on every Extend.
func (c *Catalog) Version() int { return c.version }

// Len returns the number of permissions.
func (c *Catalog) Len() int { return len(c.ordered) }

// Has reports whether code is a recognised permission.
func (c *Catalog) Has(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

// Get returns the permission for code.
func (c *Catalog) Get(code string) (Permission, error) {
	p, ok := c.byCode[code]
	if !ok {
		return Permission{}, fmt.Errorf("%w: %s", ErrUnknownPermission, code)
	}
	return p, nil
}

// List returns all permissions ordered by code.
func (c *Catalog) List() []Permission {
	out := make([]Permission, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Codes returns all permission codes ordered by code.
func (c *Catalog) Codes() []string {
	out := make([]string, len(c.ordered))
	for i, p := range c.ordered {
		out[i] = p.Code
	}
	return out
}

// Require fails with ErrUnknownPermission on the first code not present in
// the catalog. Route definitions call this at startup so that permission
// typos surface before any request is served.
func (c *Catalog) Require(codes ...string) error {
	for _, code := range codes {
		if !c.Has(code) {
			return fmt.Errorf("%w: %s", ErrUnknownPermission, code)
		}
	}
	return nil
}

// Extend derives a new catalog with the additional permissions and a bumped
// version. The receiver is left untouched so in-flight readers keep a
// consistent view.
func (c *Catalog) Extend(perms ...Permission) (*Catalog, error) {
	merged := make([]Permission, 0, len(c.ordered)+len(perms))
	merged = append(merged, c.ordered...)
	merged = append(merged, perms...)
	return New(c.version+1, merged)
}
