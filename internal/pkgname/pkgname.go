// Package pkgname implements the small parsed value types used throughout the
// installer to identify packages: names, versions, version-with-peer suffixes,
// lockfile dependency paths, and the deterministic virtual-store name function.
//
// These mirror the `pacquet_lockfile` crate's `PkgName`, `PkgVerPeer`,
// `DependencyPath` and `to_virtual_store_name` from the original Rust source,
// re-expressed as idiomatic Go value types with round-trippable
// parse/format pairs (§8 Round-trip laws).
package pkgname

import (
	"strings"

	"github.com/pkg/errors"
)

// Name is the parsed form of an npm package name: `{bare}` or `@{scope}/{bare}`.
type Name struct {
	Scope string // empty when the package is unscoped
	Bare  string
}

// ParseName parses a package name in either scoped or unscoped form.
func ParseName(input string) (Name, error) {
	if input == "" {
		return Name{}, errors.New("package name is empty")
	}
	if input[0] != '@' {
		return Name{Bare: input}, nil
	}
	scope, bare, ok := strings.Cut(input[1:], "/")
	if !ok {
		return Name{}, errors.Errorf("missing name part of the scoped package %q", input)
	}
	if bare == "" {
		return Name{}, errors.Errorf("missing name part of the scoped package %q", input)
	}
	return Name{Scope: scope, Bare: bare}, nil
}

// String formats the name back to `{bare}` or `@{scope}/{bare}`.
func (n Name) String() string {
	if n.Scope == "" {
		return n.Bare
	}
	return "@" + n.Scope + "/" + n.Bare
}
