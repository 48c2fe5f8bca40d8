package pkgname

import (
	"strings"

	"github.com/pkg/errors"
)

// DependencyPath is a key of the lockfile's `packages` map: an optional
// custom-registry prefix followed by `{name}@{ver-peer}`. Equality is
// textual per §3.
type DependencyPath struct {
	CustomRegistry  string // empty when the default registry is used
	PackageSpecifier string // `{name}@{ver-peer}`
}

// ParseDependencyPath parses a `packages` map key of the form
// `[<registry>]/<name>@<ver-peer>`.
func ParseDependencyPath(input string) (DependencyPath, error) {
	registry, specifier, ok := strings.Cut(input, "/")
	if !ok {
		return DependencyPath{}, errors.Errorf("invalid dependency path syntax: %q", input)
	}
	return DependencyPath{CustomRegistry: registry, PackageSpecifier: specifier}, nil
}

// String formats back to `<registry>/<name>@<ver-peer>`.
func (p DependencyPath) String() string {
	return p.CustomRegistry + "/" + p.PackageSpecifier
}

// NameAndVerPeer splits PackageSpecifier into its name and version+peer parts.
func (p DependencyPath) NameAndVerPeer() (Name, VerPeer, error) {
	return ParseNameVerPeer(p.PackageSpecifier)
}

// ParseNameVerPeer parses the `{name}@{ver-peer}` syntax used both as a
// DependencyPath's PackageSpecifier and as a PackageSnapshotDependency value.
// The name may itself be scoped (and thus contain a `/`), so the split point
// is the last `@` that is not part of a leading `@scope/`.
func ParseNameVerPeer(input string) (Name, VerPeer, error) {
	searchFrom := 0
	if strings.HasPrefix(input, "@") {
		slash := strings.IndexByte(input, '/')
		if slash < 0 {
			return Name{}, VerPeer{}, errors.Errorf("missing name part of the scoped package %q", input)
		}
		searchFrom = slash
	}
	at := strings.IndexByte(input[searchFrom:], '@')
	if at < 0 {
		return Name{}, VerPeer{}, errors.Errorf("at sign (@) is missing in %q", input)
	}
	at += searchFrom
	name, err := ParseName(input[:at])
	if err != nil {
		return Name{}, VerPeer{}, err
	}
	verPeer, err := ParseVerPeer(input[at+1:])
	if err != nil {
		return Name{}, VerPeer{}, err
	}
	return name, verPeer, nil
}
