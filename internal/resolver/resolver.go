// Package resolver implements both resolution modes described in §4.4:
// frozen-lockfile (iterate the lockfile's `packages` map) and
// no-lockfile (DFS from the manifest's declared roots, deduplicated by
// virtual-store name).
package resolver

import (
	"github.com/pkg/errors"

	"github.com/pacquet/pacquet/internal/integrity"
	"github.com/pacquet/pacquet/internal/pkgname"
	"github.com/pacquet/pacquet/internal/registry"
)

// Resolved is one package the installer must fetch and materialize: its
// virtual-store name, tarball location, expected integrity, its own
// unresolved dependency edges for further traversal, and — keyed by
// dependency name — the virtual-store name each of those edges resolved to
// within this package's own dependency graph. The Symlink Planner (§4.6)
// reads DependencyVNames directly; it has no way to re-derive an edge's
// resolved version from Dependencies alone, since in no-lockfile mode that
// map still holds the declared range, not the version the resolver picked.
type Resolved struct {
	VName            string
	Name             pkgname.Name
	Version          string
	TarballURL       string
	Integrity        integrity.Integrity
	Dependencies     map[string]string
	DependencyVNames map[string]string
}

// ErrUnsupportedResolution is returned for lockfile entries resolved via
// directory or git, neither of which this core can materialize (§4.4
// "Directory/git resolutions are not supported and fail with a clear
// error").
var ErrUnsupportedResolution = errors.New("directory/git resolutions are not supported")

func parseDistIntegrity(pv registry.PackageVersion) (integrity.Integrity, error) {
	if pv.Dist.Integrity == "" {
		return integrity.Integrity{}, errors.Errorf("missing integrity for %s@%s", pv.Name, pv.Version)
	}
	return integrity.Parse(pv.Dist.Integrity)
}
