package resolver

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pacquet/pacquet/internal/pkgname"
	"github.com/pacquet/pacquet/internal/registry"
)

// ResolveNoLockfile performs the DFS described in §4.4 "No-lockfile mode":
// starting from the manifest's direct dependencies, resolve each via the
// registry, recurse into its own dependencies (and peer dependencies iff
// autoInstallPeers), deduplicating by virtual-store name via ResolvedSet. It
// also returns rootVNames, the virtual-store name each root (direct)
// dependency resolved to — the Symlink Planner's input for the project-root
// symlinks (§4.6 "For each direct dependency of the root...").
//
// Grounded on the teacher's `context.ResolveDepGraph`: one goroutine per
// dependency edge, a shared dedup set, recursive fan-out guarded by an
// errgroup instead of the teacher's raw `sync.WaitGroup` (this core has no
// equivalent of the teacher's "only matters for yarn" early return, since
// every edge here needs resolving). Edge virtual-store names are recorded
// into the caller-owned map the same way the teacher's goroutines write
// into shared maps under `pkg.Mu` (context.go:481-484): one mutex guarding
// every piece of state a frontier's goroutines touch together.
func ResolveNoLockfile(ctx context.Context, client *registry.Client, rootDeps map[string]string, autoInstallPeers bool) ([]Resolved, map[string]string, error) {
	set := NewResolvedSet()
	var mu sync.Mutex
	var resolved []Resolved
	rootVNames := make(map[string]string, len(rootDeps))

	group, ctx := errgroup.WithContext(ctx)
	walk(ctx, group, client, rootDeps, autoInstallPeers, set, &mu, &resolved, rootVNames)

	if err := group.Wait(); err != nil {
		return nil, nil, err
	}
	return resolved, rootVNames, nil
}

// walk resolves deps (one parent's dependency edges) in parallel. edgeVNames
// is the map this frontier's own resolved virtual-store names get written
// into, keyed by the raw dependency name as declared by the parent — for a
// root call that's ResolveNoLockfile's rootVNames; for a recursive call it's
// the map held by the child's own Resolved.DependencyVNames field, already
// allocated (but not yet fully populated) before the child was appended to
// resolved. Because every write happens-before group.Wait() returns, callers
// observing resolved only after ResolveNoLockfile returns see it complete.
func walk(
	ctx context.Context,
	group *errgroup.Group,
	client *registry.Client,
	deps map[string]string,
	autoInstallPeers bool,
	set *ResolvedSet,
	mu *sync.Mutex,
	resolved *[]Resolved,
	edgeVNames map[string]string,
) {
	for rawName, rangeExpr := range deps {
		rawName, rangeExpr := rawName, rangeExpr
		group.Go(func() error {
			name, err := pkgname.ParseName(rawName)
			if err != nil {
				return err
			}
			rng, err := pkgname.ParseRange(rangeExpr)
			if err != nil {
				return err
			}

			packument, err := client.FetchPackage(ctx, name.String())
			if err != nil {
				return err
			}
			pv, err := packument.Pinned(rng)
			if err != nil {
				return err
			}

			version, err := pkgname.ParseVersion(pv.Version)
			if err != nil {
				return err
			}
			vname := pkgname.VirtualStoreName(name, pkgname.VerPeer{Version: version})

			mu.Lock()
			edgeVNames[rawName] = vname
			mu.Unlock()

			if !set.AddIfAbsent(vname) {
				return nil
			}

			childVNames := make(map[string]string)
			r, err := toResolved(vname, name, pv, childVNames)
			if err != nil {
				return err
			}

			mu.Lock()
			*resolved = append(*resolved, r)
			mu.Unlock()

			nextDeps := pv.DependenciesWithPeers(autoInstallPeers)
			if len(nextDeps) > 0 {
				walk(ctx, group, client, nextDeps, autoInstallPeers, set, mu, resolved, childVNames)
			}
			return nil
		})
	}
}

func toResolved(vname string, name pkgname.Name, pv registry.PackageVersion, childVNames map[string]string) (Resolved, error) {
	integ, err := parseDistIntegrity(pv)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{
		VName:            vname,
		Name:             name,
		Version:          pv.Version,
		TarballURL:       pv.Dist.Tarball,
		Integrity:        integ,
		Dependencies:     pv.DependenciesWithPeers(false),
		DependencyVNames: childVNames,
	}, nil
}
