package lockfile

import (
	"golang.org/x/sync/errgroup"

	"github.com/pacquet/pacquet/internal/pkgname"
)

// Visit is called once per package reachable from the lockfile, in
// parallel, as the frozen-lockfile resolver walks `packages` (§4.4
// "Iterate the lockfile's packages map in parallel").
type Visit func(path pkgname.DependencyPath, snapshot PackageSnapshot) error

// WalkPackages fans a goroutine out per entry of the lockfile's `packages`
// map and calls visit on each, matching the teacher's
// `transitiveClosureHelper` shape (`errgroup.Group`, one `Go()` call per
// edge) but flattened: a frozen lockfile already enumerates every package
// in the closure, so there is no recursive re-resolution step here the way
// there is in the teacher's no-lockfile-equivalent traversal.
func (l *Lockfile) WalkPackages(visit Visit) error {
	group := &errgroup.Group{}
	for path, snapshot := range l.Packages {
		path := path
		snapshot := snapshot
		group.Go(func() error {
			return visit(path, snapshot)
		})
	}
	return group.Wait()
}
