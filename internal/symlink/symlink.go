// Package symlink implements the Symlink Planner (§4.6): given the fully
// resolved package set, creates the sibling symlinks inside each package's
// own virtual-store directory, and the project-root symlinks for direct
// dependencies.
//
// Grounded on `original_source/crates/package_manager/src/symlink_layout.rs`
// (`create_symlink_layout`: one symlink per dependency edge, fanned out in
// parallel) and `symlink_direct_dependencies.rs` (project-root symlinks for
// the manifest's own dependency groups), translated into the teacher's
// fan-out idiom (`golang.org/x/sync/errgroup`, matching
// `internal/resolver`'s own DFS) instead of the original's `rayon`
// par_iter.
package symlink

import (
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/pacquet/pacquet/internal/fsutil"
	"github.com/pacquet/pacquet/internal/resolver"
)

// virtualDir computes VSTORE/<vname>/node_modules/<name> (§4.6), the
// canonical location of package name once its vname is known.
func virtualDir(vstoreRoot, vname, name string) string {
	return filepath.Join(vstoreRoot, vname, "node_modules", name)
}

// PlanPackages creates, for every resolved package, one sibling symlink per
// dependency edge: VSTORE/<vname>/node_modules/<dname> ->
// VSTORE/<d.vname>/node_modules/<dname> (§4.6, second bullet). Each
// package's own canonical directory is assumed already populated by the
// importer; this function never creates it.
func PlanPackages(vstoreRoot string, resolved []resolver.Resolved) error {
	group := &errgroup.Group{}
	for _, pkg := range resolved {
		pkg := pkg
		for depName, depVName := range pkg.DependencyVNames {
			depName, depVName := depName, depVName
			group.Go(func() error {
				link := virtualDir(vstoreRoot, pkg.VName, depName)
				target := virtualDir(vstoreRoot, depVName, depName)
				return fsutil.CreateDirSymlink(target, link)
			})
		}
	}
	return group.Wait()
}

// PlanProjectRoot creates, for each direct dependency of the root manifest,
// a symlink PROJECT/node_modules/<name> -> VSTORE/<vname>/node_modules/<name>
// (§4.6, third bullet). rootVNames maps a direct dependency's declared name
// to the virtual-store name it resolved to, as returned by
// resolver.ResolveNoLockfile or derived from the lockfile's top-level
// dependency maps in frozen mode.
func PlanProjectRoot(projectModulesDir, vstoreRoot string, rootVNames map[string]string) error {
	group := &errgroup.Group{}
	for name, vname := range rootVNames {
		name, vname := name, vname
		group.Go(func() error {
			link := filepath.Join(projectModulesDir, name)
			target := virtualDir(vstoreRoot, vname, name)
			return fsutil.CreateDirSymlink(target, link)
		})
	}
	return group.Wait()
}
