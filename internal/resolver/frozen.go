package resolver

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/pacquet/pacquet/internal/integrity"
	"github.com/pacquet/pacquet/internal/lockfile"
	"github.com/pacquet/pacquet/internal/pkgname"
)

// ResolveFrozen walks every entry of a frozen lockfile's `packages` map in
// parallel (§4.4 "Frozen-lockfile mode") and computes each one's tarball
// URL and expected integrity, using `lockfile.WalkPackages`'s errgroup
// fan-out (itself grounded on the teacher's `transitiveClosureHelper`).
func ResolveFrozen(lf *lockfile.Lockfile, defaultRegistry string) ([]Resolved, error) {
	var mu sync.Mutex
	var resolved []Resolved

	err := lf.WalkPackages(func(path pkgname.DependencyPath, snapshot lockfile.PackageSnapshot) error {
		r, err := resolveSnapshot(path, snapshot, defaultRegistry)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve %s", path.String())
		}
		mu.Lock()
		resolved = append(resolved, r)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func resolveSnapshot(path pkgname.DependencyPath, snapshot lockfile.PackageSnapshot, defaultRegistry string) (Resolved, error) {
	if snapshot.Resolution.IsUnsupported() {
		return Resolved{}, ErrUnsupportedResolution
	}
	if snapshot.Resolution.Integrity == "" {
		return Resolved{}, errors.New("missing integrity for package")
	}
	parsedIntegrity, err := integrity.Parse(snapshot.Resolution.Integrity)
	if err != nil {
		return Resolved{}, err
	}

	name, verPeer, err := path.NameAndVerPeer()
	if err != nil {
		return Resolved{}, err
	}
	vname := pkgname.VirtualStoreName(name, verPeer)

	registryBase := defaultRegistry
	if path.CustomRegistry != "" {
		registryBase = "https://" + path.CustomRegistry + "/"
	}

	tarballURL := snapshot.Resolution.Tarball
	if tarballURL == "" {
		// Synthesize `{registry}/{name}/-/{bare-name}-{version}.tgz` (§4.4
		// "Otherwise synthesize ... using the registry from the path or the
		// default").
		tarballURL = registryBase + name.String() + "/-/" + name.Bare + "-" + verPeer.Version.String() + ".tgz"
	}

	deps := snapshot.AllDependencies()
	depVNames, err := dependencyVNames(deps)
	if err != nil {
		return Resolved{}, err
	}

	return Resolved{
		VName:            vname,
		Name:             name,
		Version:          verPeer.Version.String(),
		TarballURL:       tarballURL,
		Integrity:        parsedIntegrity,
		Dependencies:     deps,
		DependencyVNames: depVNames,
	}, nil
}

// RootVNamesFromLockfile computes the virtual-store name of every one of the
// root project's own direct dependencies (prod, dev, optional), the Symlink
// Planner's input for the project-root symlinks (§4.6, third bullet) in
// frozen-lockfile mode.
func RootVNamesFromLockfile(lf *lockfile.Lockfile) (map[string]string, error) {
	return dependencyVNames(lf.AllDependencies())
}

// dependencyVNames computes, for each dependency edge, the virtual-store
// name of the exact version the lockfile already pinned it to. A frozen
// lockfile's `packages` entries only ever list exact resolved versions
// (optionally with a peer suffix) for their own dependencies, never ranges,
// so this is a pure parse-and-derive with no registry lookup involved.
func dependencyVNames(deps map[string]string) (map[string]string, error) {
	vnames := make(map[string]string, len(deps))
	for depName, depVersion := range deps {
		name, err := pkgname.ParseName(depName)
		if err != nil {
			return nil, err
		}
		verPeer, err := pkgname.ParseVerPeer(depVersion)
		if err != nil {
			return nil, err
		}
		vnames[depName] = pkgname.VirtualStoreName(name, verPeer)
	}
	return vnames, nil
}
