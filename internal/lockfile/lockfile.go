// Package lockfile parses a frozen `pnpm-lock.yaml` (v6, single-project
// only, read-only — writing lockfiles is out of scope) and provides the
// traversal the frozen-lockfile resolver mode drives (§4.4).
//
// The shape is carried over from the teacher's PnpmLockfile (pnpm v5.3/5.4,
// multi-importer), but the fields are rewritten for the v6 single-project
// grammar described in §3/§6: a flat `dependencies`/`devDependencies`/
// `optionalDependencies` map instead of a per-importer `specifiers` table,
// and `packages` keyed by the `DependencyPath` type from `internal/pkgname`
// instead of a raw string.
package lockfile

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/pacquet/pacquet/internal/pkgname"
)

// MajorVersion is the only `lockfileVersion` major this core reads;
// anything else is IncompatibleMajor (§8 Boundary behaviors).
const MajorVersion = 6

// Resolution is a package's resolution strategy in the lockfile. Only the
// tarball-bearing `npm` resolution is supported; `directory` and `git`
// resolutions are parsed (so a clear error can name them) but rejected at
// use (§4.4 "Directory/git resolutions are not supported").
type Resolution struct {
	Type      string `yaml:"type,omitempty"`
	Integrity string `yaml:"integrity,omitempty"`
	Tarball   string `yaml:"tarball,omitempty"`
	Directory string `yaml:"directory,omitempty"`
	Repo      string `yaml:"repo,omitempty"`
	Commit    string `yaml:"commit,omitempty"`
}

// IsUnsupported reports whether this resolution is a directory or git
// resolution, neither of which this core can materialize (§8).
func (r Resolution) IsUnsupported() bool {
	return r.Directory != "" || r.Repo != ""
}

// PackageSnapshot is one entry of the lockfile's `packages` map: a
// resolution plus the package's own dependency edges, carried over field-
// for-field from the teacher's PackageSnapshot minus the pnpm-5-only
// `id`/`engines` bookkeeping this core has no use for.
type PackageSnapshot struct {
	Resolution           Resolution        `yaml:"resolution"`
	Dependencies         map[string]string `yaml:"dependencies,omitempty"`
	OptionalDependencies map[string]string `yaml:"optionalDependencies,omitempty"`
	PeerDependencies     map[string]string `yaml:"peerDependencies,omitempty"`
	Dev                  bool              `yaml:"dev,omitempty"`
	Optional             bool              `yaml:"optional,omitempty"`
	Name                 string            `yaml:"name,omitempty"`
	Version              string            `yaml:"version,omitempty"`
}

// AllDependencies returns every dependency edge out of this snapshot —
// prod, optional, and peer — matching the teacher's AllDependencies shape,
// used by the frozen-lockfile resolver to derive each package's dependency
// edges for the Symlink Planner (§4.4).
func (p PackageSnapshot) AllDependencies() map[string]string {
	deps := make(map[string]string, len(p.Dependencies)+len(p.OptionalDependencies)+len(p.PeerDependencies))
	for name, version := range p.Dependencies {
		deps[name] = version
	}
	for name, version := range p.OptionalDependencies {
		deps[name] = version
	}
	for name, version := range p.PeerDependencies {
		deps[name] = version
	}
	return deps
}

// rawLockfile is the on-wire shape: `lockfileVersion` plus either flat
// single-project fields or a multi-project `importers` map (§3
// RootProjectSnapshot).
type rawLockfile struct {
	LockfileVersion      string                               `yaml:"lockfileVersion"`
	Dependencies         map[string]resolvedDependency        `yaml:"dependencies,omitempty"`
	DevDependencies      map[string]resolvedDependency        `yaml:"devDependencies,omitempty"`
	OptionalDependencies map[string]resolvedDependency        `yaml:"optionalDependencies,omitempty"`
	Importers            map[string]yaml.Node                `yaml:"importers,omitempty"`
	Packages             map[string]PackageSnapshot           `yaml:"packages,omitempty"`
}

// resolvedDependency is one root dependency entry: the declared specifier
// and the version it resolved to (§3 ResolvedDependencySpec).
type resolvedDependency struct {
	Specifier string `yaml:"specifier"`
	Version   string `yaml:"version"`
}

// Lockfile is the parsed, single-project contents of a frozen
// `pnpm-lock.yaml` v6.
type Lockfile struct {
	Dependencies         map[string]string
	DevDependencies      map[string]string
	OptionalDependencies map[string]string
	Packages             map[pkgname.DependencyPath]PackageSnapshot
}

// Decode parses contents as a pnpm-lock.yaml v6 and rejects anything that
// is not single-project (§3 RootProjectSnapshot: "Only single-project is
// supported") or whose major version isn't 6 (§8 "lockfileVersion.major !=
// 6 ⇒ LockfileError::IncompatibleMajor").
func Decode(contents []byte) (*Lockfile, error) {
	var raw rawLockfile
	if err := yaml.Unmarshal(contents, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse pnpm-lock.yaml")
	}

	if err := requireMajor6(raw.LockfileVersion); err != nil {
		return nil, err
	}
	if len(raw.Importers) > 0 {
		return nil, errors.New("multi-project (workspace) lockfiles are not supported")
	}

	packages := make(map[pkgname.DependencyPath]PackageSnapshot, len(raw.Packages))
	for key, snapshot := range raw.Packages {
		path, err := pkgname.ParseDependencyPath(key)
		if err != nil {
			return nil, errors.Wrapf(err, "malformed lockfile package key %q", key)
		}
		packages[path] = snapshot
	}

	// Root dependency maps keep only the resolved version of each entry.
	versions := func(deps map[string]resolvedDependency) map[string]string {
		out := make(map[string]string, len(deps))
		for name, dep := range deps {
			out[name] = dep.Version
		}
		return out
	}
	return &Lockfile{
		Dependencies:         versions(raw.Dependencies),
		DevDependencies:      versions(raw.DevDependencies),
		OptionalDependencies: versions(raw.OptionalDependencies),
		Packages:             packages,
	}, nil
}

func requireMajor6(version string) error {
	major, _, ok := splitMajor(version)
	if !ok || major != MajorVersion {
		return errors.Errorf("unsupported lockfileVersion %q: only major version %d is supported", version, MajorVersion)
	}
	return nil
}

// splitMajor extracts the integer major component of a "6.0" style
// lockfileVersion string without pulling in a full semver parse — the
// lockfile's version field is a bare major.minor pair, not a package
// SemVer triple.
func splitMajor(version string) (int, string, bool) {
	for i, r := range version {
		if r == '.' {
			major, err := parseNonNegativeInt(version[:i])
			if err != nil {
				return 0, "", false
			}
			return major, version[i+1:], true
		}
	}
	major, err := parseNonNegativeInt(version)
	if err != nil {
		return 0, "", false
	}
	return major, "", true
}

func parseNonNegativeInt(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty integer")
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.Errorf("not a digit: %q", s)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

// AllDependencies returns the root project's own dependencies across all
// three groups as name -> resolved version, from which frozen-lockfile mode
// derives the project-root symlinks (§4.4).
func (l *Lockfile) AllDependencies() map[string]string {
	deps := make(map[string]string, len(l.Dependencies)+len(l.DevDependencies)+len(l.OptionalDependencies))
	for name, version := range l.Dependencies {
		deps[name] = version
	}
	for name, version := range l.DevDependencies {
		deps[name] = version
	}
	for name, version := range l.OptionalDependencies {
		deps[name] = version
	}
	return deps
}
