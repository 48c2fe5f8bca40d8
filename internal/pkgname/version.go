package pkgname

import (
	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// Version is a thin, comparable wrapper around a parsed SemVer triple.
// Ordering and range satisfaction are delegated to Masterminds/semver, the
// teacher's own semver library (used by its packagemanager and util packages
// for pnpm/yarn/berry version detection).
type Version struct {
	inner *semver.Version
}

// ParseVersion parses a SemVer string with Masterminds/semver's lenient
// parser (a leading `v` and missing minor/patch components are accepted).
func ParseVersion(input string) (Version, error) {
	v, err := semver.NewVersion(input)
	if err != nil {
		return Version{}, errors.Wrapf(err, "failed to parse version %q", input)
	}
	return Version{inner: v}, nil
}

// String returns the normalized `major.minor.patch[-pre][+meta]` form.
func (v Version) String() string {
	if v.inner == nil {
		return ""
	}
	return v.inner.String()
}

// LessThan reports whether v orders strictly before other.
func (v Version) LessThan(other Version) bool {
	return v.inner.LessThan(other.inner)
}

// Equal reports whether v and other denote the same version.
func (v Version) Equal(other Version) bool {
	return v.inner.Equal(other.inner)
}

// Range is a parsed SemVer range/constraint, e.g. `^1.2.3`, `>=1.0.0 <2.0.0`.
type Range struct {
	raw   string
	inner *semver.Constraints
}

// ParseRange parses a SemVer range expression.
func ParseRange(input string) (Range, error) {
	c, err := semver.NewConstraint(input)
	if err != nil {
		return Range{}, errors.Wrapf(err, "failed to parse version range %q", input)
	}
	return Range{raw: input, inner: c}, nil
}

// Satisfies reports whether v satisfies the range.
func (r Range) Satisfies(v Version) bool {
	return r.inner.Check(v.inner)
}

// Serialize formats a dependency range the way `add` writes it into
// `package.json`: exact ("{v}") when saveExact is requested, otherwise
// caret-prefixed ("^{v}"), matching the distilled spec's §4.3 Version-range
// formatting rule.
func Serialize(v Version, saveExact bool) string {
	if saveExact {
		return v.String()
	}
	return "^" + v.String()
}
