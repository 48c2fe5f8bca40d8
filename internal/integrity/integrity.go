// Package integrity implements Subresource-Integrity-style strings
// (`{algorithm}-{base64 digest}`) as used by npm tarball metadata and
// pnpm-lock.yaml resolutions.
//
// No SRI library surfaced anywhere in the retrieved example corpus (the
// teacher computes its own cache hashes with plain crypto/sha512 in
// `internal/cacheitem`, never via an SRI wrapper), so this is built directly
// on the standard library's crypto/sha512 and encoding/base64 — see
// DESIGN.md for the corresponding justification entry.
package integrity

import (
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// Algorithm identifies a supported hash algorithm in an SRI string.
type Algorithm string

// Sha512 is the only algorithm this store supports (§4.1, §6 StoreDir
// rationale: "algorithm must be SHA-512; otherwise fail").
const Sha512 Algorithm = "sha512"

// Integrity is a parsed SRI string: an algorithm plus its digest.
type Integrity struct {
	Algorithm Algorithm
	Digest    []byte // raw bytes of the digest
}

// Parse parses an SRI string of the form `{algorithm}-{base64 digest}`.
func Parse(sri string) (Integrity, error) {
	algo, b64, ok := strings.Cut(sri, "-")
	if !ok {
		return Integrity{}, errors.Errorf("malformed integrity string %q", sri)
	}
	digest, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return Integrity{}, errors.Wrapf(err, "malformed base64 digest in integrity string %q", sri)
	}
	return Integrity{Algorithm: Algorithm(algo), Digest: digest}, nil
}

// String formats back to the canonical `{algorithm}-{base64 digest}` form.
func (i Integrity) String() string {
	return string(i.Algorithm) + "-" + base64.StdEncoding.EncodeToString(i.Digest)
}

// Hex returns the digest as a lowercase hex string, the form StoreDir paths
// are built from (§3 Store path invariants).
func (i Integrity) Hex() string {
	return hex.EncodeToString(i.Digest)
}

// RequireSHA512 fails unless the integrity's algorithm is SHA-512, the only
// algorithm tarball indexes are keyed by (§6 StoreDir rationale).
func (i Integrity) RequireSHA512() error {
	if i.Algorithm != Sha512 {
		return errors.Errorf("unsupported integrity algorithm %q: only sha512 is supported", i.Algorithm)
	}
	return nil
}

// OfSHA512 computes the SHA-512 integrity string of buffer, the form used to
// both key a tarball's MemCache entry and verify a downloaded tarball
// against its declared Integrity (§4.2 step 4).
func OfSHA512(buffer []byte) Integrity {
	sum := sha512.Sum512(buffer)
	return Integrity{Algorithm: Sha512, Digest: sum[:]}
}

// Verify fails unless buffer's SHA-512 integrity matches expected exactly
// (§8 Boundary behaviors: SRI mismatch ⇒ TarballError::Integrity).
func Verify(buffer []byte, expected Integrity) error {
	if err := expected.RequireSHA512(); err != nil {
		return err
	}
	actual := OfSHA512(buffer)
	if actual.String() != expected.String() {
		return errors.Errorf("integrity mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}
