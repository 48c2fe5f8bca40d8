// Package storedir implements the pure path algebra over a content-addressed
// store directory rooted at `$STORE/v3/`, and the atomic, idempotent writers
// that intern file content into it.
//
// Grounded on `store-dir/src/store_dir.rs` and `store-dir/src/write_file.rs`
// from the original pacquet source, re-expressed in the teacher's own
// filesystem idiom (`internal/cacheitem`, `internal/fs`): plain `string`
// paths joined with `filepath.Join`, atomic write via a temp file plus
// rename, exactly as `internal/cache/cache_fs.go` stages cache archives
// before they're visible.
package storedir

import (
	"path/filepath"

	"github.com/yookoala/realpath"
)

// Suffix distinguishes the three kinds of content-addressed paths a StoreDir
// can compute (§3 Store path invariants).
type Suffix string

const (
	// SuffixNone is used for ordinary, non-executable files.
	SuffixNone Suffix = ""
	// SuffixExec marks a file that must be made executable on POSIX.
	SuffixExec Suffix = "-exec"
	// SuffixIndex marks a tarball's index JSON file.
	SuffixIndex Suffix = "-index.json"
)

// StoreDir is the absolute path to a content-addressed store root. All store
// paths are pure functions of this root plus a content digest; a StoreDir is
// safe to share read-only across goroutines and processes.
type StoreDir struct {
	root string
}

// New constructs a StoreDir rooted at the given absolute path. The root is
// canonicalized through any symlinks in its existing ancestors (e.g. a
// symlinked home directory or a store-dir bind-mounted elsewhere) so every
// CAS path computed from it is stable regardless of how it was reached;
// realpath.Realpath tolerates a root (or its tail components) not existing
// yet, unlike filepath.EvalSymlinks, which matters here because the store
// directory is created lazily on first write.
func New(root string) StoreDir {
	if resolved, err := realpath.Realpath(root); err == nil {
		root = resolved
	}
	return StoreDir{root: root}
}

// Root returns the store's root path, e.g. for `store path`.
func (s StoreDir) Root() string {
	return s.root
}

// v3 returns `{root}/v3`.
func (s StoreDir) v3() string {
	return filepath.Join(s.root, "v3")
}

// files returns `{root}/v3/files`, the directory holding all interned blobs.
func (s StoreDir) files() string {
	return filepath.Join(s.v3(), "files")
}

// FilesDir returns `{root}/v3/files`, exported so `store prune` can walk
// every interned blob and index file (§4.11).
func (s StoreDir) FilesDir() string {
	return s.files()
}

// Tmp returns `{root}/v3/tmp`, scratch space for in-progress writes.
func (s StoreDir) Tmp() string {
	return filepath.Join(s.v3(), "tmp")
}

// pathByHexStr computes `files/{hex[:2]}/{hex[2:]}{suffix}` from a hex digest
// string, the shared tail of both CASPath and IndexPath.
func (s StoreDir) pathByHexStr(hex string, suffix Suffix) string {
	head, tail := hex[:2], hex[2:]
	return filepath.Join(s.files(), head, tail+string(suffix))
}

// CASPath computes the store path of a file given its SHA-512 digest in hex,
// suffixed `-exec` when the file must be executable (§3, §6).
func (s StoreDir) CASPath(sha512Hex string, executable bool) string {
	suffix := SuffixNone
	if executable {
		suffix = SuffixExec
	}
	return s.pathByHexStr(sha512Hex, suffix)
}

// IndexPath computes the store path of a tarball's index JSON file given the
// tarball's integrity digest in hex. Fails to be meaningful (returns a path
// that will never be written to) unless the caller already verified the
// integrity's algorithm is SHA-512 — see Integrity.RequireSHA512.
func (s StoreDir) IndexPath(sha512Hex string) string {
	return s.pathByHexStr(sha512Hex, SuffixIndex)
}
