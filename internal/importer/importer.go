// Package importer implements `create_cas_files` (§4.5): materializing a
// package's virtual-store directory from its CasPaths by linking (or
// copying) each entry out of the content-addressed store.
//
// Grounded on `original_source/crates/package_manager/src/cas.rs`
// (`create_cas_files`: idempotent on an existing `dir_path`, per-entry
// parallel fan-out) and `link_file.rs` (reflink-or-copy, never overwrite an
// existing target). Per-entry work is submitted to an ioqueue.Queue instead
// of run inline, so the queue is the single serializer for these writes
// across concurrent CreateCasFiles callers (§5 Mutual exclusion). Linking
// itself is translated into the teacher's linking idiom:
// `internal/fs/copy_file.go`'s `CopyOrLinkFile` (hardlink attempt, fall
// back to a byte copy on failure) since nothing in the retrieved corpus
// imports a CoW-reflink library — the teacher's own fallback chain stops
// at hardlink-then-copy, which this core adopts as its "auto" policy
// (§4.5 "attempt reflink ...; if unsupported, attempt hardlink; ...
// fall back to byte copy" — reflink has no portable stdlib or pack-grounded
// equivalent, so it collapses into the hardlink attempt, matching the
// teacher's own behavior on every platform it targets).
package importer

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pacquet/pacquet/internal/ioqueue"
	"github.com/pacquet/pacquet/internal/tarball"
)

// LinkFile hardlinks-or-copies a single file from source to target,
// creating target's parent directory if absent and doing nothing if
// target already exists (§4.5 "Never overwrite an existing target").
//
// Grounded on `link_file.rs`: try the fast path first (hardlink, the
// closest this corpus gets to a CoW clone), fall back to a full copy on
// any error — cross-device links being the common failure case.
func LinkFile(source, target string) error {
	if _, err := os.Lstat(target); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	if err := os.Link(source, target); err == nil {
		return nil
	}
	return copyFile(source, target)
}

func copyFile(source, target string) error {
	info, err := os.Stat(source)
	if err != nil {
		return err
	}

	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(target)
		return err
	}
	return out.Close()
}

// CreateCasFiles implements `create_cas_files(dir_path, cas_paths)` (§4.5):
// a no-op if dirPath already exists, otherwise one ReflinkOrCopy task per
// entry submitted to queue and awaited together. Routing every entry through
// queue (rather than a bare errgroup) is what makes queue the single writer
// for these operations across concurrent CreateCasFiles callers, per §5
// Mutual exclusion.
func CreateCasFiles(queue *ioqueue.Queue, dirPath string, casPaths tarball.CasPaths) error {
	if _, err := os.Stat(dirPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	replies := make([]<-chan error, 0, len(casPaths))
	for entryPath, storePath := range casPaths {
		target := filepath.Join(dirPath, entryPath)
		replies = append(replies, queue.Submit(ioqueue.ReflinkOrCopy{
			Link:   LinkFile,
			Source: storePath,
			Target: target,
		}))
	}

	var firstErr error
	for _, reply := range replies {
		if err := <-reply; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
