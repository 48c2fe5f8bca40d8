package storedir

import (
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/moby/sys/sequential"
	"github.com/pkg/errors"

	"github.com/pacquet/pacquet/internal/fsutil"
)

// FileHash is the SHA-512 digest of a single file's bytes, used as its
// content address (§3 FileHash).
type FileHash [sha512.Size]byte

// Hex returns the lowercase hex encoding used to build store paths.
func (h FileHash) Hex() string {
	return hex.EncodeToString(h[:])
}

// writeIfAbsent atomically materializes content at path unless it already
// exists, by writing to a uniquely-named temp file under the store's tmp
// directory and renaming it into place. Rename within the same store
// directory is atomic on all platforms pacquet targets, and a second writer
// racing for the same content-addressed path converges on identical bytes
// (§4.1 Rationale) so losing the rename race is not an error.
func (s StoreDir) writeIfAbsent(path string, content []byte, mode os.FileMode) error {
	if _, err := os.Lstat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to stat %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create parent directory of %s", path)
	}
	if err := os.MkdirAll(s.Tmp(), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create store tmp directory")
	}

	tmpPath := filepath.Join(s.Tmp(), uuid.NewString())
	// Store blobs are written once, sequentially, and never seeked into;
	// sequential.OpenFile hints the OS accordingly (a no-op on platforms
	// other than Windows, where it sets FILE_FLAG_SEQUENTIAL_SCAN).
	f, err := sequential.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return errors.Wrapf(err, "failed to write temp file for %s", path)
	}
	_, writeErr := f.Write(content)
	closeErr := f.Close()
	defer os.Remove(tmpPath)
	if writeErr != nil {
		return errors.Wrapf(writeErr, "failed to write temp file for %s", path)
	}
	if closeErr != nil {
		return errors.Wrapf(closeErr, "failed to close temp file for %s", path)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if _, statErr := os.Lstat(path); statErr == nil {
			// Another writer won the race with (by content-address
			// construction) identical bytes.
			return nil
		}
		return errors.Wrapf(err, "failed to move temp file into place at %s", path)
	}
	return nil
}

// WriteFile interns buffer at its content address, returning the store path
// and the SHA-512 digest it was addressed by (§4.1 write_file). The write is
// idempotent: calling it twice with the same bytes is a no-op the second
// time, and concurrent callers racing on the same content converge safely.
func (s StoreDir) WriteFile(buffer []byte, executable bool) (string, FileHash, error) {
	hash := FileHash(sha512.Sum512(buffer))
	path := s.CASPath(hash.Hex(), executable)

	mode := os.FileMode(0o644)
	if executable {
		mode = 0o777
	}
	if err := s.writeIfAbsent(path, buffer, mode); err != nil {
		return "", FileHash{}, err
	}

	if executable {
		// sequential.OpenFile's mode is subject to umask; force the bits pnpm
		// expects regardless of the process umask (§4.1).
		if err := fsutil.MakeExecutable(path); err != nil {
			return "", FileHash{}, errors.Wrapf(err, "failed to make %s executable", path)
		}
	}
	return path, hash, nil
}

// IndexFileAttrs is the value type of a TarballIndex's `files` map (§6 Index
// JSON, camelCase on the wire).
type IndexFileAttrs struct {
	CheckedAt *int64 `json:"checkedAt,omitempty"`
	Integrity string `json:"integrity"`
	Mode      uint32 `json:"mode"`
	Size      *int64 `json:"size,omitempty"`
}

// TarballIndex is the content of a `*-index.json` file: a map from
// in-archive entry path to that entry's store attributes (§3 TarballIndex).
type TarballIndex struct {
	Files map[string]IndexFileAttrs `json:"files"`
}

// WriteIndex JSON-serializes index and writes it write-if-absent at the path
// derived from the tarball's SHA-512 integrity digest (§4.1 write_index).
func (s StoreDir) WriteIndex(tarballSHA512Hex string, index TarballIndex) error {
	path := s.IndexPath(tarballSHA512Hex)
	content, err := json.Marshal(index)
	if err != nil {
		return errors.Wrap(err, "failed to marshal tarball index")
	}
	return s.writeIfAbsent(path, content, 0o644)
}

// ReadIndex reads back a previously written tarball index, used to skip
// network activity entirely when the tarball has already been interned
// (§4.2 step 2).
func (s StoreDir) ReadIndex(tarballSHA512Hex string) (TarballIndex, bool, error) {
	path := s.IndexPath(tarballSHA512Hex)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return TarballIndex{}, false, nil
		}
		return TarballIndex{}, false, errors.Wrapf(err, "failed to read index file %s", path)
	}
	var index TarballIndex
	if err := json.Unmarshal(content, &index); err != nil {
		return TarballIndex{}, false, errors.Wrapf(err, "failed to parse index file %s", path)
	}
	return index, true, nil
}
