// Package store implements the store-pruning maintenance operation that sits
// on top of StoreDir (§4.11): removing blobs no longer referenced by any
// tarball index. Printing the store's root (`store path`) needs no code here;
// internal/cli calls StoreDir.Root directly.
//
// Grounded on the teacher's `internal/fs` directory-walking idiom
// (`godirwalk.Walk` in place of `filepath.Walk`, used throughout
// `recursive_copy_go.go` and `filewatcher/backend.go`) applied to
// `StoreDir`'s own `v3/files` layout.
package store

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"github.com/pacquet/pacquet/internal/integrity"
	"github.com/pacquet/pacquet/internal/storedir"
)

// Prune walks store's files directory, reads every tarball index still on
// disk to determine which blobs are still referenced, and removes every
// blob that is not (§4.11 "store prune"). It returns the number of blobs
// removed. A missing files directory (nothing ever interned) is not an
// error.
func Prune(store storedir.StoreDir) (int, error) {
	var indexPaths, blobPaths []string

	err := godirwalk.Walk(store.FilesDir(), &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			if strings.HasSuffix(path, string(storedir.SuffixIndex)) {
				indexPaths = append(indexPaths, path)
			} else {
				blobPaths = append(blobPaths, path)
			}
			return nil
		},
	})
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to walk store files directory")
	}

	referenced := make(map[string]struct{}, len(blobPaths))
	for _, indexPath := range indexPaths {
		if err := collectReferences(store, indexPath, referenced); err != nil {
			return 0, err
		}
	}

	removed := 0
	var result *multierror.Error
	for _, path := range blobPaths {
		if _, ok := referenced[path]; ok {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, errors.Wrapf(err, "failed to remove unreferenced blob %s", path))
			continue
		}
		removed++
	}
	return removed, result.ErrorOrNil()
}

func collectReferences(store storedir.StoreDir, indexPath string, referenced map[string]struct{}) error {
	content, err := os.ReadFile(indexPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read index %s", indexPath)
	}
	var index storedir.TarballIndex
	if err := json.Unmarshal(content, &index); err != nil {
		return errors.Wrapf(err, "failed to parse index %s", indexPath)
	}

	for _, attrs := range index.Files {
		integ, err := integrity.Parse(attrs.Integrity)
		if err != nil {
			return errors.Wrapf(err, "malformed integrity in index %s", indexPath)
		}
		executable := attrs.Mode&0o111 != 0
		referenced[store.CASPath(integ.Hex(), executable)] = struct{}{}
	}
	return nil
}
