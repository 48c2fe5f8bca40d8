//go:build !windows

package fsutil

import "os"

// MakeExecutable sets the executable bits pnpm's store convention expects
// (§4.1, §6 `-exec` suffix). A no-op on Windows, which has no POSIX
// executable bit.
func MakeExecutable(path string) error {
	return os.Chmod(path, 0o777)
}
