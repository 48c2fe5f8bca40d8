package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacquet/pacquet/internal/ioqueue"
	"github.com/pacquet/pacquet/internal/tarball"
)

func TestLinkFileHardlinksFreshTarget(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source.txt")
	require.NoError(t, os.WriteFile(source, []byte("hello"), 0o644))

	target := filepath.Join(dir, "nested", "target.txt")
	require.NoError(t, LinkFile(source, target))

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}

func TestLinkFileNeverOverwritesExistingTarget(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source.txt")
	require.NoError(t, os.WriteFile(source, []byte("new"), 0o644))

	target := filepath.Join(dir, "target.txt")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))

	require.NoError(t, LinkFile(source, target))

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "old", string(content))
}

func TestCreateCasFilesMaterializesEveryEntry(t *testing.T) {
	dir := t.TempDir()
	storeDir := filepath.Join(dir, "store")
	require.NoError(t, os.MkdirAll(storeDir, 0o755))

	fileA := filepath.Join(storeDir, "a.js")
	fileB := filepath.Join(storeDir, "b.js")
	require.NoError(t, os.WriteFile(fileA, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(fileB, []byte("b"), 0o644))

	casPaths := tarball.CasPaths{
		"index.js":   fileA,
		"lib/b.js":   fileB,
	}

	queue := ioqueue.New()
	defer queue.Shutdown()

	vdir := filepath.Join(dir, "node_modules", "foo")
	require.NoError(t, CreateCasFiles(queue, vdir, casPaths))

	content, err := os.ReadFile(filepath.Join(vdir, "index.js"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(content))

	content, err = os.ReadFile(filepath.Join(vdir, "lib/b.js"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(content))
}

func TestCreateCasFilesIsIdempotentWhenDirAlreadyExists(t *testing.T) {
	dir := t.TempDir()
	vdir := filepath.Join(dir, "node_modules", "foo")
	require.NoError(t, os.MkdirAll(vdir, 0o755))

	queue := ioqueue.New()
	defer queue.Shutdown()

	casPaths := tarball.CasPaths{"index.js": filepath.Join(dir, "does-not-exist.js")}
	assert.NoError(t, CreateCasFiles(queue, vdir, casPaths))

	entries, err := os.ReadDir(vdir)
	require.NoError(t, err)
	assert.Len(t, entries, 0)
}
