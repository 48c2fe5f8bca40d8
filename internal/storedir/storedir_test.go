package storedir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCASPathLayout(t *testing.T) {
	s := New("/home/user/.local/share/pnpm/store")
	path := s.pathByHexStr("3ef722d37b016c63ac0126cfdcec", SuffixNone)
	assert.Equal(t, filepath.FromSlash("/home/user/.local/share/pnpm/store/v3/files/3e/f722d37b016c63ac0126cfdcec"), path)
}

func TestTmpPath(t *testing.T) {
	s := New("/home/user/.local/share/pnpm/store")
	assert.Equal(t, filepath.FromSlash("/home/user/.local/share/pnpm/store/v3/tmp"), s.Tmp())
}

func TestWriteFileIdempotent(t *testing.T) {
	s := New(t.TempDir())
	content := []byte("hello world")

	path1, hash1, err := s.WriteFile(content, false)
	require.NoError(t, err)

	path2, hash2, err := s.WriteFile(content, false)
	require.NoError(t, err)

	assert.Equal(t, path1, path2)
	assert.Equal(t, hash1, hash2)

	got, err := os.ReadFile(path1)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestWriteFileExecutableSuffixAndMode(t *testing.T) {
	s := New(t.TempDir())
	path, _, err := s.WriteFile([]byte("#!/bin/sh\necho hi\n"), true)
	require.NoError(t, err)
	assert.Contains(t, path, "-exec")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o777), info.Mode().Perm())
}

func TestWriteIndexRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	index := TarballIndex{Files: map[string]IndexFileAttrs{
		"index.js": {Integrity: "sha512-abc", Mode: 0o644},
	}}
	require.NoError(t, s.WriteIndex("deadbeef", index))

	got, ok, err := s.ReadIndex("deadbeef")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, index, got)

	_, ok, err = s.ReadIndex("not-written")
	require.NoError(t, err)
	assert.False(t, ok)
}
