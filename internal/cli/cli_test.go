package cli

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacquet/pacquet/internal/integrity"
	"github.com/pacquet/pacquet/internal/manifest"
)

func TestInitCreatesManifestOnlyOnce(t *testing.T) {
	dir := t.TempDir()

	code := RunWithArgs([]string{"init", "--cwd", dir})
	assert.Equal(t, 0, code)

	m, err := manifest.Load(filepath.Join(dir, "package.json"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), m.Name)
	assert.Equal(t, "1.0.0", m.Version)

	code = RunWithArgs([]string{"init", "--cwd", dir})
	assert.Equal(t, 1, code)
}

func TestStorePathSucceedsWithoutAProject(t *testing.T) {
	dir := t.TempDir()
	code := RunWithArgs([]string{"store", "path", "--cwd", dir})
	assert.Equal(t, 0, code)
}

func TestInstallFailsNonZeroWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	code := RunWithArgs([]string{"install", "--cwd", dir})
	assert.Equal(t, 1, code)
}

func TestInstallFrozenLockfileFlagFailsNonZeroWithoutLockfile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name": "example", "version": "1.0.0"}`), 0o644))

	code := RunWithArgs([]string{"install", "--frozen-lockfile", "--cwd", dir})
	assert.Equal(t, 1, code)
}

func buildTarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: "package/" + name,
			Mode: 0o644,
			Size: int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())
	return buf.Bytes()
}

func TestAddResolvesFetchesAndRewritesManifest(t *testing.T) {
	payload := buildTarball(t, map[string]string{"index.js": "module.exports = 1;"})
	expected := integrity.OfSHA512(payload)

	mux := http.NewServeMux()
	mux.HandleFunc("/is-odd", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"name": "is-odd",
			"dist-tags": {"latest": "1.0.0"},
			"versions": {
				"1.0.0": {
					"name": "is-odd",
					"version": "1.0.0",
					"dist": {"tarball": %q, "integrity": %q}
				}
			}
		}`, "http://"+r.Host+"/is-odd-1.0.0.tgz", expected.String())
	})
	mux.HandleFunc("/is-odd-1.0.0.tgz", func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name": "example", "version": "1.0.0"}`), 0o644))

	t.Setenv("PACQUET_REGISTRY", server.URL+"/")
	t.Setenv("PACQUET_STORE_DIR", filepath.Join(dir, "store"))
	t.Setenv("PACQUET_LOCKFILE", "false")

	code := RunWithArgs([]string{"add", "is-odd", "--cwd", dir})
	assert.Equal(t, 0, code)

	m, err := manifest.Load(filepath.Join(dir, "package.json"))
	require.NoError(t, err)
	assert.Equal(t, "^1.0.0", m.Dependencies["is-odd"])

	link := filepath.Join(dir, "node_modules", "is-odd")
	target, err := os.Readlink(link)
	require.NoError(t, err)
	content, err := os.ReadFile(filepath.Join(target, "index.js"))
	require.NoError(t, err)
	assert.Equal(t, "module.exports = 1;", string(content))

	raw, err := os.ReadFile(filepath.Join(dir, "package.json"))
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "example", decoded["name"])
}
