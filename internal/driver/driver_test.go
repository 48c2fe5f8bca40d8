package driver

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacquet/pacquet/internal/integrity"
	"github.com/pacquet/pacquet/internal/manifest"
	"github.com/pacquet/pacquet/internal/npmrc"
)

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

func TestInstallNoLockfileMaterializesProjectTree(t *testing.T) {
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

	projectDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "package.json"), []byte(`{
		"name": "example",
		"version": "1.0.0",
		"dependencies": {"is-odd": "^1.0.0"}
	}`), 0o644))

	cfg := npmrc.Default()
	cfg.Registry = server.URL + "/"
	cfg.StoreDir = filepath.Join(projectDir, "store")
	cfg.Lockfile = false

	d := New(cfg, hclog.NewNullLogger(), projectDir)
	defer d.Close()

	require.NoError(t, d.Install(context.Background(), false, manifest.Prod))
	assert.Equal(t, Done, d.State())

	link := filepath.Join(projectDir, "node_modules", "is-odd")
	target, err := os.Readlink(link)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(target, "index.js"))
	require.NoError(t, err)
	assert.Equal(t, "module.exports = 1;", string(content))
}

func TestInstallFailsFastOnMissingManifest(t *testing.T) {
	projectDir := t.TempDir()
	cfg := npmrc.Default()
	cfg.StoreDir = filepath.Join(projectDir, "store")

	d := New(cfg, hclog.NewNullLogger(), projectDir)
	defer d.Close()

	err := d.Install(context.Background(), false, manifest.Prod)
	assert.Error(t, err)
	assert.Equal(t, Failed, d.State())
}

func TestInstallFrozenLockfileFailsWhenLockfileMissing(t *testing.T) {
	projectDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "package.json"), []byte(`{
		"name": "example",
		"version": "1.0.0"
	}`), 0o644))

	cfg := npmrc.Default()
	cfg.StoreDir = filepath.Join(projectDir, "store")

	d := New(cfg, hclog.NewNullLogger(), projectDir)
	defer d.Close()

	err := d.Install(context.Background(), true, manifest.Prod)
	assert.Error(t, err)
	assert.Equal(t, Failed, d.State())
}
