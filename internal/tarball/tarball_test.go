package tarball

import (
	"archive/tar"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacquet/pacquet/internal/httpclient"
	"github.com/pacquet/pacquet/internal/integrity"
	"github.com/pacquet/pacquet/internal/storedir"
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

func TestDownloadToStoreExtractsAndInterns(t *testing.T) {
	payload := buildTarball(t, map[string]string{
		"index.js":    "module.exports = 1;",
		"lib/util.js": "exports.noop = () => {};",
	})
	expected := integrity.OfSHA512(payload)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	store := storedir.New(t.TempDir())
	client := httpclient.New(hclog.NewNullLogger(), httpclient.DefaultOpts())
	fetcher := NewFetcher(client, store)

	casPaths, err := fetcher.DownloadToStore(context.Background(), expected, server.URL)
	require.NoError(t, err)
	assert.Contains(t, casPaths, "index.js")
	assert.Contains(t, casPaths, "lib/util.js")
}

func TestDownloadToStoreRejectsIntegrityMismatch(t *testing.T) {
	payload := buildTarball(t, map[string]string{"index.js": "x"})
	wrong := integrity.OfSHA512([]byte("not the payload"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	store := storedir.New(t.TempDir())
	client := httpclient.New(hclog.NewNullLogger(), httpclient.DefaultOpts())
	fetcher := NewFetcher(client, store)

	_, err := fetcher.DownloadToStore(context.Background(), wrong, server.URL)
	assert.Error(t, err)
}

func TestDownloadToStoreSkipsNetworkWhenIndexed(t *testing.T) {
	payload := buildTarball(t, map[string]string{"index.js": "module.exports = 1;"})
	expected := integrity.OfSHA512(payload)

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write(payload)
	}))
	defer server.Close()

	store := storedir.New(t.TempDir())
	client := httpclient.New(hclog.NewNullLogger(), httpclient.DefaultOpts())

	first := NewFetcher(client, store)
	_, err := first.DownloadToStore(context.Background(), expected, server.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	second := NewFetcher(client, store)
	_, err = second.DownloadToStore(context.Background(), expected, server.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second fetcher should reuse the on-disk index instead of hitting the network")
}
