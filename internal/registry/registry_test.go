package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacquet/pacquet/internal/httpclient"
	"github.com/pacquet/pacquet/internal/pkgname"
)

const packument = `{
  "name": "is-even",
  "dist-tags": {"latest": "1.0.0"},
  "versions": {
    "0.9.0": {"name": "is-even", "version": "0.9.0", "dist": {"tarball": "http://example/0.9.0.tgz"}},
    "1.0.0": {"name": "is-even", "version": "1.0.0", "dist": {"tarball": "http://example/1.0.0.tgz"}}
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	http := httpclient.New(hclog.NewNullLogger(), httpclient.DefaultOpts())
	return New(http, server.URL+"/"), server.Close
}

func TestFetchPackageCachesAfterFirstCall(t *testing.T) {
	calls := 0
	client, closeServer := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "pacquet-cli", r.Header.Get("user-agent"))
		w.Write([]byte(packument))
	})
	defer closeServer()

	p1, err := client.FetchPackage(context.Background(), "is-even")
	require.NoError(t, err)
	assert.Equal(t, "is-even", p1.Name)

	_, err = client.FetchPackage(context.Background(), "is-even")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPackumentPinnedPicksGreatestSatisfying(t *testing.T) {
	client, closeServer := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(packument))
	})
	defer closeServer()

	p, err := client.FetchPackage(context.Background(), "is-even")
	require.NoError(t, err)

	rng, err := pkgname.ParseRange("^0.9.0")
	require.NoError(t, err)
	pv, err := p.Pinned(rng)
	require.NoError(t, err)
	assert.Equal(t, "0.9.0", pv.Version)
}

func TestPackumentPinnedFailsWhenNoneSatisfy(t *testing.T) {
	client, closeServer := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(packument))
	})
	defer closeServer()

	p, err := client.FetchPackage(context.Background(), "is-even")
	require.NoError(t, err)

	rng, err := pkgname.ParseRange("^99.0.0")
	require.NoError(t, err)
	_, err = p.Pinned(rng)
	assert.Error(t, err)
}

func TestPackumentLatestMissingTag(t *testing.T) {
	p := Packument{Name: "foo", DistTags: map[string]string{}}
	_, err := p.Latest()
	assert.Error(t, err)
}

func TestStoreNameForScopedPackage(t *testing.T) {
	pv := PackageVersion{Name: "@types/react", Version: "17.0.49"}
	name, err := pv.StoreName()
	require.NoError(t, err)
	assert.Equal(t, "@types+react@17.0.49", name)
}
