package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacquet/pacquet/internal/httpclient"
	"github.com/pacquet/pacquet/internal/lockfile"
	"github.com/pacquet/pacquet/internal/registry"
)

const frozenLockfile = `
lockfileVersion: '6.0'

dependencies:
  is-even:
    specifier: ^1.0.0
    version: 1.0.0

packages:

  /is-even@1.0.0:
    resolution: {integrity: sha512-abc}
    dependencies:
      is-odd: 0.1.2
    dev: false

  /is-odd@0.1.2:
    resolution: {integrity: sha512-def}
    dev: false
`

func TestResolveFrozenSynthesizesTarballURL(t *testing.T) {
	lf, err := lockfile.Decode([]byte(frozenLockfile))
	require.NoError(t, err)

	resolved, err := ResolveFrozen(lf, "https://registry.npmjs.org/")
	require.NoError(t, err)
	assert.Len(t, resolved, 2)

	byName := map[string]Resolved{}
	for _, r := range resolved {
		byName[r.Name.String()] = r
	}
	assert.Equal(t, "https://registry.npmjs.org/is-even/-/is-even-1.0.0.tgz", byName["is-even"].TarballURL)
	assert.Equal(t, "0.1.2", byName["is-even"].Dependencies["is-odd"])
	assert.Equal(t, "is-odd@0.1.2", byName["is-even"].DependencyVNames["is-odd"])
}

func TestResolveFrozenRejectsMissingIntegrity(t *testing.T) {
	content := `
lockfileVersion: '6.0'
packages:
  /foo@1.0.0:
    resolution: {}
`
	lf, err := lockfile.Decode([]byte(content))
	require.NoError(t, err)

	_, err = ResolveFrozen(lf, "https://registry.npmjs.org/")
	assert.Error(t, err)
}

func TestResolveFrozenRejectsDirectoryResolution(t *testing.T) {
	content := `
lockfileVersion: '6.0'
packages:
  /foo@1.0.0:
    resolution: {directory: ../foo}
`
	lf, err := lockfile.Decode([]byte(content))
	require.NoError(t, err)

	_, err = ResolveFrozen(lf, "https://registry.npmjs.org/")
	assert.Error(t, err)
}

const noLockfilePackument = `{
  "name": "is-even",
  "dist-tags": {"latest": "1.0.0"},
  "versions": {
    "1.0.0": {
      "name": "is-even",
      "version": "1.0.0",
      "dist": {"tarball": "http://example/is-even-1.0.0.tgz", "integrity": "sha512-abcd"},
      "dependencies": {}
    }
  }
}`

func TestResolveNoLockfileDedupesByVName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(noLockfilePackument))
	}))
	defer server.Close()

	client := registry.New(httpclient.New(hclog.NewNullLogger(), httpclient.DefaultOpts()), server.URL+"/")

	roots := map[string]string{"is-even": "^1.0.0"}
	resolved, rootVNames, err := ResolveNoLockfile(context.Background(), client, roots, false)
	require.NoError(t, err)
	assert.Len(t, resolved, 1)
	assert.Equal(t, "is-even@1.0.0", resolved[0].VName)
	assert.Equal(t, "is-even@1.0.0", rootVNames["is-even"])
}
