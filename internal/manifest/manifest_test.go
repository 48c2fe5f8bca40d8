package manifest

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `{
  "name": "example",
  "version": "1.0.0",
  "dependencies": {"is-even": "^1.0.0"},
  "devDependencies": {"tap": "^16.0.0"},
  "engines": {"node": ">=18"},
  "customField": "keep-me"
}`

func TestDecodePreservesUnknownFields(t *testing.T) {
	m, err := Decode([]byte(sampleManifest))
	require.NoError(t, err)
	assert.Equal(t, "example", m.Name)
	assert.Equal(t, "^1.0.0", m.Dependencies["is-even"])

	encoded, err := m.Encode()
	require.NoError(t, err)

	var roundTripped map[string]interface{}
	require.NoError(t, json.Unmarshal(encoded, &roundTripped))
	assert.Equal(t, "keep-me", roundTripped["customField"])
	assert.NotNil(t, roundTripped["engines"])
}

func TestDependenciesProjectsAcrossGroups(t *testing.T) {
	m, err := Decode([]byte(sampleManifest))
	require.NoError(t, err)

	prodOnly := m.DependenciesIn(Prod)
	assert.Equal(t, map[string]string{"is-even": "^1.0.0"}, prodOnly)

	both := m.DependenciesIn(Prod, Dev)
	assert.Equal(t, "^1.0.0", both["is-even"])
	assert.Equal(t, "^16.0.0", both["tap"])
}

func TestEncodePreservesTopLevelKeyOrder(t *testing.T) {
	m, err := Decode([]byte(sampleManifest))
	require.NoError(t, err)

	encoded, err := m.Encode()
	require.NoError(t, err)

	wantOrder := []string{"name", "version", "dependencies", "devDependencies", "engines", "customField"}
	lastIdx := -1
	for _, key := range wantOrder {
		idx := strings.Index(string(encoded), `"`+key+`"`)
		require.Greater(t, idx, lastIdx, "key %q out of order", key)
		lastIdx = idx
	}
}

func TestEncodeAppendsNewKeysAfterOriginalOrder(t *testing.T) {
	m, err := Decode([]byte(`{"version": "1.0.0", "name": "example"}`))
	require.NoError(t, err)

	m.AddDependency("is-odd", "^1.0.0", Prod)
	encoded, err := m.Encode()
	require.NoError(t, err)

	nameIdx := strings.Index(string(encoded), `"name"`)
	versionIdx := strings.Index(string(encoded), `"version"`)
	depsIdx := strings.Index(string(encoded), `"dependencies"`)
	require.True(t, versionIdx < nameIdx, "version should stay before name, matching the source order")
	require.True(t, nameIdx < depsIdx, "new dependencies key should be appended after the original keys")
}

func TestAddDependencyCreatesGroupIfAbsent(t *testing.T) {
	m, err := Decode([]byte(`{"name": "example"}`))
	require.NoError(t, err)

	m.AddDependency("fast-querystring", "^1.0.0", Optional)
	assert.Equal(t, "^1.0.0", m.OptionalDependencies["fast-querystring"])

	encoded, err := m.Encode()
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	optDeps := decoded["optionalDependencies"].(map[string]interface{})
	assert.Equal(t, "^1.0.0", optDeps["fast-querystring"])
}
