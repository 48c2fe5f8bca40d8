// Package manifest implements the reader/writer for a project's
// `package.json` (§4.9, §4.10): round-tripping unknown fields unchanged,
// preserving top-level key order, and projecting across the four
// dependency-group maps for the resolver and for `add`.
//
// Grounded on the teacher's `internal/fs/package_json.go`: a typed
// `PackageJSON` struct for the fields this core cares about, plus a
// `RawJSON map[string]interface{}` that rides alongside it so unknown
// fields survive a load/save round-trip — the same double-decode,
// merge-on-marshal trick (`UnmarshalPackageJSON`/`MarshalPackageJSON`).
package manifest

import (
	"bytes"
	"encoding/json"
	"os"
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// DependencyGroup is one of the four dependency-list kinds a manifest can
// place a package under (§4.4 "Dependency-group selection").
type DependencyGroup int

const (
	Prod DependencyGroup = iota
	Dev
	Optional
	Peer
)

func (g DependencyGroup) jsonKey() string {
	switch g {
	case Dev:
		return "devDependencies"
	case Optional:
		return "optionalDependencies"
	case Peer:
		return "peerDependencies"
	default:
		return "dependencies"
	}
}

// Manifest is a loaded `package.json`: the fields this core reads/writes,
// plus the raw decoded document so unrecognized fields round-trip
// unchanged (§4.9 "round-tripping other fields unchanged").
type Manifest struct {
	Name                 string            `json:"name,omitempty"`
	Version              string            `json:"version,omitempty"`
	Dependencies         map[string]string `json:"dependencies,omitempty"`
	DevDependencies      map[string]string `json:"devDependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty"`
	PeerDependencies     map[string]string `json:"peerDependencies,omitempty"`

	raw map[string]interface{}
	// keyOrder is the order top-level keys appeared in on disk, captured by
	// Decode. Encode replays it so save() doesn't reorder a hand-edited
	// package.json into encoding/json's sorted-key default (§4.9
	// "preserving top-level key order").
	keyOrder []string
}

// Load reads and parses a package.json file at path.
func Load(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read manifest at %s", path)
	}
	return Decode(content)
}

// Decode parses package.json content, keeping the original document around
// for round-tripping.
func Decode(content []byte) (*Manifest, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse manifest JSON")
	}

	m := &Manifest{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: m})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build manifest decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse manifest fields")
	}
	m.raw = raw

	order, err := topLevelKeyOrder(content)
	if err != nil {
		return nil, errors.Wrap(err, "failed to determine manifest key order")
	}
	m.keyOrder = order
	return m, nil
}

// topLevelKeyOrder walks content's top-level JSON object with a token
// scanner (rather than a map, which `encoding/json` would hand back with no
// order of its own) and returns its keys in on-disk order.
func topLevelKeyOrder(content []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, errors.New("manifest root is not a JSON object")
	}

	var order []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errors.New("manifest object key is not a string")
		}
		order = append(order, key)

		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// DependenciesIn projects the manifest's dependency maps across the given
// groups into a single merged map, the form the resolver consumes for
// no-lockfile installs (§4.10). Later groups in the argument
// list win on name collision, matching the teacher's last-write-wins
// map-merge idiom used throughout `internal/fs`.
func (m *Manifest) DependenciesIn(groups ...DependencyGroup) map[string]string {
	merged := map[string]string{}
	for _, group := range groups {
		var source map[string]string
		switch group {
		case Dev:
			source = m.DevDependencies
		case Optional:
			source = m.OptionalDependencies
		case Peer:
			source = m.PeerDependencies
		default:
			source = m.Dependencies
		}
		for name, rangeExpr := range source {
			merged[name] = rangeExpr
		}
	}
	return merged
}

// AddDependency inserts name/versionRange into the given group's object,
// creating the object if absent (§4.9 "add_dependency").
func (m *Manifest) AddDependency(name, versionRange string, group DependencyGroup) {
	target := m.groupMap(group)
	target[name] = versionRange
	m.setGroupMap(group, target)
}

func (m *Manifest) groupMap(group DependencyGroup) map[string]string {
	switch group {
	case Dev:
		if m.DevDependencies == nil {
			m.DevDependencies = map[string]string{}
		}
		return m.DevDependencies
	case Optional:
		if m.OptionalDependencies == nil {
			m.OptionalDependencies = map[string]string{}
		}
		return m.OptionalDependencies
	case Peer:
		if m.PeerDependencies == nil {
			m.PeerDependencies = map[string]string{}
		}
		return m.PeerDependencies
	default:
		if m.Dependencies == nil {
			m.Dependencies = map[string]string{}
		}
		return m.Dependencies
	}
}

func (m *Manifest) setGroupMap(group DependencyGroup, value map[string]string) {
	switch group {
	case Dev:
		m.DevDependencies = value
	case Optional:
		m.OptionalDependencies = value
	case Peer:
		m.PeerDependencies = value
	default:
		m.Dependencies = value
	}
}

// Encode serializes the manifest back to pretty-printed JSON, merging the
// typed fields over the raw document so unknown top-level keys survive
// unchanged (§4.9 "save() rewrites the file with pretty indentation"),
// following the teacher's MarshalPackageJSON merge-then-encode approach.
// Keys are written in m.keyOrder, not `encoding/json`'s sorted default —
// new keys (added since Decode, e.g. a group `AddDependency` just created)
// are appended afterward in sorted order for a deterministic, if arbitrary,
// placement.
func (m *Manifest) Encode() ([]byte, error) {
	structured, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal manifest fields")
	}
	var structuredFields map[string]interface{}
	if err := json.Unmarshal(structured, &structuredFields); err != nil {
		return nil, errors.Wrap(err, "failed to re-decode marshaled manifest fields")
	}

	merged := make(map[string]interface{}, len(m.raw))
	for key, value := range m.raw {
		merged[key] = value
	}
	for key, value := range structuredFields {
		merged[key] = value
	}

	order := m.orderedKeys(merged)
	if len(order) == 0 {
		return []byte("{}\n"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, key := range order {
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal manifest key")
		}
		valueJSON, err := json.MarshalIndent(merged[key], "  ", "  ")
		if err != nil {
			return nil, errors.Wrapf(err, "failed to marshal manifest value for %q", key)
		}
		buf.WriteString("  ")
		buf.Write(keyJSON)
		buf.WriteString(": ")
		buf.Write(valueJSON)
		if i < len(order)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// orderedKeys returns merged's keys in m.keyOrder, with any key not present
// in m.keyOrder (new since Decode) appended afterward in sorted order.
func (m *Manifest) orderedKeys(merged map[string]interface{}) []string {
	order := make([]string, 0, len(merged))
	seen := make(map[string]bool, len(merged))
	for _, key := range m.keyOrder {
		if _, ok := merged[key]; !ok || seen[key] {
			continue
		}
		order = append(order, key)
		seen[key] = true
	}

	added := make([]string, 0, len(merged)-len(order))
	for key := range merged {
		if !seen[key] {
			added = append(added, key)
		}
	}
	sort.Strings(added)
	return append(order, added...)
}

// Save re-encodes the manifest and writes it back to path.
func (m *Manifest) Save(path string) error {
	content, err := m.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write manifest to %s", path)
	}
	return nil
}
