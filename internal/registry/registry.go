// Package registry implements the npm-style registry client: packument
// fetch, version pinning, and a process-lifetime in-memory packument cache
// (§4.3).
//
// Grounded on original_source/crates/registry (`lib.rs`'s RegistryManager,
// `package.rs`'s `get_suitable_version_of`, `package_version.rs`'s
// `get_store_name`/`serialize`) translated into the teacher's HTTP idiom
// (`internal/client/client.go`'s header-setting GET pattern) riding on the
// throttled client built in `internal/httpclient`.
package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/pacquet/pacquet/internal/httpclient"
	"github.com/pacquet/pacquet/internal/pkgname"
)

// Distribution is the `dist` object of a package version document: tarball
// location and its integrity.
type Distribution struct {
	Integrity    string `json:"integrity"`
	Shasum       string `json:"shasum"`
	Tarball      string `json:"tarball"`
	FileCount    *int   `json:"fileCount,omitempty"`
	UnpackedSize *int   `json:"unpackedSize,omitempty"`
}

// PackageVersion is a single entry of a packument's `versions` map.
type PackageVersion struct {
	Name                string            `json:"name"`
	Version             string            `json:"version"`
	Dist                Distribution      `json:"dist"`
	Dependencies        map[string]string `json:"dependencies,omitempty"`
	DevDependencies     map[string]string `json:"devDependencies,omitempty"`
	PeerDependencies    map[string]string `json:"peerDependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty"`
}

// StoreName computes the virtual-store name for this version, matching
// `pkgname.VirtualStoreName` (the original's `get_store_name`:
// `{name.replace('/','+')}@{version}`, expressed through the shared
// name/version types instead of a raw string replace).
func (v PackageVersion) StoreName() (string, error) {
	name, err := pkgname.ParseName(v.Name)
	if err != nil {
		return "", err
	}
	parsed, err := pkgname.ParseVersion(v.Version)
	if err != nil {
		return "", err
	}
	return pkgname.VirtualStoreName(name, pkgname.VerPeer{Version: parsed}), nil
}

// DependenciesWithPeers returns this version's own dependencies, optionally
// merged with its peer dependencies (§4.3, original `get_dependencies`).
func (v PackageVersion) DependenciesWithPeers(withPeers bool) map[string]string {
	merged := make(map[string]string, len(v.Dependencies)+len(v.PeerDependencies))
	for name, vr := range v.Dependencies {
		merged[name] = vr
	}
	if withPeers {
		for name, vr := range v.PeerDependencies {
			merged[name] = vr
		}
	}
	return merged
}

// Packument is the full registry document for a package name: the
// `versions` map plus dist-tags such as `latest`.
type Packument struct {
	Name     string                    `json:"name"`
	DistTags map[string]string         `json:"dist-tags"`
	Versions map[string]PackageVersion `json:"versions"`
}

// Pinned filters versions satisfying rng and returns the greatest, matching
// `get_suitable_version_of`/§4.3 "Pinning": filter, order by semver, return
// the greatest; fail if none satisfy.
func (p Packument) Pinned(rng pkgname.Range) (PackageVersion, error) {
	var candidates []pkgname.Version
	byVersion := make(map[string]PackageVersion, len(p.Versions))

	for raw, pv := range p.Versions {
		parsed, err := pkgname.ParseVersion(raw)
		if err != nil {
			continue
		}
		if rng.Satisfies(parsed) {
			candidates = append(candidates, parsed)
			byVersion[parsed.String()] = pv
		}
	}
	if len(candidates) == 0 {
		return PackageVersion{}, errors.Errorf("no version of %s satisfies range", p.Name)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].LessThan(candidates[j]) })
	best := candidates[len(candidates)-1]
	return byVersion[best.String()], nil
}

// Latest returns the version tagged "latest", failing per §4.3's
// MissingLatestTag if absent.
func (p Packument) Latest() (PackageVersion, error) {
	tag, ok := p.DistTags["latest"]
	if !ok {
		return PackageVersion{}, errors.Errorf("missing latest tag on %s", p.Name)
	}
	pv, ok := p.Versions[tag]
	if !ok {
		return PackageVersion{}, errors.Errorf("missing version %s on package %s", tag, p.Name)
	}
	return pv, nil
}

const (
	userAgent   = "pacquet-cli"
	contentType = "application/json"
)

// Client is the registry HTTP client: a throttled GET plus a process-
// lifetime, append-only packument cache keyed by package name (§4.3
// "In-memory cache").
type Client struct {
	http     *httpclient.Client
	registry string

	mu    sync.RWMutex
	cache map[string]Packument
}

// New constructs a Client against the given registry base URL (e.g.
// "https://registry.npmjs.org/").
func New(http *httpclient.Client, registryURL string) *Client {
	return &Client{
		http:     http,
		registry: registryURL,
		cache:    make(map[string]Packument),
	}
}

// FetchPackage implements `fetch_package(name)` (§4.3): GETs
// `{registry}/{name}` and memoizes the result for the process lifetime.
func (c *Client) FetchPackage(ctx context.Context, name string) (Packument, error) {
	c.mu.RLock()
	if cached, ok := c.cache[name]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	var packument Packument
	if err := c.getJSON(ctx, c.registry+name, &packument); err != nil {
		return Packument{}, err
	}

	c.mu.Lock()
	c.cache[name] = packument
	c.mu.Unlock()
	return packument, nil
}

// FetchVersion implements `fetch_version(name, tag)` (§4.3): GETs
// `{registry}/{name}/{tag}` for a singular version document, where tag is
// either "latest" or a pinned version string.
func (c *Client) FetchVersion(ctx context.Context, name, tag string) (PackageVersion, error) {
	var pv PackageVersion
	if err := c.getJSON(ctx, c.registry+name+"/"+tag, &pv); err != nil {
		return PackageVersion{}, err
	}
	return pv, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	resp, err := c.http.GetWithHeaders(ctx, url, map[string]string{
		"user-agent":   userAgent,
		"content-type": contentType,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("registry returned status %s for %s", resp.Status, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "failed to read registry response body for %s", url)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "failed to decode registry response for %s", url)
	}
	return nil
}
