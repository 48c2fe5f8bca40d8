// Package npmrc loads `.npmrc` configuration: CWD-then-home file lookup,
// an env-var overlay, and the defaults this core needs (§4.15, §6
// Configuration).
//
// Grounded on the teacher's `internal/config/config.go`: "Precedence is
// flags > env > config > default", `ReadUserConfigFile` +
// `envconfig.Process("TURBO", partialConfig)` layered on top of a parsed
// file. This core's layering is identical, renamed to the `PACQUET_`
// env prefix and `.npmrc`'s INI grammar instead of turbo's JSON config.
package npmrc

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/kelseyhightower/envconfig"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// Config holds the `.npmrc` keys this core's behavior depends on (§6
// "for this core, only lockfile, prefer-frozen-lockfile, registry,
// store-dir, modules-dir, virtual-store-dir, package-import-method,
// auto-install-peers influence behavior").
type Config struct {
	Lockfile             bool   `ini:"lockfile" envconfig:"LOCKFILE"`
	PreferFrozenLockfile bool   `ini:"prefer-frozen-lockfile" envconfig:"PREFER_FROZEN_LOCKFILE"`
	Registry             string `ini:"registry" envconfig:"REGISTRY"`
	StoreDir             string `ini:"store-dir" envconfig:"STORE_DIR"`
	ModulesDir           string `ini:"modules-dir" envconfig:"MODULES_DIR"`
	VirtualStoreDir      string `ini:"virtual-store-dir" envconfig:"VIRTUAL_STORE_DIR"`
	PackageImportMethod  string `ini:"package-import-method" envconfig:"PACKAGE_IMPORT_METHOD"`
	AutoInstallPeers     bool   `ini:"auto-install-peers" envconfig:"AUTO_INSTALL_PEERS"`
}

// envPrefix is this core's environment-variable namespace, the
// `PACQUET_*` rendition of the teacher's `TURBO_*` overlay.
const envPrefix = "PACQUET"

// Default returns this core's built-in defaults, used when neither a file
// nor an environment variable sets a key (§6 "precedence flags > env >
// file > default"). The store directory defaults to an XDG data directory,
// matching pnpm's own convention of keeping its store out of the project
// tree.
func Default() Config {
	return Config{
		Lockfile:             true,
		PreferFrozenLockfile: true,
		Registry:             "https://registry.npmjs.org/",
		ModulesDir:           "node_modules",
		VirtualStoreDir:      filepath.Join("node_modules", ".pacquet"),
		PackageImportMethod:  "auto",
		AutoInstallPeers:     false,
		StoreDir:             filepath.Join(xdg.DataHome, "pacquet", "store"),
	}
}

// Load resolves a `.npmrc` by looking in cwd, then $HOME (§4.15 "first one
// found wins, teacher's lookup order"), parses it over Default(), then
// overlays `PACQUET_*` environment variables (§4.15 "config.ParseAndValidate"
// ordering).
func Load(cwd string) (Config, error) {
	cfg := Default()

	path, found, err := locate(cwd)
	if err != nil {
		return Config{}, err
	}
	if found {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "invalid PACQUET_* environment variable")
	}
	return cfg, nil
}

func locate(cwd string) (string, bool, error) {
	candidate := filepath.Join(cwd, ".npmrc")
	if _, err := os.Stat(candidate); err == nil {
		return candidate, true, nil
	} else if !os.IsNotExist(err) {
		return "", false, errors.Wrapf(err, "failed to stat %s", candidate)
	}

	home, err := homedir.Dir()
	if err != nil {
		return "", false, nil
	}
	candidate = filepath.Join(home, ".npmrc")
	if _, err := os.Stat(candidate); err == nil {
		return candidate, true, nil
	} else if !os.IsNotExist(err) {
		return "", false, errors.Wrapf(err, "failed to stat %s", candidate)
	}
	return "", false, nil
}

func applyFile(cfg *Config, path string) error {
	file, err := ini.Load(path)
	if err != nil {
		return errors.Wrapf(err, "failed to parse %s", path)
	}
	// .npmrc has no sections; every key lives in the default section.
	if err := file.Section("").MapTo(cfg); err != nil {
		return errors.Wrapf(err, "failed to decode %s", path)
	}
	return nil
}
