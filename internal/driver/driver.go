// Package driver implements the Install Driver (§4.7): the top-level
// orchestrator wiring npmrc, the manifest, the lockfile, the resolver, the
// tarball fetcher, the importer, and the Symlink Planner into the single
// `install` operation, choosing frozen-lockfile vs. no-lockfile mode by
// configuration exactly as the original `install_frozen_lockfile.rs` /
// `install_without_lockfile.rs` split does.
//
// Grounded on `original_source/crates/package_manager/src/install.rs` (the
// top-level `install` entrypoint picking dependency groups) and
// `install_frozen_lockfile.rs` ("Iterate over each package... Fetch a
// tarball... Extract... Import... Create dependency symbolic links...
// Create a symbolic link at each node_modules/{name}" — exactly the state
// machine's Fetching/Interning, Importing, and Linking phases), rendered in
// the teacher's `cmdutil.Helper` idiom: one root `hclog.Logger`, constructed
// once; the driver logs its own phase transitions with it and hands a
// `http`-named sub-logger to the HTTP client.
package driver

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pacquet/pacquet/internal/httpclient"
	"github.com/pacquet/pacquet/internal/importer"
	"github.com/pacquet/pacquet/internal/ioqueue"
	"github.com/pacquet/pacquet/internal/lockfile"
	"github.com/pacquet/pacquet/internal/manifest"
	"github.com/pacquet/pacquet/internal/npmrc"
	"github.com/pacquet/pacquet/internal/registry"
	"github.com/pacquet/pacquet/internal/resolver"
	"github.com/pacquet/pacquet/internal/storedir"
	"github.com/pacquet/pacquet/internal/symlink"
	"github.com/pacquet/pacquet/internal/tarball"
)

// State is one node of the Install Driver's state machine (§4.7).
type State int

const (
	Idle State = iota
	Loading
	Resolving
	FetchingInterning
	Importing
	Linking
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Resolving:
		return "resolving"
	case FetchingInterning:
		return "fetching/interning"
	case Importing:
		return "importing"
	case Linking:
		return "linking"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Driver holds every collaborator the Install Driver wires together, built
// once per process from loaded configuration.
type Driver struct {
	logger      hclog.Logger
	config      npmrc.Config
	projectRoot string

	store    storedir.StoreDir
	registry *registry.Client
	tarballs *tarball.Fetcher
	ioQueue  *ioqueue.Queue

	mu    sync.Mutex
	state State
}

// New constructs a Driver from loaded `.npmrc` configuration and a root
// logger, building the throttled HTTP client, registry client, StoreDir,
// tarball fetcher, and IO task queue it needs (§4.14: the root logger comes
// from the CLI entrypoint; only the HTTP client gets a named sub-logger).
func New(cfg npmrc.Config, logger hclog.Logger, projectRoot string) *Driver {
	store := storedir.New(cfg.StoreDir)
	client := httpclient.New(logger.Named("http"), httpclient.DefaultOpts())
	return &Driver{
		logger:      logger,
		config:      cfg,
		projectRoot: projectRoot,
		store:       store,
		registry:    registry.New(client, cfg.Registry),
		tarballs:    tarball.NewFetcher(client, store),
		ioQueue:     ioqueue.New(),
		state:       Idle,
	}
}

// Registry returns the driver's registry client, so `add` can resolve a
// package name before the install subroutine runs (§4.13).
func (d *Driver) Registry() *registry.Client {
	return d.registry
}

// State returns the driver's current state machine node.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Driver) transition(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
	d.logger.Debug("state transition", "state", s.String())
}

// Close shuts down the driver's background IO worker. Callers must call
// this once no further installs will run.
func (d *Driver) Close() {
	d.ioQueue.Shutdown()
}

// Install runs the full install subroutine for the project at d.projectRoot
// across the given dependency groups (§4.7). frozen is `args.frozen_lockfile`
// from §4.4's mode table — a CLI-level request for frozen-lockfile mode,
// independent of the `.npmrc` `lockfile` key carried on d.config. Any fatal
// error transitions the driver to Failed and is returned as-is; there is no
// retry at this level (retries live only inside the HTTP layer, per §4.7 and
// §5).
func (d *Driver) Install(ctx context.Context, frozen bool, groups ...manifest.DependencyGroup) error {
	d.transition(Loading)
	m, lf, err := d.load(frozen)
	if err != nil {
		d.transition(Failed)
		return errors.Wrap(err, "failed to load project")
	}

	d.transition(Resolving)
	resolved, rootVNames, err := d.resolve(ctx, m, lf, frozen, groups)
	if err != nil {
		d.transition(Failed)
		return errors.Wrap(err, "failed to resolve dependency graph")
	}
	d.logger.Info("resolved dependency graph", "packages", len(resolved))

	d.transition(FetchingInterning)
	casPathsByVName, err := d.fetchAndIntern(ctx, resolved)
	if err != nil {
		d.transition(Failed)
		return errors.Wrap(err, "failed to fetch and intern tarballs")
	}

	vstoreRoot := filepath.Join(d.projectRoot, d.config.VirtualStoreDir)
	d.transition(Importing)
	if err := d.importAll(vstoreRoot, resolved, casPathsByVName); err != nil {
		d.transition(Failed)
		return errors.Wrap(err, "failed to import packages into the virtual store")
	}

	d.transition(Linking)
	if err := d.link(vstoreRoot, resolved, rootVNames); err != nil {
		d.transition(Failed)
		return errors.Wrap(err, "failed to create symlinks")
	}

	d.transition(Done)
	return nil
}

// load reads package.json and, if configured and present, pnpm-lock.yaml
// (§4.7 "Loading (manifest, lockfile, config)"). Per §4.4's mode table, a
// frozen request against a `lockfile`-enabled config with no pnpm-lock.yaml
// on disk is a fatal error rather than a silent fall-through to no-lockfile
// mode.
func (d *Driver) load(frozen bool) (*manifest.Manifest, *lockfile.Lockfile, error) {
	m, err := manifest.Load(filepath.Join(d.projectRoot, "package.json"))
	if err != nil {
		return nil, nil, err
	}

	if !d.config.Lockfile {
		return m, nil, nil
	}

	lockfilePath := filepath.Join(d.projectRoot, "pnpm-lock.yaml")
	content, found, err := readOptional(lockfilePath)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		if frozen {
			return nil, nil, errors.Errorf("frozen-lockfile install requested but %s does not exist", lockfilePath)
		}
		return m, nil, nil
	}

	lf, err := lockfile.Decode(content)
	if err != nil {
		return nil, nil, err
	}
	return m, lf, nil
}

// resolve picks frozen-lockfile or no-lockfile mode per §4.4's mode table:
// frozen-lockfile when a lockfile was loaded and the caller requested
// `args.frozen_lockfile`, no-lockfile otherwise (the table's fourth row,
// `lockfile conf=true, frozen=false`, is reserved/out of scope and falls
// through to no-lockfile mode here same as the `config.lockfile=false` row).
func (d *Driver) resolve(ctx context.Context, m *manifest.Manifest, lf *lockfile.Lockfile, frozen bool, groups []manifest.DependencyGroup) ([]resolver.Resolved, map[string]string, error) {
	if lf != nil && frozen {
		resolved, err := resolver.ResolveFrozen(lf, d.config.Registry)
		if err != nil {
			return nil, nil, err
		}
		rootVNames, err := resolver.RootVNamesFromLockfile(lf)
		if err != nil {
			return nil, nil, err
		}
		return resolved, rootVNames, nil
	}

	roots := m.DependenciesIn(groups...)
	return resolver.ResolveNoLockfile(ctx, d.registry, roots, d.config.AutoInstallPeers)
}

// fetchAndIntern fans out one tarball fetch per resolved package (§4.7
// "Fetching/Interning (fan-out)"); within a single package the fetch ->
// verify -> extract -> intern sequence inside tarball.Fetcher stays strictly
// ordered, per §5.
func (d *Driver) fetchAndIntern(ctx context.Context, resolved []resolver.Resolved) (map[string]tarball.CasPaths, error) {
	var mu sync.Mutex
	casPathsByVName := make(map[string]tarball.CasPaths, len(resolved))

	group, ctx := errgroup.WithContext(ctx)
	for _, pkg := range resolved {
		pkg := pkg
		group.Go(func() error {
			casPaths, err := d.tarballs.DownloadToStore(ctx, pkg.Integrity, pkg.TarballURL)
			if err != nil {
				return errors.Wrapf(err, "failed to fetch %s", pkg.VName)
			}
			mu.Lock()
			casPathsByVName[pkg.VName] = casPaths
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return casPathsByVName, nil
}

// importAll fans out one CreateCasFiles call per resolved package (§4.7
// "Importing (fan-out)"), materializing each package's canonical directory
// at VSTORE/<vname>/node_modules/<name> (§4.6).
func (d *Driver) importAll(vstoreRoot string, resolved []resolver.Resolved, casPathsByVName map[string]tarball.CasPaths) error {
	group := &errgroup.Group{}
	for _, pkg := range resolved {
		pkg := pkg
		group.Go(func() error {
			casPaths := casPathsByVName[pkg.VName]
			dir := filepath.Join(vstoreRoot, pkg.VName, "node_modules", pkg.Name.String())
			return importer.CreateCasFiles(d.ioQueue, dir, casPaths)
		})
	}
	return group.Wait()
}

// readOptional reads path, reporting (nil, false, nil) rather than an error
// when the file simply does not exist — the pnpm-lock.yaml-is-absent case
// §4.7 treats as "no lockfile, fall back to no-lockfile mode" rather than a
// load failure.
func readOptional(path string) ([]byte, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "failed to read %s", path)
	}
	return content, true, nil
}

// link runs the Symlink Planner's two phases (§4.7 "Linking (fan-out)",
// §4.6).
func (d *Driver) link(vstoreRoot string, resolved []resolver.Resolved, rootVNames map[string]string) error {
	if err := symlink.PlanPackages(vstoreRoot, resolved); err != nil {
		return err
	}
	projectModulesDir := filepath.Join(d.projectRoot, d.config.ModulesDir)
	return symlink.PlanProjectRoot(projectModulesDir, vstoreRoot, rootVNames)
}
