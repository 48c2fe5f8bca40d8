package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pacquet/pacquet/internal/cmdutil"
	"github.com/pacquet/pacquet/internal/driver"
	"github.com/pacquet/pacquet/internal/manifest"
)

// newInstallCmd implements `install` (§4.7): resolve, fetch/intern, import,
// and link every dependency declared in package.json.
func newInstallCmd(helper *cmdutil.Helper) *cobra.Command {
	var prodOnly bool
	var frozenLockfile bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the project's dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := helper.GetBase(cmd.Flags())
			if err != nil {
				return err
			}

			groups := []manifest.DependencyGroup{manifest.Prod, manifest.Dev, manifest.Optional}
			if prodOnly {
				groups = []manifest.DependencyGroup{manifest.Prod}
			}

			// `args.frozen_lockfile` (§4.4's mode table) defaults to the
			// `.npmrc` `prefer-frozen-lockfile` key when the caller doesn't
			// pass --frozen-lockfile explicitly (--frozen-lockfile=false
			// turns it off), and is otherwise whatever the flag says.
			frozen := base.Config.PreferFrozenLockfile
			if cmd.Flags().Changed("frozen-lockfile") {
				frozen = frozenLockfile
			}

			d := driver.New(base.Config, base.Logger, base.Cwd)
			defer d.Close()

			if err := d.Install(context.Background(), frozen, groups...); err != nil {
				return err
			}
			base.UI.Info("dependencies installed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&prodOnly, "prod", false, "install only dependencies, skipping devDependencies and optionalDependencies (no-lockfile mode only; a frozen-lockfile install links every lockfile dependency)")
	cmd.Flags().BoolVar(&frozenLockfile, "frozen-lockfile", false, "fail instead of falling back to no-lockfile mode when pnpm-lock.yaml is missing")
	return cmd
}
