package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pacquet/pacquet/internal/cmdutil"
	"github.com/pacquet/pacquet/internal/driver"
	"github.com/pacquet/pacquet/internal/manifest"
	"github.com/pacquet/pacquet/internal/pkgname"
	"github.com/pacquet/pacquet/internal/registry"
)

// newAddCmd implements the `add` driver (§4.13): resolve the named package
// against the registry, write it into package.json, then run the regular
// install subroutine so it (and its transitive closure) land on disk.
func newAddCmd(helper *cmdutil.Helper) *cobra.Command {
	var saveDev, saveOptional, saveExact bool

	cmd := &cobra.Command{
		Use:   "add <name>[@<range>]",
		Short: "Add a dependency to the project manifest and install it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := helper.GetBase(cmd.Flags())
			if err != nil {
				return err
			}

			group := manifest.Prod
			switch {
			case saveDev:
				group = manifest.Dev
			case saveOptional:
				group = manifest.Optional
			}

			manifestPath := filepath.Join(base.Cwd, "package.json")
			m, err := manifest.Load(manifestPath)
			if err != nil {
				return err
			}

			d := driver.New(base.Config, base.Logger, base.Cwd)
			defer d.Close()

			ctx := context.Background()
			name, rangeExpr, err := resolveAddRange(ctx, d.Registry(), args[0], saveExact)
			if err != nil {
				return err
			}

			m.AddDependency(name, rangeExpr, group)
			if err := m.Save(manifestPath); err != nil {
				return err
			}

			if err := d.Install(ctx, false, manifest.Prod, manifest.Dev, manifest.Optional); err != nil {
				return err
			}
			base.UI.Info(fmt.Sprintf("added %s@%s", name, rangeExpr))
			return nil
		},
	}
	cmd.Flags().BoolVar(&saveDev, "save-dev", false, "save to devDependencies")
	cmd.Flags().BoolVar(&saveOptional, "save-optional", false, "save to optionalDependencies")
	cmd.Flags().BoolVar(&saveExact, "save-exact", false, "pin the exact resolved version instead of a caret range")
	return cmd
}

// resolveAddRange determines the declared version range to write into
// package.json: the user-supplied range verbatim, or — when omitted — a
// caret range over the version the registry currently resolves. Under
// --save-exact the result is always a pin: of the greatest version matching
// the supplied range, or of the latest version when no range is given
// (§4.13 "serialize(range, saveExact)").
func resolveAddRange(ctx context.Context, client *registry.Client, arg string, saveExact bool) (string, string, error) {
	name, rangeExpr := splitNameAtRange(arg)
	if rangeExpr != "" && !saveExact {
		return name, rangeExpr, nil
	}

	packument, err := client.FetchPackage(ctx, name)
	if err != nil {
		return "", "", err
	}

	var pv registry.PackageVersion
	if rangeExpr == "" {
		pv, err = packument.Latest()
	} else {
		rng, rngErr := pkgname.ParseRange(rangeExpr)
		if rngErr != nil {
			return "", "", rngErr
		}
		pv, err = packument.Pinned(rng)
	}
	if err != nil {
		return "", "", err
	}

	if saveExact {
		return name, pv.Version, nil
	}
	return name, "^" + pv.Version, nil
}

// splitNameAtRange splits "name@range" on the last '@', tolerating scoped
// names (whose own leading '@' must not be mistaken for the range
// separator) and a bare name with no range at all.
func splitNameAtRange(arg string) (string, string) {
	idx := strings.LastIndex(arg, "@")
	if idx <= 0 {
		return arg, ""
	}
	return arg[:idx], arg[idx+1:]
}
