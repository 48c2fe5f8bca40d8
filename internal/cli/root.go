// Package cli wires pacquet's cobra command tree — install, add, init, and
// store path/prune — onto the Install Driver (§4.7, §4.11–§4.13).
//
// Grounded on the teacher's `cli/internal/cmd.getCmd`/`RunWithArgs`: a
// single root cobra.Command carrying the common flags via cmdutil.Helper,
// one subcommand per operation, and a colored one-line banner printed on
// any fatal error before the process exits non-zero (§4.14, §6 Exit codes).
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pacquet/pacquet/internal/cmdutil"
	"github.com/pacquet/pacquet/internal/ui"
)

// RunWithArgs runs pacquet with the given arguments (excluding the binary
// name itself) and returns the process exit code.
func RunWithArgs(args []string) int {
	helper := cmdutil.NewHelper()
	root := newRootCmd(helper)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		terminal := ui.BuildColoredUi(ui.GetColorModeFromEnv())
		terminal.Error(fmt.Sprintf("%s%s", ui.ERROR_PREFIX, color.RedString(" %v", err)))
		return 1
	}
	return 0
}

func newRootCmd(helper *cmdutil.Helper) *cobra.Command {
	root := &cobra.Command{
		Use:           "pacquet",
		Short:         "A pnpm-compatible, content-addressed JavaScript package manager",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	helper.AddFlags(root.PersistentFlags())
	root.AddCommand(newInstallCmd(helper))
	root.AddCommand(newAddCmd(helper))
	root.AddCommand(newInitCmd(helper))
	root.AddCommand(newStoreCmd(helper))
	return root
}
