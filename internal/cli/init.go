package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pacquet/pacquet/internal/cmdutil"
	"github.com/pacquet/pacquet/internal/manifest"
)

// newInitCmd implements `init` (§4.12): write a minimal package.json if and
// only if one is not already present.
func newInitCmd(helper *cmdutil.Helper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a minimal package.json in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := helper.GetBase(cmd.Flags())
			if err != nil {
				return err
			}

			path := filepath.Join(base.Cwd, "package.json")
			if _, err := os.Stat(path); err == nil {
				return errors.Errorf("%s already exists", path)
			} else if !os.IsNotExist(err) {
				return err
			}

			content := fmt.Sprintf(`{"name": %q, "version": "1.0.0"}`, filepath.Base(base.Cwd))
			m, err := manifest.Decode([]byte(content))
			if err != nil {
				return err
			}
			if err := m.Save(path); err != nil {
				return err
			}
			base.UI.Info("wrote " + path)
			return nil
		},
	}
	return cmd
}
