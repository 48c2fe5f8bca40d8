package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pacquet/pacquet/internal/cmdutil"
	"github.com/pacquet/pacquet/internal/store"
	"github.com/pacquet/pacquet/internal/storedir"
)

// newStoreCmd implements `store path` / `store prune` (§4.11).
func newStoreCmd(helper *cmdutil.Helper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect or maintain the content-addressed store",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the store's root directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := helper.GetBase(cmd.Flags())
			if err != nil {
				return err
			}
			base.UI.Output(storedir.New(base.Config.StoreDir).Root())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Remove store blobs no longer referenced by any tarball index",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := helper.GetBase(cmd.Flags())
			if err != nil {
				return err
			}
			removed, err := store.Prune(storedir.New(base.Config.StoreDir))
			if err != nil {
				return err
			}
			base.UI.Info(fmt.Sprintf("removed %d unreferenced blob(s)", removed))
			return nil
		},
	})

	return cmd
}
