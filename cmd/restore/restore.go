// Package restore implements the restore command: merge a backup
// document into the inventory.
package restore

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frootsnoops/brickbin/internal/conf"
	"github.com/frootsnoops/brickbin/internal/datastore"
	"github.com/frootsnoops/brickbin/internal/inventory"
)

// Command creates the restore command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "restore [backup.json]",
		Aliases: []string{"import"},
		Short:   "Import a backup file, merging with existing data",
		Long:    "Import bins and parts from a backup document. Existing bins are matched by label and reused, never duplicated or deleted.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd, settings, args[0])
		},
	}
	return cmd
}

func runRestore(cmd *cobra.Command, settings *conf.Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer store.Close()

	service := inventory.NewService(store, nil)
	summary, err := service.Import(cmd.Context(), data)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d bins and %d parts\n",
		summary.BinsImported, summary.PartsImported)
	return nil
}
