// Package backup implements the backup command: write the full
// inventory to a portable JSON document.
package backup

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frootsnoops/brickbin/internal/conf"
	"github.com/frootsnoops/brickbin/internal/datastore"
	"github.com/frootsnoops/brickbin/internal/inventory"
)

// Command creates the backup command.
func Command(settings *conf.Settings) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "backup",
		Aliases: []string{"export"},
		Short:   "Export bins, parts and assignments to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd, settings, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (defaults to stdout)")
	return cmd
}

func runBackup(cmd *cobra.Command, settings *conf.Settings, output string) error {
	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer store.Close()

	service := inventory.NewService(store, nil)
	data, err := service.Export(cmd.Context())
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if output == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "backup written to %s\n", output)
	return nil
}
