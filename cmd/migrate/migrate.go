// Package migrate implements the migrate command: bring the database
// schema to the latest version and exit.
package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frootsnoops/brickbin/internal/conf"
	"github.com/frootsnoops/brickbin/internal/datastore"
)

// Command creates the migrate command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  "Open the database and apply any pending schema migrations, then exit. The serve command does this automatically on startup.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := datastore.New(settings)
			if err := store.Open(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			defer store.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "database schema is up to date")
			return nil
		},
	}
}
