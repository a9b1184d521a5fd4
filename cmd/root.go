// Package cmd assembles the brickbin command tree.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/frootsnoops/brickbin/cmd/backup"
	"github.com/frootsnoops/brickbin/cmd/migrate"
	"github.com/frootsnoops/brickbin/cmd/restore"
	"github.com/frootsnoops/brickbin/cmd/serve"
	"github.com/frootsnoops/brickbin/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "brickbin",
		Short: "LEGO part inventory with image recognition",
		Long:  "brickbin keeps a local inventory of LEGO parts filed into storage bins, fed by the Brickognize recognition API.",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		serve.Command(settings),
		backup.Command(settings),
		restore.Command(settings),
		migrate.Command(settings),
	)

	return rootCmd
}

// setupFlags configures persistent flags shared by all subcommands.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Storage.SQLite.Path, "database", viper.GetString("storage.sqlite.path"), "Path to the SQLite database file")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
}
