// Package serve implements the serve command: open the datastore, wire
// the service layer, and run the HTTP API until interrupted.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/frootsnoops/brickbin/internal/api"
	"github.com/frootsnoops/brickbin/internal/conf"
	"github.com/frootsnoops/brickbin/internal/datastore"
	"github.com/frootsnoops/brickbin/internal/inventory"
	"github.com/frootsnoops/brickbin/internal/logging"
	"github.com/frootsnoops/brickbin/internal/recognition"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the inventory HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}
	setupFlags(cmd, settings)
	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVar(&settings.HTTP.Host, "host", viper.GetString("http.host"), "Address to listen on")
	cmd.Flags().IntVar(&settings.HTTP.Port, "port", viper.GetInt("http.port"), "Port to listen on")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
		os.Exit(1)
	}
}

func runServer(settings *conf.Settings) error {
	log := logging.ForService("serve")

	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("closing datastore", "error", err)
		}
	}()

	recognizer := recognition.NewClient(recognition.Config{
		BaseURL:  settings.Recognition.BaseURL,
		Timeout:  settings.Recognition.Timeout,
		CacheTTL: settings.Recognition.CacheTTL,
	})
	service := inventory.NewService(store, recognizer)

	e := echo.New()
	e.HideBanner = true
	api.New(e, service, store, settings)

	addr := fmt.Sprintf("%s:%d", settings.HTTP.Host, settings.HTTP.Port)
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP API listening", "address", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
