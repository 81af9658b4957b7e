package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/folio"
)

func newServeCmd(g *globals) *cobra.Command {
	var addr, staticDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site and the admin API",
		Long: `Serve the public site and the admin JSON API.

Without templates every page is answered with JSON, which is what the
admin panel and headless front ends consume.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), g, addr, staticDir)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides the config file)")
	cmd.Flags().StringVar(&staticDir, "static", "public", "Directory served under /public")
	return cmd
}

func runServe(ctx context.Context, g *globals, addr, staticDir string) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}

	app := folio.New(cfg, folio.ViewFuncs{}, folio.WithLogger(logger), folio.WithStaticDir(staticDir))
	if err := app.Setup(); err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("version", Version).Msg("listening")
		errCh <- app.Echo.Start(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Echo.Shutdown(shutdownCtx)
}
