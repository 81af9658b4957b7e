package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/folio"
	"github.com/eringen/folio/localstore"
	"github.com/eringen/folio/logging"
	"github.com/eringen/folio/syncer"
)

var (
	// Version information, set at build time via ldflags.
	Version   = "dev"
	BuildTime = "dev"
	GitCommit = "unknown"
)

// globals holds the persistent flags shared by every command.
type globals struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "folio",
		Short: "folio - a portfolio site with local-first content sync",
		Long: `folio serves a portfolio site from a local SQLite store and keeps the
content in step with an optional remote backend (document store, JSONBin
or a GitHub repository).

Configuration comes from a TOML file (--config) and FOLIO_* environment
variables.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "folio.toml", "Path to the TOML config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(g),
		newExportCmd(g),
		newImportCmd(g),
		newMigrateCmd(g),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command against os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

// load reads the configuration and builds the logger for it.
func (g *globals) load() (folio.SiteConfig, *logging.Logger, error) {
	cfg, err := folio.LoadConfig(g.configPath)
	if err != nil {
		return cfg, nil, err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	return cfg, logging.New(cfg.LogLevel), nil
}

// openStore opens the content store without starting a server. The
// caller runs the returned close func.
func (g *globals) openStore() (*syncer.Coordinator, func(), error) {
	cfg, logger, err := g.load()
	if err != nil {
		return nil, nil, err
	}
	c, local, err := folio.OpenCoordinator(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.DatabasePath, err)
	}
	return c, func() { closeStore(c, local, logger) }, nil
}

func closeStore(c *syncer.Coordinator, local *localstore.Store, logger *logging.Logger) {
	if err := c.Close(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("closing backend")
	}
	if err := local.Close(); err != nil {
		logger.Warn().Err(err).Msg("closing store")
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "folio version %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		},
	}
}
