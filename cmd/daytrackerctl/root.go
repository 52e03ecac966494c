package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"daytracker/internal/backend"
	"daytracker/internal/cli"
	"daytracker/internal/config"
	"daytracker/internal/log"
)

type rootOptions struct {
	backend  string
	dbPath   string
	seedFile string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "daytrackerctl",
		Short:         "Export, inspect and migrate daytracker data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile()
		},
	}

	root.PersistentFlags().StringVar(&opts.backend, "backend", "", "data backend: memory or sqlite (default DATA_BACKEND)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default SQLITE_DB_PATH)")
	root.PersistentFlags().StringVar(&opts.seedFile, "seed", "", "YAML seed file for the memory backend (default SEED_FILE)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(newExportCmd(opts), newShowCmd(opts), newMigrateCmd(opts))
	return root
}

// config merges flags over the environment configuration.
func (o *rootOptions) config() *config.Config {
	cfg := config.Load()
	if o.backend != "" {
		cfg.DataBackend = o.backend
	}
	if o.dbPath != "" {
		cfg.SQLiteDBPath = o.dbPath
	}
	if o.seedFile != "" {
		cfg.SeedFile = o.seedFile
	}
	return cfg
}

func (o *rootOptions) logger(stderr io.Writer) *log.Logger {
	return cli.SetupLogger(o.logLevel, log.ComponentCLI, stderr)
}

// openStore opens the configured backend read/write without AMQP
// publishing; the worker's pending sweep picks up anything written here.
func (o *rootOptions) openStore(ctx context.Context, stderr io.Writer) (*backend.BackendResult, error) {
	cfg := o.config()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	bcfg.AMQPURL = ""
	return backend.NewFactory(o.logger(stderr).Logger).CreateBackend(ctx, bcfg)
}

func closeStore(res *backend.BackendResult) {
	if res != nil && res.Cleanup != nil {
		_ = res.Cleanup()
	}
}
