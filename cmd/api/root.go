package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"kryta-backend/internal/config"
	"kryta-backend/internal/db"
)

type rootOptions struct {
	// cfgFile is an optional viper config file; env vars still override it.
	cfgFile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "kryta-api",
		Short:        "Kryta backend: plans, proof verification and the trust ledger.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// serve is the default
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newServeCmd(opts), newMigrateCmd(opts))
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// bootstrap loads config and opens the database. Callers close the DB and sync the logger.
func bootstrap(opts *rootOptions) (*config.Config, *db.DB, *zap.Logger, error) {
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, nil, logger, err
	}

	database, err := db.Connect(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, nil, logger, fmt.Errorf("connect %s: %w", cfg.DBDriver, err)
	}
	logger.Info("database connected", zap.String("driver", cfg.DBDriver))

	return cfg, database, logger, nil
}
