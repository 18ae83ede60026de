// Package cli implements historyctl, the operator tool for the message history.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-chatstats/internal/config"
	"github.com/iyunix/go-chatstats/internal/database"
	"github.com/iyunix/go-chatstats/internal/repository/history"
	"github.com/iyunix/go-chatstats/internal/services"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DBDriver string // overrides DB_DRIVER when set
	DSN      string // overrides DATABASE_DSN when set
	Verbose  bool
}

// NewRootCommand creates the historyctl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "historyctl",
		Short: "Manage the chat message history",
		Long: `historyctl migrates the history database, imports message archives,
prints activity reports and mints ingestion tokens.

Configuration comes from the environment (or .env) like the server;
--db-driver and --dsn override the database settings.`,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DBDriver, "db-driver", "", "database driver (sqlite|postgres)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "database DSN or sqlite path")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg := config.Load()
	if opts.DBDriver != "" {
		cfg.DBDriver = opts.DBDriver
	}
	if opts.DSN != "" {
		cfg.DatabaseDSN = opts.DSN
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (o *RootOptions) logger(cfg *config.Config) services.Logger {
	if o.Verbose {
		return services.NewLogger("historyctl", cfg.LogLevel)
	}
	return &services.NoOpLogger{}
}

// withRepository opens the database, ensures the schema and runs fn.
func withRepository(ctx context.Context, cfg *config.Config, fn func(repo history.HistoryRepository) error) error {
	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	repo := history.NewHistoryRepository(db)
	if err := repo.AutoMigrate(ctx); err != nil {
		return err
	}
	return fn(repo)
}
