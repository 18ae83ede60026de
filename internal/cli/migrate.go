package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-chatstats/internal/repository/history"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Create or update the history schema",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			return withRepository(cmd.Context(), cfg, func(history.HistoryRepository) error {
				fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", cfg.DBDriver)
				return nil
			})
		},
	}
}
