package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-chatstats/internal/domain"
	"github.com/iyunix/go-chatstats/internal/repository/history"
	"github.com/iyunix/go-chatstats/internal/services"
)

type statsOptions struct {
	ChatID int64
	UserID int64
	Since  string
	HTML   bool
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &statsOptions{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the activity report of a chat or of one user",
		Example: `  historyctl stats --chat -100123
  historyctl stats --chat -100123 --user 42 --since 2024-03-01T00:00:00Z`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			since, err := parseSince(opts.Since)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}

			return withRepository(cmd.Context(), cfg, func(repo history.HistoryRepository) error {
				stats := services.NewStatsService(repo, rootOpts.logger(cfg))

				var md string
				if cmd.Flags().Changed("user") {
					report, err := stats.UserReport(cmd.Context(), opts.ChatID, opts.UserID, since)
					if err != nil {
						return err
					}
					if md, err = stats.RenderUserMarkdown(report); err != nil {
						return err
					}
				} else {
					report, err := stats.ChatReport(cmd.Context(), opts.ChatID, since)
					if err != nil {
						return err
					}
					if md, err = stats.RenderMarkdown(report); err != nil {
						return err
					}
				}

				if opts.HTML {
					html, err := stats.RenderHTML(md)
					if err != nil {
						return err
					}
					md = html
				}
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&opts.ChatID, "chat", 0, "chat id (required)")
	cmd.Flags().Int64Var(&opts.UserID, "user", 0, "report on a single user")
	cmd.Flags().StringVar(&opts.Since, "since", "", "lower date bound, RFC3339, YYYY-MM-DD or epoch seconds")
	cmd.Flags().BoolVar(&opts.HTML, "html", false, "render HTML instead of Markdown")
	_ = cmd.MarkFlagRequired("chat")

	return cmd
}

// parseSince accepts RFC3339 timestamps, plain dates and epoch seconds.
func parseSince(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t := domain.EpochToTime(seconds)
		return &t, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errors.New("--since must be RFC3339, YYYY-MM-DD or epoch seconds")
}
