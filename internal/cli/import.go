package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-chatstats/internal/domain"
	"github.com/iyunix/go-chatstats/internal/repository/history"
	"github.com/iyunix/go-chatstats/internal/services"
)

// maxLineSize bounds one JSON Lines record.
const maxLineSize = 4 << 20

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "import <file.jsonl|->",
		Short: "Import messages from a JSON Lines archive",
		Long: `Import messages from a JSON Lines file, one message per line:

  {"id": 1, "chat_id": -100123, "user_id": 42, "body": "hello", "date": 1709287200}

Messages already in the history are skipped. Use - to read from stdin.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			if batchSize > 0 {
				cfg.ImportBatchSize = batchSize
			}

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open archive: %w", err)
				}
				defer f.Close()
				in = f
			}

			messages, err := readMessages(in)
			if err != nil {
				return err
			}

			return withRepository(cmd.Context(), cfg, func(repo history.HistoryRepository) error {
				historyConfig := services.DefaultHistoryConfig()
				historyConfig.BatchSize = cfg.ImportBatchSize
				svc, err := services.NewHistoryService(repo, historyConfig, rootOpts.logger(cfg))
				if err != nil {
					return err
				}
				n, err := svc.Import(cmd.Context(), messages)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d messages\n", n)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch", 0, "messages per insert batch (default IMPORT_BATCH_SIZE)")
	return cmd
}

// readMessages decodes a JSON Lines stream, skipping blank lines.
func readMessages(r io.Reader) ([]domain.IncomingMessage, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var messages []domain.IncomingMessage
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var m domain.IncomingMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		messages = append(messages, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return messages, nil
}
