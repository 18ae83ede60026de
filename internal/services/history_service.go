package services

import (
	"context"
	"fmt"
	"time"

	"github.com/iyunix/go-chatstats/internal/domain"
	"github.com/iyunix/go-chatstats/internal/repository/history"
)

type HistoryConfig struct {
	BatchSize int           // messages per AddAll call during Import
	Timeout   time.Duration // upper bound for one service call
}

func (c *HistoryConfig) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if c.BatchSize > 1000 {
		return fmt.Errorf("batch_size cannot exceed 1000")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

func DefaultHistoryConfig() *HistoryConfig {
	return &HistoryConfig{
		BatchSize: 500,
		Timeout:   30 * time.Second,
	}
}

// HistoryService validates incoming messages and exposes the history queries
// with typed errors.
type HistoryService struct {
	repo   history.HistoryRepository
	config *HistoryConfig
	logger Logger
}

func NewHistoryService(repo history.HistoryRepository, config *HistoryConfig, logger Logger) (*HistoryService, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repository is required")
	}
	if config == nil {
		config = DefaultHistoryConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid history config: %w", err)
	}
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &HistoryService{repo: repo, config: config, logger: logger}, nil
}

func validateIncoming(m domain.IncomingMessage) string {
	switch {
	case m.ChatID == nil:
		return "chat_id is required"
	case *m.ChatID == 0:
		return "chat_id must not be zero"
	case m.ID <= 0:
		return "id must be positive"
	case m.Date <= 0:
		return "date must be positive epoch seconds"
	}
	return ""
}

// Record stores a single message. Re-recording a known id is a no-op.
func (s *HistoryService) Record(ctx context.Context, m domain.IncomingMessage) error {
	if msg := validateIncoming(m); msg != "" {
		return NewValidationError("record", msg)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.Add(ctx, m.ID, *m.ChatID, m.UserID, m.Body, m.Date); err != nil {
		s.logger.Error("failed to record message", "message_id", m.ID, "chat_id", *m.ChatID, "error", err)
		return NewStorageError("record", *m.ChatID, err)
	}
	s.logger.Debug("message recorded", "message_id", m.ID, "chat_id", *m.ChatID, "user_id", m.UserID)
	return nil
}

// Import validates every message before storing anything, then inserts them
// in chunks of BatchSize. It returns the number of messages submitted.
func (s *HistoryService) Import(ctx context.Context, messages []domain.IncomingMessage) (int, error) {
	for i, m := range messages {
		if msg := validateIncoming(m); msg != "" {
			return 0, NewValidationError("import", fmt.Sprintf("message %d: %s", i, msg))
		}
	}

	submitted := 0
	for start := 0; start < len(messages); start += s.config.BatchSize {
		end := min(start+s.config.BatchSize, len(messages))

		chunkCtx, cancel := s.withTimeout(ctx)
		err := s.repo.AddAll(chunkCtx, messages[start:end])
		cancel()
		if err != nil {
			s.logger.Error("import chunk failed", "offset", start, "size", end-start, "error", err)
			return submitted, NewStorageError("import", 0, err)
		}
		submitted = end
	}

	s.logger.Info("messages imported", "count", submitted)
	return submitted, nil
}

// withTimeout bounds one repository call by the configured timeout.
func (s *HistoryService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.Timeout)
}

func (s *HistoryService) wrap(op string, chatID int64, err error) error {
	return repositoryError(s.logger, op, chatID, err)
}

func (s *HistoryService) ChatStats(ctx context.Context, chatID int64, since *time.Time) (map[int64]domain.UserStat, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	stats, err := s.repo.MessagesCountForUsersByChat(ctx, chatID, since)
	if err != nil {
		return nil, s.wrap("chat_stats", chatID, err)
	}
	return stats, nil
}

func (s *HistoryService) DailyStats(ctx context.Context, chatID, userID int64, since *time.Time) ([]domain.DailyStat, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	days, err := s.repo.MessagesCountForUserByChatAndUserID(ctx, chatID, userID, since)
	if err != nil {
		return nil, s.wrap("daily_stats", chatID, err)
	}
	return days, nil
}

func (s *HistoryService) LastSeenByChat(ctx context.Context, chatID int64) (map[int64]time.Time, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	seen, err := s.repo.LastMessagesForUsersByChat(ctx, chatID)
	if err != nil {
		return nil, s.wrap("last_seen_by_chat", chatID, err)
	}
	return seen, nil
}

// LastSeen returns a NOT_FOUND error when the user never wrote in the chat.
func (s *HistoryService) LastSeen(ctx context.Context, chatID, userID int64) (time.Time, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	t, found, err := s.repo.LastMessageForUserByChatAndUserID(ctx, chatID, userID)
	if err != nil {
		return time.Time{}, s.wrap("last_seen", chatID, err)
	}
	if !found {
		return time.Time{}, NewNotFoundError("last_seen", fmt.Sprintf("no messages from user %d", userID), chatID)
	}
	return t, nil
}

// FirstMessage returns the earliest message date of the chat, or of one user
// when userID is set.
func (s *HistoryService) FirstMessage(ctx context.Context, chatID int64, userID *int64, since *time.Time) (time.Time, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		t     time.Time
		found bool
		err   error
	)
	if userID != nil {
		t, found, err = s.repo.FirstMessageDateByChatAndUser(ctx, chatID, *userID, since)
	} else {
		t, found, err = s.repo.FirstMessageDateByChat(ctx, chatID, since)
	}
	if err != nil {
		return time.Time{}, s.wrap("first_message", chatID, err)
	}
	if !found {
		return time.Time{}, NewNotFoundError("first_message", "no messages in range", chatID)
	}
	return t, nil
}

func (s *HistoryService) Messages(ctx context.Context, chatID, userID int64, since *time.Time) ([]domain.HistoryMessage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	messages, err := s.repo.UserMessages(ctx, chatID, userID, since)
	if err != nil {
		return nil, s.wrap("messages", chatID, err)
	}
	return messages, nil
}
