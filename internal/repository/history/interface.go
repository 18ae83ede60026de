// File: internal/repository/history/interface.go
package history

import (
	"context"
	"time"

	"github.com/iyunix/go-chatstats/internal/domain"
)

// HistoryRepository stores chat messages and answers aggregate queries over them.
// Every call is its own transaction. Optional minDate arguments bound results
// to rows with date >= minDate; nil means no lower bound.
type HistoryRepository interface {
	AutoMigrate(ctx context.Context) error

	// Add inserts one message. A message with an already stored id is ignored.
	Add(ctx context.Context, messageID, chatID, userID int64, text string, date int64) error
	// AddAll inserts messages in batches with the same ignore-on-conflict rule.
	AddAll(ctx context.Context, messages []domain.IncomingMessage) error

	MessagesCountForUsersByChat(ctx context.Context, chatID int64, minDate *time.Time) (map[int64]domain.UserStat, error)
	MessagesCountForUserByChatAndUserID(ctx context.Context, chatID, userID int64, minDate *time.Time) ([]domain.DailyStat, error)
	LastMessagesForUsersByChat(ctx context.Context, chatID int64) (map[int64]time.Time, error)
	LastMessageForUserByChatAndUserID(ctx context.Context, chatID, userID int64) (time.Time, bool, error)
	FirstMessageDateByChat(ctx context.Context, chatID int64, minDate *time.Time) (time.Time, bool, error)
	FirstMessageDateByChatAndUser(ctx context.Context, chatID, userID int64, minDate *time.Time) (time.Time, bool, error)
	UserMessages(ctx context.Context, chatID, userID int64, minDate *time.Time) ([]domain.HistoryMessage, error)
}
