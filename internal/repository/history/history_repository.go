// File: internal/repository/history/history_repository.go
package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iyunix/go-chatstats/internal/domain"
)

var ErrInvalidChatID = errors.New("invalid chat ID")
var ErrMissingChatID = errors.New("message has no chat ID")

const defaultBatchSize = 100

type gormHistoryRepository struct {
	db        *gorm.DB
	batchSize int
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &gormHistoryRepository{db: db, batchSize: defaultBatchSize}
}

// NewHistoryRepositoryWithBatchSize overrides the insert batch size (1..1000).
func NewHistoryRepositoryWithBatchSize(db *gorm.DB, batchSize int) HistoryRepository {
	if batchSize <= 0 || batchSize > 1000 {
		batchSize = defaultBatchSize
	}
	return &gormHistoryRepository{db: db, batchSize: batchSize}
}

func (r *gormHistoryRepository) AutoMigrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&domain.HistoryMessage{}); err != nil {
		log.Printf("[HistoryRepository] Migration failed: %v", err)
		return fmt.Errorf("migrate messages_history: %w", err)
	}
	return nil
}

// ===== WRITES =====

func (r *gormHistoryRepository) Add(ctx context.Context, messageID, chatID, userID int64, text string, date int64) error {
	if chatID == 0 {
		return ErrInvalidChatID
	}

	row := domain.HistoryMessage{
		MessageID: messageID,
		ChatID:    chatID,
		UserID:    userID,
		Text:      text,
		Date:      domain.EpochToTime(date),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	})
	if err != nil {
		log.Printf("[HistoryRepository] Insert failed for message %d in chat %d: %v", messageID, chatID, err)
		return fmt.Errorf("insert message %d: %w", messageID, err)
	}
	return nil
}

func (r *gormHistoryRepository) AddAll(ctx context.Context, messages []domain.IncomingMessage) error {
	if len(messages) == 0 {
		return nil
	}

	rows := make([]domain.HistoryMessage, 0, len(messages))
	for i, m := range messages {
		if m.ChatID == nil {
			return fmt.Errorf("message %d (id %d): %w", i, m.ID, ErrMissingChatID)
		}
		rows = append(rows, domain.HistoryMessage{
			MessageID: m.ID,
			ChatID:    *m.ChatID,
			UserID:    m.UserID,
			Text:      m.Body,
			Date:      m.Time(),
		})
	}

	var stored int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, r.batchSize)
		stored = result.RowsAffected
		return result.Error
	})
	if err != nil {
		log.Printf("[HistoryRepository] Batch insert of %d messages failed: %v", len(rows), err)
		return fmt.Errorf("batch insert %d messages: %w", len(rows), err)
	}

	// Conflicting ids are skipped, so stored can be lower than submitted
	log.Printf("[HistoryRepository] Stored %d of %d submitted messages", stored, len(rows))
	return nil
}

// ===== AGGREGATES =====

func (r *gormHistoryRepository) MessagesCountForUsersByChat(ctx context.Context, chatID int64, minDate *time.Time) (map[int64]domain.UserStat, error) {
	if chatID == 0 {
		return nil, ErrInvalidChatID
	}

	stats := make(map[int64]domain.UserStat)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := scope(tx, chatFilter(chatID, minDate)).
			Select(colUserID + ", " + statColumns).
			Group(colUserID).
			Rows()
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var userID int64
			var stat domain.UserStat
			if err := rows.Scan(&userID, &stat.MessageCount, &stat.CharCount); err != nil {
				return err
			}
			stats[userID] = stat
		}
		return rows.Err()
	})
	if err != nil {
		log.Printf("[HistoryRepository] Per-user counts failed for chat %d: %v", chatID, err)
		return nil, fmt.Errorf("count messages by user for chat %d: %w", chatID, err)
	}
	return stats, nil
}

func (r *gormHistoryRepository) MessagesCountForUserByChatAndUserID(ctx context.Context, chatID, userID int64, minDate *time.Time) ([]domain.DailyStat, error) {
	if chatID == 0 {
		return nil, ErrInvalidChatID
	}

	dayExpr := dayExpression(r.db.Dialector.Name())
	var days []domain.DailyStat
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := scope(tx, userFilter(chatID, userID, minDate)).
			Select(dayExpr + " AS day, " + statColumns).
			Group(dayExpr).
			Order(dayExpr + " ASC").
			Rows()
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var day nullTime
			var stat domain.UserStat
			if err := rows.Scan(&day, &stat.MessageCount, &stat.CharCount); err != nil {
				return err
			}
			if !day.Valid {
				continue
			}
			days = append(days, domain.DailyStat{Day: domain.TruncateDay(day.Time), Stat: stat})
		}
		return rows.Err()
	})
	if err != nil {
		log.Printf("[HistoryRepository] Daily counts failed for user %d in chat %d: %v", userID, chatID, err)
		return nil, fmt.Errorf("count daily messages for user %d in chat %d: %w", userID, chatID, err)
	}
	return days, nil
}

// ===== DATES =====

func (r *gormHistoryRepository) LastMessagesForUsersByChat(ctx context.Context, chatID int64) (map[int64]time.Time, error) {
	if chatID == 0 {
		return nil, ErrInvalidChatID
	}

	last := make(map[int64]time.Time)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := scope(tx, chatFilter(chatID, nil)).
			Select(colUserID + ", MAX(" + sqlDate + ")").
			Group(colUserID).
			Rows()
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var userID int64
			var date nullTime
			if err := rows.Scan(&userID, &date); err != nil {
				return err
			}
			if date.Valid {
				last[userID] = date.Time
			}
		}
		return rows.Err()
	})
	if err != nil {
		log.Printf("[HistoryRepository] Last-seen lookup failed for chat %d: %v", chatID, err)
		return nil, fmt.Errorf("last messages for chat %d: %w", chatID, err)
	}
	return last, nil
}

func (r *gormHistoryRepository) LastMessageForUserByChatAndUserID(ctx context.Context, chatID, userID int64) (time.Time, bool, error) {
	return r.boundaryDate(ctx, "MAX", userFilter(chatID, userID, nil))
}

func (r *gormHistoryRepository) FirstMessageDateByChat(ctx context.Context, chatID int64, minDate *time.Time) (time.Time, bool, error) {
	return r.boundaryDate(ctx, "MIN", chatFilter(chatID, minDate))
}

func (r *gormHistoryRepository) FirstMessageDateByChatAndUser(ctx context.Context, chatID, userID int64, minDate *time.Time) (time.Time, bool, error) {
	return r.boundaryDate(ctx, "MIN", userFilter(chatID, userID, minDate))
}

// boundaryDate runs MIN or MAX over the filtered dates. An empty set yields
// a single NULL row, reported as not found.
func (r *gormHistoryRepository) boundaryDate(ctx context.Context, fn string, f Filter) (time.Time, bool, error) {
	if f.ChatID == 0 {
		return time.Time{}, false, ErrInvalidChatID
	}

	var date nullTime
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return scope(tx, f).
			Select(fn + "(" + sqlDate + ")").
			Row().
			Scan(&date)
	})
	if err != nil {
		log.Printf("[HistoryRepository] %s(date) failed for chat %d: %v", fn, f.ChatID, err)
		return time.Time{}, false, fmt.Errorf("%s message date for chat %d: %w", fn, f.ChatID, err)
	}
	if !date.Valid {
		return time.Time{}, false, nil
	}
	return date.Time, true, nil
}

// ===== ROWS =====

func (r *gormHistoryRepository) UserMessages(ctx context.Context, chatID, userID int64, minDate *time.Time) ([]domain.HistoryMessage, error) {
	if chatID == 0 {
		return nil, ErrInvalidChatID
	}

	var messages []domain.HistoryMessage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return scope(tx, userFilter(chatID, userID, minDate)).
			Order(clause.OrderBy{Columns: []clause.OrderByColumn{
				{Column: clause.Column{Name: colDate}},
				{Column: clause.Column{Name: colMessageID}},
			}}).
			Find(&messages).Error
	})
	if err != nil {
		log.Printf("[HistoryRepository] Message lookup failed for user %d in chat %d: %v", userID, chatID, err)
		return nil, fmt.Errorf("messages of user %d in chat %d: %w", userID, chatID, err)
	}

	for i := range messages {
		messages[i].Date = messages[i].Date.UTC()
		messages[i].FillDerived()
	}
	return messages, nil
}

// statColumns is COUNT + summed character length; LENGTH counts characters
// on both sqlite and postgres.
const statColumns = "COUNT(*) AS message_count, COALESCE(SUM(LENGTH(" + sqlText + ")), 0) AS char_count"
