package services

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/iyunix/go-chatstats/internal/domain"
	"github.com/iyunix/go-chatstats/internal/repository/history"
)

const (
	testChat int64 = -100200
	alice    int64 = 7
	bob      int64 = 8
	carol    int64 = 9
)

// reportNow is the fixed clock used by report tests.
var reportNow = time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

func newSQLiteRepository(t *testing.T) history.HistoryRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := history.NewHistoryRepository(db)
	require.NoError(t, repo.AutoMigrate(context.Background()))
	return repo
}

func msg(id, chatID, userID int64, body string, at time.Time) domain.IncomingMessage {
	return domain.IncomingMessage{ID: id, ChatID: &chatID, UserID: userID, Body: body, Date: at.Unix()}
}

// seedChat stores a small deterministic conversation ending one hour before reportNow.
func seedChat(t *testing.T, svc *HistoryService) {
	t.Helper()
	base := time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC)
	messages := []domain.IncomingMessage{
		msg(1, testChat, alice, "good morning", base),
		msg(2, testChat, bob, "hi", base.Add(5*time.Minute)),
		msg(3, testChat, alice, "standup in five", base.Add(10*time.Minute)),
		msg(4, testChat, carol, "on my way", base.Add(24*time.Hour)),
		msg(5, testChat, alice, "notes are up", base.Add(26*time.Hour)),
		msg(6, testChat, bob, "thanks!", reportNow.Add(-time.Hour)),
	}
	_, err := svc.Import(context.Background(), messages)
	require.NoError(t, err)
}

func newTestHistoryService(t *testing.T, repo history.HistoryRepository) *HistoryService {
	t.Helper()
	svc, err := NewHistoryService(repo, &HistoryConfig{BatchSize: 2, Timeout: 5 * time.Second}, &NoOpLogger{})
	require.NoError(t, err)
	return svc
}
