package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatstats/internal/domain"
	"github.com/iyunix/go-chatstats/internal/repository/history"
)

// chunkRecorder counts AddAll calls and can fail on a given call.
type chunkRecorder struct {
	history.HistoryRepository
	sizes  []int
	failOn int
}

func (c *chunkRecorder) AddAll(ctx context.Context, messages []domain.IncomingMessage) error {
	c.sizes = append(c.sizes, len(messages))
	if c.failOn > 0 && len(c.sizes) == c.failOn {
		return errors.New("disk full")
	}
	return c.HistoryRepository.AddAll(ctx, messages)
}

func TestHistoryConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultHistoryConfig().Validate())
	assert.Error(t, (&HistoryConfig{BatchSize: 0, Timeout: time.Second}).Validate())
	assert.Error(t, (&HistoryConfig{BatchSize: 2000, Timeout: time.Second}).Validate())
	assert.Error(t, (&HistoryConfig{BatchSize: 10}).Validate())
}

func TestNewHistoryService_RequiresRepository(t *testing.T) {
	_, err := NewHistoryService(nil, nil, nil)
	assert.Error(t, err)
}

func TestRecord_Validation(t *testing.T) {
	svc := newTestHistoryService(t, newSQLiteRepository(t))
	ctx := context.Background()
	zero := int64(0)

	cases := map[string]domain.IncomingMessage{
		"nil chat":  {ID: 1, UserID: alice, Body: "x", Date: 100},
		"zero chat": {ID: 1, ChatID: &zero, UserID: alice, Body: "x", Date: 100},
		"no id":     msg(0, testChat, alice, "x", reportNow),
		"no date":   {ID: 1, ChatID: ptr(testChat), UserID: alice, Body: "x"},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			err := svc.Record(ctx, m)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestRecord_StoresOnce(t *testing.T) {
	svc := newTestHistoryService(t, newSQLiteRepository(t))
	ctx := context.Background()

	m := msg(10, testChat, alice, "hello", reportNow)
	require.NoError(t, svc.Record(ctx, m))
	require.NoError(t, svc.Record(ctx, m))

	stats, err := svc.ChatStats(ctx, testChat, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.UserStat{MessageCount: 1, CharCount: 5}, stats[alice])
}

func TestImport_ChunksByBatchSize(t *testing.T) {
	rec := &chunkRecorder{HistoryRepository: newSQLiteRepository(t)}
	svc := newTestHistoryService(t, rec)

	n, err := svc.Import(context.Background(), []domain.IncomingMessage{
		msg(1, testChat, alice, "a", reportNow),
		msg(2, testChat, alice, "b", reportNow),
		msg(3, testChat, bob, "c", reportNow),
		msg(4, testChat, bob, "d", reportNow),
		msg(5, testChat, carol, "e", reportNow),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []int{2, 2, 1}, rec.sizes)
}

func TestImport_ValidatesBeforeStoring(t *testing.T) {
	rec := &chunkRecorder{HistoryRepository: newSQLiteRepository(t)}
	svc := newTestHistoryService(t, rec)

	_, err := svc.Import(context.Background(), []domain.IncomingMessage{
		msg(1, testChat, alice, "a", reportNow),
		{ID: 2, UserID: alice, Body: "b", Date: 1},
	})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "message 1")
	assert.Empty(t, rec.sizes)
}

func TestImport_StorageFailureReportsProgress(t *testing.T) {
	rec := &chunkRecorder{HistoryRepository: newSQLiteRepository(t), failOn: 2}
	svc := newTestHistoryService(t, rec)

	n, err := svc.Import(context.Background(), []domain.IncomingMessage{
		msg(1, testChat, alice, "a", reportNow),
		msg(2, testChat, alice, "b", reportNow),
		msg(3, testChat, bob, "c", reportNow),
	})
	require.Error(t, err)
	assert.Equal(t, ErrTypeStorage, ErrorTypeOf(err))
	assert.Equal(t, 2, n)
}

func TestQueries_MapAbsentAndInvalid(t *testing.T) {
	svc := newTestHistoryService(t, newSQLiteRepository(t))
	ctx := context.Background()

	_, err := svc.LastSeen(ctx, testChat, alice)
	assert.True(t, IsNotFound(err))

	_, err = svc.FirstMessage(ctx, testChat, nil, nil)
	assert.True(t, IsNotFound(err))

	_, err = svc.ChatStats(ctx, 0, nil)
	assert.True(t, IsValidation(err))
}

func TestQueries_AfterSeed(t *testing.T) {
	svc := newTestHistoryService(t, newSQLiteRepository(t))
	seedChat(t, svc)
	ctx := context.Background()

	last, err := svc.LastSeen(ctx, testChat, bob)
	require.NoError(t, err)
	assert.True(t, reportNow.Add(-time.Hour).Equal(last))

	first, err := svc.FirstMessage(ctx, testChat, ptr(carol), nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 9, 9, 0, 0, 0, time.UTC), first.UTC())

	days, err := svc.DailyStats(ctx, testChat, alice, nil)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, 2, days[0].Stat.MessageCount)

	messages, err := svc.Messages(ctx, testChat, alice, nil)
	require.NoError(t, err)
	assert.Len(t, messages, 3)

	seen, err := svc.LastSeenByChat(ctx, testChat)
	require.NoError(t, err)
	assert.Len(t, seen, 3)
}

// deadlineRecorder notes whether each query ran under a deadline.
type deadlineRecorder struct {
	history.HistoryRepository
	bounded map[string]time.Duration
}

func (d *deadlineRecorder) note(ctx context.Context, op string) {
	if deadline, ok := ctx.Deadline(); ok {
		d.bounded[op] = time.Until(deadline)
	}
}

func (d *deadlineRecorder) MessagesCountForUsersByChat(ctx context.Context, chatID int64, minDate *time.Time) (map[int64]domain.UserStat, error) {
	d.note(ctx, "chat_stats")
	return d.HistoryRepository.MessagesCountForUsersByChat(ctx, chatID, minDate)
}

func (d *deadlineRecorder) MessagesCountForUserByChatAndUserID(ctx context.Context, chatID, userID int64, minDate *time.Time) ([]domain.DailyStat, error) {
	d.note(ctx, "daily_stats")
	return d.HistoryRepository.MessagesCountForUserByChatAndUserID(ctx, chatID, userID, minDate)
}

func (d *deadlineRecorder) LastMessagesForUsersByChat(ctx context.Context, chatID int64) (map[int64]time.Time, error) {
	d.note(ctx, "last_seen_by_chat")
	return d.HistoryRepository.LastMessagesForUsersByChat(ctx, chatID)
}

func (d *deadlineRecorder) LastMessageForUserByChatAndUserID(ctx context.Context, chatID, userID int64) (time.Time, bool, error) {
	d.note(ctx, "last_seen")
	return d.HistoryRepository.LastMessageForUserByChatAndUserID(ctx, chatID, userID)
}

func (d *deadlineRecorder) FirstMessageDateByChat(ctx context.Context, chatID int64, minDate *time.Time) (time.Time, bool, error) {
	d.note(ctx, "first_message")
	return d.HistoryRepository.FirstMessageDateByChat(ctx, chatID, minDate)
}

func (d *deadlineRecorder) UserMessages(ctx context.Context, chatID, userID int64, minDate *time.Time) ([]domain.HistoryMessage, error) {
	d.note(ctx, "messages")
	return d.HistoryRepository.UserMessages(ctx, chatID, userID, minDate)
}

func TestQueries_RunUnderConfiguredTimeout(t *testing.T) {
	rec := &deadlineRecorder{HistoryRepository: newSQLiteRepository(t), bounded: map[string]time.Duration{}}
	svc := newTestHistoryService(t, rec)
	ctx := context.Background()

	_, _ = svc.ChatStats(ctx, testChat, nil)
	_, _ = svc.DailyStats(ctx, testChat, alice, nil)
	_, _ = svc.LastSeenByChat(ctx, testChat)
	_, _ = svc.LastSeen(ctx, testChat, alice)
	_, _ = svc.FirstMessage(ctx, testChat, nil, nil)
	_, _ = svc.Messages(ctx, testChat, alice, nil)

	require.Len(t, rec.bounded, 6)
	for op, left := range rec.bounded {
		assert.LessOrEqual(t, left, 5*time.Second, op)
		assert.Greater(t, left, time.Duration(0), op)
	}
}

func TestHistoryError_Format(t *testing.T) {
	cause := errors.New("locked")
	err := NewStorageError("record", testChat, cause)
	assert.Equal(t, "history STORAGE error in record: storage failure (caused by: locked)", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrTypeStorage, ErrorTypeOf(errors.New("plain")))
}

func ptr[T any](v T) *T { return &v }
