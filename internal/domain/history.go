// File: internal/domain/history.go
package domain

import (
	"time"
	"unicode/utf8"
)

// HistoryMessage is a single chat message kept for statistics.
type HistoryMessage struct {
	MessageID int64     `json:"message_id" gorm:"column:message_id;primaryKey;autoIncrement"`
	ChatID    int64     `json:"chat_id" gorm:"column:chat_id;not null;index"`
	UserID    int64     `json:"user_id" gorm:"column:user_id;not null;index"`
	Text      string    `json:"text" gorm:"column:text;type:text;not null"`
	CharCount int       `json:"char_count" gorm:"-"` // derived from Text on read
	Date      time.Time `json:"date" gorm:"column:date;not null;index"`
}

func (HistoryMessage) TableName() string {
	return "messages_history"
}

// FillDerived recomputes the fields that are not persisted.
func (m *HistoryMessage) FillDerived() {
	m.CharCount = utf8.RuneCountInString(m.Text)
}

// UserStat is an aggregate over a set of history rows.
type UserStat struct {
	MessageCount int `json:"message_count"`
	CharCount    int `json:"char_count"`
}

// Add merges another stat into s.
func (s *UserStat) Add(other UserStat) {
	s.MessageCount += other.MessageCount
	s.CharCount += other.CharCount
}

// DailyStat is the stat of one calendar day (UTC).
type DailyStat struct {
	Day  time.Time `json:"day"`
	Stat UserStat  `json:"stat"`
}

// IncomingMessage is a message as delivered by the ingestion layer.
// ChatID is a pointer because upstream events may arrive without a chat.
type IncomingMessage struct {
	ID     int64  `json:"id"`
	ChatID *int64 `json:"chat_id"`
	UserID int64  `json:"user_id"`
	Body   string `json:"body"`
	Date   int64  `json:"date"` // epoch seconds
}

// Time converts the epoch seconds of the message into a UTC time.
func (m IncomingMessage) Time() time.Time {
	return EpochToTime(m.Date)
}

// EpochToTime converts epoch seconds into the form dates are stored in.
func EpochToTime(seconds int64) time.Time {
	return time.Unix(seconds, 0).UTC()
}

// TruncateDay returns midnight UTC of the day t falls on.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
