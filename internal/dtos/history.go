// File: internal/dtos/history.go
package dtos

import (
	"sort"
	"time"

	"github.com/iyunix/go-chatstats/internal/domain"
	"github.com/iyunix/go-chatstats/internal/services"
)

// All dates in responses are epoch seconds.

// BatchRequestDTO is the payload of POST /api/messages/batch.
type BatchRequestDTO struct {
	Messages []domain.IncomingMessage `json:"messages"`
}

// IngestResponseDTO reports how many messages were accepted for storage.
// Duplicates count as accepted since they are silently ignored.
type IngestResponseDTO struct {
	Accepted int `json:"accepted"`
}

type UserStatDTO struct {
	UserID       int64 `json:"user_id"`
	MessageCount int   `json:"message_count"`
	CharCount    int   `json:"char_count"`
}

type ChatStatsResponseDTO struct {
	ChatID int64         `json:"chat_id"`
	Since  *int64        `json:"since,omitempty"`
	Users  []UserStatDTO `json:"users"`
}

type LastSeenDTO struct {
	UserID   int64 `json:"user_id"`
	LastSeen int64 `json:"last_seen"`
}

type ChatLastSeenResponseDTO struct {
	ChatID int64         `json:"chat_id"`
	Users  []LastSeenDTO `json:"users"`
}

// DateResponseDTO carries a single first/last message date.
type DateResponseDTO struct {
	ChatID int64  `json:"chat_id"`
	UserID *int64 `json:"user_id,omitempty"`
	Date   int64  `json:"date"`
}

type DailyStatDTO struct {
	Day          string `json:"day"` // YYYY-MM-DD, UTC
	Date         int64  `json:"date"`
	MessageCount int    `json:"message_count"`
	CharCount    int    `json:"char_count"`
}

type MessageDTO struct {
	MessageID int64  `json:"message_id"`
	ChatID    int64  `json:"chat_id"`
	UserID    int64  `json:"user_id"`
	Text      string `json:"text"`
	CharCount int    `json:"char_count"`
	Date      int64  `json:"date"`
}

type UserReportDTO struct {
	ChatID       int64          `json:"chat_id"`
	UserID       int64          `json:"user_id"`
	Since        *int64         `json:"since,omitempty"`
	GeneratedAt  int64          `json:"generated_at"`
	FirstMessage *int64         `json:"first_message,omitempty"`
	LastSeen     *int64         `json:"last_seen,omitempty"`
	MessageCount int            `json:"message_count"`
	CharCount    int            `json:"char_count"`
	AverageChars float64        `json:"average_chars"`
	Days         []DailyStatDTO `json:"days"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

// Mapping Functions

func epochPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.Unix()
	return &v
}

// ToChatStats maps per-user counts, ordered by user id.
func ToChatStats(chatID int64, since *time.Time, stats map[int64]domain.UserStat) ChatStatsResponseDTO {
	users := make([]UserStatDTO, 0, len(stats))
	for userID, s := range stats {
		users = append(users, UserStatDTO{UserID: userID, MessageCount: s.MessageCount, CharCount: s.CharCount})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return ChatStatsResponseDTO{ChatID: chatID, Since: epochPtr(since), Users: users}
}

func ToChatLastSeen(chatID int64, seen map[int64]time.Time) ChatLastSeenResponseDTO {
	users := make([]LastSeenDTO, 0, len(seen))
	for userID, t := range seen {
		users = append(users, LastSeenDTO{UserID: userID, LastSeen: t.Unix()})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return ChatLastSeenResponseDTO{ChatID: chatID, Users: users}
}

func ToDailyStats(days []domain.DailyStat) []DailyStatDTO {
	out := make([]DailyStatDTO, len(days))
	for i, d := range days {
		out[i] = DailyStatDTO{
			Day:          d.Day.UTC().Format("2006-01-02"),
			Date:         d.Day.Unix(),
			MessageCount: d.Stat.MessageCount,
			CharCount:    d.Stat.CharCount,
		}
	}
	return out
}

func ToMessages(messages []domain.HistoryMessage) []MessageDTO {
	out := make([]MessageDTO, len(messages))
	for i, m := range messages {
		out[i] = MessageDTO{
			MessageID: m.MessageID,
			ChatID:    m.ChatID,
			UserID:    m.UserID,
			Text:      m.Text,
			CharCount: m.CharCount,
			Date:      m.Date.Unix(),
		}
	}
	return out
}

func ToUserReport(r *services.UserReport) UserReportDTO {
	return UserReportDTO{
		ChatID:       r.ChatID,
		UserID:       r.UserID,
		Since:        epochPtr(r.Since),
		GeneratedAt:  r.GeneratedAt.Unix(),
		FirstMessage: epochPtr(r.FirstMessage),
		LastSeen:     epochPtr(r.LastSeen),
		MessageCount: r.Totals.MessageCount,
		CharCount:    r.Totals.CharCount,
		AverageChars: r.AverageChars,
		Days:         ToDailyStats(r.Days),
	}
}
