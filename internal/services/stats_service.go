package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"text/template"
	"time"

	"github.com/hako/durafmt"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/iyunix/go-chatstats/internal/domain"
	"github.com/iyunix/go-chatstats/internal/repository/history"
)

// ChatUserRow is one participant line of a chat report.
type ChatUserRow struct {
	UserID       int64
	MessageCount int
	CharCount    int
	Share        float64 // fraction of the chat's messages in range
	LastSeen     time.Time
}

type ChatReport struct {
	ChatID       int64
	Since        *time.Time
	GeneratedAt  time.Time
	FirstMessage *time.Time
	Totals       domain.UserStat
	Users        []ChatUserRow
}

type UserReport struct {
	ChatID       int64
	UserID       int64
	Since        *time.Time
	GeneratedAt  time.Time
	FirstMessage *time.Time
	LastSeen     *time.Time
	Totals       domain.UserStat
	AverageChars float64
	Days         []domain.DailyStat
}

// StatsService builds activity reports from the message history.
type StatsService struct {
	repo   history.HistoryRepository
	logger Logger
	now    func() time.Time
	md     goldmark.Markdown
}

func NewStatsService(repo history.HistoryRepository, logger Logger) *StatsService {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &StatsService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// SetClock replaces the time source used for GeneratedAt.
func (s *StatsService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *StatsService) ChatReport(ctx context.Context, chatID int64, since *time.Time) (*ChatReport, error) {
	stats, err := s.repo.MessagesCountForUsersByChat(ctx, chatID, since)
	if err != nil {
		return nil, repositoryError(s.logger, "chat_report", chatID, err)
	}
	lastSeen, err := s.repo.LastMessagesForUsersByChat(ctx, chatID)
	if err != nil {
		return nil, repositoryError(s.logger, "chat_report", chatID, err)
	}
	first, found, err := s.repo.FirstMessageDateByChat(ctx, chatID, since)
	if err != nil {
		return nil, repositoryError(s.logger, "chat_report", chatID, err)
	}

	report := &ChatReport{
		ChatID:      chatID,
		Since:       since,
		GeneratedAt: s.now().UTC(),
		Users:       make([]ChatUserRow, 0, len(stats)),
	}
	// Totals come from the same rows as the per-user lines so shares add up
	for _, stat := range stats {
		report.Totals.Add(stat)
	}
	if found {
		first = first.UTC()
		report.FirstMessage = &first
	}

	for userID, stat := range stats {
		row := ChatUserRow{
			UserID:       userID,
			MessageCount: stat.MessageCount,
			CharCount:    stat.CharCount,
			LastSeen:     lastSeen[userID].UTC(),
		}
		if report.Totals.MessageCount > 0 {
			row.Share = float64(stat.MessageCount) / float64(report.Totals.MessageCount)
		}
		report.Users = append(report.Users, row)
	}
	sort.Slice(report.Users, func(i, j int) bool {
		a, b := report.Users[i], report.Users[j]
		if a.MessageCount != b.MessageCount {
			return a.MessageCount > b.MessageCount
		}
		return a.UserID < b.UserID
	})

	s.logger.Debug("chat report built", "chat_id", chatID, "users", len(report.Users))
	return report, nil
}

func (s *StatsService) UserReport(ctx context.Context, chatID, userID int64, since *time.Time) (*UserReport, error) {
	days, err := s.repo.MessagesCountForUserByChatAndUserID(ctx, chatID, userID, since)
	if err != nil {
		return nil, repositoryError(s.logger, "user_report", chatID, err)
	}
	first, hasFirst, err := s.repo.FirstMessageDateByChatAndUser(ctx, chatID, userID, since)
	if err != nil {
		return nil, repositoryError(s.logger, "user_report", chatID, err)
	}
	last, hasLast, err := s.repo.LastMessageForUserByChatAndUserID(ctx, chatID, userID)
	if err != nil {
		return nil, repositoryError(s.logger, "user_report", chatID, err)
	}

	report := &UserReport{
		ChatID:      chatID,
		UserID:      userID,
		Since:       since,
		GeneratedAt: s.now().UTC(),
		Days:        days,
	}
	if report.Days == nil {
		report.Days = []domain.DailyStat{}
	}
	for _, d := range days {
		report.Totals.Add(d.Stat)
	}
	if report.Totals.MessageCount > 0 {
		report.AverageChars = float64(report.Totals.CharCount) / float64(report.Totals.MessageCount)
	}
	if hasFirst {
		first = first.UTC()
		report.FirstMessage = &first
	}
	if hasLast {
		last = last.UTC()
		report.LastSeen = &last
	}
	return report, nil
}

// ===== RENDERING =====

var printer = message.NewPrinter(language.English)

var reportFuncs = template.FuncMap{
	"num": func(n int) string { return printer.Sprintf("%d", n) },
	"pct": func(f float64) string { return printer.Sprintf("%.1f%%", f*100) },
	"avg": func(f float64) string { return printer.Sprintf("%.1f", f) },
	"inc": func(i int) int { return i + 1 },
	"date": func(t *time.Time) string {
		if t == nil {
			return "never"
		}
		return t.UTC().Format("2006-01-02 15:04 UTC")
	},
	"day": func(t time.Time) string { return t.UTC().Format("2006-01-02") },
	"ago": sinceText,
}

// sinceText renders how long before now the time t was, limited to two units.
func sinceText(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t).Truncate(time.Second)
	if d < time.Second {
		return "just now"
	}
	return durafmt.Parse(d).LimitFirstN(2).String() + " ago"
}

var chatReportTemplate = template.Must(template.New("chat").Funcs(reportFuncs).Parse(
	`# Chat {{.ChatID}} activity

{{if .Since}}Since {{date .Since}}{{else}}All time{{end}}: {{num .Totals.MessageCount}} messages, {{num .Totals.CharCount}} characters.
{{- if .FirstMessage}}
First message: {{date .FirstMessage}}.
{{- end}}
{{if .Users}}
| # | User | Messages | Share | Characters | Last seen |
|---:|---|---:|---:|---:|---|
{{- range $i, $u := .Users}}
| {{inc $i}} | {{$u.UserID}} | {{num $u.MessageCount}} | {{pct $u.Share}} | {{num $u.CharCount}} | {{ago $u.LastSeen $.GeneratedAt}} |
{{- end}}
{{else}}
No messages yet.
{{end}}`))

var userReportTemplate = template.Must(template.New("user").Funcs(reportFuncs).Parse(
	`# User {{.UserID}} in chat {{.ChatID}}

{{if .Since}}Since {{date .Since}}{{else}}All time{{end}}: {{num .Totals.MessageCount}} messages, {{num .Totals.CharCount}} characters, {{avg .AverageChars}} per message.
First message: {{date .FirstMessage}}. Last seen: {{date .LastSeen}}.
{{if .Days}}
| Day | Messages | Characters |
|---|---:|---:|
{{- range .Days}}
| {{day .Day}} | {{num .Stat.MessageCount}} | {{num .Stat.CharCount}} |
{{- end}}
{{end}}`))

// RenderMarkdown renders a chat report as a Markdown table.
func (s *StatsService) RenderMarkdown(report *ChatReport) (string, error) {
	var buf bytes.Buffer
	if err := chatReportTemplate.Execute(&buf, report); err != nil {
		return "", fmt.Errorf("render chat report: %w", err)
	}
	return buf.String(), nil
}

func (s *StatsService) RenderUserMarkdown(report *UserReport) (string, error) {
	var buf bytes.Buffer
	if err := userReportTemplate.Execute(&buf, report); err != nil {
		return "", fmt.Errorf("render user report: %w", err)
	}
	return buf.String(), nil
}

// RenderHTML converts report Markdown into an HTML fragment.
func (s *StatsService) RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}
