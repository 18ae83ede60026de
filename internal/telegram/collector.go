package telegram

import (
	"context"
	"html"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/iyunix/go-chatstats/internal/domain"
	"github.com/iyunix/go-chatstats/internal/services"
)

// maxMessageRunes is the Bot API limit for one text message.
const maxMessageRunes = 4096

// Sender is the part of *bot.Bot the collector replies through.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type Collector struct {
	history *services.HistoryService
	stats   *services.StatsService
	window  time.Duration
	logger  services.Logger
	now     func() time.Time
}

// NewCollector builds a collector whose reports cover the last windowDays days.
func NewCollector(history *services.HistoryService, stats *services.StatsService, windowDays int, logger services.Logger) *Collector {
	if logger == nil {
		logger = &services.NoOpLogger{}
	}
	return &Collector{
		history: history,
		stats:   stats,
		window:  time.Duration(windowDays) * 24 * time.Hour,
		logger:  logger,
		now:     time.Now,
	}
}

// Handle is a bot.HandlerFunc.
func (c *Collector) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	c.handle(ctx, b, update)
}

func (c *Collector) handle(ctx context.Context, sender Sender, update *models.Update) {
	incoming, ok := FromUpdate(update)
	if !ok {
		return
	}

	if err := c.history.Record(ctx, incoming); err != nil {
		c.logger.Error("failed to record telegram message",
			"chat_id", *incoming.ChatID, "message_id", incoming.ID, "error", err)
	}

	switch normalizeCommand(incoming.Body) {
	case "/stats":
		c.replyChatReport(ctx, sender, *incoming.ChatID, incoming.ID)
	case "/me":
		c.replyUserReport(ctx, sender, *incoming.ChatID, incoming.UserID, incoming.ID)
	}
}

func (c *Collector) since() *time.Time {
	since := domain.TruncateDay(c.now().Add(-c.window))
	return &since
}

func (c *Collector) replyChatReport(ctx context.Context, sender Sender, chatID, replyTo int64) {
	report, err := c.stats.ChatReport(ctx, chatID, c.since())
	if err != nil {
		c.logger.Error("chat report failed", "chat_id", chatID, "error", err)
		c.reply(ctx, sender, chatID, replyTo, "Statistics are unavailable right now.")
		return
	}
	md, err := c.stats.RenderMarkdown(report)
	if err != nil {
		c.logger.Error("chat report rendering failed", "chat_id", chatID, "error", err)
		return
	}
	c.replyPre(ctx, sender, chatID, replyTo, md)
}

func (c *Collector) replyUserReport(ctx context.Context, sender Sender, chatID, userID, replyTo int64) {
	report, err := c.stats.UserReport(ctx, chatID, userID, c.since())
	if err != nil {
		c.logger.Error("user report failed", "chat_id", chatID, "user_id", userID, "error", err)
		c.reply(ctx, sender, chatID, replyTo, "Statistics are unavailable right now.")
		return
	}
	md, err := c.stats.RenderUserMarkdown(report)
	if err != nil {
		c.logger.Error("user report rendering failed", "chat_id", chatID, "error", err)
		return
	}
	c.replyPre(ctx, sender, chatID, replyTo, md)
}

// replyPre sends a report as preformatted text; Telegram has no tables.
func (c *Collector) replyPre(ctx context.Context, sender Sender, chatID, replyTo int64, text string) {
	const wrap = len("<pre></pre>")
	body := html.EscapeString(text)
	if utf8.RuneCountInString(body)+wrap > maxMessageRunes {
		cut := string([]rune(body)[:maxMessageRunes-wrap-1])
		// cutting may split an entity such as &amp;
		if i := lastUnclosedEntity(cut); i >= 0 {
			cut = cut[:i]
		}
		body = cut + "…"
	}
	c.send(ctx, sender, &bot.SendMessageParams{
		ChatID:          chatID,
		Text:            "<pre>" + body + "</pre>",
		ParseMode:       models.ParseModeHTML,
		ReplyParameters: &models.ReplyParameters{MessageID: int(replyTo)},
	})
}

func (c *Collector) reply(ctx context.Context, sender Sender, chatID, replyTo int64, text string) {
	c.send(ctx, sender, &bot.SendMessageParams{
		ChatID:          chatID,
		Text:            text,
		ReplyParameters: &models.ReplyParameters{MessageID: int(replyTo)},
	})
}

func (c *Collector) send(ctx context.Context, sender Sender, params *bot.SendMessageParams) {
	if _, err := sender.SendMessage(ctx, params); err != nil {
		c.logger.Error("failed to send telegram message", "chat_id", params.ChatID, "error", err)
	}
}

// lastUnclosedEntity returns the index of a trailing '&' without its ';', or -1.
func lastUnclosedEntity(s string) int {
	for i := len(s) - 1; i >= 0 && i >= len(s)-12; i-- {
		switch s[i] {
		case ';':
			return -1
		case '&':
			return i
		}
	}
	return -1
}
