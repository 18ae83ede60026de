// Package telegram feeds group messages from the Telegram Bot API into the
// history and answers report commands.
package telegram

import (
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/iyunix/go-chatstats/internal/domain"
)

// FromUpdate converts a message update into an IncomingMessage. Only text
// messages and captioned media sent by a user are converted.
func FromUpdate(update *models.Update) (domain.IncomingMessage, bool) {
	if update == nil || update.Message == nil {
		return domain.IncomingMessage{}, false
	}
	msg := update.Message
	if msg.From == nil || msg.From.IsBot {
		return domain.IncomingMessage{}, false
	}

	body := msg.Text
	if body == "" {
		body = msg.Caption
	}
	if strings.TrimSpace(body) == "" {
		return domain.IncomingMessage{}, false
	}

	chatID := msg.Chat.ID
	return domain.IncomingMessage{
		ID:     int64(msg.ID),
		ChatID: &chatID,
		UserID: msg.From.ID,
		Body:   body,
		Date:   int64(msg.Date),
	}, true
}

// normalizeCommand lowercases a command and strips a @botname suffix.
func normalizeCommand(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	return cmd
}
