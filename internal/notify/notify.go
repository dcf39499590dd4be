// Package notify delivers due reminders. TelegramSender posts them to a
// chat; LogSender only writes them to the log and is used when no bot is
// configured.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"
)

// Messenger is the part of *tele.Bot used to deliver messages.
type Messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramSender sends reminders to a single chat.
type TelegramSender struct {
	bot    Messenger
	chatID int64
	log    zerolog.Logger
}

// NewTelegramSender creates a sender backed by a bot that never polls for
// updates; it only pushes messages.
func NewTelegramSender(token string, chatID int64, log zerolog.Logger) (*TelegramSender, error) {
	if token == "" {
		return nil, errors.New("NewTelegramSender: empty bot token")
	}
	if chatID == 0 {
		return nil, errors.New("NewTelegramSender: empty chat id")
	}
	b, err := tele.NewBot(tele.Settings{Token: token, Offline: true})
	if err != nil {
		return nil, fmt.Errorf("NewTelegramSender: create bot: %w", err)
	}
	return NewTelegramSenderWithBot(b, chatID, log), nil
}

// NewTelegramSenderWithBot wraps an existing messenger.
func NewTelegramSenderWithBot(bot Messenger, chatID int64, log zerolog.Logger) *TelegramSender {
	return &TelegramSender{bot: bot, chatID: chatID, log: log}
}

// Send posts n as an HTML message.
func (s *TelegramSender) Send(ctx context.Context, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.bot.Send(tele.ChatID(s.chatID), FormatMessage(n), tele.ModeHTML); err != nil {
		return fmt.Errorf("TelegramSender.Send: %s: %w", n.ID, err)
	}
	s.log.Debug().Str("notification_id", n.ID).Int64("chat_id", s.chatID).Msg("Reminder sent to Telegram")
	return nil
}

// FormatMessage renders n as Telegram HTML.
func FormatMessage(n domain.Notification) string {
	icon := "🔔"
	switch n.Type {
	case domain.NotificationDueDate:
		icon = "📅"
	case domain.NotificationReceivable:
		icon = "💰"
	}
	return fmt.Sprintf("%s <b>%s</b>\n\n%s", icon, html.EscapeString(n.Title), html.EscapeString(n.Message))
}

// LogSender writes reminders to the log.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, n domain.Notification) error {
	s.log.Info().
		Str("notification_id", n.ID).
		Str("type", string(n.Type)).
		Int64("reference_id", n.ReferenceID).
		Str("title", n.Title).
		Msg(n.Message)
	return nil
}
