package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/dieuphamit/giapha/internal/models"
)

// Telegram sends moderation notifications to a reviewer group chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *logrus.Logger
}

// NewTelegram creates a Telegram notifier for the given reviewer chat.
func NewTelegram(token string, chatID int64, logger *logrus.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logger.Infof("Telegram notifier authorized as @%s", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

// ContributionSubmitted announces a new pending contribution.
func (t *Telegram) ContributionSubmitted(c *models.Contribution) {
	text := fmt.Sprintf("📝 New contribution %s (%s)", c.ID, c.FieldName)
	if c.PersonName != "" {
		text += fmt.Sprintf(" for %s", c.PersonName)
	}
	t.send(text)
}

// ContributionReviewed announces a review decision.
func (t *Telegram) ContributionReviewed(c *models.Contribution) {
	icon := "✅"
	if c.Status == models.ContributionRejected {
		icon = "❌"
	}
	text := fmt.Sprintf("%s Contribution %s %s by %s", icon, c.ID, c.Status, c.ReviewedBy)
	if c.AdminNote != "" {
		text += fmt.Sprintf("\nNote: %s", c.AdminNote)
	}
	t.send(text)
}

func (t *Telegram) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.WithError(err).Error("failed to send telegram notification")
	}
}
