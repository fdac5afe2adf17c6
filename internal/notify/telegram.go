package notify

import (
	"fmt"

	"cartag/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramSender delivers notifications to the Telegram chat an owner
// linked during onboarding.
type TelegramSender struct {
	BotAPI *tgbotapi.BotAPI
	Logger *zap.SugaredLogger
}

func NewTelegramSender(token string, logger *zap.SugaredLogger) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	logger.Infof("Authorized on Telegram account %s", bot.Self.UserName)

	return &TelegramSender{BotAPI: bot, Logger: logger}, nil
}

func (t *TelegramSender) Send(acct *models.Account, n models.Notification) error {
	if acct.TelegramChatID == 0 {
		return fmt.Errorf("account %s has no linked Telegram chat", acct.ID)
	}

	text := fmt.Sprintf("*%s*\n%s", n.Title, n.Body)
	if n.ActionURL != "" {
		text += fmt.Sprintf("\n%s", n.ActionURL)
	}

	msg := tgbotapi.NewMessage(acct.TelegramChatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := t.BotAPI.Send(msg); err != nil {
		return err
	}
	return nil
}
