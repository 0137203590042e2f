package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/evn/shiftbot/internal/models"
)

// Notifier пишет сотруднику в личные сообщения. Если сотрудник не начинал
// диалог с ботом, Telegram вернёт ошибку; вызывающий её только логирует.
type Notifier struct {
	api Sender
}

func NewNotifier(api Sender) *Notifier {
	return &Notifier{api: api}
}

func (n *Notifier) Notify(_ context.Context, _ int64, to models.Submitter, text string) error {
	if to.UserID == 0 {
		return fmt.Errorf("notify %s: no user id", to.Handle())
	}
	if _, err := n.api.Send(tgbotapi.NewMessage(to.UserID, text)); err != nil {
		return fmt.Errorf("notify %s: %w", to.Handle(), err)
	}
	return nil
}
