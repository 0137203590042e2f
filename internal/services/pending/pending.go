// Package pending хранит короткоживущие ожидания ответа администратора,
// например "введите фактическое время окончания смены #12".
package pending

import (
	"context"
	"strconv"
	"time"
)

type Kind string

const (
	KindActualEnd Kind = "actual_end"
	KindSchedule  Kind = "schedule"
)

// Action — ожидаемый ответ администратора в конкретном чате.
type Action struct {
	Kind    Kind  `json:"kind"`
	GroupID int64 `json:"group_id"`
	ShiftID int64 `json:"shift_id"`
	// PromptMessageID — сообщение с вопросом, на которое отвечает админ.
	PromptMessageID int `json:"prompt_message_id,omitempty"`
}

// Store — ожидания по ключу (чат, админ). Take возвращает запись и удаляет
// её: на одно ожидание приходится ровно один ответ.
type Store interface {
	Put(ctx context.Context, chatID, adminID int64, a Action) error
	Take(ctx context.Context, chatID, adminID int64) (Action, bool, error)
	Drop(ctx context.Context, chatID, adminID int64) error
}

func key(chatID, adminID int64) string {
	return "pending:" + strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(adminID, 10)
}

const DefaultTTL = 5 * time.Minute
