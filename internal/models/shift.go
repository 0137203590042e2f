// internal/models/shift.go
package models

import (
	"fmt"
	"time"
)

// Status — состояние смены. Переходы только active -> completed | canceled.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Label возвращает подпись статуса для сообщений и таблицы.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Активна"
	case StatusCompleted:
		return "Завершена"
	case StatusCanceled:
		return "Отменена"
	default:
		return string(s)
	}
}

const (
	// DateLayout — формат shift_date в хранилище (сортируется лексикографически).
	DateLayout = "2006-01-02"
	// DisplayDateLayout — формат даты в сообщениях, как в подписи к фото.
	DisplayDateLayout = "02.01.06"

	// NoTag — значение тега, если четвёртая строка подписи отсутствует.
	NoTag = "Нет"
)

// Submitter — сотрудник, отправивший фото.
type Submitter struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Handle возвращает @username или числовой id, если username не задан.
func (s Submitter) Handle() string {
	if s.Username != "" {
		return "@" + s.Username
	}
	return fmt.Sprintf("id%d", s.UserID)
}

// ShiftRequest — результат разбора подписи к фото.
type ShiftRequest struct {
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
	Zone  string `json:"zone"`
	Tag   string `json:"tag"`
}

// Shift — запись о смене сотрудника.
type Shift struct {
	ID            int64     `json:"id"`
	GroupID       int64     `json:"group_id"`
	UserID        int64     `json:"user_id"`
	Username      string    `json:"username"`
	FullName      string    `json:"full_name"`
	PhotoFileID   string    `json:"photo_file_id"`
	ShiftDate     string    `json:"shift_date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	ActualEndTime *string   `json:"actual_end_time"`
	WorkedMinutes *int      `json:"worked_minutes"`
	Zone          string    `json:"zone"`
	Tag           string    `json:"tag"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s Shift) Submitter() Submitter {
	return Submitter{UserID: s.UserID, Username: s.Username}
}

// Interval возвращает "HH:MM-HH:MM" по расписанию.
func (s Shift) Interval() string {
	return s.StartTime + "-" + s.EndTime
}

// DisplayDate переводит ISO-дату в формат ДД.ММ.ГГ.
func (s Shift) DisplayDate() string {
	d, err := time.Parse(DateLayout, s.ShiftDate)
	if err != nil {
		return s.ShiftDate
	}
	return d.Format(DisplayDateLayout)
}

// Trigger — источник перехода состояния.
type Trigger int

const (
	TriggerAdminConfirm Trigger = iota + 1
	TriggerAdminActualTime
	TriggerScheduled
)

func (t Trigger) String() string {
	switch t {
	case TriggerAdminConfirm:
		return "admin"
	case TriggerAdminActualTime:
		return "admin-actual-time"
	case TriggerScheduled:
		return "scheduled"
	default:
		return "unknown"
	}
}

// Interval — занятый промежуток времени, используется только для проверки пересечений.
type Interval struct {
	ShiftID int64
	Start   string
	End     string
	Status  Status
}

// Employee — сотрудник группы, известный по его сменам.
type Employee struct {
	UserID   int64
	Username string
	FullName string
}

func (e Employee) Handle() string {
	return Submitter{UserID: e.UserID, Username: e.Username}.Handle()
}
