// Package shift — регистрация смен и их жизненный цикл.
// Все переходы (админ, фактическое время, расписание) идут через Complete и Cancel.
package shift

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/evn/shiftbot/internal/caption"
	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/pkg/timeutil"
)

type Repository interface {
	Create(ctx context.Context, groupID int64, sub models.Submitter, req models.ShiftRequest, photoRef, shiftDate string, createdAt time.Time) (int64, error)
	FindByID(ctx context.Context, groupID, id int64) (*models.Shift, error)
	FindByDate(ctx context.Context, groupID int64, date string) ([]models.Shift, error)
	FindActiveByDate(ctx context.Context, groupID int64, date string) ([]models.Shift, error)
	ListEmployees(ctx context.Context, groupID int64) ([]models.Employee, error)
	UpdateSchedule(ctx context.Context, groupID, id int64, start, end string) (*models.Shift, error)
	Complete(ctx context.Context, groupID, id int64, actualEnd string) (*models.Shift, error)
	Cancel(ctx context.Context, groupID, id int64) (*models.Shift, error)
	Delete(ctx context.Context, groupID, id int64) (bool, error)
}

// Mirror — проекция смен в таблицу. Ошибки здесь никогда не отменяют изменения в базе.
type Mirror interface {
	UpsertShift(ctx context.Context, s models.Shift) error
	LogException(ctx context.Context, s models.Shift, trigger models.Trigger) error
	MarkAbsent(ctx context.Context, groupID int64, date string, e models.Employee) (bool, error)
}

// Notifier доставляет сообщение сотруднику. Best-effort.
type Notifier interface {
	Notify(ctx context.Context, groupID int64, to models.Submitter, text string) error
}

// EventSink получает события о сменах (live-лента).
type EventSink interface {
	Publish(groupID int64, event string, s models.Shift)
}

const (
	EventCreated   = "shift.created"
	EventCompleted = "shift.completed"
	EventCanceled  = "shift.canceled"
	EventEdited    = "shift.edited"
	EventDeleted   = "shift.deleted"
)

type Service struct {
	repo     Repository
	mirror   Mirror
	notifier Notifier
	events   EventSink
	now      func() time.Time
}

func NewService(repo Repository, mirror Mirror, notifier Notifier, events EventSink) *Service {
	return &Service{repo: repo, mirror: mirror, notifier: notifier, events: events, now: time.Now}
}

// WithClock подменяет часы, используется в тестах и планировщике.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register разбирает подпись, проверяет пересечения и сохраняет смену.
// shiftDate — текущая дата группы в формате 2006-01-02.
func (s *Service) Register(ctx context.Context, groupID int64, sub models.Submitter, text, photoRef, shiftDate string) (*models.Shift, error) {
	req, err := caption.Parse(text)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.Create(ctx, groupID, sub, req, photoRef, shiftDate, s.now())
	if err != nil {
		return nil, err
	}
	shift, err := s.repo.FindByID(ctx, groupID, id)
	if err != nil {
		return nil, fmt.Errorf("reload shift %d: %w", id, err)
	}

	log.Printf("shift: ✅ #%d registered for %s on %s (%s)", shift.ID, sub.Handle(), shiftDate, shift.Interval())
	s.syncMirror(ctx, *shift)
	s.publish(EventCreated, *shift)
	return shift, nil
}

// Complete завершает активную смену. Для TriggerAdminActualTime actualEnd
// обязателен и записывается в журнал исключений; остальные триггеры
// считают отработанное время по плановому окончанию.
func (s *Service) Complete(ctx context.Context, groupID, id int64, actualEnd string, trigger models.Trigger) (*models.Shift, error) {
	if trigger == models.TriggerAdminActualTime {
		if !timeutil.IsValidTime(actualEnd) {
			return nil, &models.ValidationError{Reason: fmt.Sprintf("invalid actual end time %q", actualEnd)}
		}
	} else {
		actualEnd = ""
	}

	shift, err := s.repo.Complete(ctx, groupID, id, actualEnd)
	if err != nil {
		return nil, err
	}

	log.Printf("shift: #%d completed (%s), worked %s", shift.ID, trigger, workedLabel(*shift))
	s.syncMirror(ctx, *shift)
	if trigger == models.TriggerAdminActualTime {
		if err := s.mirror.LogException(ctx, *shift, trigger); err != nil {
			log.Printf("shift: ⚠️ exception log for #%d failed: %v", shift.ID, err)
		}
	}
	s.notify(ctx, *shift, completedText(*shift))
	s.publish(EventCompleted, *shift)
	return shift, nil
}

func (s *Service) Cancel(ctx context.Context, groupID, id int64, trigger models.Trigger) (*models.Shift, error) {
	shift, err := s.repo.Cancel(ctx, groupID, id)
	if err != nil {
		return nil, err
	}

	log.Printf("shift: #%d canceled (%s)", shift.ID, trigger)
	s.syncMirror(ctx, *shift)
	s.notify(ctx, *shift, fmt.Sprintf("❌ Ваша смена #%d на %s (%s) отменена администратором.", shift.ID, shift.DisplayDate(), shift.Interval()))
	s.publish(EventCanceled, *shift)
	return shift, nil
}

// EditSchedule меняет плановое время активной смены.
func (s *Service) EditSchedule(ctx context.Context, groupID, id int64, start, end string) (*models.Shift, error) {
	if err := caption.ValidateSchedule(start, end); err != nil {
		return nil, err
	}
	shift, err := s.repo.UpdateSchedule(ctx, groupID, id, start, end)
	if err != nil {
		return nil, err
	}

	log.Printf("shift: #%d rescheduled to %s", shift.ID, shift.Interval())
	s.syncMirror(ctx, *shift)
	s.notify(ctx, *shift, fmt.Sprintf("✏️ Время вашей смены #%d на %s изменено: %s.", shift.ID, shift.DisplayDate(), shift.Interval()))
	s.publish(EventEdited, *shift)
	return shift, nil
}

// Delete удаляет смену из базы. Строка в табеле остаётся до пересборки.
func (s *Service) Delete(ctx context.Context, groupID, id int64) error {
	shift, err := s.repo.FindByID(ctx, groupID, id)
	if err != nil {
		return err
	}
	ok, err := s.repo.Delete(ctx, groupID, id)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrNotFound
	}
	log.Printf("shift: #%d deleted", id)
	s.publish(EventDeleted, *shift)
	return nil
}

// AutoComplete завершает все активные смены дня по плановому окончанию.
// Смены, закрытые админом параллельно, пропускаются.
func (s *Service) AutoComplete(ctx context.Context, groupID int64, date string) (int, error) {
	active, err := s.repo.FindActiveByDate(ctx, groupID, date)
	if err != nil {
		return 0, fmt.Errorf("load active shifts: %w", err)
	}

	completed := 0
	for _, sh := range active {
		_, err := s.Complete(ctx, groupID, sh.ID, "", models.TriggerScheduled)
		switch {
		case err == nil:
			completed++
		case errors.Is(err, models.ErrAlreadyClosed), errors.Is(err, models.ErrNotFound):
			log.Printf("shift: #%d closed concurrently, skipping", sh.ID)
		default:
			log.Printf("shift: ❌ auto-complete #%d failed: %v", sh.ID, err)
		}
	}
	return completed, nil
}

// MarkAbsent отмечает в таблице сотрудников группы без единой смены за дату.
// В базе ничего не меняется.
func (s *Service) MarkAbsent(ctx context.Context, groupID int64, date string) (int, error) {
	employees, err := s.repo.ListEmployees(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("load employees: %w", err)
	}
	shifts, err := s.repo.FindByDate(ctx, groupID, date)
	if err != nil {
		return 0, fmt.Errorf("load shifts: %w", err)
	}
	present := make(map[int64]bool, len(shifts))
	for _, sh := range shifts {
		present[sh.UserID] = true
	}

	marked := 0
	for _, e := range employees {
		if present[e.UserID] {
			continue
		}
		ok, err := s.mirror.MarkAbsent(ctx, groupID, date, e)
		if err != nil {
			log.Printf("shift: ⚠️ absence mark for %s failed: %v", e.Handle(), err)
			continue
		}
		if ok {
			marked++
		}
	}
	return marked, nil
}

func (s *Service) syncMirror(ctx context.Context, shift models.Shift) {
	if err := s.mirror.UpsertShift(ctx, shift); err != nil {
		log.Printf("shift: ⚠️ mirror sync for #%d failed: %v", shift.ID, err)
	}
}

func (s *Service) notify(ctx context.Context, shift models.Shift, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, shift.GroupID, shift.Submitter(), text); err != nil {
		log.Printf("shift: ⚠️ notify %s failed: %v", shift.Submitter().Handle(), err)
	}
}

func (s *Service) publish(event string, shift models.Shift) {
	if s.events != nil {
		s.events.Publish(shift.GroupID, event, shift)
	}
}

func workedLabel(shift models.Shift) string {
	if shift.WorkedMinutes == nil {
		return "-"
	}
	return timeutil.FormatDuration(*shift.WorkedMinutes)
}

func completedText(shift models.Shift) string {
	text := fmt.Sprintf("✅ Ваша смена #%d на %s (%s) завершена.", shift.ID, shift.DisplayDate(), shift.Interval())
	if shift.ActualEndTime != nil {
		text += fmt.Sprintf("\nФактическое окончание: %s", *shift.ActualEndTime)
	}
	return text + "\nОтработано: " + workedLabel(shift)
}
