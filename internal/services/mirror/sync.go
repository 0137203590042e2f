package mirror

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/pkg/timeutil"
)

// ReportSource — срез хранилища, из которого строится отчёт.
type ReportSource interface {
	FindBetween(ctx context.Context, groupID int64, from, to string) ([]models.Shift, error)
	ListEmployees(ctx context.Context, groupID int64) ([]models.Employee, error)
}

// Sync пишет состояние смен в таблицы групп. Каждый вызов ограничен таймаутом;
// ошибки возвращаются как *MirrorFailure, решение о том, что с ними делать,
// остаётся за вызывающим.
type Sync struct {
	mirrors map[int64]Mirror
	source  ReportSource
	timeout time.Duration
	now     func() time.Time
}

func NewSync(source ReportSource, mirrors map[int64]Mirror, timeout time.Duration) *Sync {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sync{mirrors: mirrors, source: source, timeout: timeout, now: time.Now}
}

func (s *Sync) mirror(groupID int64) (Mirror, error) {
	m, ok := s.mirrors[groupID]
	if !ok {
		return nil, &MirrorFailure{Op: "lookup", Err: fmt.Errorf("no mirror for group %d", groupID)}
	}
	return m, nil
}

func (s *Sync) run(ctx context.Context, groupID int64, op string, fn func(ctx context.Context, m Mirror) error) error {
	m, err := s.mirror(groupID)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := fn(ctx, m); err != nil {
		return &MirrorFailure{Op: op, Err: err}
	}
	return nil
}

// UpsertShift обновляет строку смены в табеле по её id.
func (s *Sync) UpsertShift(ctx context.Context, shift models.Shift) error {
	row := TimesheetRowFromShift(shift)
	return s.run(ctx, shift.GroupID, "upsert shift", func(ctx context.Context, m Mirror) error {
		if err := m.EnsureSheet(ctx, SheetTimesheet, TimesheetHeaders); err != nil {
			return err
		}
		return m.UpsertRow(ctx, SheetTimesheet, row.Key(), row.Values())
	})
}

// LogException дописывает в журнал завершение смены с фактическим временем.
func (s *Sync) LogException(ctx context.Context, shift models.Shift, trigger models.Trigger) error {
	row := ExceptionRow{
		LoggedAt: s.now(),
		ShiftID:  shift.ID,
		Date:     shift.DisplayDate(),
		Name:     shift.FullName,
		Handle:   shift.Submitter().Handle(),
		Planned:  shift.Interval(),
		Trigger:  trigger.String(),
	}
	if shift.ActualEndTime != nil {
		row.ActualEnd = *shift.ActualEndTime
	}
	if shift.WorkedMinutes != nil {
		row.Worked = timeutil.FormatDuration(*shift.WorkedMinutes)
	}
	return s.run(ctx, shift.GroupID, "log exception", func(ctx context.Context, m Mirror) error {
		if err := m.EnsureSheet(ctx, SheetExceptions, ExceptionHeaders); err != nil {
			return err
		}
		return m.AppendRow(ctx, SheetExceptions, row.Values())
	})
}

// MarkAbsent отмечает сотрудника отсутствующим на дату. Повторная отметка
// той же пары (дата, сотрудник) ничего не пишет и возвращает false.
func (s *Sync) MarkAbsent(ctx context.Context, groupID int64, date string, e models.Employee) (bool, error) {
	display := date
	if d, err := time.Parse(models.DateLayout, date); err == nil {
		display = d.Format(models.DisplayDateLayout)
	}
	want := AbsenceRow{Date: display, Handle: e.Handle(), Name: e.FullName}

	marked := false
	err := s.run(ctx, groupID, "mark absent", func(ctx context.Context, m Mirror) error {
		if err := m.EnsureSheet(ctx, SheetAbsence, AbsenceHeaders); err != nil {
			return err
		}
		rows, err := m.GetRows(ctx, SheetAbsence)
		if err != nil {
			return err
		}
		for _, r := range rows {
			got := parseAbsenceRow(r)
			if got.Date == want.Date && got.Handle == want.Handle {
				return nil
			}
		}
		if err := m.AppendRow(ctx, SheetAbsence, want.Values()); err != nil {
			return err
		}
		marked = true
		return nil
	})
	return marked, err
}

// BuildReport считает отчёт за окно без записи в таблицу.
func (s *Sync) BuildReport(ctx context.Context, groupID int64, p Period, today time.Time) (*Report, error) {
	from, to := p.Range(today)
	shifts, err := s.source.FindBetween(ctx, groupID, from.Format(models.DateLayout), to.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("load shifts: %w", err)
	}
	employees, err := s.source.ListEmployees(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	return BuildReport(p, from, to, employees, shifts), nil
}

// RebuildReport полностью пересобирает лист отчёта из базы. Ошибка таблицы
// только логируется: отчёт возвращается с Synced=false.
func (s *Sync) RebuildReport(ctx context.Context, groupID int64, p Period, today time.Time) (*Report, error) {
	report, err := s.BuildReport(ctx, groupID, p, today)
	if err != nil {
		return nil, err
	}
	err = s.run(ctx, groupID, "rebuild report", func(ctx context.Context, m Mirror) error {
		return m.ReplaceRows(ctx, SheetReport, report.Headers, report.Values())
	})
	if err != nil {
		log.Printf("mirror: ⚠️ report for group %d not written: %v", groupID, err)
		return report, nil
	}
	report.Synced = true
	return report, nil
}
