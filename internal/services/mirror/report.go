package mirror

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/pkg/timeutil"
)

// Period — окно сводного отчёта.
type Period int

const (
	PeriodCurrentWeek Period = iota
	PeriodPreviousWeek
	PeriodNextWeek
	PeriodCurrentMonth
)

func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "week", "current", "неделя":
		return PeriodCurrentWeek, nil
	case "prev", "previous", "прошлая":
		return PeriodPreviousWeek, nil
	case "next", "следующая":
		return PeriodNextWeek, nil
	case "month", "месяц":
		return PeriodCurrentMonth, nil
	default:
		return 0, &models.ValidationError{Reason: fmt.Sprintf("unknown report period %q", s)}
	}
}

func (p Period) String() string {
	switch p {
	case PeriodPreviousWeek:
		return "prev"
	case PeriodNextWeek:
		return "next"
	case PeriodCurrentMonth:
		return "month"
	default:
		return "week"
	}
}

func (p Period) Label() string {
	switch p {
	case PeriodPreviousWeek:
		return "прошлая неделя"
	case PeriodNextWeek:
		return "следующая неделя"
	case PeriodCurrentMonth:
		return "текущий месяц"
	default:
		return "текущая неделя"
	}
}

// Range возвращает первый и последний день окна. Неделя начинается с понедельника.
func (p Period) Range(today time.Time) (time.Time, time.Time) {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	if p == PeriodCurrentMonth {
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return first, first.AddDate(0, 1, -1)
	}
	monday := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	switch p {
	case PeriodPreviousWeek:
		monday = monday.AddDate(0, 0, -7)
	case PeriodNextWeek:
		monday = monday.AddDate(0, 0, 7)
	}
	return monday, monday.AddDate(0, 0, 6)
}

// Report — сводка по сотрудникам и дням окна.
type Report struct {
	Period  Period
	From    string
	To      string
	Headers []string
	Rows    []ReportRow
	// Synced — отчёт записан в таблицу.
	Synced bool
}

type ReportRow struct {
	UserID       int64
	Name         string
	Handle       string
	Cells        []string
	TotalMinutes int
}

func (r ReportRow) Values() []string {
	v := make([]string, 0, len(r.Cells)+3)
	v = append(v, r.Name, r.Handle)
	v = append(v, r.Cells...)
	return append(v, timeutil.FormatDuration(r.TotalMinutes))
}

func (r *Report) Values() [][]string {
	out := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Values()
	}
	return out
}

func (r *Report) TotalMinutes() int {
	total := 0
	for _, row := range r.Rows {
		total += row.TotalMinutes
	}
	return total
}

// BuildReport пересчитывает отчёт целиком из смен. В итог попадают только
// завершённые смены, минуты не округляются.
func BuildReport(p Period, from, to time.Time, employees []models.Employee, shifts []models.Shift) *Report {
	var days []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(models.DateLayout))
	}
	dayIndex := make(map[string]int, len(days))
	headers := []string{"Сотрудник", "Username"}
	for i, d := range days {
		dayIndex[d] = i
		t, _ := time.Parse(models.DateLayout, d)
		headers = append(headers, t.Format(models.DisplayDateLayout))
	}
	headers = append(headers, "Итого")

	rows := make(map[int64]*ReportRow)
	row := func(userID int64, name, handle string) *ReportRow {
		r, ok := rows[userID]
		if !ok {
			r = &ReportRow{UserID: userID, Name: name, Handle: handle, Cells: make([]string, len(days))}
			rows[userID] = r
		}
		return r
	}
	for _, e := range employees {
		row(e.UserID, e.FullName, e.Handle())
	}

	sorted := append([]models.Shift(nil), shifts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ShiftDate != sorted[j].ShiftDate {
			return sorted[i].ShiftDate < sorted[j].ShiftDate
		}
		if sorted[i].StartTime != sorted[j].StartTime {
			return sorted[i].StartTime < sorted[j].StartTime
		}
		return sorted[i].ID < sorted[j].ID
	})

	for _, s := range sorted {
		idx, ok := dayIndex[s.ShiftDate]
		if !ok || s.Status == models.StatusCanceled {
			continue
		}
		r := row(s.UserID, s.FullName, s.Submitter().Handle())
		entry := reportEntry(s)
		if r.Cells[idx] != "" {
			r.Cells[idx] += "; "
		}
		r.Cells[idx] += entry
		if s.Status == models.StatusCompleted && s.WorkedMinutes != nil {
			r.TotalMinutes += *s.WorkedMinutes
		}
	}

	report := &Report{
		Period:  p,
		From:    from.Format(models.DateLayout),
		To:      to.Format(models.DateLayout),
		Headers: headers,
	}
	for _, r := range rows {
		report.Rows = append(report.Rows, *r)
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		a, b := report.Rows[i], report.Rows[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.UserID < b.UserID
	})
	return report
}

func reportEntry(s models.Shift) string {
	end := s.EndTime
	if s.ActualEndTime != nil {
		end = *s.ActualEndTime
	}
	entry := s.StartTime + "-" + end
	if s.Status == models.StatusCompleted && s.WorkedMinutes != nil {
		entry += " (" + timeutil.FormatDuration(*s.WorkedMinutes) + ")"
	}
	return entry
}
