package mirror

import (
	"strconv"
	"time"

	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/pkg/timeutil"
)

// Колонки листа "Смены". Ключ строки — id смены.
const (
	tsColID = iota
	tsColDate
	tsColName
	tsColHandle
	tsColStart
	tsColEnd
	tsColActualEnd
	tsColWorked
	tsColZone
	tsColTag
	tsColStatus
	timesheetWidth
)

var TimesheetHeaders = []string{"ID", "Дата", "Сотрудник", "Username", "Начало", "Конец", "Факт. конец", "Отработано", "Зона", "Тег", "Статус"}

type TimesheetRow struct {
	ShiftID   int64
	Date      string
	Name      string
	Handle    string
	Start     string
	End       string
	ActualEnd string
	Worked    string
	Zone      string
	Tag       string
	Status    string
}

func TimesheetRowFromShift(s models.Shift) TimesheetRow {
	row := TimesheetRow{
		ShiftID: s.ID,
		Date:    s.DisplayDate(),
		Name:    s.FullName,
		Handle:  s.Submitter().Handle(),
		Start:   s.StartTime,
		End:     s.EndTime,
		Zone:    s.Zone,
		Tag:     s.Tag,
		Status:  s.Status.Label(),
	}
	if s.ActualEndTime != nil {
		row.ActualEnd = *s.ActualEndTime
	}
	if s.WorkedMinutes != nil {
		row.Worked = timeutil.FormatDuration(*s.WorkedMinutes)
	}
	return row
}

func (r TimesheetRow) Key() string {
	return strconv.FormatInt(r.ShiftID, 10)
}

func (r TimesheetRow) Values() []string {
	v := make([]string, timesheetWidth)
	v[tsColID] = r.Key()
	v[tsColDate] = r.Date
	v[tsColName] = r.Name
	v[tsColHandle] = r.Handle
	v[tsColStart] = r.Start
	v[tsColEnd] = r.End
	v[tsColActualEnd] = r.ActualEnd
	v[tsColWorked] = r.Worked
	v[tsColZone] = r.Zone
	v[tsColTag] = r.Tag
	v[tsColStatus] = r.Status
	return v
}

// Колонки журнала исключений: ручное завершение с фактическим временем.
const (
	exColLoggedAt = iota
	exColShiftID
	exColDate
	exColName
	exColHandle
	exColPlanned
	exColActualEnd
	exColWorked
	exColTrigger
	exceptionWidth
)

var ExceptionHeaders = []string{"Записано", "ID смены", "Дата", "Сотрудник", "Username", "План", "Факт. конец", "Отработано", "Источник"}

type ExceptionRow struct {
	LoggedAt  time.Time
	ShiftID   int64
	Date      string
	Name      string
	Handle    string
	Planned   string
	ActualEnd string
	Worked    string
	Trigger   string
}

func (r ExceptionRow) Values() []string {
	v := make([]string, exceptionWidth)
	v[exColLoggedAt] = r.LoggedAt.Format("02.01.06 15:04")
	v[exColShiftID] = strconv.FormatInt(r.ShiftID, 10)
	v[exColDate] = r.Date
	v[exColName] = r.Name
	v[exColHandle] = r.Handle
	v[exColPlanned] = r.Planned
	v[exColActualEnd] = r.ActualEnd
	v[exColWorked] = r.Worked
	v[exColTrigger] = r.Trigger
	return v
}

// Колонки листа отсутствий. Пара (дата, username) уникальна.
const (
	abColDate = iota
	abColHandle
	abColName
	absenceWidth
)

var AbsenceHeaders = []string{"Дата", "Username", "Сотрудник"}

type AbsenceRow struct {
	Date   string
	Handle string
	Name   string
}

func (r AbsenceRow) Values() []string {
	v := make([]string, absenceWidth)
	v[abColDate] = r.Date
	v[abColHandle] = r.Handle
	v[abColName] = r.Name
	return v
}

func parseAbsenceRow(v []string) AbsenceRow {
	return AbsenceRow{
		Date:   cell(v, abColDate),
		Handle: cell(v, abColHandle),
		Name:   cell(v, abColName),
	}
}

// cell защищает от коротких строк: API таблиц обрезает пустые хвосты.
func cell(v []string, i int) string {
	if i < len(v) {
		return v[i]
	}
	return ""
}
