// internal/repositories/shift_repository.go
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/evn/shiftbot/db"
	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/pkg/timeutil"
)

const shiftColumns = `id, group_id, user_id, username, full_name, photo_file_id, shift_date,
	start_time, end_time, actual_end_time, worked_minutes, zone, tag, status, created_at`

// ShiftRepository — хранилище смен. Каждый запрос параметризован group_id,
// поэтому доступ к сменам чужой группы невозможен.
type ShiftRepository struct {
	db     *sql.DB
	driver string
	locks  *keyedMutex

	canceledFreesSlot bool
}

type Option func(*ShiftRepository)

// WithCanceledFreesSlot исключает отменённые смены из проверки пересечений.
func WithCanceledFreesSlot(v bool) Option {
	return func(r *ShiftRepository) {
		r.canceledFreesSlot = v
	}
}

func NewShiftRepository(conn *sql.DB, driver string, opts ...Option) *ShiftRepository {
	r := &ShiftRepository{db: conn, driver: driver, locks: newKeyedMutex()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ShiftRepository) q(query string) string {
	return db.Rebind(r.driver, query)
}

func slotKey(groupID, userID int64, date string) string {
	return strconv.FormatInt(groupID, 10) + ":" + strconv.FormatInt(userID, 10) + ":" + date
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanShift(row rowScanner) (models.Shift, error) {
	var (
		s         models.Shift
		actualEnd sql.NullString
		worked    sql.NullInt64
		status    string
		createdAt int64
	)
	err := row.Scan(&s.ID, &s.GroupID, &s.UserID, &s.Username, &s.FullName, &s.PhotoFileID, &s.ShiftDate,
		&s.StartTime, &s.EndTime, &actualEnd, &worked, &s.Zone, &s.Tag, &status, &createdAt)
	if err != nil {
		return s, err
	}
	if actualEnd.Valid {
		v := actualEnd.String
		s.ActualEndTime = &v
	}
	if worked.Valid {
		v := int(worked.Int64)
		s.WorkedMinutes = &v
	}
	s.Status = models.Status(status)
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	return s, nil
}

func (r *ShiftRepository) queryShifts(ctx context.Context, query string, args ...interface{}) ([]models.Shift, error) {
	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []models.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}

// intervals читает занятые промежутки пользователя за день в рамках транзакции.
func (r *ShiftRepository) intervals(ctx context.Context, tx *sql.Tx, groupID, userID int64, date string) ([]models.Interval, error) {
	query := `SELECT id, start_time, end_time, status FROM shifts
		WHERE group_id = ? AND user_id = ? AND shift_date = ?`
	if r.canceledFreesSlot {
		query += ` AND status <> 'canceled'`
	}
	query += ` ORDER BY start_time`

	rows, err := tx.QueryContext(ctx, r.q(query), groupID, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Interval
	for rows.Next() {
		var iv models.Interval
		var status string
		if err := rows.Scan(&iv.ShiftID, &iv.Start, &iv.End, &status); err != nil {
			return nil, err
		}
		iv.Status = models.Status(status)
		out = append(out, iv)
	}
	return out, rows.Err()
}

func checkOverlap(existing []models.Interval, start, end string, skipID int64) error {
	for _, iv := range existing {
		if iv.ShiftID == skipID {
			continue
		}
		if timeutil.IntervalsOverlap(start, end, iv.Start, iv.End) {
			return &models.OverlapError{ShiftID: iv.ShiftID, Start: iv.Start, End: iv.End}
		}
	}
	return nil
}

// Create сохраняет новую смену со статусом active, если она не пересекается
// с другими сменами пользователя за этот день.
func (r *ShiftRepository) Create(ctx context.Context, groupID int64, sub models.Submitter, req models.ShiftRequest, photoRef, shiftDate string, createdAt time.Time) (int64, error) {
	unlock := r.locks.Lock(slotKey(groupID, sub.UserID, shiftDate))
	defer unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	existing, err := r.intervals(ctx, tx, groupID, sub.UserID, shiftDate)
	if err != nil {
		return 0, fmt.Errorf("load intervals: %w", err)
	}
	if err := checkOverlap(existing, req.Start, req.End, 0); err != nil {
		return 0, err
	}

	var id int64
	err = tx.QueryRowContext(ctx, r.q(`
		INSERT INTO shifts (group_id, user_id, username, full_name, photo_file_id, shift_date,
			start_time, end_time, zone, tag, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		groupID, sub.UserID, sub.Username, req.Name, photoRef, shiftDate,
		req.Start, req.End, req.Zone, req.Tag, string(models.StatusActive), createdAt.Unix(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert shift: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func (r *ShiftRepository) FindByID(ctx context.Context, groupID, id int64) (*models.Shift, error) {
	row := r.db.QueryRowContext(ctx, r.q(`SELECT `+shiftColumns+` FROM shifts WHERE group_id = ? AND id = ?`), groupID, id)
	s, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find shift %d: %w", id, err)
	}
	return &s, nil
}

// FindForUserAndDate возвращает занятые промежутки, в том числе завершённые
// и (по умолчанию) отменённые смены.
func (r *ShiftRepository) FindForUserAndDate(ctx context.Context, groupID, userID int64, date string) ([]models.Interval, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	return r.intervals(ctx, tx, groupID, userID, date)
}

func (r *ShiftRepository) FindByUser(ctx context.Context, groupID, userID int64) ([]models.Shift, error) {
	return r.queryShifts(ctx, `SELECT `+shiftColumns+` FROM shifts
		WHERE group_id = ? AND user_id = ?
		ORDER BY shift_date DESC, start_time ASC, id ASC`, groupID, userID)
}

// FindByUsername ищет смены по @username без учёта регистра.
func (r *ShiftRepository) FindByUsername(ctx context.Context, groupID int64, username string) ([]models.Shift, error) {
	return r.queryShifts(ctx, `SELECT `+shiftColumns+` FROM shifts
		WHERE group_id = ? AND LOWER(username) = LOWER(?)
		ORDER BY shift_date DESC, start_time ASC, id ASC`, groupID, strings.TrimPrefix(username, "@"))
}

func (r *ShiftRepository) FindByDate(ctx context.Context, groupID int64, date string) ([]models.Shift, error) {
	return r.queryShifts(ctx, `SELECT `+shiftColumns+` FROM shifts
		WHERE group_id = ? AND shift_date = ?
		ORDER BY start_time ASC, id ASC`, groupID, date)
}

func (r *ShiftRepository) FindActiveByDate(ctx context.Context, groupID int64, date string) ([]models.Shift, error) {
	return r.queryShifts(ctx, `SELECT `+shiftColumns+` FROM shifts
		WHERE group_id = ? AND shift_date = ? AND status = 'active'
		ORDER BY start_time ASC, id ASC`, groupID, date)
}

func (r *ShiftRepository) FindAll(ctx context.Context, groupID int64) ([]models.Shift, error) {
	return r.queryShifts(ctx, `SELECT `+shiftColumns+` FROM shifts
		WHERE group_id = ?
		ORDER BY shift_date ASC, start_time ASC, id ASC`, groupID)
}

// FindBetween возвращает смены за даты [from, to] включительно.
func (r *ShiftRepository) FindBetween(ctx context.Context, groupID int64, from, to string) ([]models.Shift, error) {
	return r.queryShifts(ctx, `SELECT `+shiftColumns+` FROM shifts
		WHERE group_id = ? AND shift_date >= ? AND shift_date <= ?
		ORDER BY shift_date ASC, start_time ASC, id ASC`, groupID, from, to)
}

// ListEmployees возвращает всех, кто когда-либо регистрировал смену в группе,
// с именем из последней смены.
func (r *ShiftRepository) ListEmployees(ctx context.Context, groupID int64) ([]models.Employee, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`
		SELECT s.user_id, s.username, s.full_name FROM shifts s
		WHERE s.group_id = ? AND s.id = (
			SELECT MAX(id) FROM shifts WHERE group_id = s.group_id AND user_id = s.user_id
		)
		ORDER BY s.full_name, s.user_id`), groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.UserID, &e.Username, &e.FullName); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// loadForUpdate перечитывает смену внутри транзакции непосредственно перед изменением.
func (r *ShiftRepository) loadForUpdate(ctx context.Context, tx *sql.Tx, groupID, id int64) (models.Shift, error) {
	row := tx.QueryRowContext(ctx, r.q(`SELECT `+shiftColumns+` FROM shifts WHERE group_id = ? AND id = ?`), groupID, id)
	s, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return s, models.ErrNotFound
	}
	if err != nil {
		return s, fmt.Errorf("load shift %d: %w", id, err)
	}
	if s.Status.Terminal() {
		return s, models.ErrAlreadyClosed
	}
	return s, nil
}

// UpdateSchedule меняет плановое время активной смены и сбрасывает
// фактическое окончание и отработанное время.
func (r *ShiftRepository) UpdateSchedule(ctx context.Context, groupID, id int64, start, end string) (*models.Shift, error) {
	current, err := r.FindByID(ctx, groupID, id)
	if err != nil {
		return nil, err
	}
	unlock := r.locks.Lock(slotKey(groupID, current.UserID, current.ShiftDate))
	defer unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	s, err := r.loadForUpdate(ctx, tx, groupID, id)
	if err != nil {
		return nil, err
	}
	existing, err := r.intervals(ctx, tx, groupID, s.UserID, s.ShiftDate)
	if err != nil {
		return nil, fmt.Errorf("load intervals: %w", err)
	}
	if err := checkOverlap(existing, start, end, s.ID); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, r.q(`
		UPDATE shifts SET start_time = ?, end_time = ?, actual_end_time = NULL, worked_minutes = NULL
		WHERE group_id = ? AND id = ? AND status = 'active'`), start, end, groupID, id)
	if err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return r.FindByID(ctx, groupID, id)
}

// Complete переводит смену в completed. Если actualEnd пуст, отработанное
// время считается по плановому окончанию.
func (r *ShiftRepository) Complete(ctx context.Context, groupID, id int64, actualEnd string) (*models.Shift, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	s, err := r.loadForUpdate(ctx, tx, groupID, id)
	if err != nil {
		return nil, err
	}

	end := s.EndTime
	var actual interface{}
	if actualEnd != "" {
		end = actualEnd
		actual = actualEnd
	}
	worked, err := timeutil.WorkedMinutes(s.StartTime, end)
	if err != nil {
		return nil, &models.ValidationError{Reason: err.Error()}
	}

	res, err := tx.ExecContext(ctx, r.q(`
		UPDATE shifts SET status = 'completed', actual_end_time = ?, worked_minutes = ?
		WHERE group_id = ? AND id = ? AND status = 'active'`), actual, worked, groupID, id)
	if err != nil {
		return nil, fmt.Errorf("complete shift: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return r.FindByID(ctx, groupID, id)
}

// Cancel переводит смену в canceled; отработанное время остаётся пустым.
func (r *ShiftRepository) Cancel(ctx context.Context, groupID, id int64) (*models.Shift, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := r.loadForUpdate(ctx, tx, groupID, id); err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, r.q(`
		UPDATE shifts SET status = 'canceled'
		WHERE group_id = ? AND id = ? AND status = 'active'`), groupID, id)
	if err != nil {
		return nil, fmt.Errorf("cancel shift: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return r.FindByID(ctx, groupID, id)
}

// Delete физически удаляет запись. Возвращает false, если строки не было.
func (r *ShiftRepository) Delete(ctx context.Context, groupID, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM shifts WHERE group_id = ? AND id = ?`), groupID, id)
	if err != nil {
		return false, fmt.Errorf("delete shift %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// expectOneRow: условный UPDATE не затронул строк — смену успели закрыть.
func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrAlreadyClosed
	}
	return nil
}
