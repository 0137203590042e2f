package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/evn/shiftbot/db"
	"github.com/evn/shiftbot/internal/models"
)

const testGroup int64 = -100123

func newTestRepo(t *testing.T, opts ...Option) *ShiftRepository {
	t.Helper()
	conn, err := db.Open(db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewShiftRepository(conn, db.DriverSQLite, opts...)
}

func req(start, end string) models.ShiftRequest {
	return models.ShiftRequest{Name: "Иванов Иван", Start: start, End: end, Zone: "Зона 1", Tag: models.NoTag}
}

var ivan = models.Submitter{UserID: 42, Username: "ivan"}

func mustCreate(t *testing.T, r *ShiftRepository, sub models.Submitter, start, end, date string) int64 {
	t.Helper()
	id, err := r.Create(context.Background(), testGroup, sub, req(start, end), "photo", date, time.Now())
	if err != nil {
		t.Fatalf("create %s-%s: %v", start, end, err)
	}
	return id
}

func TestCreateAndFind(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	id := mustCreate(t, r, ivan, "09:00", "18:00", "2024-05-20")

	s, err := r.FindByID(ctx, testGroup, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if s.Status != models.StatusActive {
		t.Errorf("status = %s, want active", s.Status)
	}
	if s.ActualEndTime != nil || s.WorkedMinutes != nil {
		t.Errorf("new shift must have no actual end / worked time")
	}
	if s.FullName != "Иванов Иван" || s.Zone != "Зона 1" || s.Tag != models.NoTag {
		t.Errorf("unexpected fields: %+v", s)
	}
	if s.DisplayDate() != "20.05.24" {
		t.Errorf("display date = %s", s.DisplayDate())
	}

	if _, err := r.FindByID(ctx, testGroup+1, id); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("other group must not see shift, got %v", err)
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	r := newTestRepo(t)
	first := mustCreate(t, r, ivan, "09:00", "13:00", "2024-05-20")

	_, err := r.Create(context.Background(), testGroup, ivan, req("12:00", "15:00"), "p", "2024-05-20", time.Now())
	var overlap *models.OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected OverlapError, got %v", err)
	}
	if overlap.ShiftID != first || overlap.Interval() != "09:00-13:00" {
		t.Errorf("conflict = #%d %s", overlap.ShiftID, overlap.Interval())
	}
}

func TestCreateAllowsTouchingAndOtherDaysOrUsers(t *testing.T) {
	r := newTestRepo(t)
	mustCreate(t, r, ivan, "09:00", "13:00", "2024-05-20")
	mustCreate(t, r, ivan, "13:00", "18:00", "2024-05-20")
	mustCreate(t, r, ivan, "10:00", "12:00", "2024-05-21")
	mustCreate(t, r, models.Submitter{UserID: 7}, "10:00", "12:00", "2024-05-20")

	intervals, err := r.FindForUserAndDate(context.Background(), testGroup, ivan.UserID, "2024-05-20")
	if err != nil {
		t.Fatal(err)
	}
	if len(intervals) != 2 {
		t.Fatalf("got %d intervals, want 2", len(intervals))
	}
}

func TestCanceledShiftStillBlocksByDefault(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	id := mustCreate(t, r, ivan, "09:00", "13:00", "2024-05-20")
	if _, err := r.Cancel(ctx, testGroup, id); err != nil {
		t.Fatal(err)
	}

	_, err := r.Create(ctx, testGroup, ivan, req("10:00", "11:00"), "p", "2024-05-20", time.Now())
	var overlap *models.OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected overlap with canceled shift, got %v", err)
	}

	free := newTestRepo(t, WithCanceledFreesSlot(true))
	id = mustCreate(t, free, ivan, "09:00", "13:00", "2024-05-20")
	if _, err := free.Cancel(ctx, testGroup, id); err != nil {
		t.Fatal(err)
	}
	mustCreate(t, free, ivan, "10:00", "11:00", "2024-05-20")
}

func TestConcurrentCreateOnlyOneWins(t *testing.T) {
	r := newTestRepo(t)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		overlaps int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Create(context.Background(), testGroup, ivan, req("09:00", "12:00"), "p", "2024-05-20", time.Now())
			mu.Lock()
			defer mu.Unlock()
			var overlap *models.OverlapError
			switch {
			case err == nil:
				ok++
			case errors.As(err, &overlap):
				overlaps++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if ok != 1 || overlaps != 7 {
		t.Errorf("ok=%d overlaps=%d, want 1/7", ok, overlaps)
	}
}

func TestCompleteWithActualEnd(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	id := mustCreate(t, r, ivan, "22:00", "23:59", "2024-05-20")

	s, err := r.Complete(ctx, testGroup, id, "02:30")
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != models.StatusCompleted {
		t.Errorf("status = %s", s.Status)
	}
	if s.ActualEndTime == nil || *s.ActualEndTime != "02:30" {
		t.Errorf("actual end = %v", s.ActualEndTime)
	}
	if s.WorkedMinutes == nil || *s.WorkedMinutes != 270 {
		t.Errorf("worked = %v, want 270", s.WorkedMinutes)
	}
}

func TestCompleteUsesPlannedEnd(t *testing.T) {
	r := newTestRepo(t)
	id := mustCreate(t, r, ivan, "09:00", "17:30", "2024-05-20")

	s, err := r.Complete(context.Background(), testGroup, id, "")
	if err != nil {
		t.Fatal(err)
	}
	if s.ActualEndTime != nil {
		t.Errorf("actual end must stay empty, got %s", *s.ActualEndTime)
	}
	if s.WorkedMinutes == nil || *s.WorkedMinutes != 510 {
		t.Errorf("worked = %v, want 510", s.WorkedMinutes)
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	done := mustCreate(t, r, ivan, "09:00", "10:00", "2024-05-20")
	canceled := mustCreate(t, r, ivan, "11:00", "12:00", "2024-05-20")

	if _, err := r.Complete(ctx, testGroup, done, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Cancel(ctx, testGroup, canceled); err != nil {
		t.Fatal(err)
	}

	for _, id := range []int64{done, canceled} {
		if _, err := r.Complete(ctx, testGroup, id, ""); !errors.Is(err, models.ErrAlreadyClosed) {
			t.Errorf("complete #%d: got %v", id, err)
		}
		if _, err := r.Cancel(ctx, testGroup, id); !errors.Is(err, models.ErrAlreadyClosed) {
			t.Errorf("cancel #%d: got %v", id, err)
		}
		if _, err := r.UpdateSchedule(ctx, testGroup, id, "13:00", "14:00"); !errors.Is(err, models.ErrAlreadyClosed) {
			t.Errorf("edit #%d: got %v", id, err)
		}
	}

	s, _ := r.FindByID(ctx, testGroup, canceled)
	if s.WorkedMinutes != nil {
		t.Errorf("canceled shift must not have worked time")
	}

	if _, err := r.Complete(ctx, testGroup, 9999, ""); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing shift: got %v", err)
	}
}

func TestUpdateSchedule(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	mustCreate(t, r, ivan, "14:00", "18:00", "2024-05-20")
	id := mustCreate(t, r, ivan, "09:00", "12:00", "2024-05-20")

	s, err := r.UpdateSchedule(ctx, testGroup, id, "08:00", "13:00")
	if err != nil {
		t.Fatal(err)
	}
	if s.StartTime != "08:00" || s.EndTime != "13:00" || s.Status != models.StatusActive {
		t.Errorf("unexpected shift after edit: %+v", s)
	}

	_, err = r.UpdateSchedule(ctx, testGroup, id, "10:00", "15:00")
	var overlap *models.OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected overlap on edit, got %v", err)
	}
}

func TestListingOrder(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	mustCreate(t, r, ivan, "15:00", "16:00", "2024-05-20")
	mustCreate(t, r, ivan, "09:00", "10:00", "2024-05-20")
	mustCreate(t, r, ivan, "09:00", "10:00", "2024-05-22")
	mustCreate(t, r, models.Submitter{UserID: 7, Username: "petr"}, "08:00", "09:00", "2024-05-20")

	byUser, err := r.FindByUser(ctx, testGroup, ivan.UserID)
	if err != nil {
		t.Fatal(err)
	}
	got := []string{}
	for _, s := range byUser {
		got = append(got, s.ShiftDate+" "+s.StartTime)
	}
	want := []string{"2024-05-22 09:00", "2024-05-20 09:00", "2024-05-20 15:00"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byUser[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	byDate, _ := r.FindByDate(ctx, testGroup, "2024-05-20")
	if len(byDate) != 3 || byDate[0].StartTime != "08:00" || byDate[2].StartTime != "15:00" {
		t.Errorf("byDate order wrong: %+v", byDate)
	}

	byName, _ := r.FindByUsername(ctx, testGroup, "IVAN")
	if len(byName) != 3 {
		t.Errorf("FindByUsername = %d shifts, want 3", len(byName))
	}

	between, _ := r.FindBetween(ctx, testGroup, "2024-05-21", "2024-05-22")
	if len(between) != 1 {
		t.Errorf("FindBetween = %d shifts, want 1", len(between))
	}

	employees, _ := r.ListEmployees(ctx, testGroup)
	if len(employees) != 2 {
		t.Errorf("employees = %d, want 2", len(employees))
	}
}

func TestDelete(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	id := mustCreate(t, r, ivan, "09:00", "10:00", "2024-05-20")

	ok, err := r.Delete(ctx, testGroup, id)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	ok, _ = r.Delete(ctx, testGroup, id)
	if ok {
		t.Errorf("second delete must report missing row")
	}
	mustCreate(t, r, ivan, "09:00", "10:00", "2024-05-20")
}
