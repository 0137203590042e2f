package shift

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/evn/shiftbot/db"
	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/repositories"
	"github.com/evn/shiftbot/internal/services/mirror"
)

const group int64 = -1001

var ivan = models.Submitter{UserID: 42, Username: "ivan"}

// MockMirror — Mirror на функциях; незаданные функции ничего не делают.
type MockMirror struct {
	UpsertShiftFunc  func(ctx context.Context, s models.Shift) error
	LogExceptionFunc func(ctx context.Context, s models.Shift, trigger models.Trigger) error
	MarkAbsentFunc   func(ctx context.Context, groupID int64, date string, e models.Employee) (bool, error)
}

func (m *MockMirror) UpsertShift(ctx context.Context, s models.Shift) error {
	if m.UpsertShiftFunc != nil {
		return m.UpsertShiftFunc(ctx, s)
	}
	return nil
}

func (m *MockMirror) LogException(ctx context.Context, s models.Shift, trigger models.Trigger) error {
	if m.LogExceptionFunc != nil {
		return m.LogExceptionFunc(ctx, s, trigger)
	}
	return nil
}

func (m *MockMirror) MarkAbsent(ctx context.Context, groupID int64, date string, e models.Employee) (bool, error) {
	if m.MarkAbsentFunc != nil {
		return m.MarkAbsentFunc(ctx, groupID, date, e)
	}
	return true, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, _ int64, to models.Submitter, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to.Handle()+": "+text)
	return n.err
}

type recordingSink struct {
	events []string
}

func (r *recordingSink) Publish(_ int64, event string, _ models.Shift) {
	r.events = append(r.events, event)
}

func newRepo(t *testing.T) *repositories.ShiftRepository {
	t.Helper()
	conn, err := db.Open(db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return repositories.NewShiftRepository(conn, db.DriverSQLite)
}

func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

const (
	date     = "2024-06-01"
	captionA = "Ivan Petrov\n07:00 15:00\nZone 12"
	captionB = "Ivan Petrov\n14:00 23:00\nZone 12"
)

func TestScenarioARegister(t *testing.T) {
	sink := &recordingSink{}
	svc := NewService(newRepo(t), &MockMirror{}, &recordingNotifier{}, sink).WithClock(fixedClock)

	s, err := svc.Register(context.Background(), group, ivan, captionA, "photo-1", date)
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != models.StatusActive || s.WorkedMinutes != nil || s.ActualEndTime != nil {
		t.Errorf("unexpected new shift: %+v", s)
	}
	if s.FullName != "Ivan Petrov" || s.Zone != "Zone 12" || s.Tag != models.NoTag || s.DisplayDate() != "01.06.24" {
		t.Errorf("unexpected fields: %+v", s)
	}
	if !s.CreatedAt.Equal(fixedClock()) {
		t.Errorf("created_at = %v", s.CreatedAt)
	}
	if len(sink.events) != 1 || sink.events[0] != EventCreated {
		t.Errorf("events = %v", sink.events)
	}
}

func TestScenarioBOverlapRejected(t *testing.T) {
	svc := NewService(newRepo(t), &MockMirror{}, nil, nil)
	ctx := context.Background()
	if _, err := svc.Register(ctx, group, ivan, captionA, "p", date); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Register(ctx, group, ivan, captionB, "p", date)
	var overlap *models.OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected OverlapError, got %v", err)
	}
	if overlap.Interval() != "07:00-15:00" {
		t.Errorf("conflict = %s", overlap.Interval())
	}
}

func TestRegisterRejectsBadCaption(t *testing.T) {
	svc := NewService(newRepo(t), &MockMirror{}, nil, nil)
	ctx := context.Background()

	var pe *models.ParseError
	if _, err := svc.Register(ctx, group, ivan, "просто текст", "p", date); !errors.As(err, &pe) {
		t.Errorf("expected ParseError, got %v", err)
	}
	var ve *models.ValidationError
	if _, err := svc.Register(ctx, group, ivan, "Ivan Petrov\n15:00 07:00\nZone 12", "p", date); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestScenarioCActualTime(t *testing.T) {
	var logged []models.Trigger
	m := &MockMirror{LogExceptionFunc: func(_ context.Context, _ models.Shift, trigger models.Trigger) error {
		logged = append(logged, trigger)
		return nil
	}}
	notifier := &recordingNotifier{}
	svc := NewService(newRepo(t), m, notifier, nil)
	ctx := context.Background()
	a, _ := svc.Register(ctx, group, ivan, captionA, "p", date)

	if _, err := svc.Complete(ctx, group, a.ID, "25:00", models.TriggerAdminActualTime); err == nil {
		t.Fatalf("invalid actual time must be rejected")
	}

	s, err := svc.Complete(ctx, group, a.ID, "13:45", models.TriggerAdminActualTime)
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != models.StatusCompleted || *s.ActualEndTime != "13:45" || workedLabel(*s) != "6h 45m" {
		t.Errorf("unexpected shift: status=%s worked=%s", s.Status, workedLabel(*s))
	}
	if len(logged) != 1 || logged[0] != models.TriggerAdminActualTime {
		t.Errorf("exception log = %v", logged)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("notifications = %v", notifier.sent)
	}
}

func TestScenarioDAutoComplete(t *testing.T) {
	repo := newRepo(t)
	var logged int
	m := &MockMirror{LogExceptionFunc: func(context.Context, models.Shift, models.Trigger) error {
		logged++
		return nil
	}}
	svc := NewService(repo, m, nil, nil)
	ctx := context.Background()
	a, _ := svc.Register(ctx, group, ivan, captionA, "p", date)
	b, _ := svc.Register(ctx, group, ivan, "Ivan Petrov\n16:00 18:00\nZone 12", "p", date)
	if _, err := svc.Cancel(ctx, group, b.ID, models.TriggerAdminConfirm); err != nil {
		t.Fatal(err)
	}

	n, err := svc.AutoComplete(ctx, group, date)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("completed %d shifts, want 1", n)
	}
	s, _ := repo.FindByID(ctx, group, a.ID)
	if s.Status != models.StatusCompleted || workedLabel(*s) != "8h 0m" || s.ActualEndTime != nil {
		t.Errorf("unexpected shift after auto-complete: %+v", s)
	}
	if logged != 0 {
		t.Errorf("scheduled completion must not write the exception log")
	}

	n, _ = svc.AutoComplete(ctx, group, date)
	if n != 0 {
		t.Errorf("second run completed %d shifts", n)
	}
}

func TestTerminalStatesRejectTransitions(t *testing.T) {
	repo := newRepo(t)
	var upserts int
	m := &MockMirror{UpsertShiftFunc: func(context.Context, models.Shift) error {
		upserts++
		return nil
	}}
	svc := NewService(repo, m, nil, nil)
	ctx := context.Background()
	a, _ := svc.Register(ctx, group, ivan, captionA, "p", date)
	if _, err := svc.Cancel(ctx, group, a.ID, models.TriggerAdminConfirm); err != nil {
		t.Fatal(err)
	}
	before := upserts

	if _, err := svc.Complete(ctx, group, a.ID, "", models.TriggerAdminConfirm); !errors.Is(err, models.ErrAlreadyClosed) {
		t.Errorf("complete canceled: %v", err)
	}
	if _, err := svc.Cancel(ctx, group, a.ID, models.TriggerAdminConfirm); !errors.Is(err, models.ErrAlreadyClosed) {
		t.Errorf("cancel canceled: %v", err)
	}
	if _, err := svc.EditSchedule(ctx, group, a.ID, "08:00", "09:00"); !errors.Is(err, models.ErrAlreadyClosed) {
		t.Errorf("edit canceled: %v", err)
	}
	if _, err := svc.Complete(ctx, group, 999, "", models.TriggerAdminConfirm); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("complete missing: %v", err)
	}
	if upserts != before {
		t.Errorf("failed transitions must not touch the mirror")
	}
	s, _ := repo.FindByID(ctx, group, a.ID)
	if s.Status != models.StatusCanceled {
		t.Errorf("status changed to %s", s.Status)
	}
}

func TestMirrorAndNotifyFailuresAreSwallowed(t *testing.T) {
	m := &MockMirror{
		UpsertShiftFunc: func(context.Context, models.Shift) error {
			return &mirror.MirrorFailure{Op: "upsert shift", Err: context.DeadlineExceeded}
		},
		LogExceptionFunc: func(context.Context, models.Shift, models.Trigger) error {
			return errors.New("quota exceeded")
		},
	}
	notifier := &recordingNotifier{err: errors.New("bot was blocked by the user")}
	repo := newRepo(t)
	svc := NewService(repo, m, notifier, nil)
	ctx := context.Background()

	a, err := svc.Register(ctx, group, ivan, captionA, "p", date)
	if err != nil {
		t.Fatalf("register must succeed despite mirror failure: %v", err)
	}
	if _, err := svc.Complete(ctx, group, a.ID, "14:00", models.TriggerAdminActualTime); err != nil {
		t.Fatalf("complete must succeed despite failures: %v", err)
	}
	s, _ := repo.FindByID(ctx, group, a.ID)
	if s.Status != models.StatusCompleted {
		t.Errorf("repository change must persist, status = %s", s.Status)
	}
}

func TestEditSchedule(t *testing.T) {
	svc := NewService(newRepo(t), &MockMirror{}, nil, nil)
	ctx := context.Background()
	a, _ := svc.Register(ctx, group, ivan, captionA, "p", date)
	svc.Register(ctx, group, ivan, "Ivan Petrov\n16:00 18:00\nZone 12", "p", date)

	var ve *models.ValidationError
	if _, err := svc.EditSchedule(ctx, group, a.ID, "10:00", "09:00"); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}
	var oe *models.OverlapError
	if _, err := svc.EditSchedule(ctx, group, a.ID, "07:00", "17:00"); !errors.As(err, &oe) {
		t.Errorf("expected OverlapError, got %v", err)
	}
	s, err := svc.EditSchedule(ctx, group, a.ID, "08:00", "16:00")
	if err != nil {
		t.Fatal(err)
	}
	if s.Interval() != "08:00-16:00" {
		t.Errorf("interval = %s", s.Interval())
	}
}

func TestDelete(t *testing.T) {
	sink := &recordingSink{}
	svc := NewService(newRepo(t), &MockMirror{}, nil, sink)
	ctx := context.Background()
	a, _ := svc.Register(ctx, group, ivan, captionA, "p", date)

	if err := svc.Delete(ctx, group, a.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, group, a.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
	if sink.events[len(sink.events)-1] != EventDeleted {
		t.Errorf("events = %v", sink.events)
	}
}

func TestMarkAbsent(t *testing.T) {
	repo := newRepo(t)
	mem := mirror.NewMemoryMirror()
	ms := mirror.NewSync(repo, map[int64]mirror.Mirror{group: mem}, time.Second)
	svc := NewService(repo, ms, nil, nil)
	ctx := context.Background()

	petr := models.Submitter{UserID: 7, Username: "petr"}
	svc.Register(ctx, group, ivan, captionA, "p", "2024-05-31")
	svc.Register(ctx, group, petr, "Petr Ivanov\n07:00 15:00\nZone 3", "p", "2024-05-31")
	svc.Register(ctx, group, petr, "Petr Ivanov\n07:00 15:00\nZone 3", "p", date)

	n, err := svc.MarkAbsent(ctx, group, date)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("marked %d, want 1", n)
	}
	n, _ = svc.MarkAbsent(ctx, group, date)
	if n != 0 {
		t.Errorf("repeated run marked %d, want 0", n)
	}

	rows, _ := mem.GetRows(ctx, mirror.SheetAbsence)
	if len(rows) != 1 || rows[0][1] != "@ivan" {
		t.Errorf("absence rows = %v", rows)
	}
}
