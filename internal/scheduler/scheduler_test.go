package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/evn/shiftbot/config"
	"github.com/evn/shiftbot/internal/services/mirror"
)

type call struct {
	kind    string
	groupID int64
	date    string
}

type MockJobs struct {
	mu    sync.Mutex
	calls []call
}

func (m *MockJobs) record(kind string, groupID int64, date string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call{kind, groupID, date})
}

func (m *MockJobs) AutoComplete(_ context.Context, groupID int64, date string) (int, error) {
	m.record(kindAutoComplete, groupID, date)
	return 1, nil
}

func (m *MockJobs) MarkAbsent(_ context.Context, groupID int64, date string) (int, error) {
	m.record(kindAbsence, groupID, date)
	return 0, nil
}

type MockReporter struct {
	rebuilt int
}

func (m *MockReporter) RebuildReport(context.Context, int64, mirror.Period, time.Time) (*mirror.Report, error) {
	m.rebuilt++
	return &mirror.Report{}, nil
}

func groups(t *testing.T) []config.GroupConfig {
	t.Helper()
	g, err := config.NewGroups([]config.GroupConfig{
		{ID: -1, Timezone: "Asia/Yekaterinburg", Admins: []string{"boss"}}, // UTC+5
		{ID: -2, Timezone: "UTC", Admins: []string{"boss"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return g.All()
}

func TestTickFiresPerGroupLocalTime(t *testing.T) {
	jobs := &MockJobs{}
	s := NewScheduler(jobs, nil, groups(t), "22:00", "23:55")
	ctx := context.Background()

	// 17:00 UTC = 22:00 в Екатеринбурге, в UTC ещё рано.
	s.Tick(ctx, time.Date(2024, 6, 1, 17, 0, 0, 0, time.UTC))
	if len(jobs.calls) != 1 || jobs.calls[0] != (call{kindAbsence, -1, "2024-06-01"}) {
		t.Fatalf("calls = %+v", jobs.calls)
	}

	// Повторные тики в ту же дату ничего не запускают.
	s.Tick(ctx, time.Date(2024, 6, 1, 17, 0, 30, 0, time.UTC))
	s.Tick(ctx, time.Date(2024, 6, 1, 17, 5, 0, 0, time.UTC))
	if len(jobs.calls) != 1 {
		t.Fatalf("duplicate firing: %+v", jobs.calls)
	}

	s.Tick(ctx, time.Date(2024, 6, 1, 18, 55, 0, 0, time.UTC))
	if len(jobs.calls) != 2 || jobs.calls[1] != (call{kindAutoComplete, -1, "2024-06-01"}) {
		t.Fatalf("calls = %+v", jobs.calls)
	}
}

func TestTickCatchesUpAbsenceBeforeAutoComplete(t *testing.T) {
	jobs := &MockJobs{}
	reporter := &MockReporter{}
	s := NewScheduler(jobs, reporter, groups(t), "22:00", "23:55")

	s.Tick(context.Background(), time.Date(2024, 6, 1, 23, 58, 0, 0, time.UTC))

	var utc []call
	for _, c := range jobs.calls {
		if c.groupID == -2 {
			utc = append(utc, c)
		}
	}
	if len(utc) != 2 || utc[0].kind != kindAbsence || utc[1].kind != kindAutoComplete {
		t.Fatalf("utc calls = %+v", utc)
	}
	if reporter.rebuilt == 0 {
		t.Errorf("report must be rebuilt after auto-complete")
	}
}

func TestTickNextDayFiresAgain(t *testing.T) {
	jobs := &MockJobs{}
	s := NewScheduler(jobs, nil, groups(t)[1:], "22:00", "23:55")
	ctx := context.Background()

	s.Tick(ctx, time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC))
	s.Tick(ctx, time.Date(2024, 6, 2, 0, 1, 0, 0, time.UTC))
	s.Tick(ctx, time.Date(2024, 6, 2, 22, 0, 0, 0, time.UTC))

	if len(jobs.calls) != 2 || jobs.calls[1].date != "2024-06-02" {
		t.Fatalf("calls = %+v", jobs.calls)
	}
}
