// Package scheduler запускает ежедневные задачи групп по их местному времени.
package scheduler

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/evn/shiftbot/config"
	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/services/mirror"
)

// Jobs — переходы, которые выполняет расписание. Те же функции вызывает админ.
type Jobs interface {
	AutoComplete(ctx context.Context, groupID int64, date string) (int, error)
	MarkAbsent(ctx context.Context, groupID int64, date string) (int, error)
}

// Reporter пересобирает отчёт после автозавершения.
type Reporter interface {
	RebuildReport(ctx context.Context, groupID int64, p mirror.Period, today time.Time) (*mirror.Report, error)
}

const (
	kindAbsence      = "absence"
	kindAutoComplete = "autocomplete"
)

type Scheduler struct {
	jobs     Jobs
	reporter Reporter
	groups   []config.GroupConfig

	absenceTime      string // HH:MM по времени группы
	autoCompleteTime string // HH:MM по времени группы
	interval         time.Duration

	mu        sync.Mutex
	lastFired map[string]string // group:kind -> date (2006-01-02)
}

func NewScheduler(jobs Jobs, reporter Reporter, groups []config.GroupConfig, absenceTime, autoCompleteTime string) *Scheduler {
	return &Scheduler{
		jobs:             jobs,
		reporter:         reporter,
		groups:           groups,
		absenceTime:      absenceTime,
		autoCompleteTime: autoCompleteTime,
		interval:         15 * time.Second,
		lastFired:        make(map[string]string),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("scheduler: started for %d groups (absence %s, auto-complete %s)", len(s.groups), s.absenceTime, s.autoCompleteTime)
	for {
		select {
		case <-ctx.Done():
			log.Printf("scheduler: stopped")
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick запускает задачи, время которых уже наступило сегодня по часам группы
// и которые сегодня ещё не выполнялись. Запуск после пропущенного времени
// (например, после рестарта) догоняет задачу в тот же день.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	for _, g := range s.groups {
		local := g.Today(now)
		hhmm := local.Format("15:04")
		today := local.Format(models.DateLayout)

		if hhmm >= s.absenceTime && s.claim(g.ID, kindAbsence, today) {
			s.markAbsent(ctx, g.ID, today)
		}
		if hhmm >= s.autoCompleteTime && s.claim(g.ID, kindAutoComplete, today) {
			s.autoComplete(ctx, g.ID, today, local)
		}
	}
}

// claim отмечает задачу выполненной за дату; false — уже выполнялась.
func (s *Scheduler) claim(groupID int64, kind, date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := fmtKey(groupID, kind)
	if s.lastFired[k] == date {
		return false
	}
	s.lastFired[k] = date
	return true
}

func (s *Scheduler) markAbsent(ctx context.Context, groupID int64, date string) {
	n, err := s.jobs.MarkAbsent(ctx, groupID, date)
	if err != nil {
		log.Printf("scheduler: ❌ absence marking for group %d on %s failed: %v", groupID, date, err)
		return
	}
	log.Printf("scheduler: ✅ group %d: %d absent on %s", groupID, n, date)
}

func (s *Scheduler) autoComplete(ctx context.Context, groupID int64, date string, local time.Time) {
	n, err := s.jobs.AutoComplete(ctx, groupID, date)
	if err != nil {
		log.Printf("scheduler: ❌ auto-complete for group %d on %s failed: %v", groupID, date, err)
		return
	}
	log.Printf("scheduler: ✅ group %d: %d shifts auto-completed on %s", groupID, n, date)

	if s.reporter == nil {
		return
	}
	if _, err := s.reporter.RebuildReport(ctx, groupID, mirror.PeriodCurrentWeek, local); err != nil {
		log.Printf("scheduler: ⚠️ report rebuild for group %d failed: %v", groupID, err)
	}
}

func fmtKey(groupID int64, kind string) string {
	return strconv.FormatInt(groupID, 10) + ":" + kind
}
