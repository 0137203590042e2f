// Package app собирает зависимости процесса в один объект, который
// передаётся обработчикам бота и HTTP API.
package app

import (
	"time"

	"github.com/evn/shiftbot/config"
	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/repositories"
	"github.com/evn/shiftbot/internal/services/auth"
	"github.com/evn/shiftbot/internal/services/live"
	"github.com/evn/shiftbot/internal/services/mirror"
	"github.com/evn/shiftbot/internal/services/pending"
	"github.com/evn/shiftbot/internal/services/shift"
)

type App struct {
	Groups  *config.Groups
	Repo    *repositories.ShiftRepository
	Shifts  *shift.Service
	Mirror  *mirror.Sync
	Pending pending.Store
	JWT     *auth.JWTService
	Live    *live.Hub
	Now     func() time.Time
}

// AllowDelete — физическое удаление смен доступно только при одной группе.
func (a *App) AllowDelete() bool {
	return a.Groups.Len() == 1
}

func (a *App) Group(groupID int64) (config.GroupConfig, error) {
	g, ok := a.Groups.Lookup(groupID)
	if !ok {
		return config.GroupConfig{}, models.ErrUnknownGroup
	}
	return g, nil
}

// RequireAdmin проверяет, что handle — администратор группы.
func (a *App) RequireAdmin(groupID int64, handle string) (config.GroupConfig, error) {
	g, err := a.Group(groupID)
	if err != nil {
		return g, err
	}
	if !auth.IsAdmin(handle, g.Admins) {
		return g, models.ErrAccessDenied
	}
	return g, nil
}

// LocalNow — текущее время в часовом поясе группы.
func (a *App) LocalNow(g config.GroupConfig) time.Time {
	return g.Today(a.Now())
}

// Today — текущая дата группы в формате хранилища.
func (a *App) Today(g config.GroupConfig) string {
	return a.LocalNow(g).Format(models.DateLayout)
}
