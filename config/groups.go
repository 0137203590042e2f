package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// GroupConfig — статические настройки одной группы.
type GroupConfig struct {
	ID            int64    `json:"id"`
	Timezone      string   `json:"timezone"`
	Admins        []string `json:"admins"`
	SpreadsheetID string   `json:"spreadsheet_id"`

	Location *time.Location `json:"-"`
}

// Today возвращает текущую дату группы в её часовом поясе.
func (g GroupConfig) Today(now time.Time) time.Time {
	return now.In(g.Location)
}

// Groups — неизменяемый после запуска набор групп.
type Groups struct {
	list []GroupConfig
	byID map[int64]int
}

// NewGroups проверяет каждую группу. Любая ошибка — StartupConfigError.
func NewGroups(list []GroupConfig) (*Groups, error) {
	g := &Groups{byID: make(map[int64]int, len(list))}
	var problems []string
	if len(list) == 0 {
		problems = append(problems, "at least one group is required")
	}
	for i, gc := range list {
		if gc.ID == 0 {
			problems = append(problems, fmt.Sprintf("group #%d: id is required", i+1))
			continue
		}
		if _, dup := g.byID[gc.ID]; dup {
			problems = append(problems, fmt.Sprintf("group %d: duplicate id", gc.ID))
			continue
		}
		loc, err := time.LoadLocation(gc.Timezone)
		if gc.Timezone == "" || err != nil {
			problems = append(problems, fmt.Sprintf("group %d: invalid timezone %q", gc.ID, gc.Timezone))
			continue
		}
		if len(gc.Admins) == 0 {
			problems = append(problems, fmt.Sprintf("group %d: admins list is empty", gc.ID))
			continue
		}
		gc.Location = loc
		gc.Admins = append([]string(nil), gc.Admins...)
		g.byID[gc.ID] = len(g.list)
		g.list = append(g.list, gc)
	}
	if len(problems) > 0 {
		return nil, &StartupConfigError{Problems: problems}
	}
	return g, nil
}

// ParseGroups разбирает JSON-список групп. Пустой spreadsheet_id заменяется
// таблицей по умолчанию.
func ParseGroups(data []byte, defaultSpreadsheet string) (*Groups, error) {
	var list []GroupConfig
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, &StartupConfigError{Problems: []string{fmt.Sprintf("groups file: %v", err)}}
	}
	for i := range list {
		if list[i].SpreadsheetID == "" {
			list[i].SpreadsheetID = defaultSpreadsheet
		}
	}
	return NewGroups(list)
}

func (g *Groups) Lookup(id int64) (GroupConfig, bool) {
	i, ok := g.byID[id]
	if !ok {
		return GroupConfig{}, false
	}
	return g.list[i], true
}

func (g *Groups) All() []GroupConfig {
	return append([]GroupConfig(nil), g.list...)
}

func (g *Groups) Len() int {
	return len(g.list)
}

// AdminGroups возвращает группы, в которых handle является администратором.
func (g *Groups) AdminGroups(isAdmin func(handle string, admins []string) bool, handle string) []GroupConfig {
	var out []GroupConfig
	for _, gc := range g.list {
		if isAdmin(handle, gc.Admins) {
			out = append(out, gc)
		}
	}
	return out
}
