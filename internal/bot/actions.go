package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// AdminAction — закрытый набор действий администратора с inline-кнопок.
// Каждое действие кодируется в callback data как "<tag>:<shift id>".
type AdminAction interface {
	tag() string
	shiftID() int64
}

// Действия с картой смены: Show открывает карточку, Ask* спрашивают
// подтверждение или ждут ввода (AskActualEnd — фактическое время окончания,
// AskSchedule — новое время "ЧЧ:ММ ЧЧ:ММ"), Confirm* выполняют переход.
type (
	ShowShift       struct{ ShiftID int64 }
	AskComplete     struct{ ShiftID int64 }
	ConfirmComplete struct{ ShiftID int64 }
	AskActualEnd    struct{ ShiftID int64 }
	AskCancel       struct{ ShiftID int64 }
	ConfirmCancel   struct{ ShiftID int64 }
	AskSchedule     struct{ ShiftID int64 }
	AskDelete       struct{ ShiftID int64 }
	ConfirmDelete   struct{ ShiftID int64 }
	Dismiss         struct{}
)

func (ShowShift) tag() string       { return "v" }
func (AskComplete) tag() string     { return "c" }
func (ConfirmComplete) tag() string { return "cc" }
func (AskActualEnd) tag() string    { return "t" }
func (AskCancel) tag() string       { return "x" }
func (ConfirmCancel) tag() string   { return "xc" }
func (AskSchedule) tag() string     { return "e" }
func (AskDelete) tag() string       { return "d" }
func (ConfirmDelete) tag() string   { return "dc" }
func (Dismiss) tag() string         { return "n" }

func (a ShowShift) shiftID() int64       { return a.ShiftID }
func (a AskComplete) shiftID() int64     { return a.ShiftID }
func (a ConfirmComplete) shiftID() int64 { return a.ShiftID }
func (a AskActualEnd) shiftID() int64    { return a.ShiftID }
func (a AskCancel) shiftID() int64       { return a.ShiftID }
func (a ConfirmCancel) shiftID() int64   { return a.ShiftID }
func (a AskSchedule) shiftID() int64     { return a.ShiftID }
func (a AskDelete) shiftID() int64       { return a.ShiftID }
func (a ConfirmDelete) shiftID() int64   { return a.ShiftID }
func (Dismiss) shiftID() int64           { return 0 }

var actionByTag = map[string]func(id int64) AdminAction{
	"v":  func(id int64) AdminAction { return ShowShift{id} },
	"c":  func(id int64) AdminAction { return AskComplete{id} },
	"cc": func(id int64) AdminAction { return ConfirmComplete{id} },
	"t":  func(id int64) AdminAction { return AskActualEnd{id} },
	"x":  func(id int64) AdminAction { return AskCancel{id} },
	"xc": func(id int64) AdminAction { return ConfirmCancel{id} },
	"e":  func(id int64) AdminAction { return AskSchedule{id} },
	"d":  func(id int64) AdminAction { return AskDelete{id} },
	"dc": func(id int64) AdminAction { return ConfirmDelete{id} },
}

// EncodeAction формирует callback data (не длиннее 64 байт).
func EncodeAction(a AdminAction) string {
	if _, ok := a.(Dismiss); ok {
		return a.tag()
	}
	return a.tag() + ":" + strconv.FormatInt(a.shiftID(), 10)
}

// ParseAction разбирает callback data обратно в действие.
func ParseAction(data string) (AdminAction, error) {
	if data == (Dismiss{}).tag() {
		return Dismiss{}, nil
	}
	tag, rawID, ok := strings.Cut(data, ":")
	if !ok {
		return nil, fmt.Errorf("malformed callback data %q", data)
	}
	build, ok := actionByTag[tag]
	if !ok {
		return nil, fmt.Errorf("unknown callback action %q", tag)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid shift id in callback data %q", data)
	}
	return build(id), nil
}
