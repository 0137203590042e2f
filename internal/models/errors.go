package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("shift not found")
	ErrAlreadyClosed = errors.New("shift already closed")
	ErrAccessDenied  = errors.New("access denied")
	ErrUnknownGroup  = errors.New("unknown group")
)

// ParseError — подпись не соответствует формату.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "caption parse error: " + e.Reason
}

// ValidationError — формат верный, но значения недопустимы.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Reason
}

// OverlapError — новая смена пересекается с существующей.
type OverlapError struct {
	ShiftID int64
	Start   string
	End     string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("shift overlaps existing shift #%d %s-%s", e.ShiftID, e.Start, e.End)
}

// Interval возвращает конфликтующий промежуток в виде "HH:MM-HH:MM".
func (e *OverlapError) Interval() string {
	return e.Start + "-" + e.End
}
