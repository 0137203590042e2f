// Package timeutil — проверка и арифметика времени смен в формате HH:MM.
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
)

const minutesPerDay = 24 * 60

var hhmm = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// IsValidTime сообщает, является ли s корректным временем HH:MM (00:00-23:59).
func IsValidTime(s string) bool {
	return hhmm.MatchString(s)
}

// Minutes переводит HH:MM в минуты от начала суток.
func Minutes(s string) (int, error) {
	m := hhmm.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return h*60 + mm, nil
}

// WorkedMinutes считает отработанные минуты между start и end.
// Если end раньше start, end считается временем следующего дня.
func WorkedMinutes(start, end string) (int, error) {
	s, err := Minutes(start)
	if err != nil {
		return 0, err
	}
	e, err := Minutes(end)
	if err != nil {
		return 0, err
	}
	if e < s {
		e += minutesPerDay
	}
	return e - s, nil
}

// FormatDuration форматирует минуты как "Xh Ym". Ноль даёт "0h 0m".
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// WorkedDuration — WorkedMinutes, сразу в виде строки.
func WorkedDuration(start, end string) (string, error) {
	m, err := WorkedMinutes(start, end)
	if err != nil {
		return "", err
	}
	return FormatDuration(m), nil
}

// IntervalsOverlap — строгая проверка пересечения [aStart, aEnd) и [bStart, bEnd).
// Касание концами (aEnd == bStart) пересечением не считается.
// Строки HH:MM сравниваются лексикографически, что совпадает с порядком времени.
func IntervalsOverlap(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && aEnd > bStart
}

// Before сообщает, что a строго раньше b.
func Before(a, b string) bool {
	return a < b
}
