// Package caption разбирает подпись к фото в заявку на смену.
//
// Ожидаемый формат (каждое поле на своей строке):
//
//	Имя Фамилия
//	ЧЧ:ММ ЧЧ:ММ
//	Зона 12
//	W witag 5      (необязательно)
package caption

import (
	"regexp"
	"strings"

	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/pkg/timeutil"
)

var (
	nameRe  = regexp.MustCompile(`^[\p{L}][\p{L}\s]*$`)
	timesRe = regexp.MustCompile(`^(\d{1,2}:\d{1,2})\s+(\d{1,2}:\d{1,2})$`)
	zoneRe  = regexp.MustCompile(`^\p{L}+\s+\d+$`)
	tagRe   = regexp.MustCompile(`^\p{L}+\s+\p{L}+\s+\d+$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// Parse проверяет всю подпись целиком: лишние строки или мусор после
// последнего поля дают ParseError, а не молча отбрасываются.
func Parse(text string) (models.ShiftRequest, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ShiftRequest{}, &models.ParseError{Reason: "empty caption"}
	}

	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	if len(lines) != 3 && len(lines) != 4 {
		return models.ShiftRequest{}, &models.ParseError{Reason: "expected 3 or 4 lines"}
	}

	name := spaceRe.ReplaceAllString(lines[0], " ")
	if !nameRe.MatchString(name) {
		return models.ShiftRequest{}, &models.ParseError{Reason: "name must contain only letters and spaces"}
	}

	m := timesRe.FindStringSubmatch(lines[1])
	if m == nil {
		return models.ShiftRequest{}, &models.ParseError{Reason: "second line must be two times HH:MM HH:MM"}
	}
	start, end := m[1], m[2]

	zone := spaceRe.ReplaceAllString(lines[2], " ")
	if !zoneRe.MatchString(zone) {
		return models.ShiftRequest{}, &models.ParseError{Reason: "third line must be a zone like \"Зона 12\""}
	}

	tag := models.NoTag
	if len(lines) == 4 {
		tag = spaceRe.ReplaceAllString(lines[3], " ")
		if !tagRe.MatchString(tag) {
			return models.ShiftRequest{}, &models.ParseError{Reason: "fourth line must be a tag like \"W witag 5\""}
		}
	}

	if err := ValidateSchedule(start, end); err != nil {
		return models.ShiftRequest{}, err
	}

	return models.ShiftRequest{
		Name:  name,
		Start: start,
		End:   end,
		Zone:  zone,
		Tag:   tag,
	}, nil
}

// ValidateSchedule проверяет пару времён: оба HH:MM и start < end.
func ValidateSchedule(start, end string) error {
	if !timeutil.IsValidTime(start) || !timeutil.IsValidTime(end) {
		return &models.ValidationError{Reason: "time must be HH:MM between 00:00 and 23:59"}
	}
	if !timeutil.Before(start, end) {
		return &models.ValidationError{Reason: "start time must be earlier than end time"}
	}
	return nil
}
