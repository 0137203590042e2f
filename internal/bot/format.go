package bot

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/pkg/timeutil"
	"github.com/evn/shiftbot/internal/services/mirror"
)

const helpText = `👋 Привет! Я бот для учета смен.
Чтобы записаться на смену, отправьте в группу фото с подписью <b>строго</b> в формате:

<pre>Имя Фамилия
ЧЧ:ММ ЧЧ:ММ
Зона XX
W witag XX</pre>
Последняя строка необязательна. Дата смены — сегодняшняя дата группы.

<b>Пример:</b>
<pre>Иван Петров
07:00 15:00
Зона 10</pre>

Команды:
/my — мои смены
/report [ДД.ММ.ГГ] — отчёт за день (админ)
/shifts — активные смены сегодня (админ)
/week [prev|next|month] — сводный отчёт (админ)
/export [prev|next|month] — отчёт в xlsx (админ)
/edit ID ЧЧ:ММ ЧЧ:ММ — изменить время смены (админ)
/apitoken — токен для HTTP API (админ)
/cancel — отменить ожидание ввода`

const captionHint = `Используйте формат:
<pre>Имя Фамилия
ЧЧ:ММ ЧЧ:ММ
Зона XX
W witag XX (необязательно)</pre>`

var esc = html.EscapeString

// errorText — единственное место, где ошибки домена превращаются в ответы.
func errorText(err error) string {
	var (
		pe *models.ParseError
		ve *models.ValidationError
		oe *models.OverlapError
	)
	switch {
	case errors.As(err, &pe):
		return "❌ Неверный формат данных в подписи. Пожалуйста, проверьте и попробуйте снова.\n" + captionHint
	case errors.As(err, &ve):
		return "❌ Неверное время: " + esc(ve.Reason) + ".\nИспользуйте формат <b>ЧЧ:ММ</b>, начало раньше окончания."
	case errors.As(err, &oe):
		return fmt.Sprintf("❌ Смена пересекается с уже записанной сменой <code>%s</code> (#%d).", oe.Interval(), oe.ShiftID)
	case errors.Is(err, models.ErrAccessDenied):
		return "🚫 Эта команда доступна только для авторизованных администраторов."
	case errors.Is(err, models.ErrNotFound):
		return "❓ Смена не найдена."
	case errors.Is(err, models.ErrAlreadyClosed):
		return "ℹ️ Смена уже закрыта, действие недоступно."
	case errors.Is(err, models.ErrUnknownGroup):
		return "⚠️ Бот не настроен для этой группы."
	default:
		return "❗️ Произошла внутренняя ошибка. Попробуйте позже."
	}
}

func registeredText(s models.Shift) string {
	return fmt.Sprintf("✅ Сотрудник <b>%s</b> успешно записан на смену #%d.\n"+
		"Дата: <code>%s</code>\n"+
		"Время: <code>%s</code>\n"+
		"Зона: <code>%s</code>\n"+
		"Witag: <code>%s</code>",
		esc(s.FullName), s.ID, s.DisplayDate(), s.Interval(), esc(s.Zone), esc(s.Tag))
}

func worked(s models.Shift) string {
	if s.WorkedMinutes == nil {
		return ""
	}
	return timeutil.FormatDuration(*s.WorkedMinutes)
}

// shiftCard — карточка смены для администратора.
func shiftCard(s models.Shift) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Смена #%d</b> — %s\n", s.ID, s.Status.Label())
	fmt.Fprintf(&b, "Сотрудник: %s (%s)\n", esc(s.FullName), esc(s.Submitter().Handle()))
	fmt.Fprintf(&b, "Дата: %s\nВремя: %s\nЗона: %s\nWitag: %s", s.DisplayDate(), s.Interval(), esc(s.Zone), esc(s.Tag))
	if s.ActualEndTime != nil {
		fmt.Fprintf(&b, "\nФакт. окончание: %s", *s.ActualEndTime)
	}
	if w := worked(s); w != "" {
		fmt.Fprintf(&b, "\nОтработано: %s", w)
	}
	return b.String()
}

// dayReportText группирует смены дня по плановому интервалу.
func dayReportText(displayDate string, shifts []models.Shift) string {
	if len(shifts) == 0 {
		return fmt.Sprintf("📄 На <b>%s</b> смен не найдено.", displayDate)
	}

	byInterval := make(map[string][]models.Shift)
	var intervals []string
	for _, s := range shifts {
		k := s.Interval()
		if _, ok := byInterval[k]; !ok {
			intervals = append(intervals, k)
		}
		byInterval[k] = append(byInterval[k], s)
	}
	sort.Strings(intervals)

	var b strings.Builder
	fmt.Fprintf(&b, "<b>📊 Отчет по сменам на %s</b>\n", displayDate)
	for _, k := range intervals {
		fmt.Fprintf(&b, "\n<b>🕘 %s</b>\n", k)
		group := byInterval[k]
		sort.SliceStable(group, func(i, j int) bool { return group[i].FullName < group[j].FullName })
		for _, s := range group {
			fmt.Fprintf(&b, "  - <code>%s</code> (%s, Witag: %s) — %s", esc(s.FullName), esc(s.Zone), esc(s.Tag), s.Status.Label())
			if w := worked(s); w != "" {
				fmt.Fprintf(&b, ", %s", w)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func myShiftsText(shifts []models.Shift, limit int) string {
	if len(shifts) == 0 {
		return "У вас пока нет смен."
	}
	var b strings.Builder
	b.WriteString("<b>Ваши смены:</b>\n")
	for i, s := range shifts {
		if i == limit {
			fmt.Fprintf(&b, "… и ещё %d", len(shifts)-limit)
			break
		}
		fmt.Fprintf(&b, "#%d %s %s %s — %s", s.ID, s.DisplayDate(), s.Interval(), esc(s.Zone), s.Status.Label())
		if w := worked(s); w != "" {
			fmt.Fprintf(&b, " (%s)", w)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func weekReportText(r *mirror.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>📈 Отчёт: %s</b> (%s — %s)\n", r.Period.Label(), displayISO(r.From), displayISO(r.To))
	if len(r.Rows) == 0 {
		b.WriteString("Сотрудников пока нет.")
	}
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "%s (%s): %s\n", esc(row.Name), esc(row.Handle), timeutil.FormatDuration(row.TotalMinutes))
	}
	fmt.Fprintf(&b, "\nИтого: <b>%s</b>", timeutil.FormatDuration(r.TotalMinutes()))
	if !r.Synced {
		b.WriteString("\n⚠️ Таблица сейчас недоступна, лист отчёта будет обновлён при следующей пересборке.")
	}
	return b.String()
}

func displayISO(iso string) string {
	return models.Shift{ShiftDate: iso}.DisplayDate()
}

func shiftsKeyboard(shifts []models.Shift) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(shifts))
	for _, s := range shifts {
		label := fmt.Sprintf("#%d %s %s", s.ID, s.FullName, s.Interval())
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, EncodeAction(ShowShift{s.ID})),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func shiftActionsKeyboard(s models.Shift, allowDelete bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if s.Status == models.StatusActive {
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ Завершить по плану", EncodeAction(AskComplete{s.ID})),
				tgbotapi.NewInlineKeyboardButtonData("⏱ Факт. время", EncodeAction(AskActualEnd{s.ID})),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✏️ Изменить время", EncodeAction(AskSchedule{s.ID})),
				tgbotapi.NewInlineKeyboardButtonData("❌ Отменить", EncodeAction(AskCancel{s.ID})),
			),
		)
	}
	if allowDelete {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", EncodeAction(AskDelete{s.ID})),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Закрыть", EncodeAction(Dismiss{})),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmKeyboard(yes AdminAction) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Да", EncodeAction(yes)),
		tgbotapi.NewInlineKeyboardButtonData("Нет", EncodeAction(ShowShift{yes.shiftID()})),
	))
}
