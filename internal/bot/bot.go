// Package bot — Telegram-шлюз: принимает фото с подписью, команды и нажатия
// кнопок и отвечает в чат.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/evn/shiftbot/config"
	"github.com/evn/shiftbot/internal/app"
	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/services/auth"
	"github.com/evn/shiftbot/internal/services/mirror"
	"github.com/evn/shiftbot/internal/services/pending"
)

// Sender — часть *tgbotapi.BotAPI, которой пользуется бот.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

const myShiftsLimit = 15

type Bot struct {
	api Sender
	app *app.App
	wg  sync.WaitGroup
}

func New(api Sender, a *app.App) *Bot {
	return &Bot{api: api, app: a}
}

// Run обрабатывает обновления до отмены ctx. Каждое обновление — отдельная
// единица работы; ожидание таблицы по одному не задерживает остальные.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("bot: ❌ panic while handling update %d: %v", update.UpdateID, r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) reply(chatID int64, replyTo int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyToMessageID = replyTo
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("bot: send to %d failed: %v", chatID, err)
	}
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = kb
	return b.api.Send(msg)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}
	if msg.Text != "" {
		b.handlePendingReply(ctx, msg)
	}
}

func submitter(u *tgbotapi.User) models.Submitter {
	return models.Submitter{UserID: u.ID, Username: u.UserName}
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	sub := submitter(msg.From)
	log.Printf("bot: photo from %s in chat %d", sub.Handle(), msg.Chat.ID)

	g, err := b.app.Group(msg.Chat.ID)
	if err != nil {
		if !msg.Chat.IsPrivate() {
			b.reply(msg.Chat.ID, msg.MessageID, errorText(err))
		}
		return
	}
	if strings.TrimSpace(msg.Caption) == "" {
		b.reply(msg.Chat.ID, msg.MessageID, "❌ Пожалуйста, добавьте подпись к фотографии в указанном формате.\n"+captionHint)
		return
	}

	photo := msg.Photo[len(msg.Photo)-1].FileID
	s, err := b.app.Shifts.Register(ctx, g.ID, sub, msg.Caption, photo, b.app.Today(g))
	if err != nil {
		log.Printf("bot: registration from %s rejected: %v", sub.Handle(), err)
		b.reply(msg.Chat.ID, msg.MessageID, errorText(err))
		return
	}
	b.reply(msg.Chat.ID, msg.MessageID, registeredText(*s))
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, msg.MessageID, helpText)
		return
	case "apitoken":
		b.cmdAPIToken(msg)
		return
	case "cancel":
		if err := b.app.Pending.Drop(ctx, chatID, msg.From.ID); err != nil {
			log.Printf("bot: drop pending: %v", err)
		}
		b.reply(chatID, msg.MessageID, "Ожидание ввода отменено.")
		return
	}

	g, err := b.app.Group(chatID)
	if err != nil {
		b.reply(chatID, msg.MessageID, errorText(err))
		return
	}

	switch msg.Command() {
	case "my":
		b.cmdMy(ctx, g, msg)
	case "report":
		b.admin(g, msg, func() { b.cmdReport(ctx, g, msg, args) })
	case "shifts":
		b.admin(g, msg, func() { b.cmdShifts(ctx, g, msg) })
	case "week":
		b.admin(g, msg, func() { b.cmdWeek(ctx, g, msg, args) })
	case "export":
		b.admin(g, msg, func() { b.cmdExport(ctx, g, msg, args) })
	case "edit":
		b.admin(g, msg, func() { b.cmdEdit(ctx, g, msg, args) })
	}
}

// admin выполняет fn только для администратора группы; иначе единый отказ.
func (b *Bot) admin(g config.GroupConfig, msg *tgbotapi.Message, fn func()) {
	if !auth.IsAdmin(msg.From.UserName, g.Admins) {
		log.Printf("bot: ⚠️ %s tried /%s in group %d without admin rights", submitter(msg.From).Handle(), msg.Command(), g.ID)
		b.reply(msg.Chat.ID, msg.MessageID, errorText(models.ErrAccessDenied))
		return
	}
	fn()
}

func (b *Bot) cmdMy(ctx context.Context, g config.GroupConfig, msg *tgbotapi.Message) {
	shifts, err := b.app.Repo.FindByUser(ctx, g.ID, msg.From.ID)
	if err != nil {
		log.Printf("bot: /my failed: %v", err)
		b.reply(msg.Chat.ID, msg.MessageID, errorText(err))
		return
	}
	b.reply(msg.Chat.ID, msg.MessageID, myShiftsText(shifts, myShiftsLimit))
}

func (b *Bot) cmdReport(ctx context.Context, g config.GroupConfig, msg *tgbotapi.Message, args []string) {
	date := b.app.Today(g)
	if len(args) > 0 {
		d, err := time.Parse(models.DisplayDateLayout, args[0])
		if err != nil {
			b.reply(msg.Chat.ID, msg.MessageID, "❌ Неверный формат даты. Используйте формат <b>ДД.ММ.ГГ</b> (например, 17.07.25).")
			return
		}
		date = d.Format(models.DateLayout)
	}

	shifts, err := b.app.Repo.FindByDate(ctx, g.ID, date)
	if err != nil {
		log.Printf("bot: /report failed: %v", err)
		b.reply(msg.Chat.ID, msg.MessageID, errorText(err))
		return
	}
	b.reply(msg.Chat.ID, msg.MessageID, dayReportText(displayISO(date), shifts))
}

func (b *Bot) cmdShifts(ctx context.Context, g config.GroupConfig, msg *tgbotapi.Message) {
	today := b.app.Today(g)
	shifts, err := b.app.Repo.FindActiveByDate(ctx, g.ID, today)
	if err != nil {
		log.Printf("bot: /shifts failed: %v", err)
		b.reply(msg.Chat.ID, msg.MessageID, errorText(err))
		return
	}
	if len(shifts) == 0 {
		b.reply(msg.Chat.ID, msg.MessageID, fmt.Sprintf("Активных смен на %s нет.", displayISO(today)))
		return
	}
	text := fmt.Sprintf("<b>Активные смены на %s</b>\nВыберите смену:", displayISO(today))
	if _, err := b.replyWithKeyboard(msg.Chat.ID, text, shiftsKeyboard(shifts)); err != nil {
		log.Printf("bot: send shifts list: %v", err)
	}
}

func (b *Bot) cmdWeek(ctx context.Context, g config.GroupConfig, msg *tgbotapi.Message, args []string) {
	p, err := mirror.ParsePeriod(strings.Join(args, " "))
	if err != nil {
		b.reply(msg.Chat.ID, msg.MessageID, "❌ Период: prev, next или month.")
		return
	}
	r, err := b.app.Mirror.RebuildReport(ctx, g.ID, p, b.app.LocalNow(g))
	if err != nil {
		log.Printf("bot: /week failed: %v", err)
		b.reply(msg.Chat.ID, msg.MessageID, errorText(err))
		return
	}
	b.reply(msg.Chat.ID, msg.MessageID, weekReportText(r))
}

func (b *Bot) cmdExport(ctx context.Context, g config.GroupConfig, msg *tgbotapi.Message, args []string) {
	p, err := mirror.ParsePeriod(strings.Join(args, " "))
	if err != nil {
		b.reply(msg.Chat.ID, msg.MessageID, "❌ Период: prev, next или month.")
		return
	}
	r, err := b.app.Mirror.BuildReport(ctx, g.ID, p, b.app.LocalNow(g))
	if err != nil {
		log.Printf("bot: /export failed: %v", err)
		b.reply(msg.Chat.ID, msg.MessageID, errorText(err))
		return
	}
	data, err := mirror.ExportReportXLSX(r)
	if err != nil {
		log.Printf("bot: /export xlsx: %v", err)
		b.reply(msg.Chat.ID, msg.MessageID, errorText(err))
		return
	}

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("report_%s_%s.xlsx", r.From, r.To),
		Bytes: data,
	})
	doc.Caption = fmt.Sprintf("Отчёт: %s", r.Period.Label())
	doc.ReplyToMessageID = msg.MessageID
	if _, err := b.api.Send(doc); err != nil {
		log.Printf("bot: send xlsx: %v", err)
	}
}

func (b *Bot) cmdEdit(ctx context.Context, g config.GroupConfig, msg *tgbotapi.Message, args []string) {
	if len(args) != 3 {
		b.reply(msg.Chat.ID, msg.MessageID, "Использование: /edit ID ЧЧ:ММ ЧЧ:ММ")
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, msg.MessageID, "❌ ID смены должен быть числом.")
		return
	}
	s, err := b.app.Shifts.EditSchedule(ctx, g.ID, id, args[1], args[2])
	if err != nil {
		b.reply(msg.Chat.ID, msg.MessageID, errorText(err))
		return
	}
	b.reply(msg.Chat.ID, msg.MessageID, "✏️ Время изменено.\n"+shiftCard(*s))
}

// cmdAPIToken отправляет токен API в личные сообщения администратору.
func (b *Bot) cmdAPIToken(msg *tgbotapi.Message) {
	groups := b.app.Groups.AdminGroups(auth.IsAdmin, msg.From.UserName)
	if len(groups) == 0 {
		b.reply(msg.Chat.ID, msg.MessageID, errorText(models.ErrAccessDenied))
		return
	}
	token, err := b.app.JWT.GenerateToken(msg.From.ID, msg.From.UserName)
	if err != nil {
		log.Printf("bot: generate token: %v", err)
		b.reply(msg.Chat.ID, msg.MessageID, errorText(err))
		return
	}

	private := tgbotapi.NewMessage(msg.From.ID, fmt.Sprintf("🔑 Токен HTTP API (действует %d дней):\n<code>%s</code>", int(auth.TokenTTL.Hours()/24), token))
	private.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(private); err != nil {
		log.Printf("bot: send token to %d: %v", msg.From.ID, err)
		b.reply(msg.Chat.ID, msg.MessageID, "⚠️ Не удалось отправить токен. Напишите боту /start в личные сообщения и повторите.")
		return
	}
	if !msg.Chat.IsPrivate() {
		b.reply(msg.Chat.ID, msg.MessageID, "🔑 Токен отправлен в личные сообщения.")
	}
}

// handlePendingReply обрабатывает ответ администратора на запрос ввода.
func (b *Bot) handlePendingReply(ctx context.Context, msg *tgbotapi.Message) {
	action, ok, err := b.app.Pending.Take(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		log.Printf("bot: pending lookup: %v", err)
		return
	}
	if !ok {
		return
	}
	if _, err := b.app.RequireAdmin(action.GroupID, msg.From.UserName); err != nil {
		b.reply(msg.Chat.ID, msg.MessageID, errorText(err))
		return
	}

	text := strings.TrimSpace(msg.Text)
	var s *models.Shift
	switch action.Kind {
	case pending.KindActualEnd:
		s, err = b.app.Shifts.Complete(ctx, action.GroupID, action.ShiftID, text, models.TriggerAdminActualTime)
	case pending.KindSchedule:
		parts := strings.Fields(text)
		if len(parts) != 2 {
			err = &models.ValidationError{Reason: "ожидается «ЧЧ:ММ ЧЧ:ММ»"}
			break
		}
		s, err = b.app.Shifts.EditSchedule(ctx, action.GroupID, action.ShiftID, parts[0], parts[1])
	default:
		err = fmt.Errorf("unknown pending action %q", action.Kind)
	}
	if err != nil {
		b.reply(msg.Chat.ID, msg.MessageID, errorText(err)+"\nНажмите кнопку ещё раз, чтобы повторить.")
		return
	}
	b.reply(msg.Chat.ID, msg.MessageID, shiftCard(*s))
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	answer := tgbotapi.NewCallback(cq.ID, "")
	defer func() {
		if _, err := b.api.Request(answer); err != nil {
			log.Printf("bot: answer callback: %v", err)
		}
	}()

	if cq.Message == nil || cq.Message.Chat == nil || cq.From == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	g, err := b.app.RequireAdmin(chatID, cq.From.UserName)
	if err != nil {
		answer.Text = stripTags(errorText(err))
		answer.ShowAlert = true
		return
	}

	action, err := ParseAction(cq.Data)
	if err != nil {
		log.Printf("bot: %v", err)
		return
	}
	answer.Text = b.dispatch(ctx, g, cq, action)
}

// dispatch выполняет действие и возвращает короткий текст для всплывающего ответа.
func (b *Bot) dispatch(ctx context.Context, g config.GroupConfig, cq *tgbotapi.CallbackQuery, action AdminAction) string {
	chatID, msgID := cq.Message.Chat.ID, cq.Message.MessageID

	switch a := action.(type) {
	case Dismiss:
		b.edit(chatID, msgID, "Закрыто.", nil)
		return ""
	case ShowShift:
		s, err := b.app.Repo.FindByID(ctx, g.ID, a.ShiftID)
		if err != nil {
			return b.fail(chatID, msgID, err)
		}
		kb := shiftActionsKeyboard(*s, b.app.AllowDelete())
		b.edit(chatID, msgID, shiftCard(*s), &kb)
		return ""
	case AskComplete:
		return b.confirm(ctx, g, chatID, msgID, a.ShiftID, "Завершить смену по плановому времени?", ConfirmComplete{a.ShiftID})
	case AskCancel:
		return b.confirm(ctx, g, chatID, msgID, a.ShiftID, "Отменить смену?", ConfirmCancel{a.ShiftID})
	case AskDelete:
		if !b.app.AllowDelete() {
			return "Удаление недоступно"
		}
		return b.confirm(ctx, g, chatID, msgID, a.ShiftID, "Удалить смену без возможности восстановления?", ConfirmDelete{a.ShiftID})
	case ConfirmComplete:
		s, err := b.app.Shifts.Complete(ctx, g.ID, a.ShiftID, "", models.TriggerAdminConfirm)
		if err != nil {
			return b.fail(chatID, msgID, err)
		}
		b.edit(chatID, msgID, "✅ Смена завершена.\n"+shiftCard(*s), nil)
		return "Готово"
	case ConfirmCancel:
		s, err := b.app.Shifts.Cancel(ctx, g.ID, a.ShiftID, models.TriggerAdminConfirm)
		if err != nil {
			return b.fail(chatID, msgID, err)
		}
		b.edit(chatID, msgID, "❌ Смена отменена.\n"+shiftCard(*s), nil)
		return "Готово"
	case ConfirmDelete:
		if !b.app.AllowDelete() {
			return "Удаление недоступно"
		}
		if err := b.app.Shifts.Delete(ctx, g.ID, a.ShiftID); err != nil {
			return b.fail(chatID, msgID, err)
		}
		b.edit(chatID, msgID, fmt.Sprintf("🗑 Смена #%d удалена.", a.ShiftID), nil)
		return "Готово"
	case AskActualEnd:
		return b.ask(ctx, g, cq, pending.KindActualEnd, a.ShiftID,
			fmt.Sprintf("⏱ Введите фактическое время окончания смены #%d в формате ЧЧ:ММ (или /cancel).", a.ShiftID))
	case AskSchedule:
		return b.ask(ctx, g, cq, pending.KindSchedule, a.ShiftID,
			fmt.Sprintf("✏️ Введите новое время смены #%d в формате «ЧЧ:ММ ЧЧ:ММ» (или /cancel).", a.ShiftID))
	default:
		log.Printf("bot: unhandled action %T", action)
		return ""
	}
}

func (b *Bot) confirm(ctx context.Context, g config.GroupConfig, chatID int64, msgID int, shiftID int64, question string, yes AdminAction) string {
	s, err := b.app.Repo.FindByID(ctx, g.ID, shiftID)
	if err != nil {
		return b.fail(chatID, msgID, err)
	}
	if s.Status.Terminal() && !isDelete(yes) {
		return b.fail(chatID, msgID, models.ErrAlreadyClosed)
	}
	kb := confirmKeyboard(yes)
	b.edit(chatID, msgID, shiftCard(*s)+"\n\n<b>"+question+"</b>", &kb)
	return ""
}

func isDelete(a AdminAction) bool {
	_, ok := a.(ConfirmDelete)
	return ok
}

func (b *Bot) ask(ctx context.Context, g config.GroupConfig, cq *tgbotapi.CallbackQuery, kind pending.Kind, shiftID int64, prompt string) string {
	s, err := b.app.Repo.FindByID(ctx, g.ID, shiftID)
	if err != nil {
		return b.fail(cq.Message.Chat.ID, cq.Message.MessageID, err)
	}
	if s.Status.Terminal() {
		return b.fail(cq.Message.Chat.ID, cq.Message.MessageID, models.ErrAlreadyClosed)
	}
	action := pending.Action{Kind: kind, GroupID: g.ID, ShiftID: shiftID, PromptMessageID: cq.Message.MessageID}
	if err := b.app.Pending.Put(ctx, cq.Message.Chat.ID, cq.From.ID, action); err != nil {
		log.Printf("bot: save pending: %v", err)
		return "Ошибка, попробуйте позже"
	}
	b.reply(cq.Message.Chat.ID, cq.Message.MessageID, prompt)
	return ""
}

func (b *Bot) fail(chatID int64, msgID int, err error) string {
	if !isDomainError(err) {
		log.Printf("bot: ❌ admin action failed: %v", err)
	}
	b.edit(chatID, msgID, errorText(err), nil)
	return stripTags(errorText(err))
}

func isDomainError(err error) bool {
	var (
		ve *models.ValidationError
		oe *models.OverlapError
	)
	return errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrAlreadyClosed) ||
		errors.Is(err, models.ErrAccessDenied) || errors.As(err, &ve) || errors.As(err, &oe)
}

func (b *Bot) edit(chatID int64, msgID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	var cfg tgbotapi.EditMessageTextConfig
	if kb != nil {
		cfg = tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, *kb)
	} else {
		cfg = tgbotapi.NewEditMessageText(chatID, msgID, text)
	}
	cfg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(cfg); err != nil {
		log.Printf("bot: edit message %d: %v", msgID, err)
	}
}

// stripTags убирает HTML-разметку для всплывающих ответов на нажатия.
func stripTags(s string) string {
	var out strings.Builder
	in := false
	for _, r := range s {
		switch {
		case r == '<':
			in = true
		case r == '>' && in:
			in = false
		case !in:
			out.WriteRune(r)
		}
	}
	text := out.String()
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return text
}
