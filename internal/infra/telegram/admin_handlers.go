package telegram

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"medication_reminder_bot/internal/app"
	"medication_reminder_bot/internal/domain/medication"
	"medication_reminder_bot/internal/domain/notification"
	"medication_reminder_bot/internal/domain/user"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const msgUnauthorized = "Ошибка: У вас нет прав для выполнения этой команды."

// RegisterAdminHandlers registers handlers for operator commands.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, baseLogger *logrus.Entry) {
	h := &adminHandlers{ctx: ctx, admin: adminService, logger: baseLogger}
	b.Handle("/users", h.users)
	b.Handle("/preview", h.preview)
	b.Handle("/instructions", h.instructions)
	b.Handle("/history", h.history)
	b.Handle("/recent", h.recent)
	b.Handle("/stats", h.stats)
	b.Handle("/tick", h.tick)
}

// Commander is the part of telebot.Context the handlers read.
type Commander interface {
	Sender() *telebot.User
	Args() []string
	Send(what interface{}, opts ...interface{}) error
}

type adminHandlers struct {
	ctx    context.Context
	admin  *app.AdminService
	logger *logrus.Entry
}

func (h *adminHandlers) log(c Commander, command string) *logrus.Entry {
	return h.logger.WithFields(logrus.Fields{
		"handler":   command,
		"sender_id": c.Sender().ID,
	})
}

// replyError maps service errors to operator-facing messages.
func replyError(c Commander, handlerLogger *logrus.Entry, action string, err error) error {
	logWithError := handlerLogger.WithError(err)
	switch {
	case errors.Is(err, app.ErrAdminNotAuthorized), errors.Is(err, app.ErrAdminDisabled):
		logWithError.Warn("Unauthorized access attempt")
		return c.Send(msgUnauthorized)
	case errors.Is(err, user.ErrUserNotFound):
		logWithError.Warn("User not found")
		return c.Send("Пользователь не найден.")
	case errors.Is(err, app.ErrInvalidPreviewRequest), errors.Is(err, app.ErrInvalidHistoryRequest):
		logWithError.Warn("Invalid command arguments")
		return c.Send(fmt.Sprintf("Неверные параметры команды: %s", err.Error()))
	case errors.Is(err, app.ErrTickInProgress), errors.Is(err, app.ErrTickAlreadyClaimed):
		logWithError.Info("Tick skipped")
		return c.Send("Проверка напоминаний уже выполняется. Попробуйте через минуту.")
	default:
		logWithError.Errorf("Failed to %s", action)
		return c.Send(fmt.Sprintf("Произошла ошибка: %s", err.Error()))
	}
}

func parseUserID(c Commander, usage string) (uuid.UUID, bool, error) {
	args := c.Args()
	if len(args) == 0 {
		return uuid.Nil, false, c.Send("Неверный формат команды. Используйте: " + usage)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, false, c.Send("Ошибка: ID пользователя должен быть UUID.")
	}
	return id, true, nil
}

func (h *adminHandlers) users(c telebot.Context) error {
	return h.handleUsers(c)
}

func (h *adminHandlers) handleUsers(c Commander) error {
	handlerLogger := h.log(c, "/users")
	handlerLogger.Info("Command received")

	users, err := h.admin.ListUsers(h.ctx, c.Sender().ID)
	if err != nil {
		return replyError(c, handlerLogger, "list users", err)
	}
	if len(users) == 0 {
		return c.Send("Список пользователей пуст.")
	}

	lines := make([]string, 0, len(users)+1)
	lines = append(lines, fmt.Sprintf("--- Пользователи (%d) ---", len(users)))
	for _, u := range users {
		lines = append(lines, fmt.Sprintf("%s | %s | %s", u.ID, u.Name, u.Address))
	}
	return sendBlocks(c, lines)
}

func (h *adminHandlers) preview(c telebot.Context) error {
	return h.handlePreview(c)
}

// /preview <userID> <HH:MM>
func (h *adminHandlers) handlePreview(c Commander) error {
	handlerLogger := h.log(c, "/preview")
	handlerLogger.Info("Command received")

	if !h.admin.IsAdmin(c.Sender().ID) {
		handlerLogger.Warn("Unauthorized access attempt")
		return c.Send(msgUnauthorized)
	}
	args := c.Args()
	if len(args) != 2 {
		return c.Send("Неверный формат команды. Используйте: /preview <UserID> <ЧЧ:ММ>")
	}

	preview, err := h.admin.Preview(h.ctx, c.Sender().ID, args[0], args[1])
	if err != nil {
		return replyError(c, handlerLogger, "build preview", err)
	}
	if len(preview.Reminders) == 0 {
		return c.Send(fmt.Sprintf("%s, %s %s: напоминаний нет.", preview.User.Name, preview.Date, preview.Time))
	}

	blocks := make([]string, 0, len(preview.Captions)+len(preview.Warnings)+1)
	blocks = append(blocks, fmt.Sprintf("%s, %s %s: %d напоминаний", preview.User.Name, preview.Date, preview.Time, len(preview.Reminders)))
	for i, caption := range preview.Captions {
		block := "\n---\n"
		if preview.Reminders[i].ImageURL != "" {
			block += "[изображение] "
		}
		blocks = append(blocks, block+caption)
	}
	blocks = append(blocks, warningLines(preview.Warnings)...)
	return sendBlocks(c, blocks)
}

func (h *adminHandlers) history(c telebot.Context) error {
	return h.handleHistory(c)
}

// /history <userID> [sent|failed|pending] [limit]
func (h *adminHandlers) handleHistory(c Commander) error {
	handlerLogger := h.log(c, "/history")
	handlerLogger.Info("Command received")

	if !h.admin.IsAdmin(c.Sender().ID) {
		handlerLogger.Warn("Unauthorized access attempt")
		return c.Send(msgUnauthorized)
	}
	userID, ok, err := parseUserID(c, "/history <UserID> [sent|failed|pending] [лимит]")
	if !ok {
		return err
	}

	var status notification.Status
	limit := 0
	for _, arg := range c.Args()[1:] {
		if n, convErr := strconv.Atoi(arg); convErr == nil {
			limit = n
			continue
		}
		status = notification.Status(strings.ToLower(arg))
	}

	records, err := h.admin.History(h.ctx, c.Sender().ID, userID, status, limit)
	if err != nil {
		return replyError(c, handlerLogger, "list history", err)
	}
	if len(records) == 0 {
		return c.Send("История уведомлений пуста.")
	}

	lines := make([]string, 0, len(records)+1)
	lines = append(lines, fmt.Sprintf("--- История (%d) ---", len(records)))
	for _, r := range records {
		lines = append(lines, recordLine(r, false))
	}
	return sendBlocks(c, lines)
}

func recordLine(r *notification.Record, withUser bool) string {
	line := fmt.Sprintf("%s | %s | %s | %s", r.SentAt.Format("2006-01-02 15:04"), r.Channel, r.Kind, r.Status)
	if withUser {
		name, _ := r.Metadata["user_name"].(string)
		line += fmt.Sprintf(" | %s %s", name, r.Recipient)
	}
	if r.Error.Valid {
		line += " | " + r.Error.String
	}
	return line
}

func warningLines(warnings []error) []string {
	lines := make([]string, 0, len(warnings))
	for _, w := range warnings {
		lines = append(lines, fmt.Sprintf("\n⚠️ %s", w.Error()))
	}
	return lines
}

func (h *adminHandlers) recent(c telebot.Context) error {
	return h.handleRecent(c)
}

// /recent [sent|failed|pending] [channel] [limit]
func (h *adminHandlers) handleRecent(c Commander) error {
	handlerLogger := h.log(c, "/recent")
	handlerLogger.Info("Command received")

	var (
		status  notification.Status
		channel string
		limit   int
	)
	for _, arg := range c.Args() {
		if n, convErr := strconv.Atoi(arg); convErr == nil {
			limit = n
			continue
		}
		switch s := notification.Status(strings.ToLower(arg)); s {
		case notification.StatusSent, notification.StatusFailed, notification.StatusPending:
			status = s
		default:
			channel = strings.ToLower(arg)
		}
	}

	records, err := h.admin.Recent(h.ctx, c.Sender().ID, status, channel, limit)
	if err != nil {
		return replyError(c, handlerLogger, "list recent notifications", err)
	}
	if len(records) == 0 {
		return c.Send("Уведомлений не найдено.")
	}

	lines := make([]string, 0, len(records)+1)
	lines = append(lines, fmt.Sprintf("--- Последние уведомления (%d) ---", len(records)))
	for _, r := range records {
		lines = append(lines, recordLine(r, true))
	}
	return sendBlocks(c, lines)
}

func (h *adminHandlers) instructions(c telebot.Context) error {
	return h.handleInstructions(c)
}

// /instructions <userID>
func (h *adminHandlers) handleInstructions(c Commander) error {
	handlerLogger := h.log(c, "/instructions")
	handlerLogger.Info("Command received")

	if !h.admin.IsAdmin(c.Sender().ID) {
		handlerLogger.Warn("Unauthorized access attempt")
		return c.Send(msgUnauthorized)
	}
	userID, ok, err := parseUserID(c, "/instructions <UserID>")
	if !ok {
		return err
	}

	instr, err := h.admin.Instructions(h.ctx, c.Sender().ID, userID)
	if err != nil {
		return replyError(c, handlerLogger, "build instructions", err)
	}
	if len(instr.Medications) == 0 {
		return c.Send(fmt.Sprintf("%s: активных лекарств нет.", instr.User.Name))
	}

	blocks := make([]string, 0, len(instr.Medications)+len(instr.Warnings)+1)
	blocks = append(blocks, fmt.Sprintf("--- %s, схема приёма на %s (%s) ---", instr.User.Name, instr.Date, instr.Timezone))
	for _, m := range instr.Medications {
		blocks = append(blocks, medicationBlock(m))
	}
	blocks = append(blocks, warningLines(instr.Warnings)...)
	return sendBlocks(c, blocks)
}

func medicationBlock(m app.MedicationInstructions) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("\n💊 %s: %s", m.Medication.Name, m.Medication.Dose))

	times := make([]string, 0, len(m.Schedules))
	for _, sch := range m.Schedules {
		t := sch.TimeOfDay
		if sch.Quantity.Valid && sch.Quantity.String != "" {
			t += " (" + sch.Quantity.String + ")"
		}
		times = append(times, t)
	}
	if len(times) == 0 {
		b.WriteString("\n⏰ Расписание не задано")
	} else {
		b.WriteString("\n⏰ " + strings.Join(times, ", "))
	}

	switch {
	case m.Cycle == nil:
		b.WriteString("\n📅 Принимать ежедневно")
	case m.Phase == nil:
		b.WriteString(fmt.Sprintf("\n⚠️ Некорректный цикл %d/%d", m.Cycle.TakeDays, m.Cycle.RestDays))
	case m.Phase.Kind == medication.PhaseTaking:
		b.WriteString(fmt.Sprintf("\n🔄 Приём: день %d из %d, осталось %d дн.", m.Phase.Day, m.Phase.TakeDays, m.Phase.Remaining))
	case m.Phase.Kind == medication.PhaseResting:
		b.WriteString(fmt.Sprintf("\n⏸ Перерыв: день %d из %d, осталось %d дн.", m.Phase.Day, m.Phase.RestDays, m.Phase.Remaining))
	default:
		b.WriteString(fmt.Sprintf("\n⏳ Цикл %d/%d начнётся через %d дн.", m.Cycle.TakeDays, m.Cycle.RestDays, m.Phase.DaysUntilStart))
	}
	return b.String()
}

func (h *adminHandlers) stats(c telebot.Context) error {
	return h.handleStats(c)
}

// /stats <userID> [days]
func (h *adminHandlers) handleStats(c Commander) error {
	handlerLogger := h.log(c, "/stats")
	handlerLogger.Info("Command received")

	if !h.admin.IsAdmin(c.Sender().ID) {
		handlerLogger.Warn("Unauthorized access attempt")
		return c.Send(msgUnauthorized)
	}
	userID, ok, err := parseUserID(c, "/stats <UserID> [дней]")
	if !ok {
		return err
	}
	days := 0
	if args := c.Args(); len(args) > 1 {
		if days, err = strconv.Atoi(args[1]); err != nil {
			return c.Send("Ошибка: количество дней должно быть числом.")
		}
	}

	stats, err := h.admin.Stats(h.ctx, c.Sender().ID, userID, days)
	if err != nil {
		return replyError(c, handlerLogger, "compute stats", err)
	}

	var response strings.Builder
	response.WriteString(fmt.Sprintf("--- Статистика за %d дн. ---\n", stats.Days))
	response.WriteString(fmt.Sprintf("Всего: %d\nОтправлено: %d\nОшибки: %d\nОжидают: %d\n", stats.Total, stats.Sent, stats.Failed, stats.Pending))
	channels := make([]string, 0, len(stats.ByChannel))
	for channel := range stats.ByChannel {
		channels = append(channels, channel)
	}
	sort.Strings(channels)
	for _, channel := range channels {
		response.WriteString(fmt.Sprintf("%s: %d\n", channel, stats.ByChannel[channel]))
	}
	return c.Send(response.String())
}

func (h *adminHandlers) tick(c telebot.Context) error {
	return h.handleTick(c)
}

func (h *adminHandlers) handleTick(c Commander) error {
	handlerLogger := h.log(c, "/tick")
	handlerLogger.Info("Command received")

	report, err := h.admin.RunTick(h.ctx, c.Sender().ID)
	if err != nil {
		return replyError(c, handlerLogger, "run tick", err)
	}
	handlerLogger.WithField("tick_id", report.TickID).Info("Manual tick completed")
	return c.Send(fmt.Sprintf("Проверка %s завершена. Найдено: %d, к отправке: %d, отправлено: %d, ошибки: %d, ожидают: %d, предупреждений: %d.",
		report.Time, report.Matched, report.Due, report.Sent, report.Failed, report.Pending, report.Warnings))
}
