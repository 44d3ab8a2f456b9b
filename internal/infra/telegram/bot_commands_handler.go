// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"medication_reminder_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(
	b *telebot.Bot,
	adminService *app.AdminService,
	baseLogger *logrus.Entry, // For contextual logging
) {
	h := &startHelpHandlers{admin: adminService, logger: baseLogger.WithField("handler_group", "start_help")}
	b.Handle("/start", func(c telebot.Context) error { return h.start(c) })
	b.Handle("/help", func(c telebot.Context) error { return h.help(c) })
}

type startHelpHandlers struct {
	admin  *app.AdminService
	logger *logrus.Entry
}

func (h *startHelpHandlers) start(c Commander) error {
	senderID := c.Sender().ID
	logCtx := h.logger.WithField("command", "/start").WithField("sender_id", senderID)
	logCtx.Info("Processing /start command")

	if h.admin.IsAdmin(senderID) {
		logCtx.Info("User identified as Admin")
		return c.Send(fmt.Sprintf("Привет, Администратор %s! Я готов к работе. Используйте /help для списка команд.", c.Sender().FirstName))
	}

	logCtx.Info("User is not an operator")
	return c.Send(fmt.Sprintf("Привет! Я бот напоминаний о приёме лекарств. Ваш Telegram ID: %d. Передайте его администратору, чтобы получать напоминания здесь.", senderID))
}

func (h *startHelpHandlers) help(c Commander) error {
	senderID := c.Sender().ID
	logCtx := h.logger.WithField("command", "/help").WithField("sender_id", senderID)
	logCtx.Info("Processing /help command")

	if !h.admin.IsAdmin(senderID) {
		return c.Send("Я присылаю напоминания о приёме лекарств по расписанию. Доступных команд для вас нет.")
	}

	var helpText strings.Builder
	helpText.WriteString("Доступные команды Администратора:\n\n")
	helpText.WriteString("`/users`\n - Показать список пользователей.\n\n")
	helpText.WriteString("`/preview <UserID> <ЧЧ:ММ>`\n - Показать напоминания, которые пользователь получит сегодня в указанное время.\n\n")
	helpText.WriteString("`/instructions <UserID>`\n - Схема приёма: активные лекарства, расписание и фаза цикла на сегодня.\n\n")
	helpText.WriteString("`/history <UserID> [sent|failed|pending] [лимит]`\n - История уведомлений, новые сверху.\n\n")
	helpText.WriteString("`/recent [sent|failed|pending] [канал] [лимит]`\n - Последние уведомления всех пользователей (по умолчанию 100).\n\n")
	helpText.WriteString("`/stats <UserID> [дней]`\n - Статистика уведомлений за период (по умолчанию 7 дней).\n\n")
	helpText.WriteString("`/tick`\n - Запустить проверку напоминаний прямо сейчас.\n\n")
	helpText.WriteString("`/help`\n - Показать это справочное сообщение.")
	return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}
