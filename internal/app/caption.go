package app

import (
	"fmt"
	"strings"

	"medication_reminder_bot/internal/domain/medication"
	"medication_reminder_bot/internal/domain/messaging"
)

// FormatCaption renders the reminder text in WhatsApp markup.
func FormatCaption(r DueReminder) string {
	return FormatCaptionWith(r, messaging.WhatsAppMarkup{})
}

// FormatCaptionWith renders the reminder text used both as an image caption and as a text message body.
// The time line is omitted when the reminder carries no time.
func FormatCaptionWith(r DueReminder, m messaging.Markup) string {
	lines := make([]string, 0, 12)

	lines = append(lines, "💊 "+m.Bold(m.Escape(r.Name)), "")
	if r.Time != "" {
		lines = append(lines, "⏰ Время приёма: "+m.Bold(m.Escape(r.Time)), "")
	}
	lines = append(lines, "📋 Доза: "+m.Escape(r.Dosage))

	if r.Phase != nil {
		switch r.Phase.Kind {
		case medication.PhaseTaking:
			lines = append(lines, "",
				fmt.Sprintf("🔄 День %d из %d (приём)", r.Phase.Day, r.Phase.TakeDays),
				"✅ Сегодня принимать")
		case medication.PhaseResting:
			lines = append(lines, "", fmt.Sprintf("⏸ День %d из %d (перерыв)", r.Phase.Day, r.Phase.RestDays))
		}
	} else {
		lines = append(lines, "", "📅 Принимать ежедневно")
	}

	lines = append(lines, "", m.Italic("Не забудьте принять лекарство вовремя!"))
	return strings.Join(lines, "\n")
}
