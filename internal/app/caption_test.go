package app

import (
	"strings"
	"testing"

	"medication_reminder_bot/internal/domain/medication"

	"github.com/stretchr/testify/assert"
)

func TestFormatCaption(t *testing.T) {
	tests := []struct {
		name     string
		reminder DueReminder
		expected string
	}{
		{
			name:     "daily medication",
			reminder: DueReminder{Name: "Аспирин", Dosage: "1 таблетка", Time: "08:00"},
			expected: "💊 *Аспирин*\n\n⏰ Время приёма: *08:00*\n\n📋 Доза: 1 таблетка\n\n📅 Принимать ежедневно\n\n_Не забудьте принять лекарство вовремя!_",
		},
		{
			name: "taking phase of a cycle",
			reminder: DueReminder{
				Name:   "Магний",
				Dosage: "2 капсулы",
				Time:   "21:30",
				Phase:  &medication.CyclePhase{Kind: medication.PhaseTaking, Day: 3, Remaining: 3, TakeDays: 5, RestDays: 2},
			},
			expected: "💊 *Магний*\n\n⏰ Время приёма: *21:30*\n\n📋 Доза: 2 капсулы\n\n🔄 День 3 из 5 (приём)\n✅ Сегодня принимать\n\n_Не забудьте принять лекарство вовремя!_",
		},
		{
			name: "resting phase",
			reminder: DueReminder{
				Name:   "Магний",
				Dosage: "2 капсулы",
				Phase:  &medication.CyclePhase{Kind: medication.PhaseResting, Day: 1, Remaining: 2, TakeDays: 5, RestDays: 2},
			},
			expected: "💊 *Магний*\n\n📋 Доза: 2 капсулы\n\n⏸ День 1 из 2 (перерыв)\n\n_Не забудьте принять лекарство вовремя!_",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatCaption(tt.reminder))
		})
	}
}

type bracketMarkup struct{}

func (bracketMarkup) Bold(text string) string   { return "[b]" + text + "[/b]" }
func (bracketMarkup) Italic(text string) string { return "[i]" + text + "[/i]" }
func (bracketMarkup) Escape(text string) string { return strings.ReplaceAll(text, "_", `\_`) }

func TestFormatCaptionWith_EscapesUserText(t *testing.T) {
	caption := FormatCaptionWith(DueReminder{Name: "vit_d", Dosage: "1_000 IU", Time: "08:00"}, bracketMarkup{})

	assert.Equal(t, "💊 [b]vit\\_d[/b]\n\n⏰ Время приёма: [b]08:00[/b]\n\n📋 Доза: 1\\_000 IU\n\n📅 Принимать ежедневно\n\n[i]Не забудьте принять лекарство вовремя![/i]", caption)
}

func TestReminderService_CaptionFollowsGatewayMarkup(t *testing.T) {
	r := DueReminder{Name: "vit_d", Dosage: "1", Time: "08:00"}

	whatsapp := newTestEngine(&mockGateway{}, &fakeMedicationRepo{}, usersOf())
	assert.Equal(t, FormatCaption(r), whatsapp.service.Caption(r))

	custom := newTestEngine(&markupGateway{markup: bracketMarkup{}}, &fakeMedicationRepo{}, usersOf())
	assert.Equal(t, FormatCaptionWith(r, bracketMarkup{}), custom.service.Caption(r))
}
