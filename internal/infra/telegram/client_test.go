package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"medication_reminder_bot/internal/app"
	"medication_reminder_bot/internal/domain/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	args := m.Called(to, what)
	msg, _ := args.Get(0).(*telebot.Message)
	return msg, args.Error(1)
}

func TestTelebotAdapter_SendText(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", &telebot.User{ID: 123456}, "hello").Return(&telebot.Message{ID: 77}, nil).Once()

	res, err := NewTelebotAdapter(sender).SendText(context.Background(), "123456", "hello")
	require.NoError(t, err)
	assert.Equal(t, "77", res.MessageID)
	sender.AssertExpectations(t)
}

func TestTelebotAdapter_SendImage(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", &telebot.User{ID: 42}, mock.MatchedBy(func(p *telebot.Photo) bool {
		return p.FileURL == "https://cdn.example.com/a.jpg" && p.Caption == "caption"
	})).Return(&telebot.Message{ID: 1}, nil).Once()

	_, err := NewTelebotAdapter(sender).SendImage(context.Background(), "42", "https://cdn.example.com/a.jpg", "caption")
	require.NoError(t, err)
	sender.AssertExpectations(t)
}

func TestTelebotAdapter_Errors(t *testing.T) {
	_, err := NewTelebotAdapter(nil).SendText(context.Background(), "1", "x")
	assert.ErrorIs(t, err, messaging.ErrNotConfigured)

	sender := &mockSender{}
	_, err = NewTelebotAdapter(sender).SendText(context.Background(), "+996700112233x", "x")
	assert.ErrorContains(t, err, "invalid telegram chat id")

	sender.On("Send", mock.Anything, mock.Anything).Return(nil, errors.New("telegram: bot was blocked by the user (403)")).Once()
	_, err = NewTelebotAdapter(sender).SendText(context.Background(), "1", "x")
	assert.ErrorContains(t, err, "blocked")
}

func TestTelebotAdapter_ContextDeadline(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything).After(time.Second).Return(&telebot.Message{ID: 1}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := NewTelebotAdapter(sender).SendText(ctx, "1", "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewBotAdapter_NilBotIsNotConfigured(t *testing.T) {
	var bot *telebot.Bot
	gw := NewBotAdapter(bot)

	_, err := gw.SendText(context.Background(), "1", "x")
	assert.ErrorIs(t, err, messaging.ErrNotConfigured)
	_, err = gw.SendImage(context.Background(), "1", "https://cdn.example.com/a.jpg", "x")
	assert.ErrorIs(t, err, messaging.ErrNotConfigured)
}

func TestTelebotAdapter_CaptionIsEscapedHTML(t *testing.T) {
	gw := NewTelebotAdapter(&mockSender{})
	assert.Equal(t, HTMLMarkup{}, messaging.MarkupFor(gw))

	caption := app.FormatCaptionWith(app.DueReminder{Name: "Vitamin_B*12 `x` <forte>", Dosage: "1 & 2", Time: "08:00"}, messaging.MarkupFor(gw))

	assert.Contains(t, caption, "💊 <b>Vitamin_B*12 `x` &lt;forte&gt;</b>")
	assert.Contains(t, caption, "📋 Доза: 1 &amp; 2")
	assert.Contains(t, caption, "<i>Не забудьте принять лекарство вовремя!</i>")
	assert.NotContains(t, caption, "*Vitamin")
}
