// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"medication_reminder_bot/internal/domain/messaging"

	"gopkg.in/telebot.v3"
)

const ChannelName = "telegram"

// Sender is the part of *telebot.Bot the gateway uses.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelebotAdapter implements messaging.Gateway using the gopkg.in/telebot.v3 library.
// A user's address is their numeric Telegram chat id.
type TelebotAdapter struct {
	bot Sender
}

func NewTelebotAdapter(b Sender) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// NewBotAdapter wraps a bot that may be nil. A nil bot sends nothing and
// reports messaging.ErrNotConfigured.
func NewBotAdapter(b *telebot.Bot) *TelebotAdapter {
	if b == nil {
		return &TelebotAdapter{}
	}
	return &TelebotAdapter{bot: b}
}

func (tba *TelebotAdapter) Name() string {
	return ChannelName
}

// Markup makes reminder texts Telegram HTML, the parse mode every send uses.
func (tba *TelebotAdapter) Markup() messaging.Markup {
	return HTMLMarkup{}
}

// HTMLMarkup renders Telegram's HTML parse mode.
type HTMLMarkup struct{}

func (HTMLMarkup) Bold(text string) string   { return "<b>" + text + "</b>" }
func (HTMLMarkup) Italic(text string) string { return "<i>" + text + "</i>" }
func (HTMLMarkup) Escape(text string) string { return html.EscapeString(text) }

// SendText sends a text message to the specified recipient.
func (tba *TelebotAdapter) SendText(ctx context.Context, address, text string) (messaging.SendResult, error) {
	return tba.send(ctx, address, text)
}

// SendImage sends a photo by URL; Telegram downloads it itself.
func (tba *TelebotAdapter) SendImage(ctx context.Context, address, imageURL, caption string) (messaging.SendResult, error) {
	photo := &telebot.Photo{File: telebot.FromURL(imageURL), Caption: caption}
	return tba.send(ctx, address, photo)
}

func (tba *TelebotAdapter) send(ctx context.Context, address string, what interface{}) (messaging.SendResult, error) {
	if tba.bot == nil {
		return messaging.SendResult{}, messaging.ErrNotConfigured
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(address), 10, 64)
	if err != nil {
		return messaging.SendResult{}, fmt.Errorf("invalid telegram chat id %q: %w", address, err)
	}
	if err := ctx.Err(); err != nil {
		return messaging.SendResult{}, err
	}

	// telebot has no context support; the bot's HTTP client timeout bounds the call.
	type sent struct {
		msg *telebot.Message
		err error
	}
	done := make(chan sent, 1)
	go func() {
		msg, err := tba.bot.Send(&telebot.User{ID: chatID}, what, &telebot.SendOptions{ParseMode: telebot.ModeHTML})
		done <- sent{msg: msg, err: err}
	}()

	select {
	case <-ctx.Done():
		return messaging.SendResult{}, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return messaging.SendResult{}, res.err
		}
		var result messaging.SendResult
		if res.msg != nil {
			result.MessageID = strconv.Itoa(res.msg.ID)
		}
		return result, nil
	}
}
