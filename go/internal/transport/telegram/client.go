// Package telegram delivers game messages through the Telegram Bot API and
// turns incoming updates into player actions.
package telegram

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mcdev12/lotto/go/internal/messenger"
)

// API is the part of tgbotapi.BotAPI the transport uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type sentMessage struct {
	id       int
	hasMedia bool
}

// Client implements messenger.Messenger on top of the Bot API. Private chat
// IDs equal user IDs, so recipients are used as chat IDs directly.
type Client struct {
	api API

	mu   sync.Mutex
	last map[int64]sentMessage
}

var _ messenger.Messenger = (*Client)(nil)

func NewClient(api API) *Client {
	return &Client{
		api:  api,
		last: make(map[int64]sentMessage),
	}
}

// NewBotAPI connects to Telegram with token.
func NewBotAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	api.Debug = debug
	return api, nil
}

func (c *Client) Send(ctx context.Context, recipient int64, msg messenger.Message) (messenger.Ref, error) {
	var chattable tgbotapi.Chattable
	if msg.MediaRef != "" {
		photo := tgbotapi.NewPhoto(recipient, tgbotapi.FileID(msg.MediaRef))
		photo.Caption = msg.Text
		if kb, ok := keyboard(msg.Buttons); ok {
			photo.ReplyMarkup = kb
		}
		chattable = photo
	} else {
		text := tgbotapi.NewMessage(recipient, msg.Text)
		if kb, ok := keyboard(msg.Buttons); ok {
			text.ReplyMarkup = kb
		}
		chattable = text
	}

	sent, err := c.api.Send(chattable)
	if err != nil {
		return messenger.Ref{}, fmt.Errorf("failed to send to %d: %w", recipient, err)
	}

	c.mu.Lock()
	c.last[recipient] = sentMessage{id: sent.MessageID, hasMedia: msg.MediaRef != ""}
	c.mu.Unlock()
	return messenger.Ref{ChatID: recipient, MessageID: sent.MessageID}, nil
}

// EditLast edits the last message sent to recipient in place. The media of
// a photo message is kept and only its caption changes.
func (c *Client) EditLast(ctx context.Context, recipient int64, msg messenger.Message) error {
	c.mu.Lock()
	last, ok := c.last[recipient]
	c.mu.Unlock()
	if !ok {
		_, err := c.Send(ctx, recipient, msg)
		return err
	}

	kb, hasKeyboard := keyboard(msg.Buttons)
	var chattable tgbotapi.Chattable
	if last.hasMedia {
		edit := tgbotapi.NewEditMessageCaption(recipient, last.id, msg.Text)
		if hasKeyboard {
			edit.ReplyMarkup = &kb
		}
		chattable = edit
	} else {
		edit := tgbotapi.NewEditMessageText(recipient, last.id, msg.Text)
		if hasKeyboard {
			edit.ReplyMarkup = &kb
		}
		chattable = edit
	}

	if _, err := c.api.Request(chattable); err != nil {
		return fmt.Errorf("failed to edit message %d for %d: %w", last.id, recipient, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, recipient int64, ref messenger.Ref) error {
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)); err != nil {
		return fmt.Errorf("failed to delete message %d for %d: %w", ref.MessageID, recipient, err)
	}

	c.mu.Lock()
	if last, ok := c.last[recipient]; ok && last.id == ref.MessageID {
		delete(c.last, recipient)
	}
	c.mu.Unlock()
	return nil
}

func keyboard(rows [][]messenger.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		out = append(out, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...), true
}
