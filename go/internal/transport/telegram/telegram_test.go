package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/lotto/go/internal/bot"
	"github.com/mcdev12/lotto/go/internal/messenger"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	nextID   int
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	fail     bool
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return tgbotapi.Message{}, errors.New("Forbidden: bot was blocked by the user")
	}
	f.nextID++
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) snapshot() ([]tgbotapi.Chattable, []tgbotapi.Chattable) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.sent...), append([]tgbotapi.Chattable(nil), f.requests...)
}

func TestClientSendTextWithButtons(t *testing.T) {
	api := newFakeAPI()
	c := NewClient(api)

	ref, err := c.Send(context.Background(), 42, messenger.Message{
		Text:    "hi",
		Buttons: [][]messenger.Button{{{Label: "Play", Data: "play"}, {Label: "Help", Data: "help"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, messenger.Ref{ChatID: 42, MessageID: 1}, ref)

	sent, _ := api.snapshot()
	require.Len(t, sent, 1)
	msg, ok := sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "hi", msg.Text)
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 2)
	require.NotNil(t, kb.InlineKeyboard[0][1].CallbackData)
	assert.Equal(t, "help", *kb.InlineKeyboard[0][1].CallbackData)
}

func TestClientEditLast(t *testing.T) {
	api := newFakeAPI()
	c := NewClient(api)
	ctx := context.Background()

	require.NoError(t, c.EditLast(ctx, 5, messenger.Message{Text: "first"}))
	sent, _ := api.snapshot()
	require.Len(t, sent, 1, "nothing to edit sends a new message")

	require.NoError(t, c.EditLast(ctx, 5, messenger.Message{Text: "second"}))
	_, requests := api.snapshot()
	require.Len(t, requests, 1)
	edit, ok := requests[0].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 1, edit.MessageID)
	assert.Equal(t, "second", edit.Text)

	_, err := c.Send(ctx, 5, messenger.Message{Text: "card", MediaRef: "photo-id"})
	require.NoError(t, err)
	require.NoError(t, c.EditLast(ctx, 5, messenger.Message{Text: "card v2"}))
	_, requests = api.snapshot()
	require.Len(t, requests, 2)
	caption, ok := requests[1].(tgbotapi.EditMessageCaptionConfig)
	require.True(t, ok)
	assert.Equal(t, "card v2", caption.Caption)
}

func TestClientSendFailure(t *testing.T) {
	api := newFakeAPI()
	api.fail = true
	c := NewClient(api)

	_, err := c.Send(context.Background(), 1, messenger.Message{Text: "x"})
	assert.Error(t, err)
}

func TestClientDelete(t *testing.T) {
	api := newFakeAPI()
	c := NewClient(api)
	ctx := context.Background()

	ref, err := c.Send(ctx, 3, messenger.Message{Text: "x"})
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, 3, ref))

	_, requests := api.snapshot()
	require.Len(t, requests, 1)
	del, ok := requests[0].(tgbotapi.DeleteMessageConfig)
	require.True(t, ok)
	assert.Equal(t, ref.MessageID, del.MessageID)

	// last message is gone, so the next edit sends fresh
	require.NoError(t, c.EditLast(ctx, 3, messenger.Message{Text: "y"}))
	sent, _ := api.snapshot()
	assert.Len(t, sent, 2)
}

type recordingHandler struct {
	mu      sync.Mutex
	updates []bot.Update
}

func (h *recordingHandler) Handle(ctx context.Context, u bot.Update) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, u)
	return "ok"
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.updates)
}

type promoStub struct {
	mu     sync.Mutex
	promos []models.Promo
}

func (p *promoStub) CreatePromo(ctx context.Context, mediaRef, caption string) (*models.Promo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	promo := models.Promo{ID: uuid.New(), MediaRef: mediaRef, Caption: caption}
	p.promos = append(p.promos, promo)
	return &promo, nil
}

func TestPollerDispatch(t *testing.T) {
	api := newFakeAPI()
	h := &recordingHandler{}
	promos := &promoStub{}
	p := NewPoller(api, h, promos, PollerConfig{AdminIDs: []int64{100}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	private := &tgbotapi.Chat{ID: 7, Type: "private"}
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 7, FirstName: "Ann"},
		Chat: private,
		Text: "/start",
	}}
	api.updates <- tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb1",
		From: &tgbotapi.User{ID: 7, FirstName: "Ann"},
		Data: "play",
	}}
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		From:  &tgbotapi.User{ID: 7},
		Chat:  private,
		Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
	}}
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		From:    &tgbotapi.User{ID: 100, UserName: "boss"},
		Chat:    &tgbotapi.Chat{ID: 100, Type: "private"},
		Photo:   []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
		Caption: "Sponsored",
	}}
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 8},
		Chat: &tgbotapi.Chat{ID: -5, Type: "group"},
		Text: "/start",
	}}

	require.Eventually(t, func() bool {
		promos.mu.Lock()
		defer promos.mu.Unlock()
		return h.count() == 2 && len(promos.promos) == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, "large", promos.promos[0].MediaRef)
	assert.Equal(t, "Sponsored", promos.promos[0].Caption)

	_, requests := api.snapshot()
	var answered bool
	for _, r := range requests {
		if cb, ok := r.(tgbotapi.CallbackConfig); ok {
			answered = cb.CallbackQueryID == "cb1" && cb.Text == "ok"
		}
	}
	assert.True(t, answered)
	assert.True(t, api.stopped)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ann Lee", displayName(&tgbotapi.User{FirstName: "Ann", LastName: "Lee"}))
	assert.Equal(t, "ann", displayName(&tgbotapi.User{UserName: "ann"}))
}
