package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mcdev12/lotto/go/internal/bot"
	"github.com/mcdev12/lotto/go/internal/messenger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoHandler struct {
	mu      sync.Mutex
	updates []bot.Update
}

func (h *echoHandler) Handle(ctx context.Context, u bot.Update) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, u)
	return "got " + u.Callback + u.Text
}

func (h *echoHandler) received() []bot.Update {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bot.Update(nil), h.updates...)
}

func setup(t *testing.T) (*ConnectionManager, *echoHandler, string) {
	t.Helper()
	cm := NewConnectionManager(DefaultConnectionConfig())
	h := &echoHandler{}
	cm.SetHandler(h)

	ctx, cancel := context.WithCancel(context.Background())
	go cm.Start(ctx)

	mux := http.NewServeMux()
	NewWebSocketHandler(cm).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return cm, h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, base, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/play?"+query, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) OutboundFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f OutboundFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func waitConnected(t *testing.T, cm *ConnectionManager, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return cm.GetConnectionStats()["total_connections"] == n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSendEditDelete(t *testing.T) {
	cm, _, base := setup(t)
	ctx := context.Background()

	conn := dial(t, base, "user_id=7&name=Ann")
	waitConnected(t, cm, 1)

	msg := messenger.Message{
		Text:    "hello",
		Buttons: [][]messenger.Button{{{Label: "Play", Data: "play"}}},
	}
	ref, err := cm.Send(ctx, 7, msg)
	require.NoError(t, err)
	assert.Equal(t, int64(7), ref.ChatID)

	f := readFrame(t, conn)
	assert.Equal(t, FrameMessage, f.Type)
	assert.Equal(t, ref.MessageID, f.MessageID)
	assert.Equal(t, "hello", f.Text)
	assert.Equal(t, msg.Buttons, f.Buttons)

	require.NoError(t, cm.EditLast(ctx, 7, messenger.Message{Text: "edited"}))
	f = readFrame(t, conn)
	assert.Equal(t, FrameEdit, f.Type)
	assert.Equal(t, ref.MessageID, f.MessageID)
	assert.Equal(t, "edited", f.Text)

	require.NoError(t, cm.Delete(ctx, 7, ref))
	f = readFrame(t, conn)
	assert.Equal(t, FrameDelete, f.Type)
	assert.Equal(t, ref.MessageID, f.MessageID)
}

func TestSendToDisconnectedUserFails(t *testing.T) {
	cm, _, _ := setup(t)

	_, err := cm.Send(context.Background(), 99, messenger.Message{Text: "anyone?"})
	assert.Error(t, err)
}

func TestClientActionsReachHandler(t *testing.T) {
	cm, h, base := setup(t)

	conn := dial(t, base, "user_id=8&name=Bo")
	waitConnected(t, cm, 1)

	data, err := json.Marshal(InboundFrame{Action: "play"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

	f := readFrame(t, conn)
	assert.Equal(t, FrameAck, f.Type)
	assert.Equal(t, "got play", f.Text)

	updates := h.received()
	require.Len(t, updates, 1)
	assert.Equal(t, bot.Update{UserID: 8, DisplayName: "Bo", Callback: "play"}, updates[0])
}

func TestRejectsMissingUser(t *testing.T) {
	_, _, base := setup(t)

	_, resp, err := websocket.DefaultDialer.Dial(base+"/ws/play", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDisconnectUnregisters(t *testing.T) {
	cm, _, base := setup(t)

	conn := dial(t, base, "user_id=9")
	waitConnected(t, cm, 1)
	require.NoError(t, conn.Close())
	waitConnected(t, cm, 0)
}
