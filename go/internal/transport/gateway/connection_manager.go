// Package gateway is a WebSocket transport for browser and test clients. It
// implements messenger.Messenger and feeds client actions to a Handler.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/lotto/go/internal/bot"
	"github.com/mcdev12/lotto/go/internal/messenger"
	"github.com/rs/zerolog/log"
)

// Handler processes player updates
type Handler interface {
	Handle(ctx context.Context, u bot.Update) string
}

// ConnectionManager manages WebSocket connections keyed by user
type ConnectionManager struct {
	// Connection pools organized by user ID
	userConnections map[int64]map[*Connection]bool
	// last message ID sent to each user, for EditLast
	lastMessage map[int64]int
	nextID      int
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	handler Handler
	ctx     context.Context
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID          string
	UserID      int64
	DisplayName string
	Conn        *websocket.Conn
	Send        chan []byte
	Manager     *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

var _ messenger.Messenger = (*ConnectionManager)(nil)

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		userConnections: make(map[int64]map[*Connection]bool),
		lastMessage:     make(map[int64]int),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
		ctx:    context.Background(),
	}
}

// SetHandler sets the receiver of client actions. It must be called before
// connections are accepted.
func (cm *ConnectionManager) SetHandler(h Handler) {
	cm.handler = h
}

// Start blocks until ctx is done and then closes every connection.
func (cm *ConnectionManager) Start(ctx context.Context) {
	cm.mu.Lock()
	cm.ctx = ctx
	cm.mu.Unlock()
	log.Info().Msg("connection manager started")

	<-ctx.Done()
	log.Info().Msg("connection manager shutting down")

	cm.mu.Lock()
	defer cm.mu.Unlock()
	for userID, connections := range cm.userConnections {
		for conn := range connections {
			close(conn.Send)
		}
		delete(cm.userConnections, userID)
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID int64, displayName string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		DisplayName: displayName,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBuffer),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Int64("user_id", userID).
		Msg("WebSocket connection established")
	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.userConnections[conn.UserID] == nil {
		cm.userConnections[conn.UserID] = make(map[*Connection]bool)
	}
	cm.userConnections[conn.UserID][conn] = true
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.userConnections[conn.UserID]
	if !exists {
		return
	}
	if _, exists := connections[conn]; !exists {
		return
	}
	delete(connections, conn)
	close(conn.Send)
	if len(connections) == 0 {
		delete(cm.userConnections, conn.UserID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Int64("user_id", conn.UserID).
		Msg("connection unregistered")
}

// Send delivers msg to every connection of the user.
func (cm *ConnectionManager) Send(ctx context.Context, recipient int64, msg messenger.Message) (messenger.Ref, error) {
	cm.mu.Lock()
	cm.nextID++
	id := cm.nextID
	cm.lastMessage[recipient] = id
	cm.mu.Unlock()

	err := cm.deliver(recipient, OutboundFrame{
		Type:      FrameMessage,
		MessageID: id,
		Text:      msg.Text,
		Buttons:   msg.Buttons,
		MediaRef:  msg.MediaRef,
	})
	if err != nil {
		return messenger.Ref{}, err
	}
	return messenger.Ref{ChatID: recipient, MessageID: id}, nil
}

// EditLast replaces the last message sent to the user.
func (cm *ConnectionManager) EditLast(ctx context.Context, recipient int64, msg messenger.Message) error {
	cm.mu.RLock()
	id, ok := cm.lastMessage[recipient]
	cm.mu.RUnlock()
	if !ok {
		_, err := cm.Send(ctx, recipient, msg)
		return err
	}

	return cm.deliver(recipient, OutboundFrame{
		Type:      FrameEdit,
		MessageID: id,
		Text:      msg.Text,
		Buttons:   msg.Buttons,
		MediaRef:  msg.MediaRef,
	})
}

func (cm *ConnectionManager) Delete(ctx context.Context, recipient int64, ref messenger.Ref) error {
	return cm.deliver(recipient, OutboundFrame{Type: FrameDelete, MessageID: ref.MessageID})
}

func (cm *ConnectionManager) deliver(userID int64, frame OutboundFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	// sends happen under the read lock so no channel is closed mid-send
	cm.mu.RLock()
	connections := cm.userConnections[userID]
	count := len(connections)
	var delivered int
	var slow []*Connection
	for conn := range connections {
		select {
		case conn.Send <- data:
			delivered++
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Int64("user_id", conn.UserID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}

	if count == 0 {
		return fmt.Errorf("user %d is not connected", userID)
	}
	if delivered == 0 {
		return fmt.Errorf("no live connection for user %d", userID)
	}
	return nil
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	total := 0
	for _, connections := range cm.userConnections {
		total += len(connections)
	}
	return map[string]int{
		"total_connections": total,
		"connected_users":   len(cm.userConnections),
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			return
		}
		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

func (c *Connection) handleClientMessage(message []byte) {
	var in InboundFrame
	if err := json.Unmarshal(message, &in); err != nil {
		log.Debug().Err(err).Str("connection_id", c.ID).Msg("ignoring malformed client frame")
		return
	}
	if c.Manager.handler == nil || (in.Action == "" && in.Text == "") {
		return
	}

	c.Manager.mu.RLock()
	ctx := c.Manager.ctx
	c.Manager.mu.RUnlock()

	ack := c.Manager.handler.Handle(ctx, bot.Update{
		UserID:      c.UserID,
		DisplayName: c.DisplayName,
		Text:        in.Text,
		Callback:    in.Action,
	})
	if ack == "" {
		return
	}
	if err := c.Manager.deliver(c.UserID, OutboundFrame{Type: FrameAck, Text: ack}); err != nil {
		log.Debug().Err(err).Int64("user_id", c.UserID).Msg("failed to send ack")
	}
}
