package gateway

import "github.com/mcdev12/lotto/go/internal/messenger"

// FrameType identifies an outbound WebSocket frame
type FrameType string

const (
	FrameMessage FrameType = "message"
	FrameEdit    FrameType = "edit"
	FrameDelete  FrameType = "delete"
	FrameAck     FrameType = "ack"
)

// OutboundFrame is written to clients as JSON
type OutboundFrame struct {
	Type      FrameType            `json:"type"`
	MessageID int                  `json:"message_id,omitempty"`
	Text      string               `json:"text,omitempty"`
	Buttons   [][]messenger.Button `json:"buttons,omitempty"`
	MediaRef  string               `json:"media_ref,omitempty"`
}

// InboundFrame is a client action. Action carries button data; Text carries
// a typed command such as "/start game_ABCD2345".
type InboundFrame struct {
	Action string `json:"action,omitempty"`
	Text   string `json:"text,omitempty"`
}
