// Package messenger is the boundary between the game engine and the chat
// transports that deliver its messages.
package messenger

import "context"

// Button is one inline control under a message.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Message is transport-neutral content. MediaRef, when set, is sent as a
// photo with Text as its caption.
type Message struct {
	Text     string     `json:"text"`
	Buttons  [][]Button `json:"buttons,omitempty"`
	MediaRef string     `json:"media_ref,omitempty"`
}

// Ref identifies a delivered message so it can be deleted later.
type Ref struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// Messenger delivers messages to users. Failures are returned to the caller
// and never retried.
type Messenger interface {
	Send(ctx context.Context, recipient int64, msg Message) (Ref, error)
	// EditLast replaces the last message sent to recipient, or sends a new
	// one when there is nothing to edit.
	EditLast(ctx context.Context, recipient int64, msg Message) error
	Delete(ctx context.Context, recipient int64, ref Ref) error
}
