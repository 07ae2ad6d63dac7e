package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types published by the game engine
const (
	TypeSessionCreated   = "SessionCreated"
	TypePlayerJoined     = "PlayerJoined"
	TypePlayerWaitlisted = "PlayerWaitlisted"
	TypePlayerLeft       = "PlayerLeft"
	TypeCountdownStarted = "CountdownStarted"
	TypeSessionStarted   = "SessionStarted"
	TypeNumberDrawn      = "NumberDrawn"
	TypeSessionFinished  = "SessionFinished"
)

// Event is one domain event ready to publish
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	SessionID uuid.UUID       `json:"session_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// New marshals payload into an Event
func New(eventType string, sessionID uuid.UUID, payload any, at time.Time) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		SessionID: sessionID,
		Payload:   data,
		CreatedAt: at,
	}, nil
}

// SessionCreatedPayload is the payload for a SessionCreated event
type SessionCreatedPayload struct {
	SessionID  string    `json:"session_id"`
	Visibility string    `json:"visibility"`
	OwnerID    int64     `json:"owner_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// PlayerJoinedPayload is the payload for a PlayerJoined event
type PlayerJoinedPayload struct {
	SessionID    string `json:"session_id"`
	UserID       int64  `json:"user_id"`
	CardID       string `json:"card_id"`
	Participants int    `json:"participants"`
}

// PlayerWaitlistedPayload is the payload for a PlayerWaitlisted event
type PlayerWaitlistedPayload struct {
	SessionID string `json:"session_id"`
	UserID    int64  `json:"user_id"`
	Position  int    `json:"position"`
}

// PlayerLeftPayload is the payload for a PlayerLeft event
type PlayerLeftPayload struct {
	SessionID    string `json:"session_id"`
	UserID       int64  `json:"user_id"`
	Participants int    `json:"participants"`
}

// CountdownStartedPayload is the payload for a CountdownStarted event
type CountdownStartedPayload struct {
	SessionID string    `json:"session_id"`
	StartAt   time.Time `json:"start_at"`
	Seconds   int       `json:"seconds"`
}

// SessionStartedPayload is the payload for a SessionStarted event
type SessionStartedPayload struct {
	SessionID    string    `json:"session_id"`
	Participants []int64   `json:"participants"`
	StartedAt    time.Time `json:"started_at"`
}

// NumberDrawnPayload is the payload for a NumberDrawn event
type NumberDrawnPayload struct {
	SessionID string    `json:"session_id"`
	Number    int       `json:"number"`
	Sequence  int       `json:"sequence"`
	DrawnAt   time.Time `json:"drawn_at"`
}

// SessionFinishedPayload is the payload for a SessionFinished event
type SessionFinishedPayload struct {
	SessionID     string    `json:"session_id"`
	Reason        string    `json:"reason"`
	WinnerID      *int64    `json:"winner_id,omitempty"`
	WinningCardID *string   `json:"winning_card_id,omitempty"`
	DrawCount     int       `json:"draw_count"`
	FinishedAt    time.Time `json:"finished_at"`
}
