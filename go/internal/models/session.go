package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// SessionStatus defines the lifecycle state of a game session.
type SessionStatus string

const (
	SessionStatusWaiting   SessionStatus = "waiting"
	SessionStatusPreparing SessionStatus = "preparing"
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusFinished  SessionStatus = "finished"
)

// Live reports whether the status is anything but finished.
func (s SessionStatus) Live() bool {
	return s != SessionStatusFinished
}

// Visibility defines who can find a session.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// FinishReason records why a session ended.
type FinishReason string

const (
	FinishReasonWinner           FinishReason = "winner"
	FinishReasonExhausted        FinishReason = "exhausted"
	FinishReasonAbandoned        FinishReason = "abandoned"
	FinishReasonNotEnoughPlayers FinishReason = "not_enough_players"
	FinishReasonInterrupted      FinishReason = "interrupted"
	FinishReasonReset            FinishReason = "reset"
)

// SessionResult holds the JSON outcome of a finished session.
type SessionResult struct {
	WinnerID      *int64       `json:"winner_id,omitempty"`
	WinningCardID *uuid.UUID   `json:"winning_card_id,omitempty"`
	Reason        FinishReason `json:"reason"`
	DrawCount     int          `json:"draw_count"`
	FinishedAt    time.Time    `json:"finished_at"`
}

// Session represents one game round.
type Session struct {
	ID           uuid.UUID      `json:"id"`
	Status       SessionStatus  `json:"status"`
	Visibility   Visibility     `json:"visibility"`
	Participants []int64        `json:"participants"`
	Waitlist     []int64        `json:"waitlist"`
	Drawn        []int          `json:"drawn"`
	StartAt      *time.Time     `json:"start_at,omitempty"`
	InviteToken  string         `json:"invite_token,omitempty"`
	Result       *SessionResult `json:"result,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Owner returns the first participant, who created the session.
func (s *Session) Owner() (int64, bool) {
	if len(s.Participants) == 0 {
		return 0, false
	}
	return s.Participants[0], true
}

func (s *Session) HasParticipant(userID int64) bool {
	return slices.Contains(s.Participants, userID)
}

func (s *Session) HasWaiter(userID int64) bool {
	return slices.Contains(s.Waitlist, userID)
}

func (s *Session) IsDrawn(n int) bool {
	return slices.Contains(s.Drawn, n)
}

// Clone returns a deep copy so callers never share slices with the store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Participants = slices.Clone(s.Participants)
	c.Waitlist = slices.Clone(s.Waitlist)
	c.Drawn = slices.Clone(s.Drawn)
	if s.StartAt != nil {
		t := *s.StartAt
		c.StartAt = &t
	}
	if s.Result != nil {
		r := *s.Result
		c.Result = &r
	}
	return &c
}

// SessionUpdate is an explicit partial update. Nil fields are left untouched.
// UpdatedAt stamps the session; a zero value means the store's wall clock.
type SessionUpdate struct {
	Status       *SessionStatus
	Participants *[]int64
	Waitlist     *[]int64
	Drawn        *[]int
	StartAt      **time.Time
	Result       *SessionResult
	UpdatedAt    time.Time
}

// Empty reports whether the update changes nothing.
func (u SessionUpdate) Empty() bool {
	return u.Status == nil && u.Participants == nil && u.Waitlist == nil &&
		u.Drawn == nil && u.StartAt == nil && u.Result == nil
}

// Apply writes the set fields onto s and stamps UpdatedAt.
func (u SessionUpdate) Apply(s *Session) {
	if u.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	} else {
		s.UpdatedAt = u.UpdatedAt
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.Participants != nil {
		s.Participants = slices.Clone(*u.Participants)
	}
	if u.Waitlist != nil {
		s.Waitlist = slices.Clone(*u.Waitlist)
	}
	if u.Drawn != nil {
		s.Drawn = slices.Clone(*u.Drawn)
	}
	if u.StartAt != nil {
		if *u.StartAt == nil {
			s.StartAt = nil
		} else {
			t := **u.StartAt
			s.StartAt = &t
		}
	}
	if u.Result != nil {
		r := *u.Result
		s.Result = &r
	}
}
