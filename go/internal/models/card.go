package models

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	// CardSize is the number of numbers on every card.
	CardSize = 15
	// MaxNumber is the highest number that can be drawn.
	MaxNumber = 80
	// Bands is the number of column bands on a card.
	Bands = 8
	// Rows is the number of rows on a card.
	Rows = 3
)

// Card is a player's ticket for one session.
type Card struct {
	ID           uuid.UUID   `json:"id"`
	SessionID    uuid.UUID   `json:"session_id"`
	UserID       int64       `json:"user_id"`
	Numbers      []int       `json:"numbers"`
	Rows         map[int]int `json:"rows"`
	Marked       []int       `json:"marked"`
	LastMarkedAt *time.Time  `json:"last_marked_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// BandOf returns the column band of n: 1-9, 10-19, ..., 60-69, 70-80.
func BandOf(n int) int {
	switch {
	case n < 10:
		return 0
	case n >= 70:
		return 7
	default:
		return n / 10
	}
}

// BandRange returns the inclusive bounds of band b.
func BandRange(b int) (lo, hi int) {
	switch b {
	case 0:
		return 1, 9
	case 7:
		return 70, 80
	default:
		return b * 10, b*10 + 9
	}
}

func (c *Card) Has(n int) bool {
	return slices.Contains(c.Numbers, n)
}

func (c *Card) IsMarked(n int) bool {
	return slices.Contains(c.Marked, n)
}

// Complete reports whether every number on the card is marked.
func (c *Card) Complete() bool {
	if len(c.Marked) != len(c.Numbers) || len(c.Numbers) == 0 {
		return false
	}
	for _, n := range c.Numbers {
		if !c.IsMarked(n) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (c *Card) Clone() *Card {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Numbers = slices.Clone(c.Numbers)
	cp.Marked = slices.Clone(c.Marked)
	cp.Rows = maps.Clone(c.Rows)
	if c.LastMarkedAt != nil {
		t := *c.LastMarkedAt
		cp.LastMarkedAt = &t
	}
	return &cp
}
