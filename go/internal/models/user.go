package models

import (
	"time"
)

// User represents a player known to the bot. Users are created on first
// contact and never deleted.
type User struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}
