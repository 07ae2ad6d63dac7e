package models

import (
	"time"

	"github.com/google/uuid"
)

// Promo is a promotional image attached to card displays. Only the most
// recently created promo is active.
type Promo struct {
	ID        uuid.UUID `json:"id"`
	MediaRef  string    `json:"media_ref"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}
