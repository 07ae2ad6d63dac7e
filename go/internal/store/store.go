// Package store defines the persistence boundary of the game engine and an
// in-memory implementation used by tests and single-node deployments.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/lotto/go/internal/models"
)

// ErrNotFound is returned when a referenced row does not exist or is no
// longer live.
var ErrNotFound = errors.New("not found")

// Store is what the engine needs from persistence. Every method is atomic.
// Finished sessions are never returned by the session lookups.
//
// Timestamps come from the caller. A zero User.CreatedAt or
// SessionUpdate.UpdatedAt is filled from the store's wall clock.
type Store interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)

	CreateCard(ctx context.Context, card *models.Card) error
	GetCard(ctx context.Context, id uuid.UUID) (*models.Card, error)
	GetCardsForUser(ctx context.Context, userID int64) ([]*models.Card, error)
	ListCardsForSession(ctx context.Context, sessionID uuid.UUID) ([]*models.Card, error)
	DeleteCardsForUser(ctx context.Context, userID int64) error
	DeleteCardsForSession(ctx context.Context, sessionID uuid.UUID) error
	DeleteAllCards(ctx context.Context) error
	// MarkCardNumber adds n to the card's marked set and stamps at. It
	// returns false when n was already marked.
	MarkCardNumber(ctx context.Context, cardID uuid.UUID, n int, at time.Time) (bool, error)

	CreateSession(ctx context.Context, session *models.Session) error
	GetSessionByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetSessionByInviteToken(ctx context.Context, token string) (*models.Session, error)
	GetLiveSessionByUser(ctx context.Context, userID int64) (*models.Session, error)
	GetLivePublicSession(ctx context.Context) (*models.Session, error)
	ListLiveSessions(ctx context.Context) ([]*models.Session, error)
	UpdateSession(ctx context.Context, id uuid.UUID, update models.SessionUpdate) (*models.Session, error)

	CreatePromo(ctx context.Context, promo *models.Promo) error
	GetActivePromo(ctx context.Context) (*models.Promo, error)
}
