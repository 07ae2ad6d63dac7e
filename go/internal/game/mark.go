package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/rs/zerolog/log"
)

// MarkResult reports the card state after a mark attempt. Accepted is false
// for presses on numbers that are not on the card, not drawn yet or already
// marked.
type MarkResult struct {
	Accepted bool
	Card     *models.Card
	Session  *models.Session
}

// Mark records number n on the user's card. The card must belong to the user
// and to a running session.
func (a *App) Mark(ctx context.Context, userID int64, cardID uuid.UUID, n int) (*MarkResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, translate(err, "load card")
	}
	if c.UserID != userID {
		return nil, fmt.Errorf("card %s is not owned by %d: %w", cardID, userID, ErrStaleReference)
	}
	sess, err := a.store.GetSessionByID(ctx, c.SessionID)
	if err != nil {
		return nil, translate(err, "load session")
	}
	if sess.Status != models.SessionStatusRunning {
		return nil, fmt.Errorf("mark in %s session: %w", sess.Status, ErrInvalidState)
	}

	res := &MarkResult{Card: c, Session: sess}
	if !c.Has(n) || c.IsMarked(n) || !sess.IsDrawn(n) {
		a.metrics.RecordMark(false)
		return res, nil
	}

	ok, err := a.store.MarkCardNumber(ctx, cardID, n, a.clock.Now())
	if err != nil {
		return nil, translate(err, "mark number")
	}
	a.metrics.RecordMark(ok)
	if !ok {
		return res, nil
	}

	updated, err := a.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, translate(err, "reload card")
	}
	res.Accepted = true
	res.Card = updated

	log.Debug().
		Str("session_id", sess.ID.String()).
		Str("card_id", cardID.String()).
		Int64("user_id", userID).
		Int("number", n).
		Int("marked", len(updated.Marked)).
		Msg("number marked")
	return res, nil
}
