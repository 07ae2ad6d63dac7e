package game

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mcdev12/lotto/go/internal/models"
)

// pickWinner returns the complete card whose final mark landed first. Ties on
// the timestamp fall back to participant order and then card ID, so the
// result never depends on the order cards are listed in.
func pickWinner(cards []*models.Card, participants []int64) *models.Card {
	var complete []*models.Card
	for _, c := range cards {
		if slices.Contains(participants, c.UserID) && c.Complete() {
			complete = append(complete, c)
		}
	}
	if len(complete) == 0 {
		return nil
	}

	slices.SortStableFunc(complete, func(x, y *models.Card) int {
		switch {
		case x.LastMarkedAt == nil && y.LastMarkedAt != nil:
			return 1
		case x.LastMarkedAt != nil && y.LastMarkedAt == nil:
			return -1
		case x.LastMarkedAt != nil && y.LastMarkedAt != nil:
			if c := x.LastMarkedAt.Compare(*y.LastMarkedAt); c != 0 {
				return c
			}
		}
		if c := slices.Index(participants, x.UserID) - slices.Index(participants, y.UserID); c != 0 {
			return c
		}
		return strings.Compare(x.ID.String(), y.ID.String())
	})
	return complete[0]
}

// resolveLocked scans the session's cards for a winner. It returns nil when
// no card is complete.
func (a *App) resolveLocked(ctx context.Context, sess *models.Session) (*models.Card, error) {
	cards, err := a.store.ListCardsForSession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return pickWinner(cards, sess.Participants), nil
}
