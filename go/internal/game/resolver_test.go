package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeCard(userID int64, markedAt *time.Time) *models.Card {
	numbers := []int{1, 11, 21, 31, 41, 51, 61, 71, 2, 12, 22, 32, 42, 52, 62}
	return &models.Card{
		ID:           uuid.New(),
		UserID:       userID,
		Numbers:      numbers,
		Marked:       append([]int(nil), numbers...),
		LastMarkedAt: markedAt,
	}
}

func TestPickWinner(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Second)

	early := completeCard(alice, &t0)
	late := completeCard(bob, &t1)
	partial := completeCard(carol, &t0)
	partial.Marked = partial.Marked[:14]

	tests := []struct {
		name         string
		cards        []*models.Card
		participants []int64
		want         *models.Card
	}{
		{
			name:         "no cards",
			participants: []int64{alice},
		},
		{
			name:         "incomplete card never wins",
			cards:        []*models.Card{partial},
			participants: []int64{carol},
		},
		{
			name:         "earliest final mark wins",
			cards:        []*models.Card{late, early},
			participants: []int64{bob, alice},
			want:         early,
		},
		{
			name:         "scan order does not matter",
			cards:        []*models.Card{early, late},
			participants: []int64{alice, bob},
			want:         early,
		},
		{
			name:         "cards of users who left are ignored",
			cards:        []*models.Card{early, late},
			participants: []int64{bob},
			want:         late,
		},
		{
			name:         "complete card beats partial",
			cards:        []*models.Card{partial, late},
			participants: []int64{carol, bob},
			want:         late,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pickWinner(tt.cards, tt.participants)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want.ID, got.ID)
		})
	}
}

func TestPickWinnerSameTimestamp(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := completeCard(alice, &at)
	b := completeCard(bob, &at)

	for _, cards := range [][]*models.Card{{a, b}, {b, a}} {
		got := pickWinner(cards, []int64{bob, alice})
		require.NotNil(t, got)
		assert.Equal(t, b.ID, got.ID, "participant order breaks timestamp ties")
	}
}

func TestPickWinnerMissingTimestampSortsLast(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stamped := completeCard(bob, &at)
	unstamped := completeCard(alice, nil)

	got := pickWinner([]*models.Card{unstamped, stamped}, []int64{alice, bob})
	require.NotNil(t, got)
	assert.Equal(t, stamped.ID, got.ID)
}
