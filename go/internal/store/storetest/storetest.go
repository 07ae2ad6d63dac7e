// Package storetest holds behaviour checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/mcdev12/lotto/go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises s against the Store contract. newStore must return an empty
// store for every call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("users upsert", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("cards", func(t *testing.T) { testCards(t, newStore(t)) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("update validation", func(t *testing.T) { testUpdateValidation(t, newStore(t)) })
	t.Run("promos", func(t *testing.T) { testPromos(t, newStore(t)) })
}

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newSession(vis models.Visibility, created time.Time, participants ...int64) *models.Session {
	return &models.Session{
		ID:           uuid.New(),
		Status:       models.SessionStatusWaiting,
		Visibility:   vis,
		Participants: participants,
		Waitlist:     []int64{},
		Drawn:        []int{},
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func newCard(sessionID uuid.UUID, userID int64, created time.Time) *models.Card {
	nums := []int{1, 2, 3, 10, 11, 12, 20, 21, 22, 30, 31, 32, 40, 41, 42}
	rows := map[int]int{}
	for _, n := range nums {
		rows[n] = n % 10 % 3
	}
	return &models.Card{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		Numbers:   nums,
		Rows:      rows,
		Marked:    []int{},
		CreatedAt: created,
	}
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, models.User{ID: 7, DisplayName: "first", CreatedAt: base})
	require.NoError(t, err)
	assert.Equal(t, "first", u.DisplayName)

	u, err = s.CreateUser(ctx, models.User{ID: 7, DisplayName: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)

	got, err := s.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.DisplayName)

	_, err = s.GetUser(ctx, 8)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testCards(t *testing.T, s store.Store) {
	ctx := context.Background()
	sessA, sessB := uuid.New(), uuid.New()

	c1 := newCard(sessA, 1, base)
	c2 := newCard(sessA, 2, base.Add(time.Second))
	c3 := newCard(sessB, 1, base.Add(2*time.Second))
	for _, c := range []*models.Card{c1, c2, c3} {
		require.NoError(t, s.CreateCard(ctx, c))
	}

	got, err := s.GetCard(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, c1.Numbers, got.Numbers)
	assert.Equal(t, c1.Rows, got.Rows)
	assert.Nil(t, got.LastMarkedAt)

	byUser, err := s.GetCardsForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, c1.ID, byUser[0].ID)

	bySession, err := s.ListCardsForSession(ctx, sessA)
	require.NoError(t, err)
	assert.Len(t, bySession, 2)

	at := base.Add(time.Minute)
	ok, err := s.MarkCardNumber(ctx, c1.ID, 10, at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MarkCardNumber(ctx, c1.ID, 10, at.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, ok, "second mark of the same number is a no-op")

	got, err = s.GetCard(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{10}, got.Marked)
	require.NotNil(t, got.LastMarkedAt)
	assert.True(t, got.LastMarkedAt.Equal(at))

	_, err = s.MarkCardNumber(ctx, uuid.New(), 1, at)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteCardsForSession(ctx, sessA))
	bySession, err = s.ListCardsForSession(ctx, sessA)
	require.NoError(t, err)
	assert.Empty(t, bySession)

	other, err := s.ListCardsForSession(ctx, sessB)
	require.NoError(t, err)
	require.Len(t, other, 1, "deleting one session's cards leaves other sessions alone")
	assert.Equal(t, c3.ID, other[0].ID)
	_, err = s.GetCard(ctx, c3.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteCardsForUser(ctx, 1))
	_, err = s.GetCard(ctx, c3.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.CreateCard(ctx, newCard(sessB, 3, base)))
	require.NoError(t, s.DeleteAllCards(ctx))
	byUser, err = s.GetCardsForUser(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, byUser)
}

func testSessions(t *testing.T, s store.Store) {
	ctx := context.Background()

	pub := newSession(models.VisibilityPublic, base, 1, 2)
	priv := newSession(models.VisibilityPrivate, base.Add(time.Second), 3)
	priv.InviteToken = "ABCD2345"
	require.NoError(t, s.CreateSession(ctx, pub))
	require.NoError(t, s.CreateSession(ctx, priv))

	got, err := s.GetSessionByID(ctx, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, got.Participants)

	got, err = s.GetSessionByInviteToken(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.Equal(t, priv.ID, got.ID)

	got, err = s.GetLivePublicSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, pub.ID, got.ID)

	got, err = s.GetLiveSessionByUser(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, priv.ID, got.ID)

	start := base.Add(time.Minute)
	startPtr := &start
	status := models.SessionStatusPreparing
	drawn := []int{5, 80}
	waitlist := []int64{9}
	got, err = s.UpdateSession(ctx, pub.ID, models.SessionUpdate{
		Status:   &status,
		StartAt:  &startPtr,
		Drawn:    &drawn,
		Waitlist: &waitlist,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusPreparing, got.Status)
	assert.Equal(t, []int{5, 80}, got.Drawn)
	require.NotNil(t, got.StartAt)
	assert.True(t, got.StartAt.Equal(start))

	got, err = s.GetLiveSessionByUser(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, pub.ID, got.ID, "waitlisted users resolve to their session")

	var cleared *time.Time
	stamp := base.Add(2 * time.Minute)
	got, err = s.UpdateSession(ctx, pub.ID, models.SessionUpdate{StartAt: &cleared, UpdatedAt: stamp})
	require.NoError(t, err)
	assert.Nil(t, got.StartAt)
	assert.True(t, got.UpdatedAt.Equal(stamp), "caller supplied UpdatedAt is kept")

	got, err = s.GetSessionByID(ctx, pub.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(stamp))

	live, err := s.ListLiveSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, live, 2)

	finished := models.SessionStatusFinished
	winner := int64(1)
	_, err = s.UpdateSession(ctx, pub.ID, models.SessionUpdate{
		Status: &finished,
		Result: &models.SessionResult{WinnerID: &winner, Reason: models.FinishReasonWinner, FinishedAt: base},
	})
	require.NoError(t, err)

	_, err = s.GetSessionByID(ctx, pub.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "finished sessions are invisible")
	_, err = s.GetLivePublicSession(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetLiveSessionByUser(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.UpdateSession(ctx, pub.ID, models.SessionUpdate{Status: &status})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetSessionByInviteToken(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testUpdateValidation(t *testing.T, s store.Store) {
	ctx := context.Background()
	sess := newSession(models.VisibilityPublic, base, 1)
	require.NoError(t, s.CreateSession(ctx, sess))

	_, err := s.UpdateSession(ctx, sess.ID, models.SessionUpdate{})
	assert.ErrorIs(t, err, store.ErrInvalidUpdate)

	dup := []int{4, 4}
	_, err = s.UpdateSession(ctx, sess.ID, models.SessionUpdate{Drawn: &dup})
	assert.ErrorIs(t, err, store.ErrInvalidUpdate)

	outOfRange := []int{81}
	_, err = s.UpdateSession(ctx, sess.ID, models.SessionUpdate{Drawn: &outOfRange})
	assert.ErrorIs(t, err, store.ErrInvalidUpdate)

	bogus := models.SessionStatus("paused")
	_, err = s.UpdateSession(ctx, sess.ID, models.SessionUpdate{Status: &bogus})
	assert.ErrorIs(t, err, store.ErrInvalidUpdate)
}

func testPromos(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetActivePromo(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	older := &models.Promo{ID: uuid.New(), MediaRef: "old", CreatedAt: base}
	newer := &models.Promo{ID: uuid.New(), MediaRef: "new", Caption: "hi", CreatedAt: base.Add(time.Hour)}
	require.NoError(t, s.CreatePromo(ctx, newer))
	require.NoError(t, s.CreatePromo(ctx, older))

	got, err := s.GetActivePromo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", got.MediaRef)
	assert.Equal(t, "hi", got.Caption)
}
