package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/mcdev12/lotto/go/internal/store"
	"github.com/mcdev12/lotto/go/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return store.NewMemory()
	})
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	sess := &models.Session{
		ID:           uuid.New(),
		Status:       models.SessionStatusWaiting,
		Visibility:   models.VisibilityPublic,
		Participants: []int64{1},
	}
	require.NoError(t, m.CreateSession(ctx, sess))

	got, err := m.GetSessionByID(ctx, sess.ID)
	require.NoError(t, err)
	got.Participants[0] = 99

	again, err := m.GetSessionByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.Participants[0])
}

func TestMemoryRejectsDuplicateLiveToken(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	a := &models.Session{ID: uuid.New(), Status: models.SessionStatusWaiting, Visibility: models.VisibilityPrivate, InviteToken: "TOKEN234"}
	b := &models.Session{ID: uuid.New(), Status: models.SessionStatusWaiting, Visibility: models.VisibilityPrivate, InviteToken: "TOKEN234"}
	require.NoError(t, m.CreateSession(ctx, a))
	assert.ErrorIs(t, m.CreateSession(ctx, b), store.ErrConflict)
}
