package sqlstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/mcdev12/lotto/go/internal/store"
	"github.com/mcdev12/lotto/go/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "lotto.db")
	s, err := Open(context.Background(), DriverSQLite, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return openTestStore(t)
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever")
	assert.Error(t, err)
}

func TestDuplicateLiveInviteToken(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	mk := func() *models.Session {
		return &models.Session{
			ID:          uuid.New(),
			Status:      models.SessionStatusWaiting,
			Visibility:  models.VisibilityPrivate,
			InviteToken: "QWERTY23",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	first := mk()
	require.NoError(t, s.CreateSession(ctx, first))
	assert.ErrorIs(t, s.CreateSession(ctx, mk()), store.ErrConflict)

	finished := models.SessionStatusFinished
	_, err := s.UpdateSession(ctx, first.ID, models.SessionUpdate{Status: &finished})
	require.NoError(t, err)
	assert.NoError(t, s.CreateSession(ctx, mk()), "tokens of finished sessions can be reused")
}

func TestConcurrentMarksAreAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := &models.Card{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		UserID:    1,
		Numbers:   []int{1, 2, 3, 10, 11, 12, 20, 21, 22, 30, 31, 32, 40, 41, 42},
		Rows:      map[int]int{},
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.CreateCard(ctx, c))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.MarkCardNumber(ctx, c.ID, 11, time.Now())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	got, err := s.GetCard(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{11}, got.Marked)
}
