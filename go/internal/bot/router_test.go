package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/lotto/go/internal/card"
	"github.com/mcdev12/lotto/go/internal/game"
	"github.com/mcdev12/lotto/go/internal/messenger"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/mcdev12/lotto/go/internal/render"
	"github.com/mcdev12/lotto/go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctx    context.Context
	clock  *clockwork.FakeClock
	store  *store.Memory
	rec    *messenger.Recorder
	app    *game.App
	router *Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		clock: clockwork.NewFakeClock(),
		store: store.NewMemory(),
		rec:   messenger.NewRecorder(),
	}
	f.app = game.NewApp(f.store, f.rec, nil, nil, f.clock, game.Config{BotUsername: "lotto_bot"})
	f.router = NewRouter(f.app, f.rec)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, f.app.Shutdown(ctx))
	})
	return f
}

func (f *fixture) press(userID int64, data string) string {
	return f.router.Handle(f.ctx, Update{UserID: userID, DisplayName: fmt.Sprintf("user%d", userID), Callback: data})
}

func (f *fixture) say(userID int64, text string) {
	f.router.Handle(f.ctx, Update{UserID: userID, DisplayName: fmt.Sprintf("user%d", userID), Text: text})
}

func lastText(t *testing.T, rec *messenger.Recorder, userID int64) string {
	t.Helper()
	texts := rec.Texts(userID)
	require.NotEmpty(t, texts)
	return texts[len(texts)-1]
}

func anyText(rec *messenger.Recorder, userID int64, substr string) bool {
	for _, text := range rec.Texts(userID) {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

func TestStartShowsMenuAndRecordsUser(t *testing.T) {
	f := newFixture(t)

	f.say(1, "/start")
	assert.Equal(t, render.MainMenu().Text, lastText(t, f.rec, 1))

	u, err := f.store.GetUser(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "user1", u.DisplayName)

	f.say(1, "/help@lotto_bot")
	assert.Equal(t, render.Help().Text, lastText(t, f.rec, 1))
}

func TestPlaySendsWaitingAndCard(t *testing.T) {
	f := newFixture(t)

	f.press(1, render.ActionPlay)
	assert.True(t, anyText(f.rec, 1, "Waiting for players: 1 joined"))
	assert.Contains(t, lastText(t, f.rec, 1), "Your card")

	f.press(2, render.ActionPlay)
	assert.True(t, anyText(f.rec, 2, "The game starts in 60 seconds"))
	assert.Contains(t, lastText(t, f.rec, 2), "Your card")
}

func TestPlayWithFriendsFlow(t *testing.T) {
	f := newFixture(t)

	f.press(1, render.ActionPlayFriends)
	sess, err := f.store.GetLiveSessionByUser(f.ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, sess.InviteToken)
	assert.True(t, anyText(f.rec, 1, render.InviteLink("lotto_bot", sess.InviteToken)))

	f.press(1, render.StartData(sess.ID))
	assert.Contains(t, lastText(t, f.rec, 1), "At least 2 players")

	f.say(2, "/start "+render.InvitePrefix+sess.InviteToken)
	assert.Contains(t, lastText(t, f.rec, 2), "Your card")

	f.press(2, render.StartData(sess.ID))
	assert.Contains(t, lastText(t, f.rec, 2), "Only the player who created")

	f.press(1, render.StartData(sess.ID))
	assert.True(t, anyText(f.rec, 2, "The game starts in 10 seconds"))
}

func TestInvalidInviteIsActionable(t *testing.T) {
	f := newFixture(t)

	f.say(1, "/start game_ZZZZZZZZ")
	assert.Contains(t, lastText(t, f.rec, 1), "Create or join a different game")
}

func TestMarkFeedback(t *testing.T) {
	f := newFixture(t)

	f.press(1, render.ActionPlay)
	f.press(2, render.ActionPlay)
	cards, err := f.store.GetCardsForUser(f.ctx, 1)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	c := cards[0]

	f.press(1, render.MarkData(c.ID, c.Numbers[0]))
	assert.Contains(t, lastText(t, f.rec, 1), "not possible right now", "marks are only accepted while running")

	require.NoError(t, f.clock.BlockUntilContext(f.ctx, 1))
	f.clock.Advance(game.PublicCountdown)
	require.Eventually(t, func() bool {
		s, err := f.store.GetSessionByID(f.ctx, c.SessionID)
		return err == nil && len(s.Drawn) == 1
	}, 2*time.Second, 5*time.Millisecond)

	s, err := f.store.GetSessionByID(f.ctx, c.SessionID)
	require.NoError(t, err)
	drawn := s.Drawn[0]

	var notDrawn, notOnCard int
	for n := 1; n <= models.MaxNumber; n++ {
		switch {
		case n == drawn:
		case c.Has(n) && notDrawn == 0:
			notDrawn = n
		case !c.Has(n) && notOnCard == 0:
			notOnCard = n
		}
	}
	assert.Equal(t, "That number has not been drawn yet.", f.press(1, render.MarkData(c.ID, notDrawn)))
	assert.Equal(t, "That number is not on your card.", f.press(1, render.MarkData(c.ID, notOnCard)))

	if c.Has(drawn) {
		assert.Empty(t, f.press(1, render.MarkData(c.ID, drawn)))
		deliveries := f.rec.For(1)
		last := deliveries[len(deliveries)-1]
		assert.Equal(t, "edit", last.Op)
		assert.Contains(t, last.Message.Text, "1 of 15 marked")
		assert.Equal(t, "Already marked.", f.press(1, render.MarkData(c.ID, drawn)))
	}

	f.press(1, "mark:not-a-card:5")
	assert.Contains(t, lastText(t, f.rec, 1), "no longer available")
}

func TestLeaveDeletesCardMessage(t *testing.T) {
	f := newFixture(t)

	f.press(1, render.ActionPlay)
	f.press(1, render.ActionLeave)

	deliveries := f.rec.For(1)
	require.GreaterOrEqual(t, len(deliveries), 2)
	assert.Equal(t, "delete", deliveries[len(deliveries)-2].Op)
	assert.Equal(t, render.Left().Text, lastText(t, f.rec, 1))

	f.press(1, render.ActionLeave)
	assert.Contains(t, lastText(t, f.rec, 1), "You are not in a game")
}

func TestWaitAndCard(t *testing.T) {
	f := newFixture(t)

	f.press(3, render.ActionWait)
	assert.Contains(t, lastText(t, f.rec, 3), "You are not in a game")

	f.press(1, render.ActionPlay)
	f.press(3, render.ActionWait)
	assert.Equal(t, render.Waitlisted().Text, lastText(t, f.rec, 3))

	f.say(1, "/card")
	assert.Contains(t, lastText(t, f.rec, 1), "Your card")

	assert.Empty(t, f.press(1, render.ActionNoop))
}

func TestNotice(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"generation", fmt.Errorf("deal: %w", card.ErrGeneration), "try again"},
		{"stale", game.ErrStaleReference, "no longer available"},
		{"already playing", game.ErrAlreadyInSession, "already in a game"},
		{"invalid state", fmt.Errorf("join: %w", game.ErrInvalidState), "not possible right now"},
		{"not owner", game.ErrNotOwner, "Only the player"},
		{"not enough", game.ErrNotEnoughPlayers, "At least 2 players"},
		{"no session", game.ErrNoLiveSession, "not in a game"},
		{"internal", errors.New("db down"), "Something went wrong"},
		{"store not found", fmt.Errorf("x: %w", store.ErrNotFound), "Something went wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, Notice(tt.err).Text, tt.want)
		})
	}
}

func TestUnknownStartData(t *testing.T) {
	f := newFixture(t)

	f.press(1, render.ActionStart+":"+uuid.NewString())
	assert.Contains(t, lastText(t, f.rec, 1), "no longer available")
}
