// Package game runs lotto sessions: matchmaking, countdowns, the draw loop,
// marking and winner resolution.
//
// All reads and writes of session and card state happen under one mutex in
// App. Messages and events produced while the lock is held are collected in
// an outbox and delivered after it is released.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/lotto/go/internal/card"
	"github.com/mcdev12/lotto/go/internal/events"
	"github.com/mcdev12/lotto/go/internal/messenger"
	"github.com/mcdev12/lotto/go/internal/metrics"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/mcdev12/lotto/go/internal/store"
	"github.com/rs/zerolog/log"
)

// Fixed game timing.
const (
	MinPlayers       = 2
	PublicCountdown  = 60 * time.Second
	PrivateCountdown = 10 * time.Second
	DrawInterval     = 5 * time.Second
)

// Config holds the settings the engine needs from the outside.
type Config struct {
	// BotUsername is used to build invite links.
	BotUsername string
}

type loopHandle struct {
	cancel context.CancelFunc
}

// App is the session manager.
type App struct {
	mu sync.Mutex

	store     store.Store
	messenger messenger.Messenger
	publisher events.Publisher
	metrics   metrics.Collector
	clock     clockwork.Clock
	generator *card.Generator
	scheduler *Scheduler
	cfg       Config

	// drawOrder returns the permutation of 1..80 a session draws from.
	drawOrder func() []int

	loops map[uuid.UUID]*loopHandle
	wg    sync.WaitGroup
	// closed is set under mu by Shutdown; no loop is registered after it.
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates a session manager. Background work is bound to the App's
// own context and stops on Shutdown.
func NewApp(st store.Store, msgr messenger.Messenger, pub events.Publisher, mc metrics.Collector, clock clockwork.Clock, cfg Config) *App {
	if pub == nil {
		pub = events.NewLogPublisher()
	}
	if mc == nil {
		mc = metrics.NoOp{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		store:     st,
		messenger: msgr,
		publisher: pub,
		metrics:   mc,
		clock:     clock,
		generator: card.NewGenerator(clock),
		scheduler: NewScheduler(clock),
		cfg:       cfg,
		drawOrder: shuffledNumbers,
		loops:     make(map[uuid.UUID]*loopHandle),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func shuffledNumbers() []int {
	order := rand.Perm(models.MaxNumber)
	for i := range order {
		order[i]++
	}
	return order
}

// Config returns the engine settings.
func (a *App) Config() Config {
	return a.cfg
}

// Shutdown stops countdowns and draw loops and waits for the loops to exit.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.cancel()
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("game engine stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for draw loops: %w", ctx.Err())
	}
}

// Recover finishes every session left live by a previous process and wipes
// all cards. Timers and draw loops do not survive a restart.
func (a *App) Recover(ctx context.Context) error {
	n, err := a.finishAllLive(ctx, models.FinishReasonInterrupted)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info().Int("sessions", n).Msg("finished sessions interrupted by restart")
	}
	return nil
}

// EnsureUser records a user on first contact and refreshes their name.
func (a *App) EnsureUser(ctx context.Context, userID int64, displayName string) (*models.User, error) {
	u, err := a.store.CreateUser(ctx, models.User{
		ID:          userID,
		DisplayName: displayName,
		CreatedAt:   a.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// ActivePromo returns the promo shown with cards, or nil.
func (a *App) ActivePromo(ctx context.Context) *models.Promo {
	p, err := a.store.GetActivePromo(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Msg("failed to load promo")
		}
		return nil
	}
	return p
}

// CreatePromo replaces the active promo.
func (a *App) CreatePromo(ctx context.Context, mediaRef, caption string) (*models.Promo, error) {
	if mediaRef == "" {
		return nil, fmt.Errorf("media reference is required")
	}
	p := &models.Promo{
		ID:        uuid.New(),
		MediaRef:  mediaRef,
		Caption:   caption,
		CreatedAt: a.clock.Now(),
	}
	if err := a.store.CreatePromo(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create promo: %w", err)
	}
	log.Info().Str("promo_id", p.ID.String()).Msg("created promo")
	return p, nil
}

// ResetCards wipes every card. Live sessions are finished first so no
// running game is left without cards.
func (a *App) ResetCards(ctx context.Context) error {
	n, err := a.finishAllLive(ctx, models.FinishReasonReset)
	if err != nil {
		return err
	}
	log.Info().Int("sessions", n).Msg("cards reset by admin")
	return nil
}

func (a *App) finishAllLive(ctx context.Context, reason models.FinishReason) (int, error) {
	a.mu.Lock()
	live, err := a.store.ListLiveSessions(ctx)
	if err != nil {
		a.mu.Unlock()
		return 0, fmt.Errorf("failed to list live sessions: %w", err)
	}

	var out outbox
	for _, sess := range live {
		out.merge(a.finishLocked(ctx, sess, reason, nil))
	}
	if err := a.store.DeleteAllCards(ctx); err != nil {
		a.mu.Unlock()
		return 0, fmt.Errorf("failed to delete cards: %w", err)
	}
	a.mu.Unlock()

	a.flush(ctx, out)
	return len(live), nil
}

// updateSession stamps the update with the engine clock.
func (a *App) updateSession(ctx context.Context, id uuid.UUID, update models.SessionUpdate) (*models.Session, error) {
	update.UpdatedAt = a.clock.Now()
	return a.store.UpdateSession(ctx, id, update)
}

// translate converts store errors into engine errors.
func translate(err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrStaleReference)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func (a *App) displayNameLocked(ctx context.Context, userID int64) string {
	u, err := a.store.GetUser(ctx, userID)
	if err != nil || u.DisplayName == "" {
		return fmt.Sprintf("Player %d", userID)
	}
	return u.DisplayName
}

func (a *App) refreshLiveGaugeLocked(ctx context.Context) {
	live, err := a.store.ListLiveSessions(ctx)
	if err != nil {
		return
	}
	a.metrics.SetLiveSessions(len(live))
}

// outbox collects deliveries and events produced under the lock.
type outbox struct {
	sends  []pendingSend
	events []events.Event
}

type pendingSend struct {
	kind string
	to   []int64
	msg  messenger.Message
}

func (o *outbox) send(kind string, msg messenger.Message, to ...int64) {
	if len(to) == 0 {
		return
	}
	o.sends = append(o.sends, pendingSend{kind: kind, to: to, msg: msg})
}

func (o *outbox) event(eventType string, sessionID uuid.UUID, payload any, at time.Time) {
	ev, err := events.New(eventType, sessionID, payload, at)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to build event")
		return
	}
	o.events = append(o.events, ev)
}

func (o *outbox) merge(other outbox) {
	o.sends = append(o.sends, other.sends...)
	o.events = append(o.events, other.events...)
}

// flush delivers everything in out. It must be called without the lock.
func (a *App) flush(ctx context.Context, out outbox) {
	ctx = context.WithoutCancel(ctx)
	for _, s := range out.sends {
		messenger.Fanout(ctx, a.messenger, a.metrics, s.kind, s.to, s.msg)
	}
	for _, ev := range out.events {
		if err := a.publisher.Publish(ctx, ev); err != nil {
			log.Warn().
				Err(err).
				Str("event_type", ev.Type).
				Str("session_id", ev.SessionID.String()).
				Msg("failed to publish event")
		}
	}
}
