package game

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mcdev12/lotto/go/internal/events"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/mcdev12/lotto/go/internal/render"
	"github.com/mcdev12/lotto/go/internal/store"
	"github.com/rs/zerolog/log"
)

// onCountdown runs when a start timer fires. Timers are not reliably
// cancelled, so the session must still be preparing for this exact StartAt.
func (a *App) onCountdown(p Countdown) {
	ctx := a.ctx
	a.mu.Lock()
	out, loopCtx, order := a.startLocked(ctx, p)
	a.mu.Unlock()

	a.flush(ctx, out)
	if loopCtx != nil {
		go a.runDrawLoop(loopCtx, p.SessionID, order)
	}
}

// startLocked moves a preparing session to running. It returns a non-nil
// loop context when a draw loop should be launched.
func (a *App) startLocked(ctx context.Context, p Countdown) (outbox, context.Context, []int) {
	var out outbox
	if a.closed || ctx.Err() != nil {
		return out, nil, nil
	}
	logger := log.With().Str("session_id", p.SessionID.String()).Logger()

	sess, err := a.store.GetSessionByID(ctx, p.SessionID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Error().Err(err).Msg("failed to load session for countdown")
		}
		return out, nil, nil
	}
	if sess.Status != models.SessionStatusPreparing || sess.StartAt == nil || !sess.StartAt.Equal(p.StartAt) {
		logger.Debug().Str("status", string(sess.Status)).Msg("ignoring stale countdown")
		return out, nil, nil
	}

	if len(sess.Participants) < MinPlayers {
		return a.finishLocked(ctx, sess, models.FinishReasonNotEnoughPlayers, nil), nil, nil
	}

	running := models.SessionStatusRunning
	updated, err := a.updateSession(ctx, sess.ID, models.SessionUpdate{Status: &running})
	if err != nil {
		logger.Error().Err(err).Msg("failed to start session")
		return out, nil, nil
	}
	a.metrics.RecordTransition(string(sess.Status), string(running))

	now := a.clock.Now()
	out.send("started", render.GameStarted(), updated.Participants...)
	promo := a.ActivePromo(ctx)
	for _, userID := range updated.Participants {
		c, err := a.cardForLocked(ctx, updated.ID, userID)
		if err != nil {
			logger.Warn().Err(err).Int64("user_id", userID).Msg("participant has no card")
			continue
		}
		out.send("card", render.Card(c, updated, promo), userID)
	}
	out.event(events.TypeSessionStarted, updated.ID, events.SessionStartedPayload{
		SessionID:    updated.ID.String(),
		Participants: updated.Participants,
		StartedAt:    now,
	}, now)
	logger.Info().Int("participants", len(updated.Participants)).Msg("session started")

	return out, a.startLoopLocked(ctx, updated.ID), a.drawOrder()
}

// startLoopLocked registers a cancelable draw loop for the session.
func (a *App) startLoopLocked(parent context.Context, sessionID uuid.UUID) context.Context {
	if h, ok := a.loops[sessionID]; ok {
		h.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	a.loops[sessionID] = &loopHandle{cancel: cancel}
	a.wg.Add(1)
	return ctx
}

func (a *App) stopLoopLocked(sessionID uuid.UUID) {
	if h, ok := a.loops[sessionID]; ok {
		h.cancel()
		delete(a.loops, sessionID)
	}
}

type drawStep int

const (
	drawContinue drawStep = iota
	drawStop
)

// runDrawLoop draws from order until a winner is found, the numbers run out,
// or the session is finished by someone else.
func (a *App) runDrawLoop(ctx context.Context, sessionID uuid.UUID, order []int) {
	defer a.wg.Done()
	defer func() {
		a.mu.Lock()
		a.stopLoopLocked(sessionID)
		a.mu.Unlock()
	}()

	logger := log.With().Str("session_id", sessionID.String()).Logger()
	logger.Debug().Msg("draw loop started")
	defer logger.Debug().Msg("draw loop stopped")

	for _, n := range order {
		if ctx.Err() != nil {
			return
		}
		if a.drawNext(ctx, sessionID, n) == drawStop {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-a.clock.After(DrawInterval):
		}
	}
	a.finalResolve(ctx, sessionID)
}

// drawNext persists one number, announces it and checks for a winner.
func (a *App) drawNext(ctx context.Context, sessionID uuid.UUID, n int) drawStep {
	a.mu.Lock()
	out, step := a.drawLocked(ctx, sessionID, n)
	a.mu.Unlock()

	a.flush(ctx, out)
	return step
}

func (a *App) drawLocked(ctx context.Context, sessionID uuid.UUID, n int) (outbox, drawStep) {
	var out outbox
	if ctx.Err() != nil {
		return out, drawStop
	}
	logger := log.With().Str("session_id", sessionID.String()).Logger()

	sess, err := a.store.GetSessionByID(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Error().Err(err).Msg("failed to load session for draw")
		}
		return out, drawStop
	}
	if sess.Status != models.SessionStatusRunning {
		return out, drawStop
	}
	if sess.IsDrawn(n) {
		// order is a permutation, so this only happens if state was edited externally
		logger.Warn().Int("number", n).Msg("skipping number already drawn")
		return out, drawContinue
	}
	if len(sess.Drawn) >= models.MaxNumber {
		return out, drawStop
	}

	drawn := append(sess.Drawn, n)
	updated, err := a.updateSession(ctx, sessionID, models.SessionUpdate{Drawn: &drawn})
	if err != nil {
		logger.Error().Err(err).Int("number", n).Msg("failed to persist draw")
		return out, drawStop
	}
	a.metrics.RecordDraw()

	now := a.clock.Now()
	seq := len(updated.Drawn)
	out.send("draw", render.NumberDrawn(n, seq), updated.Participants...)
	out.event(events.TypeNumberDrawn, sessionID, events.NumberDrawnPayload{
		SessionID: sessionID.String(),
		Number:    n,
		Sequence:  seq,
		DrawnAt:   now,
	}, now)
	logger.Debug().Int("number", n).Int("sequence", seq).Msg("number drawn")

	winner, err := a.resolveLocked(ctx, updated)
	if err != nil {
		logger.Error().Err(err).Msg("failed to resolve winner")
		return out, drawContinue
	}
	if winner != nil {
		out.merge(a.finishLocked(ctx, updated, models.FinishReasonWinner, winner))
		return out, drawStop
	}
	return out, drawContinue
}

// finalResolve closes a session whose numbers have all been drawn. It runs
// one interval after the last draw so late marks still count.
func (a *App) finalResolve(ctx context.Context, sessionID uuid.UUID) {
	a.mu.Lock()
	var out outbox
	sess, err := a.store.GetSessionByID(ctx, sessionID)
	if err == nil && sess.Status == models.SessionStatusRunning {
		winner, rerr := a.resolveLocked(ctx, sess)
		if rerr != nil {
			log.Error().Err(rerr).Str("session_id", sessionID.String()).Msg("failed to resolve winner")
		}
		if winner != nil {
			out = a.finishLocked(ctx, sess, models.FinishReasonWinner, winner)
		} else {
			out = a.finishLocked(ctx, sess, models.FinishReasonExhausted, nil)
		}
	}
	a.mu.Unlock()

	a.flush(ctx, out)
}
