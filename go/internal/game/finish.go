package game

import (
	"context"

	"github.com/mcdev12/lotto/go/internal/events"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/mcdev12/lotto/go/internal/render"
	"github.com/rs/zerolog/log"
)

// finishLocked ends sess for reason and reclaims its cards, timer and draw
// loop. winner is set only for FinishReasonWinner. Waitlisted users are told
// the session ended and are not moved anywhere.
func (a *App) finishLocked(ctx context.Context, sess *models.Session, reason models.FinishReason, winner *models.Card) outbox {
	var out outbox
	logger := log.With().Str("session_id", sess.ID.String()).Logger()

	now := a.clock.Now()
	result := models.SessionResult{
		Reason:     reason,
		DrawCount:  len(sess.Drawn),
		FinishedAt: now,
	}
	if winner != nil {
		uid, cid := winner.UserID, winner.ID
		result.WinnerID = &uid
		result.WinningCardID = &cid
	}

	finished := models.SessionStatusFinished
	if _, err := a.updateSession(ctx, sess.ID, models.SessionUpdate{
		Status: &finished,
		Result: &result,
	}); err != nil {
		logger.Error().Err(err).Str("reason", string(reason)).Msg("failed to finish session")
		return out
	}
	a.metrics.RecordTransition(string(sess.Status), string(finished))
	a.metrics.RecordSessionFinished(string(reason), len(sess.Drawn), now.Sub(sess.CreatedAt))

	if err := a.store.DeleteCardsForSession(ctx, sess.ID); err != nil {
		logger.Error().Err(err).Msg("failed to delete session cards")
	}
	a.scheduler.Cancel(sess.ID)
	a.stopLoopLocked(sess.ID)

	switch reason {
	case models.FinishReasonWinner:
		name := a.displayNameLocked(ctx, winner.UserID)
		out.send("winner", render.YouWon(), winner.UserID)
		out.send("game_over", render.GameOver(name), others(sess.Participants, winner.UserID)...)
	case models.FinishReasonExhausted:
		out.send("game_over", render.NoWinner(), sess.Participants...)
	case models.FinishReasonInterrupted:
		out.send("game_over", render.Interrupted(), sess.Participants...)
	case models.FinishReasonReset:
		out.send("game_over", render.Reset(), sess.Participants...)
	default:
		out.send("cancelled", render.Cancelled(), sess.Participants...)
	}
	out.send("waitlist_ended", render.WaitlistEnded(), sess.Waitlist...)

	payload := events.SessionFinishedPayload{
		SessionID:  sess.ID.String(),
		Reason:     string(reason),
		WinnerID:   result.WinnerID,
		DrawCount:  result.DrawCount,
		FinishedAt: now,
	}
	if winner != nil {
		id := winner.ID.String()
		payload.WinningCardID = &id
	}
	out.event(events.TypeSessionFinished, sess.ID, payload, now)

	ev := logger.Info().
		Str("reason", string(reason)).
		Int("draws", len(sess.Drawn))
	if winner != nil {
		ev = ev.Int64("winner_id", winner.UserID)
	}
	ev.Msg("session finished")

	a.refreshLiveGaugeLocked(ctx)
	return out
}

func others(ids []int64, exclude int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
