package game

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/lotto/go/internal/events"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/mcdev12/lotto/go/internal/render"
	"github.com/mcdev12/lotto/go/internal/store"
	"github.com/rs/zerolog/log"
)

// JoinOutcome tells the caller what a join did.
type JoinOutcome string

const (
	JoinCreated       JoinOutcome = "created"
	JoinJoined        JoinOutcome = "joined"
	JoinAlreadyMember JoinOutcome = "already_member"
	JoinWaitlisted    JoinOutcome = "waitlisted"
)

// JoinResult is the state after a create or join. Card is nil when the user
// was waitlisted.
type JoinResult struct {
	Outcome JoinOutcome
	Session *models.Session
	Card    *models.Card
}

const (
	inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	inviteLength   = 8
	inviteAttempts = 3
)

// PlayPublic joins the live public session, creating one if there is none.
func (a *App) PlayPublic(ctx context.Context, userID int64) (*JoinResult, error) {
	a.mu.Lock()
	var out outbox
	res, err := a.playPublicLocked(ctx, userID, &out)
	a.mu.Unlock()

	a.flush(ctx, out)
	return res, err
}

func (a *App) playPublicLocked(ctx context.Context, userID int64, out *outbox) (*JoinResult, error) {
	sess, err := a.store.GetLivePublicSession(ctx)
	switch {
	case err == nil:
		return a.joinLocked(ctx, sess, userID, out)
	case errors.Is(err, store.ErrNotFound):
		return a.createLocked(ctx, userID, models.VisibilityPublic, out)
	default:
		return nil, fmt.Errorf("failed to find public session: %w", err)
	}
}

// Create opens a new session with userID as its first participant. Only one
// public session may be live, so a public create joins it when it exists.
func (a *App) Create(ctx context.Context, userID int64, vis models.Visibility) (*JoinResult, error) {
	a.mu.Lock()
	var out outbox
	var (
		res *JoinResult
		err error
	)
	switch vis {
	case models.VisibilityPublic:
		res, err = a.playPublicLocked(ctx, userID, &out)
	case models.VisibilityPrivate:
		res, err = a.createLocked(ctx, userID, vis, &out)
	default:
		err = fmt.Errorf("unknown visibility %q", vis)
	}
	a.mu.Unlock()

	a.flush(ctx, out)
	return res, err
}

func (a *App) createLocked(ctx context.Context, userID int64, vis models.Visibility, out *outbox) (*JoinResult, error) {
	if err := a.checkNotSeatedLocked(ctx, userID, uuid.Nil); err != nil {
		return nil, err
	}

	now := a.clock.Now()
	sess := &models.Session{
		ID:           uuid.New(),
		Status:       models.SessionStatusWaiting,
		Visibility:   vis,
		Participants: []int64{},
		Waitlist:     []int64{},
		Drawn:        []int{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var err error
	for attempt := 0; attempt < inviteAttempts; attempt++ {
		if vis == models.VisibilityPrivate {
			sess.InviteToken = newInviteToken()
		}
		err = a.store.CreateSession(ctx, sess)
		if !errors.Is(err, store.ErrConflict) {
			break
		}
		log.Warn().Str("invite_token", sess.InviteToken).Msg("invite token collision, retrying")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	out.event(events.TypeSessionCreated, sess.ID, events.SessionCreatedPayload{
		SessionID:  sess.ID.String(),
		Visibility: string(vis),
		OwnerID:    userID,
		CreatedAt:  now,
	}, now)
	log.Info().
		Str("session_id", sess.ID.String()).
		Str("visibility", string(vis)).
		Int64("user_id", userID).
		Msg("created session")

	res, err := a.addParticipantLocked(ctx, sess, userID, out)
	if err != nil {
		a.abandonEmptyLocked(ctx, sess.ID)
		return nil, err
	}
	res.Outcome = JoinCreated
	a.refreshLiveGaugeLocked(ctx)
	return res, nil
}

// abandonEmptyLocked finishes a session whose creator could not be seated.
func (a *App) abandonEmptyLocked(ctx context.Context, sessionID uuid.UUID) {
	finished := models.SessionStatusFinished
	res := models.SessionResult{Reason: models.FinishReasonAbandoned, FinishedAt: a.clock.Now()}
	if _, err := a.updateSession(ctx, sessionID, models.SessionUpdate{Status: &finished, Result: &res}); err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to abandon empty session")
	}
}

func newInviteToken() string {
	b := make([]byte, inviteLength)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	for i := range b {
		b[i] = inviteAlphabet[int(b[i])%len(inviteAlphabet)]
	}
	return string(b)
}

// Join adds userID to a session by ID.
func (a *App) Join(ctx context.Context, sessionID uuid.UUID, userID int64) (*JoinResult, error) {
	a.mu.Lock()
	var out outbox
	res, err := a.joinByIDLocked(ctx, sessionID, userID, &out)
	a.mu.Unlock()

	a.flush(ctx, out)
	return res, err
}

func (a *App) joinByIDLocked(ctx context.Context, sessionID uuid.UUID, userID int64, out *outbox) (*JoinResult, error) {
	sess, err := a.store.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, translate(err, "load session")
	}
	return a.joinLocked(ctx, sess, userID, out)
}

// JoinByInvite adds userID to the private session owning token.
func (a *App) JoinByInvite(ctx context.Context, token string, userID int64) (*JoinResult, error) {
	a.mu.Lock()
	var out outbox
	var (
		res *JoinResult
		err error
	)
	sess, lookupErr := a.store.GetSessionByInviteToken(ctx, token)
	if lookupErr != nil {
		err = translate(lookupErr, "find invite")
	} else {
		res, err = a.joinLocked(ctx, sess, userID, &out)
	}
	a.mu.Unlock()

	a.flush(ctx, out)
	return res, err
}

func (a *App) joinLocked(ctx context.Context, sess *models.Session, userID int64, out *outbox) (*JoinResult, error) {
	switch sess.Status {
	case models.SessionStatusFinished:
		return nil, fmt.Errorf("join finished session: %w", ErrInvalidState)
	case models.SessionStatusRunning:
		if sess.HasParticipant(userID) {
			return a.alreadyMemberLocked(ctx, sess, userID)
		}
		return a.waitlistLocked(ctx, sess, userID, out)
	}

	if sess.HasParticipant(userID) {
		return a.alreadyMemberLocked(ctx, sess, userID)
	}
	if err := a.checkNotSeatedLocked(ctx, userID, sess.ID); err != nil {
		return nil, err
	}

	res, err := a.addParticipantLocked(ctx, sess, userID, out)
	if err != nil {
		return nil, err
	}
	res.Outcome = JoinJoined
	return res, nil
}

// checkNotSeatedLocked rejects users already playing elsewhere. A user who is
// only waitlisted elsewhere is taken off that list.
func (a *App) checkNotSeatedLocked(ctx context.Context, userID int64, target uuid.UUID) error {
	other, err := a.store.GetLiveSessionByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up user session: %w", err)
	}
	if other.ID == target {
		return nil
	}
	if other.HasParticipant(userID) {
		return ErrAlreadyInSession
	}

	waitlist := slices.DeleteFunc(slices.Clone(other.Waitlist), func(id int64) bool { return id == userID })
	if _, err := a.updateSession(ctx, other.ID, models.SessionUpdate{Waitlist: &waitlist}); err != nil {
		return translate(err, "update waitlist")
	}
	return nil
}

func (a *App) alreadyMemberLocked(ctx context.Context, sess *models.Session, userID int64) (*JoinResult, error) {
	c, err := a.cardForLocked(ctx, sess.ID, userID)
	if err != nil {
		return nil, err
	}
	return &JoinResult{Outcome: JoinAlreadyMember, Session: sess, Card: c}, nil
}

func (a *App) waitlistLocked(ctx context.Context, sess *models.Session, userID int64, out *outbox) (*JoinResult, error) {
	if sess.HasWaiter(userID) {
		return &JoinResult{Outcome: JoinWaitlisted, Session: sess}, nil
	}
	if err := a.checkNotSeatedLocked(ctx, userID, sess.ID); err != nil {
		return nil, err
	}

	waitlist := append(slices.Clone(sess.Waitlist), userID)
	updated, err := a.updateSession(ctx, sess.ID, models.SessionUpdate{Waitlist: &waitlist})
	if err != nil {
		return nil, translate(err, "update waitlist")
	}

	now := a.clock.Now()
	out.event(events.TypePlayerWaitlisted, sess.ID, events.PlayerWaitlistedPayload{
		SessionID: sess.ID.String(),
		UserID:    userID,
		Position:  len(waitlist),
	}, now)
	log.Info().
		Str("session_id", sess.ID.String()).
		Int64("user_id", userID).
		Msg("user waitlisted")
	return &JoinResult{Outcome: JoinWaitlisted, Session: updated}, nil
}

// addParticipantLocked deals a card and seats the user. A public session
// that reaches MinPlayers starts its countdown.
func (a *App) addParticipantLocked(ctx context.Context, sess *models.Session, userID int64, out *outbox) (*JoinResult, error) {
	c, err := a.generator.Generate(sess.ID, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("card generation failed")
		return nil, err
	}
	if err := a.store.CreateCard(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	existing := slices.Clone(sess.Participants)
	participants := append(slices.Clone(sess.Participants), userID)
	update := models.SessionUpdate{Participants: &participants}
	if sess.HasWaiter(userID) {
		waitlist := slices.DeleteFunc(slices.Clone(sess.Waitlist), func(id int64) bool { return id == userID })
		update.Waitlist = &waitlist
	}
	updated, err := a.updateSession(ctx, sess.ID, update)
	if err != nil {
		if delErr := a.store.DeleteCardsForUser(ctx, userID); delErr != nil {
			log.Error().Err(delErr).Int64("user_id", userID).Msg("failed to remove orphaned card")
		}
		return nil, translate(err, "add participant")
	}

	now := a.clock.Now()
	out.send("joined", render.PlayerJoined(a.displayNameLocked(ctx, userID), len(participants)), existing...)
	out.event(events.TypePlayerJoined, sess.ID, events.PlayerJoinedPayload{
		SessionID:    sess.ID.String(),
		UserID:       userID,
		CardID:       c.ID.String(),
		Participants: len(participants),
	}, now)
	log.Info().
		Str("session_id", sess.ID.String()).
		Int64("user_id", userID).
		Int("participants", len(participants)).
		Msg("user joined session")

	if updated.Visibility == models.VisibilityPublic &&
		updated.Status == models.SessionStatusWaiting &&
		len(updated.Participants) >= MinPlayers {
		updated, err = a.armCountdownLocked(ctx, updated, PublicCountdown, out)
		if err != nil {
			return nil, err
		}
	}

	return &JoinResult{Session: updated, Card: c}, nil
}

// StartPrivate moves a private session into its countdown. Only the creator
// may start it, and only with at least MinPlayers seated.
func (a *App) StartPrivate(ctx context.Context, sessionID uuid.UUID, userID int64) (*models.Session, error) {
	a.mu.Lock()
	var out outbox
	sess, err := a.startPrivateLocked(ctx, sessionID, userID, &out)
	a.mu.Unlock()

	a.flush(ctx, out)
	return sess, err
}

func (a *App) startPrivateLocked(ctx context.Context, sessionID uuid.UUID, userID int64, out *outbox) (*models.Session, error) {
	sess, err := a.store.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, translate(err, "load session")
	}
	if owner, ok := sess.Owner(); !ok || owner != userID {
		return nil, ErrNotOwner
	}
	if sess.Visibility != models.VisibilityPrivate || sess.Status != models.SessionStatusWaiting {
		return nil, fmt.Errorf("start %s session: %w", sess.Status, ErrInvalidState)
	}
	if len(sess.Participants) < MinPlayers {
		return nil, ErrNotEnoughPlayers
	}
	return a.armCountdownLocked(ctx, sess, PrivateCountdown, out)
}

func (a *App) armCountdownLocked(ctx context.Context, sess *models.Session, delay time.Duration, out *outbox) (*models.Session, error) {
	startAt := a.clock.Now().Add(delay)
	startPtr := &startAt
	preparing := models.SessionStatusPreparing

	updated, err := a.updateSession(ctx, sess.ID, models.SessionUpdate{
		Status:  &preparing,
		StartAt: &startPtr,
	})
	if err != nil {
		return nil, translate(err, "arm countdown")
	}
	a.metrics.RecordTransition(string(sess.Status), string(preparing))

	a.scheduler.ScheduleOnce(a.ctx, delay, Countdown{SessionID: sess.ID, StartAt: startAt}, a.onCountdown)

	seconds := int(delay / time.Second)
	out.send("countdown", render.Countdown(seconds), updated.Participants...)
	out.event(events.TypeCountdownStarted, sess.ID, events.CountdownStartedPayload{
		SessionID: sess.ID.String(),
		StartAt:   startAt,
		Seconds:   seconds,
	}, a.clock.Now())
	log.Info().
		Str("session_id", sess.ID.String()).
		Time("start_at", startAt).
		Msg("countdown armed")
	return updated, nil
}

// Leave removes userID from their live session or its waitlist.
func (a *App) Leave(ctx context.Context, userID int64) (*models.Session, error) {
	a.mu.Lock()
	var out outbox
	sess, err := a.leaveLocked(ctx, userID, &out)
	a.mu.Unlock()

	a.flush(ctx, out)
	return sess, err
}

func (a *App) leaveLocked(ctx context.Context, userID int64, out *outbox) (*models.Session, error) {
	sess, err := a.store.GetLiveSessionByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoLiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user session: %w", err)
	}

	if !sess.HasParticipant(userID) {
		waitlist := slices.DeleteFunc(slices.Clone(sess.Waitlist), func(id int64) bool { return id == userID })
		updated, err := a.updateSession(ctx, sess.ID, models.SessionUpdate{Waitlist: &waitlist})
		if err != nil {
			return nil, translate(err, "update waitlist")
		}
		return updated, nil
	}

	participants := slices.DeleteFunc(slices.Clone(sess.Participants), func(id int64) bool { return id == userID })
	update := models.SessionUpdate{Participants: &participants}

	below := len(participants) < MinPlayers
	revert := below && sess.Status == models.SessionStatusPreparing && len(participants) > 0
	if revert {
		waiting := models.SessionStatusWaiting
		var noStart *time.Time
		update.Status = &waiting
		update.StartAt = &noStart
	}

	updated, err := a.updateSession(ctx, sess.ID, update)
	if err != nil {
		return nil, translate(err, "remove participant")
	}
	if err := a.store.DeleteCardsForUser(ctx, userID); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to delete cards of leaving user")
	}

	now := a.clock.Now()
	out.event(events.TypePlayerLeft, sess.ID, events.PlayerLeftPayload{
		SessionID:    sess.ID.String(),
		UserID:       userID,
		Participants: len(participants),
	}, now)
	log.Info().
		Str("session_id", sess.ID.String()).
		Int64("user_id", userID).
		Int("participants", len(participants)).
		Msg("user left session")

	switch {
	case len(participants) == 0,
		below && sess.Status == models.SessionStatusRunning:
		out.merge(a.finishLocked(ctx, updated, models.FinishReasonAbandoned, nil))
	case revert:
		a.scheduler.Cancel(sess.ID)
		a.metrics.RecordTransition(string(sess.Status), string(models.SessionStatusWaiting))
		out.send("countdown_reverted", render.CountdownReverted(len(participants), MinPlayers), participants...)
	default:
		out.send("left", render.PlayerLeft(a.displayNameLocked(ctx, userID), len(participants)), participants...)
	}
	return updated, nil
}

// Wait puts userID on the live public session's waitlist so they hear when
// it ends.
func (a *App) Wait(ctx context.Context, userID int64) (*models.Session, error) {
	a.mu.Lock()
	var out outbox
	var (
		res *JoinResult
		err error
	)
	sess, lookupErr := a.store.GetLivePublicSession(ctx)
	switch {
	case errors.Is(lookupErr, store.ErrNotFound):
		err = ErrNoLiveSession
	case lookupErr != nil:
		err = fmt.Errorf("failed to find public session: %w", lookupErr)
	case sess.HasParticipant(userID):
		err = fmt.Errorf("wait on own session: %w", ErrInvalidState)
	default:
		res, err = a.waitlistLocked(ctx, sess, userID, &out)
	}
	a.mu.Unlock()

	a.flush(ctx, out)
	if err != nil {
		return nil, err
	}
	return res.Session, nil
}

// CurrentCard returns the user's card in their live session.
func (a *App) CurrentCard(ctx context.Context, userID int64) (*models.Card, *models.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, err := a.store.GetLiveSessionByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrNoLiveSession
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up user session: %w", err)
	}
	if !sess.HasParticipant(userID) {
		return nil, sess, ErrNoLiveSession
	}
	c, err := a.cardForLocked(ctx, sess.ID, userID)
	if err != nil {
		return nil, nil, err
	}
	return c, sess, nil
}

func (a *App) cardForLocked(ctx context.Context, sessionID uuid.UUID, userID int64) (*models.Card, error) {
	cards, err := a.store.GetCardsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}
	for _, c := range cards {
		if c.SessionID == sessionID {
			return c, nil
		}
	}
	return nil, fmt.Errorf("card for user %d: %w", userID, ErrStaleReference)
}
