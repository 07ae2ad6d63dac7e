// Package bot maps inbound chat events onto game actions and replies to the
// player. It does not know which transport delivered the event.
package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/lotto/go/internal/game"
	"github.com/mcdev12/lotto/go/internal/messenger"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/mcdev12/lotto/go/internal/render"
	"github.com/rs/zerolog/log"
)

// GameApp defines what the router needs from the game engine
type GameApp interface {
	Config() game.Config
	EnsureUser(ctx context.Context, userID int64, displayName string) (*models.User, error)
	PlayPublic(ctx context.Context, userID int64) (*game.JoinResult, error)
	Create(ctx context.Context, userID int64, vis models.Visibility) (*game.JoinResult, error)
	JoinByInvite(ctx context.Context, token string, userID int64) (*game.JoinResult, error)
	StartPrivate(ctx context.Context, sessionID uuid.UUID, userID int64) (*models.Session, error)
	Mark(ctx context.Context, userID int64, cardID uuid.UUID, n int) (*game.MarkResult, error)
	Leave(ctx context.Context, userID int64) (*models.Session, error)
	Wait(ctx context.Context, userID int64) (*models.Session, error)
	CurrentCard(ctx context.Context, userID int64) (*models.Card, *models.Session, error)
	ActivePromo(ctx context.Context) *models.Promo
}

var _ GameApp = (*game.App)(nil)

// Update is one inbound event from a player. Exactly one of Text and
// Callback is set.
type Update struct {
	UserID      int64
	DisplayName string
	Text        string
	Callback    string
}

// Router handles player updates.
type Router struct {
	app       GameApp
	messenger messenger.Messenger

	// last card message shown to each user, removed when they leave
	cardsMu sync.Mutex
	cards   map[int64]messenger.Ref
}

func NewRouter(app GameApp, m messenger.Messenger) *Router {
	return &Router{
		app:       app,
		messenger: m,
		cards:     make(map[int64]messenger.Ref),
	}
}

// Handle runs the action named by u. The returned string is a short
// acknowledgement for transports that show one on button presses.
func (r *Router) Handle(ctx context.Context, u Update) string {
	logger := log.With().Int64("user_id", u.UserID).Logger()

	if _, err := r.app.EnsureUser(ctx, u.UserID, u.DisplayName); err != nil {
		logger.Error().Err(err).Msg("failed to record user")
		r.reply(ctx, u.UserID, Notice(err))
		return ""
	}

	if u.Callback != "" {
		logger.Debug().Str("callback", u.Callback).Msg("handling callback")
		return r.handleCallback(ctx, u.UserID, u.Callback)
	}
	logger.Debug().Str("text", u.Text).Msg("handling text")
	r.handleText(ctx, u.UserID, u.Text)
	return ""
}

func (r *Router) handleText(ctx context.Context, userID int64, text string) {
	command, arg, _ := strings.Cut(strings.TrimSpace(text), " ")
	// commands may be addressed as /cmd@botname in groups
	command, _, _ = strings.Cut(command, "@")

	switch command {
	case "/start":
		if token, ok := render.ParseInvite(arg); ok {
			r.joinByInvite(ctx, userID, token)
			return
		}
		r.reply(ctx, userID, render.MainMenu())
	case "/help":
		r.reply(ctx, userID, render.Help())
	case "/card":
		r.showCard(ctx, userID)
	case "/leave":
		r.leave(ctx, userID)
	default:
		r.reply(ctx, userID, render.MainMenu())
	}
}

func (r *Router) handleCallback(ctx context.Context, userID int64, data string) string {
	switch {
	case data == render.ActionNoop:
		return ""
	case data == render.ActionPlay:
		res, err := r.app.PlayPublic(ctx, userID)
		r.joined(ctx, userID, res, err)
	case data == render.ActionPlayFriends:
		res, err := r.app.Create(ctx, userID, models.VisibilityPrivate)
		if err == nil && res.Outcome == game.JoinCreated {
			r.reply(ctx, userID, render.PrivateCreated(res.Session, r.app.Config().BotUsername))
		}
		r.joined(ctx, userID, res, err)
	case data == render.ActionWait:
		if _, err := r.app.Wait(ctx, userID); err != nil {
			r.reply(ctx, userID, Notice(err))
			return ""
		}
		r.reply(ctx, userID, render.Waitlisted())
	case data == render.ActionHelp:
		r.reply(ctx, userID, render.Help())
	case data == render.ActionCard:
		r.showCard(ctx, userID)
	case data == render.ActionLeave:
		r.leave(ctx, userID)
	case strings.HasPrefix(data, render.ActionStart+":"):
		sessionID, ok := render.ParseStart(data)
		if !ok {
			r.reply(ctx, userID, Notice(game.ErrStaleReference))
			return ""
		}
		if _, err := r.app.StartPrivate(ctx, sessionID, userID); err != nil {
			r.reply(ctx, userID, Notice(err))
		}
	case strings.HasPrefix(data, render.ActionMark+":"):
		return r.mark(ctx, userID, data)
	default:
		log.Warn().Int64("user_id", userID).Str("callback", data).Msg("unknown callback")
		r.reply(ctx, userID, Notice(game.ErrStaleReference))
	}
	return ""
}

func (r *Router) joinByInvite(ctx context.Context, userID int64, token string) {
	res, err := r.app.JoinByInvite(ctx, token, userID)
	r.joined(ctx, userID, res, err)
}

// joined tells the player where a create or join left them.
func (r *Router) joined(ctx context.Context, userID int64, res *game.JoinResult, err error) {
	if err != nil {
		r.reply(ctx, userID, Notice(err))
		return
	}

	if res.Outcome == game.JoinWaitlisted {
		r.reply(ctx, userID, render.Waitlisted())
		return
	}
	if res.Session.Status == models.SessionStatusWaiting {
		r.reply(ctx, userID, render.Waiting(len(res.Session.Participants), game.MinPlayers))
	}
	if res.Card != nil {
		r.sendCard(ctx, userID, res.Card, res.Session)
	}
}

func (r *Router) showCard(ctx context.Context, userID int64) {
	c, sess, err := r.app.CurrentCard(ctx, userID)
	if err != nil {
		r.reply(ctx, userID, Notice(err))
		return
	}
	r.sendCard(ctx, userID, c, sess)
}

func (r *Router) sendCard(ctx context.Context, userID int64, c *models.Card, sess *models.Session) {
	ref, err := r.messenger.Send(ctx, userID, render.Card(c, sess, r.app.ActivePromo(ctx)))
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("failed to send card")
		return
	}
	r.cardsMu.Lock()
	r.cards[userID] = ref
	r.cardsMu.Unlock()
}

func (r *Router) mark(ctx context.Context, userID int64, data string) string {
	cardID, n, ok := render.ParseMark(data)
	if !ok {
		r.reply(ctx, userID, Notice(game.ErrStaleReference))
		return ""
	}

	res, err := r.app.Mark(ctx, userID, cardID, n)
	if err != nil {
		r.reply(ctx, userID, Notice(err))
		return ""
	}
	if !res.Accepted {
		switch {
		case !res.Card.Has(n):
			return "That number is not on your card."
		case res.Card.IsMarked(n):
			return "Already marked."
		default:
			return "That number has not been drawn yet."
		}
	}

	msg := render.Card(res.Card, res.Session, r.app.ActivePromo(ctx))
	if err := r.messenger.EditLast(ctx, userID, msg); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("failed to refresh card")
	}
	return ""
}

func (r *Router) leave(ctx context.Context, userID int64) {
	if _, err := r.app.Leave(ctx, userID); err != nil {
		r.reply(ctx, userID, Notice(err))
		return
	}

	r.cardsMu.Lock()
	ref, ok := r.cards[userID]
	delete(r.cards, userID)
	r.cardsMu.Unlock()
	if ok {
		if err := r.messenger.Delete(ctx, userID, ref); err != nil {
			log.Debug().Err(err).Int64("user_id", userID).Msg("failed to delete card message")
		}
	}
	r.reply(ctx, userID, render.Left())
}

func (r *Router) reply(ctx context.Context, userID int64, msg messenger.Message) {
	if _, err := r.messenger.Send(ctx, userID, msg); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("failed to reply")
	}
}

// Notice turns an engine error into a message that tells the player what
// to do next.
func Notice(err error) messenger.Message {
	menu := render.MainMenu().Buttons
	switch {
	case errors.Is(err, game.ErrAlreadyInSession):
		return messenger.Message{
			Text:    "You are already in a game. Finish it or leave it before joining another one.",
			Buttons: [][]messenger.Button{{{Label: "My card", Data: render.ActionCard}, {Label: "Leave", Data: render.ActionLeave}}},
		}
	case errors.Is(err, game.ErrNotOwner):
		return messenger.Message{Text: "Only the player who created this game can start it."}
	case errors.Is(err, game.ErrNotEnoughPlayers):
		return messenger.Message{Text: "At least 2 players are needed. Share the invite link and press Start again."}
	case errors.Is(err, game.ErrNoLiveSession):
		return messenger.Message{Text: "You are not in a game. Create or join one.", Buttons: menu}
	}

	switch game.KindOf(err) {
	case game.KindGeneration:
		return messenger.Message{
			Text:    "We could not deal your card. Please try again.",
			Buttons: [][]messenger.Button{{{Label: "Try again", Data: render.ActionPlay}}},
		}
	case game.KindStaleReference:
		return messenger.Message{Text: "That game is no longer available. Create or join a different game.", Buttons: menu}
	case game.KindStateConflict:
		return messenger.Message{Text: "That is not possible right now. Create or join a different game.", Buttons: menu}
	default:
		return messenger.Message{Text: "Something went wrong. Please try again in a moment.", Buttons: menu}
	}
}
