package telegram

import (
	"context"
	"slices"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mcdev12/lotto/go/internal/bot"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Handler processes player updates
type Handler interface {
	Handle(ctx context.Context, u bot.Update) string
}

// PromoCreator stores promos uploaded by admins
type PromoCreator interface {
	CreatePromo(ctx context.Context, mediaRef, caption string) (*models.Promo, error)
}

// PollerConfig holds long-polling settings
type PollerConfig struct {
	Timeout     int
	Concurrency int
	AdminIDs    []int64
}

// Poller reads updates from Telegram and dispatches them.
type Poller struct {
	api     API
	handler Handler
	promos  PromoCreator
	config  PollerConfig
}

func NewPoller(api API, handler Handler, promos PromoCreator, config PollerConfig) *Poller {
	if config.Timeout <= 0 {
		config.Timeout = 60
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 16
	}
	return &Poller{
		api:     api,
		handler: handler,
		promos:  promos,
		config:  config,
	}
}

// Run polls until ctx is done and waits for in-flight updates to finish.
func (p *Poller) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = p.config.Timeout
	updates := p.api.GetUpdatesChan(u)

	sem := make(chan struct{}, p.config.Concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	log.Info().Int("concurrency", p.config.Concurrency).Msg("telegram poller started")
	for {
		select {
		case <-ctx.Done():
			p.api.StopReceivingUpdates()
			log.Info().Msg("telegram poller stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				continue
			}
			wg.Add(1)
			go func() {
				defer func() {
					<-sem
					wg.Done()
				}()
				p.dispatch(ctx, update)
			}()
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if q.From == nil {
			return
		}
		ack := p.handler.Handle(ctx, bot.Update{
			UserID:      q.From.ID,
			DisplayName: displayName(q.From),
			Callback:    q.Data,
		})
		if _, err := p.api.Request(tgbotapi.NewCallback(q.ID, ack)); err != nil {
			log.Debug().Err(err).Int64("user_id", q.From.ID).Msg("failed to answer callback")
		}

	case update.Message != nil:
		m := update.Message
		if m.From == nil || m.Chat == nil || !m.Chat.IsPrivate() {
			return
		}
		if len(m.Photo) > 0 {
			p.handlePhoto(ctx, m)
			return
		}
		if m.Text == "" {
			return
		}
		p.handler.Handle(ctx, bot.Update{
			UserID:      m.From.ID,
			DisplayName: displayName(m.From),
			Text:        m.Text,
		})
	}
}

// handlePhoto stores a photo sent by an admin as the active promo.
func (p *Poller) handlePhoto(ctx context.Context, m *tgbotapi.Message) {
	if p.promos == nil || !p.isAdmin(m.From.ID) {
		return
	}

	// the last size is the largest
	fileID := m.Photo[len(m.Photo)-1].FileID
	promo, err := p.promos.CreatePromo(ctx, fileID, m.Caption)
	reply := "Promo saved. It will be shown with every card."
	if err != nil {
		log.Error().Err(err).Int64("user_id", m.From.ID).Msg("failed to save promo")
		reply = "Could not save the promo. Please try again."
	} else {
		log.Info().Str("promo_id", promo.ID.String()).Int64("admin_id", m.From.ID).Msg("admin uploaded promo")
	}
	if _, err := p.api.Send(tgbotapi.NewMessage(m.Chat.ID, reply)); err != nil {
		log.Warn().Err(err).Msg("failed to confirm promo upload")
	}
}

func (p *Poller) isAdmin(userID int64) bool {
	return slices.Contains(p.config.AdminIDs, userID)
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}
