package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/lotto/go/internal/models"
)

var _ Store = (*Memory)(nil)

// Memory is a Store backed by maps. Every read returns a deep copy.
type Memory struct {
	mu       sync.RWMutex
	users    map[int64]*models.User
	cards    map[uuid.UUID]*models.Card
	sessions map[uuid.UUID]*models.Session
	promos   []*models.Promo
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[int64]*models.User),
		cards:    make(map[uuid.UUID]*models.Card),
		sessions: make(map[uuid.UUID]*models.Session),
	}
}

func (m *Memory) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.users[user.ID]; ok {
		if user.DisplayName != "" {
			existing.DisplayName = user.DisplayName
		}
		u := *existing
		return &u, nil
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	u := user
	m.users[user.ID] = &u
	return &user, nil
}

func (m *Memory) GetUser(ctx context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) CreateCard(ctx context.Context, card *models.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.cards[card.ID]; ok {
		return fmt.Errorf("card %s already exists", card.ID)
	}
	m.cards[card.ID] = card.Clone()
	return nil
}

func (m *Memory) GetCard(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.cards[id]
	if !ok {
		return nil, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	return c.Clone(), nil
}

func (m *Memory) GetCardsForUser(ctx context.Context, userID int64) ([]*models.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.collectCards(func(c *models.Card) bool { return c.UserID == userID }), nil
}

func (m *Memory) ListCardsForSession(ctx context.Context, sessionID uuid.UUID) ([]*models.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.collectCards(func(c *models.Card) bool { return c.SessionID == sessionID }), nil
}

// collectCards must be called with the lock held. Results are ordered by
// creation time, then ID.
func (m *Memory) collectCards(match func(*models.Card) bool) []*models.Card {
	var out []*models.Card
	for _, c := range m.cards {
		if match(c) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (m *Memory) DeleteCardsForUser(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, c := range m.cards {
		if c.UserID == userID {
			delete(m.cards, id)
		}
	}
	return nil
}

func (m *Memory) DeleteCardsForSession(ctx context.Context, sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, c := range m.cards {
		if c.SessionID == sessionID {
			delete(m.cards, id)
		}
	}
	return nil
}

func (m *Memory) DeleteAllCards(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cards = make(map[uuid.UUID]*models.Card)
	return nil
}

func (m *Memory) MarkCardNumber(ctx context.Context, cardID uuid.UUID, n int, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.cards[cardID]
	if !ok {
		return false, fmt.Errorf("card %s: %w", cardID, ErrNotFound)
	}
	if slices.Contains(c.Marked, n) {
		return false, nil
	}
	c.Marked = append(c.Marked, n)
	t := at
	c.LastMarkedAt = &t
	return true, nil
}

func (m *Memory) CreateSession(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[session.ID]; ok {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	if session.InviteToken != "" {
		for _, s := range m.sessions {
			if s.InviteToken == session.InviteToken && s.Status.Live() {
				return fmt.Errorf("invite token %q: %w", session.InviteToken, ErrConflict)
			}
		}
	}
	m.sessions[session.ID] = session.Clone()
	return nil
}

func (m *Memory) GetSessionByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok || !s.Status.Live() {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s.Clone(), nil
}

func (m *Memory) GetSessionByInviteToken(ctx context.Context, token string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sessions {
		if s.Status.Live() && s.InviteToken != "" && s.InviteToken == token {
			return s.Clone(), nil
		}
	}
	return nil, fmt.Errorf("invite token %q: %w", token, ErrNotFound)
}

// GetLiveSessionByUser prefers a session the user plays in over one they
// are only waitlisted for.
func (m *Memory) GetLiveSessionByUser(ctx context.Context, userID int64) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var waiting *models.Session
	for _, s := range m.liveSorted() {
		if s.HasParticipant(userID) {
			return s.Clone(), nil
		}
		if waiting == nil && s.HasWaiter(userID) {
			waiting = s
		}
	}
	if waiting != nil {
		return waiting.Clone(), nil
	}
	return nil, fmt.Errorf("live session for user %d: %w", userID, ErrNotFound)
}

func (m *Memory) GetLivePublicSession(ctx context.Context) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.liveSorted() {
		if s.Visibility == models.VisibilityPublic {
			return s.Clone(), nil
		}
	}
	return nil, fmt.Errorf("live public session: %w", ErrNotFound)
}

func (m *Memory) ListLiveSessions(ctx context.Context) ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	live := m.liveSorted()
	out := make([]*models.Session, 0, len(live))
	for _, s := range live {
		out = append(out, s.Clone())
	}
	return out, nil
}

// liveSorted must be called with the lock held.
func (m *Memory) liveSorted() []*models.Session {
	var out []*models.Session
	for _, s := range m.sessions {
		if s.Status.Live() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *Memory) UpdateSession(ctx context.Context, id uuid.UUID, update models.SessionUpdate) (*models.Session, error) {
	if err := ValidateUpdate(update); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || !s.Status.Live() {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	update.Apply(s)
	return s.Clone(), nil
}

func (m *Memory) CreatePromo(ctx context.Context, promo *models.Promo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := *promo
	m.promos = append(m.promos, &p)
	return nil
}

func (m *Memory) GetActivePromo(ctx context.Context) (*models.Promo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active *models.Promo
	for _, p := range m.promos {
		if active == nil || !p.CreatedAt.Before(active.CreatedAt) {
			active = p
		}
	}
	if active == nil {
		return nil, fmt.Errorf("active promo: %w", ErrNotFound)
	}
	cp := *active
	return &cp, nil
}
