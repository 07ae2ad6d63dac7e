package messenger

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Mirror delivers through a primary Messenger and copies each call to a
// secondary one. Only primary failures are returned.
type Mirror struct {
	primary   Messenger
	secondary Messenger

	mu   sync.Mutex
	refs map[int64][]refPair
}

// mirrorHistory is the number of deliveries remembered per recipient.
const mirrorHistory = 128

type refPair struct {
	primary, secondary Ref
}

var _ Messenger = (*Mirror)(nil)

func NewMirror(primary, secondary Messenger) *Mirror {
	return &Mirror{
		primary:   primary,
		secondary: secondary,
		refs:      make(map[int64][]refPair),
	}
}

func (m *Mirror) Send(ctx context.Context, recipient int64, msg Message) (Ref, error) {
	ref, err := m.primary.Send(ctx, recipient, msg)

	copied, serr := m.secondary.Send(ctx, recipient, msg)
	if serr != nil {
		log.Debug().Err(serr).Int64("user_id", recipient).Msg("mirror send skipped")
	} else if err == nil {
		m.mu.Lock()
		pairs := append(m.refs[recipient], refPair{primary: ref, secondary: copied})
		if len(pairs) > mirrorHistory {
			pairs = pairs[len(pairs)-mirrorHistory:]
		}
		m.refs[recipient] = pairs
		m.mu.Unlock()
	}
	return ref, err
}

func (m *Mirror) EditLast(ctx context.Context, recipient int64, msg Message) error {
	err := m.primary.EditLast(ctx, recipient, msg)
	if serr := m.secondary.EditLast(ctx, recipient, msg); serr != nil {
		log.Debug().Err(serr).Int64("user_id", recipient).Msg("mirror edit skipped")
	}
	return err
}

func (m *Mirror) Delete(ctx context.Context, recipient int64, ref Ref) error {
	err := m.primary.Delete(ctx, recipient, ref)

	var (
		copied Ref
		ok     bool
	)
	m.mu.Lock()
	pairs := m.refs[recipient]
	for i, p := range pairs {
		if p.primary == ref {
			copied, ok = p.secondary, true
			m.refs[recipient] = append(pairs[:i:i], pairs[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	if ok {
		if serr := m.secondary.Delete(ctx, recipient, copied); serr != nil {
			log.Debug().Err(serr).Int64("user_id", recipient).Msg("mirror delete skipped")
		}
	}
	return err
}
