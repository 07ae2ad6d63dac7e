package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Countdown is the payload of a start timer. StartAt is compared against the
// session when the timer fires so a superseded timer does nothing.
type Countdown struct {
	SessionID uuid.UUID
	StartAt   time.Time
}

type scheduledTimer struct {
	timer clockwork.Timer
	stop  chan struct{}
}

// Scheduler fires one-shot callbacks keyed by session.
type Scheduler struct {
	clock clockwork.Clock

	activeTimers   map[uuid.UUID]*scheduledTimer
	activeTimersMu sync.Mutex
}

func NewScheduler(clock clockwork.Clock) *Scheduler {
	return &Scheduler{
		clock:        clock,
		activeTimers: make(map[uuid.UUID]*scheduledTimer),
	}
}

// ScheduleOnce runs fn with p after delay unless ctx ends first. An earlier
// timer for the same session is replaced. Callers must still re-validate
// state in fn; cancellation is best effort.
func (s *Scheduler) ScheduleOnce(ctx context.Context, delay time.Duration, p Countdown, fn func(Countdown)) {
	st := &scheduledTimer{
		timer: s.clock.NewTimer(delay),
		stop:  make(chan struct{}),
	}
	s.replaceTimer(p.SessionID, st)

	go func() {
		select {
		case <-st.timer.Chan():
			s.removeTimer(p.SessionID, st)
			log.Debug().Str("session_id", p.SessionID.String()).Msg("countdown fired")
			fn(p)
		case <-st.stop:
		case <-ctx.Done():
			stopAndDrainTimer(st.timer)
			s.removeTimer(p.SessionID, st)
		}
	}()

	log.Debug().
		Str("session_id", p.SessionID.String()).
		Time("start_at", p.StartAt).
		Dur("delay", delay).
		Msg("scheduled countdown")
}

// Cancel stops the pending timer for a session, if any.
func (s *Scheduler) Cancel(sessionID uuid.UUID) {
	s.activeTimersMu.Lock()
	defer s.activeTimersMu.Unlock()

	if st, ok := s.activeTimers[sessionID]; ok {
		stopAndDrainTimer(st.timer)
		close(st.stop)
		delete(s.activeTimers, sessionID)
		log.Debug().Str("session_id", sessionID.String()).Msg("cancelled countdown")
	}
}

// Pending reports how many timers are armed.
func (s *Scheduler) Pending() int {
	s.activeTimersMu.Lock()
	defer s.activeTimersMu.Unlock()
	return len(s.activeTimers)
}

func (s *Scheduler) replaceTimer(sessionID uuid.UUID, st *scheduledTimer) {
	s.activeTimersMu.Lock()
	defer s.activeTimersMu.Unlock()

	if existing, ok := s.activeTimers[sessionID]; ok {
		stopAndDrainTimer(existing.timer)
		close(existing.stop)
		log.Debug().Str("session_id", sessionID.String()).Msg("replaced existing countdown")
	}
	s.activeTimers[sessionID] = st
}

// removeTimer drops st only if it is still the active timer for the session.
func (s *Scheduler) removeTimer(sessionID uuid.UUID, st *scheduledTimer) {
	s.activeTimersMu.Lock()
	defer s.activeTimersMu.Unlock()

	if s.activeTimers[sessionID] == st {
		delete(s.activeTimers, sessionID)
	}
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
