package metrics

import (
	"time"
)

// Collector defines the interface for collecting game metrics
type Collector interface {
	RecordDelivery(kind string, success bool, duration time.Duration)
	RecordEventPublished(eventType string, success bool, duration time.Duration)
	RecordTransition(from, to string)
	RecordDraw()
	RecordMark(accepted bool)
	RecordSessionFinished(reason string, draws int, duration time.Duration)
	SetLiveSessions(n int)
}

// NoOp is a no-op implementation for when metrics aren't needed
type NoOp struct{}

func (NoOp) RecordDelivery(kind string, success bool, duration time.Duration)            {}
func (NoOp) RecordEventPublished(eventType string, success bool, duration time.Duration) {}
func (NoOp) RecordTransition(from, to string)                                            {}
func (NoOp) RecordDraw()                                                                 {}
func (NoOp) RecordMark(accepted bool)                                                    {}
func (NoOp) RecordSessionFinished(reason string, draws int, duration time.Duration)      {}
func (NoOp) SetLiveSessions(n int)                                                       {}
