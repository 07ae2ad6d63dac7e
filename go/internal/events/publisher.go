package events

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Publisher delivers domain events to a bus
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// LogPublisher only logs events, for development and tests
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	log.Debug().
		Str("event_id", event.ID.String()).
		Str("event_type", event.Type).
		Str("session_id", event.SessionID.String()).
		RawJSON("payload", event.Payload).
		Msg("publishing event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// MetricsRecorder is the part of the metrics collector the publisher uses
type MetricsRecorder interface {
	RecordEventPublished(eventType string, success bool, duration time.Duration)
}

// MetricPublisher wraps a Publisher with metrics collection
type MetricPublisher struct {
	publisher Publisher
	metrics   MetricsRecorder
}

func NewMetricPublisher(publisher Publisher, metrics MetricsRecorder) *MetricPublisher {
	return &MetricPublisher{
		publisher: publisher,
		metrics:   metrics,
	}
}

func (p *MetricPublisher) Publish(ctx context.Context, event Event) error {
	start := time.Now()

	err := p.publisher.Publish(ctx, event)

	p.metrics.RecordEventPublished(event.Type, err == nil, time.Since(start))
	return err
}

func (p *MetricPublisher) Close() error {
	return p.publisher.Close()
}
