package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeCarriesPayload(t *testing.T) {
	sessionID := uuid.New()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ev, err := New(TypeNumberDrawn, sessionID, NumberDrawnPayload{
		SessionID: sessionID.String(), Number: 42, Sequence: 3, DrawnAt: at,
	}, at)
	require.NoError(t, err)

	data, err := Envelope(ev)
	require.NoError(t, err)

	var env struct {
		EventID   string             `json:"eventId"`
		EventType string             `json:"eventType"`
		SessionID string             `json:"sessionId"`
		Payload   NumberDrawnPayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, ev.ID.String(), env.EventID)
	assert.Equal(t, TypeNumberDrawn, env.EventType)
	assert.Equal(t, sessionID.String(), env.SessionID)
	assert.Equal(t, 42, env.Payload.Number)
	assert.Equal(t, 3, env.Payload.Sequence)
}

type fakeRecorder struct {
	eventType string
	success   bool
}

func (f *fakeRecorder) RecordEventPublished(eventType string, success bool, d time.Duration) {
	f.eventType, f.success = eventType, success
}

type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, event Event) error { return errors.New("bus down") }
func (failingPublisher) Close() error                                   { return nil }

func TestMetricPublisherRecordsOutcome(t *testing.T) {
	rec := &fakeRecorder{}
	ev, err := New(TypeSessionStarted, uuid.New(), SessionStartedPayload{}, time.Now())
	require.NoError(t, err)

	require.NoError(t, NewMetricPublisher(NewLogPublisher(), rec).Publish(context.Background(), ev))
	assert.Equal(t, TypeSessionStarted, rec.eventType)
	assert.True(t, rec.success)

	assert.Error(t, NewMetricPublisher(failingPublisher{}, rec).Publish(context.Background(), ev))
	assert.False(t, rec.success)
}

func TestStreamConfigEquality(t *testing.T) {
	p := &JetStreamPublisher{config: DefaultJetStreamConfig()}
	sc := p.streamConfig()
	assert.True(t, isStreamConfigEqual(sc, sc))

	changed := sc
	changed.MaxAge = time.Hour
	assert.False(t, isStreamConfigEqual(sc, changed))
	assert.Equal(t, []string{"lotto.events.>"}, sc.Subjects)
	assert.Equal(t, jetstream.FileStorage, sc.Storage)
	assert.Equal(t, "lotto.events.NumberDrawn", p.Subject(TypeNumberDrawn))
}
