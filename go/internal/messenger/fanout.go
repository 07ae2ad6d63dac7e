package messenger

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DeliveryRecorder receives the outcome of every send.
type DeliveryRecorder interface {
	RecordDelivery(kind string, success bool, duration time.Duration)
}

// Report is the outcome of one fan-out.
type Report struct {
	Sent   []int64
	Failed map[int64]error
}

// Fanout sends msg to every recipient in order, once each. A failed send is
// logged and recorded and never stops the rest of the batch.
func Fanout(ctx context.Context, m Messenger, rec DeliveryRecorder, kind string, recipients []int64, msg Message) Report {
	report := Report{Failed: make(map[int64]error)}
	seen := make(map[int64]bool, len(recipients))

	for _, r := range recipients {
		if seen[r] {
			continue
		}
		seen[r] = true

		start := time.Now()
		_, err := m.Send(ctx, r, msg)
		if rec != nil {
			rec.RecordDelivery(kind, err == nil, time.Since(start))
		}
		if err != nil {
			log.Warn().
				Err(err).
				Int64("user_id", r).
				Str("kind", kind).
				Msg("delivery failed")
			report.Failed[r] = err
			continue
		}
		report.Sent = append(report.Sent, r)
	}
	return report
}
