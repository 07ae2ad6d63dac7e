package messenger

import (
	"context"
	"fmt"
	"sync"
)

// Recorder is an in-memory Messenger that keeps everything it is asked to
// deliver. Recipients listed in Fail are rejected.
type Recorder struct {
	mu     sync.Mutex
	nextID int
	sent   []Delivery
	Fail   map[int64]bool
}

// Delivery is one recorded call.
type Delivery struct {
	Op        string
	Recipient int64
	Message   Message
	Ref       Ref
}

var _ Messenger = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{Fail: make(map[int64]bool)}
}

func (r *Recorder) record(op string, recipient int64, msg Message) (Ref, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Fail[recipient] {
		return Ref{}, fmt.Errorf("recipient %d unreachable", recipient)
	}
	r.nextID++
	ref := Ref{ChatID: recipient, MessageID: r.nextID}
	r.sent = append(r.sent, Delivery{Op: op, Recipient: recipient, Message: msg, Ref: ref})
	return ref, nil
}

func (r *Recorder) Send(ctx context.Context, recipient int64, msg Message) (Ref, error) {
	return r.record("send", recipient, msg)
}

func (r *Recorder) EditLast(ctx context.Context, recipient int64, msg Message) error {
	_, err := r.record("edit", recipient, msg)
	return err
}

func (r *Recorder) Delete(ctx context.Context, recipient int64, ref Ref) error {
	_, err := r.record("delete", recipient, Message{})
	return err
}

// For returns every delivery made to recipient.
func (r *Recorder) For(recipient int64) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Delivery
	for _, d := range r.sent {
		if d.Recipient == recipient {
			out = append(out, d)
		}
	}
	return out
}

// Texts returns the text of every message sent or edited for recipient.
func (r *Recorder) Texts(recipient int64) []string {
	var out []string
	for _, d := range r.For(recipient) {
		if d.Op != "delete" {
			out = append(out, d.Message.Text)
		}
	}
	return out
}

// Reset forgets every recorded delivery.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
