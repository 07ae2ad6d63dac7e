package messenger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingRecorder struct {
	mu       sync.Mutex
	ok, fail int
}

func (c *countingRecorder) RecordDelivery(kind string, success bool, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if success {
		c.ok++
	} else {
		c.fail++
	}
}

func TestFanoutContinuesPastFailures(t *testing.T) {
	m := NewRecorder()
	m.Fail[2] = true
	rec := &countingRecorder{}

	report := Fanout(context.Background(), m, rec, "draw", []int64{1, 2, 3, 1}, Message{Text: "42"})

	assert.Equal(t, []int64{1, 3}, report.Sent)
	assert.Contains(t, report.Failed, int64(2))
	assert.Equal(t, 2, rec.ok)
	assert.Equal(t, 1, rec.fail)
	assert.Equal(t, []string{"42"}, m.Texts(1))
	assert.Empty(t, m.Texts(2))
	assert.Equal(t, []string{"42"}, m.Texts(3))
}

func TestFanoutWithoutRecorder(t *testing.T) {
	m := NewRecorder()
	report := Fanout(context.Background(), m, nil, "notice", []int64{5}, Message{Text: "hi"})
	assert.Equal(t, []int64{5}, report.Sent)
	assert.Empty(t, report.Failed)
}
