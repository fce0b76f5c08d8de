package ingest

import (
	"sync"

	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

// Queue buffers raw input between cycles. HTTP intake and the inbox watcher
// append; the cycle drains. Drains are atomic so a cycle sees a consistent
// batch.
type Queue struct {
	mu          sync.Mutex
	messages    []types.RawMessage
	submissions [][]byte
	quarantined int
}

func NewQueue() *Queue { return &Queue{} }

func (q *Queue) AddMessages(msgs []types.RawMessage) {
	if len(msgs) == 0 {
		return
	}
	q.mu.Lock()
	q.messages = append(q.messages, msgs...)
	q.mu.Unlock()
}

func (q *Queue) AddSubmission(raw []byte) {
	if len(raw) == 0 {
		return
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	q.mu.Lock()
	q.submissions = append(q.submissions, cp)
	q.mu.Unlock()
}

// CountQuarantined accumulates malformed-input counts reported by intake.
func (q *Queue) CountQuarantined(n int) {
	if n <= 0 {
		return
	}
	q.mu.Lock()
	q.quarantined += n
	q.mu.Unlock()
}

// Drain returns everything queued so far and resets the buffers.
func (q *Queue) Drain() (msgs []types.RawMessage, subs [][]byte, quarantined int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	msgs, q.messages = q.messages, nil
	subs, q.submissions = q.submissions, nil
	quarantined, q.quarantined = q.quarantined, 0
	return msgs, subs, quarantined
}

// Pending reports queue depth without draining.
func (q *Queue) Pending() (messages, submissions int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages), len(q.submissions)
}
