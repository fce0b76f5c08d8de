package ingest

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/liorsolomon/ai-options-trading-bot/internal/aggregate"
	"github.com/liorsolomon/ai-options-trading-bot/internal/extract"
	"github.com/liorsolomon/ai-options-trading-bot/internal/score"
	"github.com/liorsolomon/ai-options-trading-bot/internal/types"
)

// Stats summarizes one adapter's contribution to a cycle.
type Stats struct {
	Items       int
	Quarantined int
}

// Source is one ordered signal adapter. Adapters are consulted in
// registration order by the decision engine's merge; earlier sources win
// when two sources assert the same symbol+action.
type Source interface {
	Name() string
	Collect(ctx context.Context) ([]types.ScoredSignal, Stats, error)
}

// SubmissionSource drains queued JSON submissions.
type SubmissionSource struct {
	nowFn func() time.Time

	mu      sync.Mutex
	pending [][]byte
}

func NewSubmissionSource() *SubmissionSource {
	return &SubmissionSource{nowFn: time.Now}
}

func (s *SubmissionSource) Name() string { return "submission" }

// feed hands this source its share of a queue drain. The app drains the
// queue once per cycle and feeds both adapters, keeping the drain atomic.
func (s *SubmissionSource) feed(subs [][]byte) {
	s.mu.Lock()
	s.pending = append(s.pending, subs...)
	s.mu.Unlock()
}

func (s *SubmissionSource) Collect(ctx context.Context) ([]types.ScoredSignal, Stats, error) {
	s.mu.Lock()
	subs := s.pending
	s.pending = nil
	s.mu.Unlock()

	var (
		out   []types.ScoredSignal
		stats Stats
	)
	now := s.nowFn().UTC()
	for _, raw := range subs {
		signals, skipped, err := ParseSubmission(raw, now)
		stats.Quarantined += skipped
		if err != nil {
			// One bad document never aborts the batch.
			stats.Quarantined++
			continue
		}
		out = append(out, signals...)
		stats.Items += len(signals)
	}
	return out, stats, nil
}

// ChatSource drains queued raw messages and runs them through
// extraction, aggregation and scoring. Extraction over independent
// messages is parallel; each message produces immutable output.
type ChatSource struct {
	extractor *extract.Extractor
	window    time.Duration

	mu      sync.Mutex
	pending []types.RawMessage
}

func NewChatSource(extractor *extract.Extractor, window time.Duration) *ChatSource {
	return &ChatSource{extractor: extractor, window: window}
}

func (s *ChatSource) Name() string { return "chat" }

// SetExtractor swaps the extractor, used when the vocabulary reloads.
func (s *ChatSource) SetExtractor(extractor *extract.Extractor) {
	s.mu.Lock()
	s.extractor = extractor
	s.mu.Unlock()
}

func (s *ChatSource) feed(msgs []types.RawMessage) {
	s.mu.Lock()
	s.pending = append(s.pending, msgs...)
	s.mu.Unlock()
}

func (s *ChatSource) Collect(ctx context.Context) ([]types.ScoredSignal, Stats, error) {
	s.mu.Lock()
	msgs := s.pending
	s.pending = nil
	extractor := s.extractor
	s.mu.Unlock()
	if len(msgs) == 0 {
		return nil, Stats{}, nil
	}

	results := make([][]types.CandidateSignal, len(msgs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, msg := range msgs {
		i, msg := i, msg
		g.Go(func() error {
			results[i] = extractor.Extract(msg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	var candidates []types.CandidateSignal
	for _, r := range results {
		candidates = append(candidates, r...)
	}
	scored := score.All(aggregate.Aggregate(candidates, s.window))
	return scored, Stats{Items: len(scored)}, nil
}

// FeedDrain distributes one queue drain across the chat and submission
// adapters and returns the quarantine count accumulated at intake.
func FeedDrain(q *Queue, chat *ChatSource, sub *SubmissionSource) int {
	msgs, subs, quarantined := q.Drain()
	if chat != nil {
		chat.feed(msgs)
	}
	if sub != nil {
		sub.feed(subs)
	}
	return quarantined
}
