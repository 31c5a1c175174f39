package testutil

import "sync"

// SpanIDs is a stream.Sequencer for tests. IDs start at a chosen value so
// that a document seeded twice, or a fixture mixing hand-written and seeded
// spans, gets predictable IDs.
type SpanIDs struct {
	mu     sync.Mutex
	start  int64
	issued int64
}

// NewSpanIDs returns a sequencer whose first ID is start. Values below 1
// start at 1.
func NewSpanIDs(start int64) *SpanIDs {
	return &SpanIDs{start: max(start, 1)}
}

// Next returns the next span ID.
func (g *SpanIDs) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.start + g.issued
	g.issued++
	return id
}

// Issued reports how many IDs have been handed out.
func (g *SpanIDs) Issued() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.issued
}
