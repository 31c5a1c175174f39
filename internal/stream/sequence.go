package stream

import "sync/atomic"

// Sequencer issues span IDs. Implementations must return strictly
// increasing values.
type Sequencer interface {
	Next() int64
}

// Counter is the default Sequencer. Spans get IDs in creation order, so the
// same rules over the same input produce the same IDs.
type Counter struct {
	last atomic.Int64
}

// NewCounter returns a Counter whose first ID is after+1.
func NewCounter(after int64) *Counter {
	c := &Counter{}
	c.last.Store(after)
	return c
}

func (c *Counter) Next() int64 { return c.last.Add(1) }
