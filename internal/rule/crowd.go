package rule

import (
	"fmt"
	"log/slog"
	"sync"
)

// Crowd observes condition and action evaluation. It is a tracing hook,
// never a control dependency.
type Crowd interface {
	BeginVisit(item fmt.Stringer, rm *RuleMatch)
	EndVisit(item fmt.Stringer, rm *RuleMatch)
}

// NopCrowd ignores every visit.
type NopCrowd struct{}

func (NopCrowd) BeginVisit(fmt.Stringer, *RuleMatch) {}
func (NopCrowd) EndVisit(fmt.Stringer, *RuleMatch)   {}

// LogCrowd logs visits at Debug level.
type LogCrowd struct {
	Logger *slog.Logger
}

func (c LogCrowd) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c LogCrowd) BeginVisit(item fmt.Stringer, rm *RuleMatch) {
	c.logger().Debug("visit begin", "item", item.String(), "match", matchID(rm))
}

func (c LogCrowd) EndVisit(item fmt.Stringer, rm *RuleMatch) {
	c.logger().Debug("visit end", "item", item.String(), "match", matchID(rm))
}

// RecordingCrowd keeps every visit in order. Safe for concurrent use.
type RecordingCrowd struct {
	mu     sync.Mutex
	events []string
}

func (c *RecordingCrowd) BeginVisit(item fmt.Stringer, rm *RuleMatch) {
	c.record("begin " + item.String())
}

func (c *RecordingCrowd) EndVisit(item fmt.Stringer, rm *RuleMatch) {
	c.record("end " + item.String())
}

func (c *RecordingCrowd) record(e string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Events returns a copy of the recorded visits.
func (c *RecordingCrowd) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func matchID(rm *RuleMatch) string {
	if rm == nil {
		return ""
	}
	return rm.ID()
}
