package harness

import "github.com/roach88/spanrule/internal/ir"

// TraceEvent is one finished rule match.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Rule    int    `json:"rule"`
	ID      string `json:"id"`
	Matched bool   `json:"matched"`
	Begin   int    `json:"begin"`
	End     int    `json:"end"`
	Text    string `json:"text"`
	HasSpan bool   `json:"-"`
}

// SpanEvent is a span a run created or removed.
type SpanEvent struct {
	Type    string `json:"type"`
	Begin   int    `json:"begin"`
	End     int    `json:"end"`
	Text    string `json:"text"`
	Removed bool   `json:"removed"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// RunID names the engine run.
	RunID string `json:"run_id"`

	// Trace contains every finished match in order.
	Trace []TraceEvent `json:"trace"`

	// Spans lists created spans, then removed spans.
	Spans []SpanEvent `json:"spans"`

	// Errors contains assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Variables holds the final values of the script's variables.
	Variables ir.Object `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Spans:     []SpanEvent{},
		Errors:    []string{},
		Variables: ir.Object{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddMatchTrace appends a match to the trace.
func (r *Result) AddMatchTrace(rec ir.MatchRecord, text string) {
	ev := TraceEvent{Seq: rec.Seq, Rule: rec.Rule, ID: rec.ID, Matched: rec.Matched}
	if rec.Cover != nil {
		ev.Begin, ev.End, ev.Text, ev.HasSpan = rec.Cover.Begin, rec.Cover.End, text, true
	}
	r.Trace = append(r.Trace, ev)
}

// AddSpanTrace appends a created or removed span.
func (r *Result) AddSpanTrace(s ir.Span, text string, removed bool) {
	r.Spans = append(r.Spans, SpanEvent{Type: s.Type, Begin: s.Begin, End: s.End, Text: text, Removed: removed})
}
