package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/spanrule/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// It serializes through canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	RunID        string
	Trace        []TraceEvent
	Spans        []SpanEvent
}

// Object converts a TraceSnapshot to its canonical object form.
func (s *TraceSnapshot) Object() ir.Object {
	trace := make([]ir.Value, len(s.Trace))
	for i, event := range s.Trace {
		obj := ir.Object{
			"seq":     ir.Int(event.Seq),
			"rule":    ir.Int(int64(event.Rule)),
			"id":      ir.String(event.ID),
			"matched": ir.Bool(event.Matched),
		}
		if event.HasSpan {
			obj["begin"] = ir.Int(int64(event.Begin))
			obj["end"] = ir.Int(int64(event.End))
			obj["text"] = ir.String(event.Text)
		}
		trace[i] = obj
	}

	spans := make([]ir.Value, len(s.Spans))
	for i, sp := range s.Spans {
		spans[i] = ir.Object{
			"type":    ir.TypeRef(sp.Type),
			"begin":   ir.Int(int64(sp.Begin)),
			"end":     ir.Int(int64(sp.End)),
			"text":    ir.String(sp.Text),
			"removed": ir.Bool(sp.Removed),
		}
	}

	return ir.Object{
		"scenario_name": ir.String(s.ScenarioName),
		"run_id":        ir.String(s.RunID),
		"trace":         ir.List{Elem: ir.KindObject, Items: trace},
		"spans":         ir.List{Elem: ir.KindObject, Items: spans},
	}
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := GoldenBytes(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}

// GoldenBytes returns the canonical JSON snapshot of a result.
func GoldenBytes(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		RunID:        result.RunID,
		Trace:        result.Trace,
		Spans:        result.Spans,
	}
	return ir.MarshalCanonical(snapshot.Object())
}
