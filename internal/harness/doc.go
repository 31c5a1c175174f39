// Package harness provides conformance testing for spanrule scripts.
//
// The harness compiles a rule script, builds a document, applies the script
// through the engine with deterministic IDs, and checks assertions against
// the resulting spans, matches, variables, and stored run.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: persons
//	description: "Capitalized words become persons"
//	script: ../scripts/persons.ruta     # or an inline source: block
//	types: ../types/entities.cue        # optional CUE descriptor
//	document:
//	  text: "Peter and Mary left."
//	  seed: true                        # or file: ../documents/x.yaml
//	engine:
//	  simple_greedy: true               # optional overrides
//	assertions:
//	  - type: spans
//	    span_type: Person
//	    texts: [Peter, Mary]
//	  - type: match_count
//	    matched: true
//	    count: 2
//	  - type: variable
//	    name: names
//	    value: [p, p]
//	  - type: stored_count
//	    table: spans
//	    where: { removed: 0 }
//	    count: 2
//
// Paths are relative to the scenario file.
//
// # Assertion Types
//
//   - spans: the covered texts of every span of a type (or its subtypes), in document order
//   - span_count: the number of spans of a type
//   - match_count: the number of finished matches, optionally of one rule and matched state
//   - variable: the final value of a script variable
//   - stored_count: the number of rows of a store table matching where
//
// # Deterministic Testing
//
// Span IDs come from testutil.SpanIDs (starting at 1) and run IDs from
// testutil.FixedIDGenerator (run_id, or "test-run-default"). Match IDs are
// derived from the run ID, so traces compare byte for byte against golden
// files. Each scenario runs against a fresh in-memory SQLite store.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/persons.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
