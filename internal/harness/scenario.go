package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/spanrule/internal/config"
	"github.com/roach88/spanrule/internal/stream"
)

// Scenario defines a conformance test scenario: a script applied to one
// document, and the assertions its outcome must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Script is the path of the rule script.
	Script string `yaml:"script,omitempty"`

	// Source is an inline rule script, used when Script is empty.
	Source string `yaml:"source,omitempty"`

	// Types is an optional CUE descriptor (file or package directory)
	// declared before the script.
	Types string `yaml:"types,omitempty"`

	// Document is the input document.
	Document DocumentSpec `yaml:"document"`

	// Engine overrides the default engine settings.
	Engine *EngineSettings `yaml:"engine,omitempty"`

	// Assertions validate the outcome.
	Assertions []Assertion `yaml:"assertions"`

	// ExpectError, when set, requires the run to fail with an error
	// containing this text. Assertions are not evaluated then.
	ExpectError string `yaml:"expect_error,omitempty"`

	// RunID is an optional fixed run ID for deterministic tests.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// DocumentSpec is either a document file or an inline document.
type DocumentSpec struct {
	// File is the path of a YAML or JSON document file, or a plain text
	// file (seeded).
	File string `yaml:"file,omitempty"`

	stream.DocumentFile `yaml:",inline"`
}

// EngineSettings are per-scenario engine overrides. Unset fields keep the
// defaults.
type EngineSettings struct {
	SimpleGreedy   *bool    `yaml:"simple_greedy,omitempty"`
	CheapestAnchor *bool    `yaml:"cheapest_anchor,omitempty"`
	FilteredTypes  []string `yaml:"filtered_types,omitempty"`
	MaxSteps       *int     `yaml:"max_steps,omitempty"`
}

// Config returns the default configuration with the overrides applied.
func (e *EngineSettings) Config() *config.Config {
	cfg := config.Default()
	if e == nil {
		return cfg
	}
	if e.SimpleGreedy != nil {
		cfg.Engine.SimpleGreedy = *e.SimpleGreedy
	}
	if e.CheapestAnchor != nil {
		cfg.Engine.CheapestAnchor = *e.CheapestAnchor
	}
	if e.FilteredTypes != nil {
		cfg.Engine.FilteredTypes = e.FilteredTypes
	}
	if e.MaxSteps != nil {
		cfg.Engine.MaxSteps = *e.MaxSteps
	}
	return cfg
}

// Assertion validates spans, matches, variables, or stored rows.
type Assertion struct {
	// Type specifies the assertion type:
	// - "spans": covered texts of SpanType, in document order
	// - "span_count": number of spans of SpanType
	// - "match_count": number of finished matches
	// - "variable": final value of variable Name
	// - "stored_count": rows of Table matching Where
	Type string `yaml:"type"`

	// SpanType is the span type (spans, span_count).
	SpanType string `yaml:"span_type,omitempty"`

	// Texts are the expected covered texts (spans).
	Texts []string `yaml:"texts,omitempty"`

	// Count is the expected number (span_count, match_count, stored_count).
	Count int `yaml:"count,omitempty"`

	// Rule restricts match_count to one rule index.
	Rule *int `yaml:"rule,omitempty"`

	// Matched restricts match_count to matched (true) or failed (false)
	// matches.
	Matched *bool `yaml:"matched,omitempty"`

	// Name is the variable name (variable).
	Name string `yaml:"name,omitempty"`

	// Value is the expected variable value (variable). Lists compare item
	// by item.
	Value any `yaml:"value,omitempty"`

	// Table is the store table (stored_count).
	Table string `yaml:"table,omitempty"`

	// Where specifies column filters (stored_count).
	// All fields must match exactly.
	Where map[string]any `yaml:"where,omitempty"`
}

// Assertion type constants.
const (
	AssertSpans       = "spans"
	AssertSpanCount   = "span_count"
	AssertMatchCount  = "match_count"
	AssertVariable    = "variable"
	AssertStoredCount = "stored_count"
)

// LoadScenario reads and parses a scenario YAML file. Relative paths in the
// scenario resolve against the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving relative paths against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve paths BEFORE validation
	scenario.Script = resolve(basePath, scenario.Script)
	scenario.Types = resolve(basePath, scenario.Types)
	scenario.Document.File = resolve(basePath, scenario.Document.File)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Script == "" && s.Source == "":
		return fmt.Errorf("script or source is required")
	case s.Script != "" && s.Source != "":
		return fmt.Errorf("script and source are mutually exclusive")
	}

	if s.Document.File != "" && (s.Document.Text != "" || len(s.Document.Spans) > 0) {
		return fmt.Errorf("document: file and inline text are mutually exclusive")
	}
	if s.Document.File == "" && s.Document.Text == "" {
		return fmt.Errorf("document: file or text is required")
	}

	if s.ExpectError == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, p := range []string{s.Script, s.Types, s.Document.File} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", p)
		}
	}

	if s.Engine != nil && s.Engine.MaxSteps != nil && *s.Engine.MaxSteps < 0 {
		return fmt.Errorf("engine.max_steps must not be negative")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSpans, AssertSpanCount:
		if a.SpanType == "" {
			return fmt.Errorf("assertions[%d]: span_type is required for %s", index, a.Type)
		}
	case AssertMatchCount:
	case AssertVariable:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for variable", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for variable", index)
		}
	case AssertStoredCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for stored_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
