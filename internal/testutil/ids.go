package testutil

// FixedIDGenerator returns the same ID every time.
//
// Runs named by a FixedIDGenerator get identical match IDs ("<id>-1",
// "<id>-2", ...) on every execution, so traces compare byte for byte against
// golden files.
//
// Implements rule.IDGenerator.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a fixed ID generator.
//
// The ID is typically set in the scenario YAML:
//
//	run_id: "test-run-persons"
//
// If id is empty, Generate() returns "test-run-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
