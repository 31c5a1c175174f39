package ir

// Version constants for stored results.
const (
	// IRVersion is the match-tree schema version.
	IRVersion = "1"

	// EngineVersion is the spanrule engine version.
	EngineVersion = "0.1.0"
)
