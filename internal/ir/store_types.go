package ir

// NOTE: These are store-layer records, not part of the match tree. Ordering
// uses Seq (logical clock), never timestamps.

// Run is one application of a script to a document.
type Run struct {
	ID            string `json:"id"`
	Seq           int64  `json:"seq"`
	ScriptName    string `json:"script_name"`
	ScriptHash    string `json:"script_hash"`
	DocumentHash  string `json:"document_hash"`
	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`
}

// MatchRecord is a stored rule match. Tree is the canonical JSON of the
// match tree and TreeHash its fingerprint.
type MatchRecord struct {
	ID       string `json:"id"`
	RunID    string `json:"run_id"`
	Rule     int    `json:"rule"`
	Seq      int64  `json:"seq"` // Order the match finished within the run
	Matched  bool   `json:"matched"`
	Cover    *Span  `json:"cover,omitempty"`
	Tree     string `json:"tree"`
	TreeHash string `json:"tree_hash"`
}

// SpanRecord is a span a run created or removed.
type SpanRecord struct {
	RunID   string `json:"run_id"`
	Span    Span   `json:"span"`
	Removed bool   `json:"removed"`
}
