package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/store"
)

func makeTraceDB(t *testing.T) string {
	t.Helper()
	dir, scriptPath, docPath := makeTestInputs(t)
	dbPath := filepath.Join(dir, "spanrule.db")
	runToStore(t, scriptPath, docPath, dbPath)
	return dbPath
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--run", "run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceNonExistentDatabase(t *testing.T) {
	_, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", "/nonexistent/path/test.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestTraceListRuns(t *testing.T) {
	dbPath := makeTraceDB(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "script=persons")

	out, err = execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)
	var runs []ir.Run
	decodeResponse(t, out, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, ir.EngineVersion, runs[0].EngineVersion)
}

func TestTraceEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "No runs found.\n", out)
}

func TestTraceRun(t *testing.T) {
	dbPath := makeTraceDB(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--run", "run-1")
	require.NoError(t, err)

	var result TraceResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", result.Run.ID)
	assert.Equal(t, TraceStats{Matches: 2, Matched: 2, Created: 2}, result.Stats)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, "run-1-1", result.Matches[0].ID)
	assert.Equal(t, 0, *result.Matches[0].Begin)
	assert.Empty(t, result.Matches[0].Text, "stored runs carry no document text")
	require.Len(t, result.Spans, 2)
	assert.Equal(t, "Person", result.Spans[0].Span.Type)

	text, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--run", "run-1")
	require.NoError(t, err)
	assert.Contains(t, text, "Run run-1 (seq 1) script=persons")
	assert.Contains(t, text, "[1] rule 0 matched [0,5)")
	assert.Contains(t, text, "created Person[0,5)")
	assert.Contains(t, text, "Stats: 2 matches (2 matched, 0 failed), 2 created, 0 removed")
}

func TestTraceUnknownRun(t *testing.T) {
	dbPath := makeTraceDB(t)

	_, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: nope")
}

func TestTraceByHash(t *testing.T) {
	dbPath := makeTraceDB(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--run", "run-1")
	require.NoError(t, err)
	var result TraceResult
	decodeResponse(t, out, &result)
	hash := result.Matches[1].Hash

	out, err = execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--hash", hash)
	require.NoError(t, err)
	var matches []MatchOutput
	decodeResponse(t, out, &matches)
	require.Len(t, matches, 1)
	assert.Equal(t, "run-1-2", matches[0].ID)

	_, err = execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--run", "run-1", "--hash", hash)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "abc", shortHash("abc"))
	assert.Equal(t, "0123456789ab", shortHash("0123456789abcdef"))
}
