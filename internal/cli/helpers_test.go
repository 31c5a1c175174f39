package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spanrule/internal/rule"
)

const personsScript = `// Capitalized words become persons, once each.
DECLARE Person;
STRINGLIST names;

CW{-PARTOF(Person) -> MARK(Person), ADD(names, "p")};
`

const personsText = "Peter and Mary left."

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// makeTestInputs writes the persons script and text document to a temp dir.
func makeTestInputs(t *testing.T) (dir, scriptPath, docPath string) {
	t.Helper()
	dir = t.TempDir()
	scriptPath = writeFile(t, dir, "persons.ruta", personsScript)
	docPath = writeFile(t, dir, "doc.txt", personsText)
	return dir, scriptPath, docPath
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// runToStore runs the persons script into dbPath with run ID "run-1".
func runToStore(t *testing.T, scriptPath, docPath, dbPath string) {
	t.Helper()
	cmd := newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		RunIDs:      rule.NewSequenceGenerator("run"),
	})
	_, err := execute(t, cmd, "--db", dbPath, scriptPath, docPath)
	require.NoError(t, err)
}

// decodeResponse parses a JSON CLIResponse, decoding its data into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}
