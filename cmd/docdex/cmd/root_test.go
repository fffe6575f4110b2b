package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv is an isolated config file, documents folder, and database.
type testEnv struct {
	dir        string
	docs       string
	configPath string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))

	configPath := filepath.Join(dir, "docdex.yaml")
	content := fmt.Sprintf(`
documents_folder: %s
database_path: %s
logging:
  level: warn
  file_path: %s
`, docs, filepath.Join(dir, "docdex.db"), filepath.Join(dir, "logs", "docdex.log"))
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	return testEnv{dir: dir, docs: docs, configPath: configPath}
}

func (e testEnv) writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.docs, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// runCLI executes the root command offline against the test environment
// and returns captured output.
func runCLI(t *testing.T, env testEnv, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--config", env.configPath, "--offline"}, args...))

	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func decodeJSON(t *testing.T, out string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(out), v), "output: %s", out)
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{"index", "search", "concept", "list", "status", "clean", "watch", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestRootCmd_VersionFlag(t *testing.T) {
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "docdex version")
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	env := newTestEnv(t)
	_, err := runCLI(t, env, "frobnicate")
	assert.Error(t, err)
}
