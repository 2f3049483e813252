package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// testEnv is an isolated config and data directory pair.
type testEnv struct {
	t         *testing.T
	ConfigDir string
	DataDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		t:         t,
		ConfigDir: filepath.Join(dir, "config"),
		DataDir:   filepath.Join(dir, "data"),
	}
	require.NoError(t, os.MkdirAll(env.ConfigDir, 0o755))
	env.writeConfig("log_level: error\n")
	return env
}

func (e *testEnv) writeConfig(content string) {
	e.t.Helper()
	require.NoError(e.t, os.WriteFile(filepath.Join(e.ConfigDir, configFileExt), []byte(content), 0o644))
}

// cmdResult holds the outcome of one command.
type cmdResult struct {
	Stdout   string
	Stderr   string
	Err      error
	ExitCode int
}

func (e *testEnv) run(args ...string) cmdResult {
	e.t.Helper()
	return e.runRoot(NewRootCmd(), args...)
}

func (e *testEnv) runRoot(root *cobra.Command, args ...string) cmdResult {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config-dir", e.ConfigDir, "--data-dir", e.DataDir}, args...))

	err := root.ExecuteContext(context.Background())
	code := exitSuccess
	if err != nil {
		code = exitCode(err)
	}
	return cmdResult{Stdout: stdout.String(), Stderr: stderr.String(), Err: err, ExitCode: code}
}

func (e *testEnv) mustRun(args ...string) cmdResult {
	e.t.Helper()
	res := e.run(args...)
	require.NoError(e.t, res.Err, "shelf %v\nstdout: %s\nstderr: %s", args, res.Stdout, res.Stderr)
	return res
}

func parseJSON[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), "output: %s", s)
	return v
}
