package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	out, err := run(t, &RootOptions{Format: "text", Verbose: true}, NewValidateCommand, "${a}/${b}")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Template is valid")
	assert.Contains(t, out, "references: a, b")
}

func TestValidate_Invalid(t *testing.T) {
	out, err := run(t, &RootOptions{Format: "json"}, NewValidateCommand, "${} ${a")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	assert.Len(t, resp.Data.Errors, 2)
}

func TestRefs(t *testing.T) {
	out, err := run(t, &RootOptions{Format: "text"}, NewRefsCommand, "${b}-${a}-${b}-${uuid()}")
	require.NoError(t, err)
	assert.Equal(t, "b\na\n", out)

	out, err = run(t, &RootOptions{Format: "text"}, NewRefsCommand, "plain")
	require.NoError(t, err)
	assert.Equal(t, "(no references)\n", out)

	_, err = run(t, &RootOptions{Format: "text"}, NewRefsCommand, "${")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestLint_Clean(t *testing.T) {
	vars := writeVars(t, sampleVars)
	out, err := run(t, &RootOptions{Format: "text"}, NewLintCommand, "--vars", vars, "--profile", "prod")
	require.NoError(t, err)
	assert.Contains(t, out, "no problems")
	assert.NotContains(t, out, "SHADOWED")
}

func TestLint_ReportsCycleAndUndefined(t *testing.T) {
	vars := writeVars(t, `
global:
  - {name: a, value: "${b}"}
  - {name: b, value: "${a}"}
  - {name: c, value: "${nope}"}
`)
	out, err := run(t, &RootOptions{Format: "text"}, NewLintCommand, "--vars", vars)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "CIRCULAR_DEPENDENCY")
	assert.Contains(t, out, "UNDEFINED_VARIABLE")
}

func TestVars_SetListDelete(t *testing.T) {
	db := filepath.Join(t.TempDir(), "test.db")
	opts := &RootOptions{Format: "text"}

	_, err := run(t, opts, NewVarsCommand, "set", "token", "s3cret", "--scope", "profile", "--owner", "prod", "--secret", "--db", db)
	require.NoError(t, err)

	out, err := run(t, opts, NewVarsCommand, "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "token")
	assert.NotContains(t, out, "s3cret")

	_, err = run(t, opts, NewVarsCommand, "delete", "token", "--scope", "profile", "--owner", "prod", "--db", db)
	require.NoError(t, err)

	_, err = run(t, opts, NewVarsCommand, "delete", "token", "--scope", "profile", "--owner", "prod", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestVars_SetInvalid(t *testing.T) {
	db := filepath.Join(t.TempDir(), "test.db")
	opts := &RootOptions{Format: "text"}

	_, err := run(t, opts, NewVarsCommand, "set", "x", "1", "--scope", "team", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err := run(t, opts, NewVarsCommand, "set", "x", "1", "--scope", "rule", "--db", db)
	require.Error(t, err)
	assert.Contains(t, out, "requires owner id")
}

func TestVars_ImportCUE(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "test.db")
	file := filepath.Join(dir, "vars.cue")
	require.NoError(t, os.WriteFile(file, []byte(`
profile_id: "prod"
global: host: "api.example.com"
profile: host: "prod.example.com"
`), 0o644))

	opts := &RootOptions{Format: "text"}
	out, err := run(t, opts, NewVarsCommand, "import", file, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 variable(s)")

	out, err = run(t, opts, NewResolveCommand, "${host}", "--db", db, "--profile", "prod")
	require.NoError(t, err)
	assert.Equal(t, "prod.example.com\n", out)
}

func TestTrace_ListAndMissing(t *testing.T) {
	db := filepath.Join(t.TempDir(), "test.db")
	opts := &RootOptions{Format: "text"}

	out, err := run(t, opts, NewTraceCommand, "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "(no traces)")

	_, err = run(t, opts, NewResolveCommand, "static", "--db", db, "--save-trace")
	require.NoError(t, err)

	out, err = run(t, opts, NewTraceCommand, "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, `"static"`)

	_, err = run(t, opts, NewTraceCommand, "show", "missing", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, err = run(t, opts, NewTraceCommand, "prune", "--older-than", "1h", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "pruned 0 trace(s)")
}

func TestTrace_NonExistentDatabaseDir(t *testing.T) {
	_, err := run(t, &RootOptions{Format: "text"}, NewTraceCommand, "list", "--db", "/nonexistent/path/test.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
