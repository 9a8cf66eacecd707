package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func writeVars(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vars.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// run executes a subcommand built by newCmd and returns stdout.
func run(t *testing.T, rootOpts *RootOptions, newCmd func(*RootOptions) *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newCmd(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

const sampleVars = `
profile_id: prod
global:
  - name: host
    value: api.example.com
  - name: token
    value: s3cret
    is_secret: true
profile:
  - name: host
    value: prod.example.com
  - name: url
    value: https://${host}/v1
`
