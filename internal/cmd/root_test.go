package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_UnknownCommandSuggests(t *testing.T) {
	var err error
	stderr := captureStderr(t, func() {
		err = Execute(context.Background(), []string{"gett", "/x"})
	})
	require.Error(t, err)
	assert.Equal(t, exitUsage, ExitCode(err))
	assert.Contains(t, stderr, `Did you mean "get"?`)
}

func TestExecute_UnknownFlagSuggests(t *testing.T) {
	var err error
	stderr := captureStderr(t, func() {
		err = Execute(context.Background(), []string{"get", "/x", "--tiemout", "1s"})
	})
	require.Error(t, err)
	assert.Contains(t, stderr, `Did you mean "--timeout"?`)
	assert.Contains(t, stderr, `Run "restclient get --help"`)
}

func TestExecute_OutputFlagConflicts(t *testing.T) {
	_, _, err := runCmd(t, "", "url", "join", "a", "b", "--json", "--output", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--json conflicts")

	_, _, err = runCmd(t, "", "url", "join", "a", "b", "--jq", ".url", "-o", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "require --output json")

	_, _, err = runCmd(t, "", "url", "join", "a", "b", "-o", "yaml")
	require.Error(t, err)

	_, _, err = runCmd(t, "", "url", "join", "a", "b", "--timeout", "-1s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--timeout must be >= 0")
}

func TestExecute_OutputFromEnv(t *testing.T) {
	t.Setenv("RESTCLIENT_OUTPUT", "json")

	stdout, _, err := runCmd(t, "", "url", "join", "https://a.test", "b")
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"https://a.test/b"}`, stdout)
}

func TestExecute_Template(t *testing.T) {
	stdout, _, err := runCmd(t, "", "url", "join", "https://a.test", "b", "--template", "{{.url}}")
	require.NoError(t, err)
	assert.Equal(t, "https://a.test/b", strings.TrimSpace(stdout))

	path := filepath.Join(t.TempDir(), "tpl")
	require.NoError(t, os.WriteFile(path, []byte("joined={{.url}}"), 0o600))
	stdout, _, err = runCmd(t, "", "url", "join", "https://a.test", "c", "--tpl", "@"+path)
	require.NoError(t, err)
	assert.Equal(t, "joined=https://a.test/c", strings.TrimSpace(stdout))
}

func TestExecute_CompactJSON(t *testing.T) {
	stdout, _, err := runCmd(t, "", "status", "reason", "404", "--json", "--cj")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(stdout), "\n")+1)
}

func TestVersion(t *testing.T) {
	stdout, _, err := runCmd(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "restclient version dev\n", stdout)
}

func TestEnhanceUnknownError_PassesOtherErrors(t *testing.T) {
	root := &cobra.Command{Use: "restclient"}
	assert.Equal(t, "boom", enhanceUnknownError(errors.New("boom"), root, root))
}

func TestExtractFlag(t *testing.T) {
	assert.Equal(t, "--tiemout", extractFlag("unknown flag: --tiemout"))
	assert.Equal(t, "-z", extractFlag("unknown shorthand flag: 'z' in -z"))
	assert.Equal(t, "", extractFlag("nothing here"))
	assert.Equal(t, "gett", extractQuoted(`unknown command "gett" for "restclient"`))
}

func TestDefaultOutput(t *testing.T) {
	t.Setenv("RESTCLIENT_OUTPUT", " jsonl ")
	assert.Equal(t, "jsonl", defaultOutput())

	t.Setenv("RESTCLIENT_TIMEOUT", "soon")
	assert.Equal(t, "text", defaultOutput())
}

func TestInsecureShorthand(t *testing.T) {
	_, _, err := runCmd(t, "", "url", "join", "https://a.test", "b", "-k")
	require.NoError(t, err)
	assert.True(t, flags.Insecure)

	_, _, err = runCmd(t, "", "url", "join", "https://a.test", "b", "--k")
	require.Error(t, err)
}
