package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lspl-lang/lspl/pkgs/ast"
	lerrors "github.com/lspl-lang/lspl/pkgs/errors"
)

func agreement(lines ...string) string {
	return "BEGIN_LICENSE_AGREEMENT\n" + strings.Join(lines, "\n") + "\nEND_LICENSE_AGREEMENT\n"
}

// execute runs the root command and returns stdout, stderr and the error
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	rootCmd := newRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRunFromStdin(t *testing.T) {
	stdout, _, err := execute(t, agreement("a = 2", "b = 3", `DELIVER VERDICT "Total: (a+b)"`),
		"run", "-", "--dir", t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "\"Total: 5.0\"\n", stdout)
}

func TestRunDefaultEntry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "LICENSE.lspl", agreement("DELIVER VERDICT guilty"))

	stdout, _, err := execute(t, "", "run", "--dir", dir)

	require.NoError(t, err)
	assert.Equal(t, "guilty\n", stdout)
}

func TestRunReportsDiagnosticsOnStderr(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "LICENSE", agreement("Unknown", "DELIVER VERDICT done"))

	stdout, stderr, err := execute(t, "", "run", "--dir", dir)

	require.NoError(t, err)
	assert.Equal(t, "done\n", stdout)
	assert.Contains(t, stderr, "Statute 'Unknown' not found")
	assert.NotContains(t, stderr, "time=")
	assert.NotContains(t, stderr, "level=")
}

func TestRunLimitsFromConfigAndFlags(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lspl.yaml", "max_loop_iterations: 3\n")
	writeFile(t, dir, "LICENSE", agreement(
		"COMMENCE LEGAL_LOOPHOLE UNTIL 1",
		"n = n + 1",
		"END LEGAL_LOOPHOLE",
		"DELIVER VERDICT (n)",
	))

	stdout, stderr, err := execute(t, "", "run", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "3.0\n", stdout)
	assert.Contains(t, stderr, "Loophole execution terminated after 3 iterations")

	stdout, _, err = execute(t, "", "run", "--dir", dir, "--max-iterations", "7")
	require.NoError(t, err)
	assert.Equal(t, "7.0\n", stdout)
}

func TestRunInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lspl.yaml", "max_iterations: 3\n")

	_, _, err := execute(t, "", "run", "--dir", dir)

	require.Error(t, err)
	assert.Equal(t, ExitInvalidArguments, exitCode(err))
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken", "x = 1\n")
	writeFile(t, dir, "recursive", agreement("DEFINE STATUTE A", "A", "END STATUTE", "A"))

	tests := []struct {
		name     string
		args     []string
		expected int
	}{
		{name: "missing file", args: []string{"run", "missing"}, expected: ExitIOError},
		{name: "structural error", args: []string{"run", "broken"}, expected: ExitParseError},
		{name: "recursion limit", args: []string{"run", "recursive", "--max-depth", "5"}, expected: ExitRuntimeError},
		{name: "too many arguments", args: []string{"run", "a", "b"}, expected: ExitInvalidArguments},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", append(tt.args, "--dir", dir)...)
			require.Error(t, err)
			assert.Equal(t, tt.expected, exitCode(err))
		})
	}
}

func TestParseFormats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "LICENSE", agreement(
		"SUMMON x",
		"IF x > 0",
		"DELIVER VERDICT positive",
		"END IF",
	))
	source := filepath.Join(dir, "LICENSE")

	expected := outlineDocument{
		Source: source,
		Statements: []ast.OutlineNode{
			{Kind: "summon", Line: 2, Name: "x"},
			{Kind: "conditional", Line: 3, Condition: "x > 0", Body: []ast.OutlineNode{
				{Kind: "deliver_verdict", Line: 4, Message: "positive"},
			}},
		},
	}

	decoders := map[string]func([]byte, any) error{
		"yaml": yaml.Unmarshal,
		"json": json.Unmarshal,
		"cbor": cbor.Unmarshal,
	}

	for format, decode := range decoders {
		t.Run(format, func(t *testing.T) {
			stdout, _, err := execute(t, "", "parse", "--dir", dir, "--format", format)
			require.NoError(t, err)

			var got outlineDocument
			require.NoError(t, decode([]byte(stdout), &got))
			if diff := cmp.Diff(expected, got); diff != "" {
				t.Errorf("outline mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	_, _, err := execute(t, agreement("x = 1"), "parse", "-", "--format", "xml")

	require.Error(t, err)
	assert.Equal(t, ExitInvalidArguments, exitCode(err))

	var buf bytes.Buffer
	FormatError(&buf, err, false)
	assert.Equal(t, "Error: unsupported format 'xml'\nHint: Use one of: yaml, json, cbor\n", buf.String())
}

func TestFormatParseError(t *testing.T) {
	_, _, err := execute(t, "x = 1\n", "parse", "-")
	require.Error(t, err)

	var buf bytes.Buffer
	FormatError(&buf, err, false)
	lines := strings.Split(buf.String(), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "Error: invalid license agreement structure"), lines[0])
	assert.Contains(t, buf.String(), "<stdin>:1")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{nil, ExitSuccess},
		{lerrors.NewStructuralError("bad"), ExitParseError},
		{fmt.Errorf("run: %w", lerrors.NewRecursionLimitError("statute call 'A'", 1)), ExitRuntimeError},
		{context.Canceled, ExitRuntimeError},
		{lerrors.NewFileNotFoundError("LICENSE", nil), ExitIOError},
		{lerrors.NewConfigError("bad config", os.ErrNotExist), ExitInvalidArguments},
		{&CLIError{Type: "io", Message: "disk"}, ExitIOError},
		{fmt.Errorf("unknown command"), ExitInvalidArguments},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, exitCode(tt.err), "%v", tt.err)
	}
}
