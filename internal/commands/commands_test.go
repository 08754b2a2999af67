package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/dbridge/bridgeerr"
	"martianoff/dbridge/internal/config"
	"martianoff/dbridge/internal/outsum"
	"martianoff/dbridge/internal/testutil"
)

// run executes cmd with args and a configuration that only enables checksums.
func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	return runWithConfig(t, "[output]\nchecksums = true\n", cmd, args...)
}

func runWithConfig(t *testing.T, cfg string, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestWrongArgumentCount(t *testing.T) {
	tests := []struct {
		name string
		cmd  func() *cobra.Command
		args []string
	}{
		{"bridgegen none", NewBridgegenCommand, nil},
		{"bridgegen one", NewBridgegenCommand, []string{"Calc"}},
		{"bridgegen three", NewBridgegenCommand, []string{"Calc", "out", "extra"}},
		{"trampolinegen two", NewTrampolinegenCommand, []string{"Calc", "in"}},
		{"trampolinegen four", NewTrampolinegenCommand, []string{"Calc", "in", "out", "extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.cmd(), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "Usage:")
		})
	}
}

func TestBridgegen(t *testing.T) {
	out := t.TempDir()
	stdout, err := run(t, NewBridgegenCommand(), testutil.Fixture(t, "calc.toml"), out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "package Calc: 1 type(s) in 1 file(s), 0 skipped")

	src, err := os.ReadFile(filepath.Join(out, "Calc", "package.d"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "module Calc;")

	sums, err := outsum.ParseFile(filepath.Join(out, outsum.FileName))
	require.NoError(t, err)
	assert.NotNil(t, sums.Get("Calc/package.d"))

	stdout, err = run(t, NewBridgegenCommand(), "verify", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "verified")
}

func TestModuleNamedLikeSubcommand(t *testing.T) {
	fixture, err := os.ReadFile(testutil.Fixture(t, "calc.toml"))
	require.NoError(t, err)
	dumps := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dumps, "verify.toml"), fixture, 0o644))
	cfg := fmt.Sprintf("[metadata]\nsearch-paths = [%q]\n", filepath.ToSlash(dumps))

	t.Run("bridgegen", func(t *testing.T) {
		out := t.TempDir()
		stdout, err := runWithConfig(t, cfg, NewBridgegenCommand(), "--", "verify", out)
		require.NoError(t, err)
		assert.Contains(t, stdout, "1 type(s) in 1 file(s)")
		assert.FileExists(t, filepath.Join(out, outsum.FileName))
	})

	t.Run("trampolinegen", func(t *testing.T) {
		in := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(in, "verify"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(in, "verify", "verify.toml"), fixture, 0o644))

		out := t.TempDir()
		stdout, err := runWithConfig(t, cfg, NewTrampolinegenCommand(), "--", "verify", in, out)
		require.NoError(t, err)
		assert.Contains(t, stdout, "verify.d, verifystatic.il:")
		assert.FileExists(t, filepath.Join(out, "verifystatic.il"))
	})
}

func TestBridgegenMissingModule(t *testing.T) {
	_, err := run(t, NewBridgegenCommand(), "NoSuchModule", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, Message(err), "cannot load metadata")
}

func TestTrampolinegen(t *testing.T) {
	in := t.TempDir()
	fixture, err := os.ReadFile(testutil.Fixture(t, "calc.toml"))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(in, "Calc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "Calc", "Calc.toml"), fixture, 0o644))

	out := t.TempDir()
	stdout, err := run(t, NewTrampolinegenCommand(), "Calc", in, out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "calc.d, Calcstatic.il: 1 type(s), 1 trampoline(s)")
	assert.FileExists(t, filepath.Join(out, "calc.d"))
	assert.FileExists(t, filepath.Join(out, "Calcstatic.il"))

	require.NoError(t, os.WriteFile(filepath.Join(out, "calc.d"), []byte("module edited;\n"), 0o644))
	stdout, err = run(t, NewTrampolinegenCommand(), "verify", out)
	require.Error(t, err)
	assert.Contains(t, stdout, "FAILED: calc.d")
	assert.Contains(t, err.Error(), "1 file(s) failed verification")
}

func TestVersion(t *testing.T) {
	stdout, err := run(t, NewTrampolinegenCommand(), "version")
	require.NoError(t, err)
	assert.Equal(t, "trampolinegen version dev\n", stdout)
}

func TestMessage(t *testing.T) {
	assert.Contains(t, Message(bridgeerr.NewConfigError("x.toml", "parse error", nil)), "invalid configuration")
	assert.Contains(t, Message(bridgeerr.NewEmissionError("M", "T", "m", "stack underflow")), "nothing was written")
	assert.Equal(t, "plain", Message(assertError("plain")))
}

type assertError string

func (e assertError) Error() string { return string(e) }
