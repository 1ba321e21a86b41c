package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	var out bytes.Buffer
	cfg, shouldExit, err := Parse([]string{"--pipeline", "pipelines/ci.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, "pipelines/ci.hcl", cfg.PipelinePath)
	assert.Equal(t, "push", cfg.Event)
	assert.Equal(t, "refs/heads/main", cfg.Ref)
	assert.Empty(t, cfg.ListenAddr)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.WorkerCount)
}

func TestParsePathSources(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"long flag", []string{"--pipeline", "ci.yaml"}},
		{"shorthand", []string{"-p", "ci.yaml"}},
		{"positional", []string{"ci.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cfg, shouldExit, err := Parse(tt.args, &out)
			require.NoError(t, err)
			require.False(t, shouldExit)
			assert.Equal(t, "ci.yaml", cfg.PipelinePath)
		})
	}
}

func TestParseAllFlags(t *testing.T) {
	var out bytes.Buffer
	cfg, shouldExit, err := Parse([]string{
		"--pipeline", "ci.hcl",
		"--event", "pull_request",
		"--ref", "refs/heads/feature",
		"--listen", ":8080",
		"--workspace-root", "/var/lib/gridci",
		"--log-format", "json",
		"--log-level", "debug",
		"--workers", "8",
	}, &out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, "pull_request", cfg.Event)
	assert.Equal(t, "refs/heads/feature", cfg.Ref)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "/var/lib/gridci", cfg.WorkspaceRoot)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8, cfg.WorkerCount)
}

func TestParseNoPathPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, shouldExit, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseHelpFlag(t *testing.T) {
	var out bytes.Buffer
	cfg, shouldExit, err := Parse([]string{"--help"}, &out)
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
}

func TestParseInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad log format", []string{"--log-format", "xml", "ci.hcl"}, "invalid log-format"},
		{"bad log level", []string{"--log-level", "loud", "ci.hcl"}, "invalid log-level"},
		{"empty event", []string{"--event", "", "ci.hcl"}, "event kind"},
		{"unknown flag", []string{"--nope"}, "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, _, err := Parse(tt.args, &out)
			require.Error(t, err)

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.True(t, strings.Contains(exitErr.Message, tt.want), exitErr.Message)
		})
	}
}
