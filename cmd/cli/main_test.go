package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gridci/internal/cli"
)

func writePipeline(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ci.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "flag provided but not defined")
}

func TestRun_LoadError(t *testing.T) {
	t.Parallel()

	path := writePipeline(t, `pipeline "ci" {`)
	out := &bytes.Buffer{}

	err := run(out, []string{path})
	require.Error(t, err)

	exitErr, ok := err.(*cli.ExitError)
	require.True(t, ok)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "failed to load pipeline definition")
}

func TestRun_SuccessfulRunPrintsSummary(t *testing.T) {
	t.Parallel()

	path := writePipeline(t, `
pipeline "ci" {
  on "push" {}

  job "test" {
    runs_on = ["ubuntu-latest"]
    step "hello" {
      run = "echo hello"
    }
  }
}
`)
	out := &bytes.Buffer{}

	err := run(out, []string{"--workspace-root", t.TempDir(), "--log-level", "error", path})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "✔ test")
}

func TestRun_FailedRunReturnsExitError(t *testing.T) {
	t.Parallel()

	path := writePipeline(t, `
pipeline "ci" {
  on "push" {}

  job "test" {
    runs_on = ["ubuntu-latest"]
    step "boom" {
      run = "exit 7"
    }
  }
}
`)
	out := &bytes.Buffer{}

	err := run(out, []string{"--workspace-root", t.TempDir(), "--log-level", "error", path})
	require.Error(t, err)

	exitErr, ok := err.(*cli.ExitError)
	require.True(t, ok)
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, out.String(), "✘ test")
}

func TestRun_UnmatchedEventRunsNothing(t *testing.T) {
	t.Parallel()

	path := writePipeline(t, `
pipeline "ci" {
  on "pull_request" {}

  job "test" {
    runs_on = ["ubuntu-latest"]
    step "hello" {
      run = "echo hello"
    }
  }
}
`)
	out := &bytes.Buffer{}

	err := run(out, []string{"--event", "push", "--log-level", "error", path})
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "✔")
}
