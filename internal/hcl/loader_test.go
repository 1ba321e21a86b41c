package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gridci/internal/config"
)

func writeDefinition(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const fullDefinition = `
pipeline "ci" {
  on "push" {
    branches = ["main"]
  }

  env = {
    CARGO_TERM_VERBOSE = "true"
  }

  job "test" {
    runs_on = ["ubuntu-latest", "macos-latest"]
    timeout = "10m"

    matrix {
      rust    = ["stable", "beta"]
      feature = ["default"]
    }

    step "toolchain" {
      setup "toolchain" {
        profile    = "minimal"
        toolchain  = "stable"
        components = ["clippy"]
      }
    }

    step "build" {
      run     = "cargo build --verbose"
      timeout = "5m"
    }
  }

  job "lint" {
    runs_on = ["ubuntu-latest"]
    needs   = ["test"]

    step "fmt" {
      run = "cargo fmt --all -- --check"
    }
  }
}
`

func TestLoadFullDefinition(t *testing.T) {
	path := writeDefinition(t, "ci.hcl", fullDefinition)

	p, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "ci", p.Name)
	require.Len(t, p.Triggers, 1)
	assert.Equal(t, "push", p.Triggers[0].Event)
	assert.Equal(t, []string{"main"}, p.Triggers[0].Branches)
	assert.Equal(t, map[string]string{"CARGO_TERM_VERBOSE": "true"}, p.Env)

	require.Len(t, p.Jobs, 2)

	test := p.Jobs[0]
	assert.Equal(t, "test", test.Name)
	assert.Equal(t, []string{"ubuntu-latest", "macos-latest"}, test.RunsOn)
	assert.Equal(t, 10*time.Minute, test.Timeout)

	// Axis order follows source order, not map order.
	require.Len(t, test.Matrix, 2)
	assert.Equal(t, config.Axis{Name: "rust", Values: []string{"stable", "beta"}}, test.Matrix[0])
	assert.Equal(t, config.Axis{Name: "feature", Values: []string{"default"}}, test.Matrix[1])

	require.Len(t, test.Steps, 2)
	setup := test.Steps[0]
	require.NotNil(t, setup.Setup)
	assert.Equal(t, "toolchain", setup.Setup.Action)
	assert.Equal(t, "minimal", setup.Setup.Options["profile"])
	assert.Equal(t, "stable", setup.Setup.Options["toolchain"])
	assert.Equal(t, []string{"clippy"}, setup.Setup.Options["components"])

	build := test.Steps[1]
	assert.Equal(t, "cargo build --verbose", build.Run)
	assert.Equal(t, 5*time.Minute, build.Timeout)

	lint := p.Jobs[1]
	assert.Equal(t, []string{"test"}, lint.Needs)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ci.hcl"), []byte(fullDefinition), 0o644))

	p, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "ci", p.Name)
}

func TestLoadMalformedDefinition(t *testing.T) {
	path := writeDefinition(t, "broken.hcl", `pipeline "ci" {`)

	_, err := NewLoader().Load(context.Background(), path)
	require.Error(t, err)

	var malformed *config.MalformedDefinitionError
	assert.ErrorAs(t, err, &malformed)
}

func TestLoadMissingPipelineBlock(t *testing.T) {
	path := writeDefinition(t, "empty.hcl", ``)

	_, err := NewLoader().Load(context.Background(), path)
	require.Error(t, err)

	var malformed *config.MalformedDefinitionError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, err.Error(), "exactly one pipeline block")
}

func TestLoadRejectsEmptySteps(t *testing.T) {
	path := writeDefinition(t, "ci.hcl", `
pipeline "ci" {
  on "push" {}
  job "test" {
    runs_on = ["ubuntu-latest"]
  }
}
`)

	_, err := NewLoader().Load(context.Background(), path)
	require.Error(t, err)

	var invalid *config.InvalidJobSpecError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "test", invalid.Job)
}

func TestLoadRejectsUnknownSetupOption(t *testing.T) {
	path := writeDefinition(t, "ci.hcl", `
pipeline "ci" {
  on "push" {}
  job "test" {
    runs_on = ["ubuntu-latest"]
    step "toolchain" {
      setup "toolchain" {
        target = "wasm32"
      }
    }
  }
}
`)

	_, err := NewLoader().Load(context.Background(), path)
	require.Error(t, err)

	var invalid *config.InvalidJobSpecError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, err.Error(), `unknown option "target"`)
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	path := writeDefinition(t, "ci.hcl", `
pipeline "ci" {
  on "push" {}
  job "test" {
    runs_on = ["ubuntu-latest"]
    timeout = "soon"
    step "s" { run = "true" }
  }
}
`)

	_, err := NewLoader().Load(context.Background(), path)
	require.Error(t, err)

	var invalid *config.InvalidJobSpecError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, err.Error(), "invalid timeout")
}
