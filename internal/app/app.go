package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/ctxlog"
	"github.com/vk/gridci/internal/environment"
	"github.com/vk/gridci/internal/executor"
)

// Config holds everything an App instance needs to run.
type Config struct {
	// PipelinePath points at the definition file (or, for HCL, a directory
	// of definition files).
	PipelinePath string
	// Event and Ref describe the triggering event in one-shot mode.
	Event string
	Ref   string
	// ListenAddr, when non-empty, switches the app into webhook mode.
	ListenAddr string
	// WorkspaceRoot is where execution environments get their workspaces.
	// Empty means the system temp directory.
	WorkspaceRoot string
	LogFormat     string
	LogLevel      string
	WorkerCount   int
}

// App encapsulates the engine's dependencies, configuration, and
// lifecycle. One App loads one pipeline definition and can run it any
// number of times.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	pipeline *config.Pipeline
	prov     environment.Provisioner
	runner   executor.CommandRunner
}

// NewApp constructs a fully initialized App: logger configured, definition
// loaded and validated. A definition that fails to load or validate is a
// user error and is returned, not panicked.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if loader == nil {
		var err error
		loader, err = LoaderFor(appConfig.PipelinePath)
		if err != nil {
			return nil, err
		}
	}

	pipeline, err := loader.Load(ctx, appConfig.PipelinePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline definition: %w", err)
	}
	logger.Debug("Definition loaded and validated.", "pipeline", pipeline.Name, "jobs", len(pipeline.Jobs))

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		pipeline: pipeline,
		prov:     environment.NewLocal(appConfig.WorkspaceRoot),
		runner:   executor.NewLocalRunner(),
	}, nil
}

// Pipeline returns the loaded definition. This is primarily for testing.
func (a *App) Pipeline() *config.Pipeline {
	return a.pipeline
}

// Logger returns the app's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// SetProvisioner swaps the environment provisioner. Tests use this to
// observe provisioning without touching the filesystem.
func (a *App) SetProvisioner(p environment.Provisioner) {
	a.prov = p
}

// SetRunner swaps the command runner.
func (a *App) SetRunner(r executor.CommandRunner) {
	a.runner = r
}
