package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/gridci/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated
// app.Config, a boolean indicating if the program should exit cleanly, or
// an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("gridci", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
GridCI - A declarative CI pipeline orchestration engine.

Usage:
  gridci [options] [PIPELINE_PATH]

Arguments:
  PIPELINE_PATH
    Path to a pipeline definition: a .hcl or .yaml file, or a directory
    containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	pipelineFlag := flagSet.String("pipeline", "", "Path to the pipeline definition.")
	pFlag := flagSet.String("p", "", "Path to the pipeline definition (shorthand).")
	eventFlag := flagSet.String("event", "push", "Event kind to evaluate in one-shot mode.")
	refFlag := flagSet.String("ref", "refs/heads/main", "Git ref the event carries.")
	listenFlag := flagSet.String("listen", "", "Address for the webhook listener, e.g. ':8080'. Empty runs once and exits.")
	workspaceFlag := flagSet.String("workspace-root", "", "Directory for execution environment workspaces. Empty uses the system temp directory.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 4, "Number of concurrent workers for the executor.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := ""
	if *pipelineFlag != "" {
		path = *pipelineFlag
	} else if *pFlag != "" {
		path = *pFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *eventFlag == "" {
		return nil, false, &ExitError{Code: 2, Message: "event kind must not be empty"}
	}

	return &app.Config{
		PipelinePath:  path,
		Event:         *eventFlag,
		Ref:           *refFlag,
		ListenAddr:    *listenFlag,
		WorkspaceRoot: *workspaceFlag,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
		WorkerCount:   *workersFlag,
	}, false, nil
}
