package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/gridci/internal/app"
	"github.com/vk/gridci/internal/cli"
	"github.com/vk/gridci/internal/trigger"
	"github.com/vk/gridci/internal/webhook"
)

// main is the entrypoint for the gridci application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling.
func run(outW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	gridciApp, err := app.NewApp(outW, appConfig, nil)
	if err != nil {
		return &cli.ExitError{Code: 2, Message: err.Error()}
	}

	if appConfig.ListenAddr != "" {
		server := webhook.NewServer(gridciApp)
		return server.Listen(appConfig.ListenAddr)
	}

	ev := trigger.Event{Kind: appConfig.Event, Ref: appConfig.Ref}
	result, err := gridciApp.Run(context.Background(), ev)
	if err != nil {
		return &cli.ExitError{Code: 2, Message: err.Error()}
	}
	if result == nil {
		// Event matched no trigger; nothing ran, nothing failed.
		return nil
	}

	fmt.Fprint(outW, result.Summary())
	if result.Failed() {
		return &cli.ExitError{Code: result.ExitCode(), Message: "pipeline run failed"}
	}
	return nil
}
