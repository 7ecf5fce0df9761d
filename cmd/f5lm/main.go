package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/app"
)

func main() {
	os.Exit(run())
}

func run() (code int) {
	// Catch crashes so the stack reaches the operator instead of a
	// half-written terminal line.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s", r, debug.Stack())
			code = 1
		}
	}()

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer application.Close()

	// SIGINT/SIGTERM cancel the context; in-flight device calls abort and
	// the deferred cleanup still runs.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, context.Canceled) {
			application.Logger.Info("interrupted")
			fmt.Fprintln(os.Stderr, "interrupted")
			return 1
		}
		application.Logger.Error("command failed", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
