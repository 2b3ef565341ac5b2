// File: cmd/openjaws/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/method-and-apparatus/open-jaws/cmd"
	"github.com/method-and-apparatus/open-jaws/internal/observability"
)

// osExit allows mocking os.Exit in tests.
var osExit = os.Exit

func main() {
	// Graceful shutdown: the in-flight sweep finishes before the daemon
	// loop exits.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			osExit(0)
		}
		osExit(1)
	}
}
