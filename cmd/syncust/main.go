// Command syncust snapshots a directory tree into a content-addressed
// repository and reports what changed since.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/syncust/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		logger.Error("%v", err)
		logger.Debug("%+v", err)
		stop()
		os.Exit(1)
	}
}
