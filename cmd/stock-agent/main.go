// Command stock-agent asks one or more LLM providers for a market summary of
// the stocks named in a prompts file and saves each answer to disk.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kitbuilder587/stock-agent/internal/logging"
)

const (
	exitOK    = 0
	exitError = 1
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := newCLI()
	// the registry is replaced during setup, so resolve it on the way out
	defer func() { logging.Default().Sync() }()

	root := c.command()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return exitCode(ctx, c.log(), err)
}

// exitCode maps the command result onto the process exit status. An
// interrupt is a clean exit.
func exitCode(ctx context.Context, logger *zap.Logger, err error) int {
	if err == nil {
		return exitOK
	}
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		logger.Info("application interrupted by user")
		return exitOK
	}
	logger.Error("stock analysis failed", zap.Error(err))
	fmt.Fprintln(os.Stderr, "Error:", err)
	return exitError
}
