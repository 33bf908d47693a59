package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitInvalidArguments = 1
	ExitIOError          = 2
	ExitParseError       = 3
	ExitRuntimeError     = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		FormatError(rootCmd.ErrOrStderr(), err, ShouldUseColor(noColorRequested(rootCmd)))
	}

	stop()
	os.Exit(exitCode(err))
}
