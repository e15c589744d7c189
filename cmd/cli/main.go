// Package main is the entry point for the decisionkit CLI.
package main

import (
	"context"
	"os"
	"os/signal"

	"decisionkit/cmd/cli/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
