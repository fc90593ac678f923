// Package main provides the entry point for the revdiff CLI tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Sumatoshi-tech/revdiff/cmd/revdiff/commands"
	"github.com/Sumatoshi-tech/revdiff/pkg/version"
)

func main() {
	_ = godotenv.Load()

	version.InitBinaryVersion()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := commands.NewRootCommand().ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
