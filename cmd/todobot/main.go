// Package main is the entry point for the todobot server and CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	// Embedded zone database so Asia/Tokyo resolves in minimal images.
	_ "time/tzdata"

	"todobot/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	code := cli.Execute(ctx, os.Args[1:], cli.Options{Version: version})
	os.Exit(code)
}
