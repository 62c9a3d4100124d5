package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/shutter/internal/cli"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = ""
	buildTime = ""
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cli.SetBuildInfo(version, commit, buildTime)
	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "shutter: %v\n", err)
		return 1
	}
	return 0
}
