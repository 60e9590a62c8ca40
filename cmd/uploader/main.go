package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"artifact-uploader/internal/cli"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var shutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)

	code := cli.New(os.Stdout, os.Stderr).
		WithVersion(version).
		Execute(ctx, os.Args[1:])

	stop()
	os.Exit(code)
}
