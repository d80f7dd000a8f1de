// Command buildml records build provenance from binary traces and answers
// questions about it.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/buildml/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
