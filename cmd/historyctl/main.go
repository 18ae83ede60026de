// File: cmd/historyctl/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/iyunix/go-chatstats/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		cancel()
		os.Exit(1)
	}
}
