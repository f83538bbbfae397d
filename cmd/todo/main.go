package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adanyl0v/go-todo/internal/cli"
	"github.com/adanyl0v/go-todo/internal/config"
)

func main() {
	cfg, err := config.ReadClientEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to read env:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = cli.NewRootCommand(cfg).ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
