package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/idp-reports/internal/cli"
	"github.com/Sternrassler/idp-reports/pkg/config"
	"github.com/Sternrassler/idp-reports/pkg/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	logging.Setup(cfg.Logging)

	// SIGINT cancels the context and interrupts any rate limit wait.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(cli.NewApp(cfg, os.Stdin, os.Stdout))
	if err := root.Execute(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
