package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := buildRootCommand()
	rootCmd.AddCommand(buildFindCommand())
	rootCmd.AddCommand(buildCriteriaCommand())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
