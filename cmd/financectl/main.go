package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/dailyfinance/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd, release := cli.NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	release()
	stop()

	if err != nil {
		os.Exit(1)
	}
}
