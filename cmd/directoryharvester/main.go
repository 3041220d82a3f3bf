package main

import (
	"context"
	"os/signal"
	"syscall"

	"DirectoryHarvester/cmd/directoryharvester/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	commands.ExecuteContext(ctx)
}
