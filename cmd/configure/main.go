package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/benvon/smart-notes/cmd/configure/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := 0
	if err := commands.NewRootCmd().ExecuteContext(ctx); err != nil {
		commands.PrintError(os.Stderr, err)
		code = 1
	}
	stop()
	os.Exit(code)
}
