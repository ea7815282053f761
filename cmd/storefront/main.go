package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-storefront/internal/cli"
	"github.com/ariefcatur/go-storefront/internal/config"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Cfg: cfg,
		Log: config.NewLogger(cfg.LogLevel),
		Out: os.Stdout,
		In:  os.Stdin,
	}
	if err := cli.Execute(ctx, app, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
