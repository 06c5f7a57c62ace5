package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lefinal/dodgeball-server/app"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	flag.Parse()
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = app.NewApp(config).Boot(ctx)
	if err != nil {
		os.Exit(1)
	}
}
