// Command webclient serves the CitizenConnect client pages and actions on
// HTTP_ADDR, talking to the REST API at API_BASE_URL.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"citizenconnect/webclient/internal/app"
	"citizenconnect/webclient/internal/config"
)

func main() {
	log.SetPrefix("webclient: ")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("wire client against %s: %w", cfg.API.BaseURL, err)
	}

	if err := client.Run(ctx); err != nil {
		return fmt.Errorf("serve on %s: %w", cfg.HTTP.Addr, err)
	}
	return nil
}
