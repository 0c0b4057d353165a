package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/daverlon/KotlinYOLO/internal/app"
	"github.com/daverlon/KotlinYOLO/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(config.Load())
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
}
