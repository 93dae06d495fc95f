// Command main is the entry point for the Homeroom chat API server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homeroom/internal/config"
	"homeroom/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil {
			log.Printf("Server shutdown error: %v", shutdownErr)
		}
	}()

	// Listen returns nil after a graceful Shutdown.
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
