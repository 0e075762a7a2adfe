// Command main is the entry point for the Chirp API server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chirp/internal/bootstrap"
	"chirp/internal/config"
	"chirp/internal/server"
)

// @title Chirp API
// @version 1.0
// @description Emoji-only micro-blogging API: posts, likes and author profiles
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@chirp.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rt, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{ApplySchema: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	srv := server.NewServer(cfg, rt.ServerDeps())

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}

		// Release datastore, Redis and the tracer after in-flight requests drain
		if err := rt.Close(ctx); err != nil {
			log.Printf("Runtime shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
	<-done
}
