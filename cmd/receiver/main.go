package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"proctor-camera/internal/api"
	"proctor-camera/internal/config"
	"proctor-camera/internal/db"
	"proctor-camera/internal/publisher"
	"proctor-camera/internal/receiver"
	"proctor-camera/internal/repository"
)

func main() {
	log.Println("Starting capture receiver...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := config.New()

	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		log.Fatalf("Failed to create storage directory: %v", err)
	}

	var store receiver.CaptureStore
	if cfg.PostgresEnabled {
		dbConn, err := db.ConnectPostgres(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer dbConn.Close()
		store = repository.NewCaptureRepository(dbConn, cfg.PostgresSchema)
	}

	var events receiver.EventPublisher
	if cfg.RabbitMQEnabled {
		pub, err := publisher.Connect(publisher.Config{
			URL:        cfg.RabbitMQURL,
			Exchange:   cfg.RabbitMQExchange,
			RoutingKey: cfg.RabbitMQRoutingKey,
		})
		if err != nil {
			log.Printf("Warning: RabbitMQ unavailable, capture events disabled: %v", err)
		} else {
			defer pub.Close()
			events = pub
		}
	}

	ctx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	if cfg.RetentionWindow > 0 {
		go receiver.NewRetention(cfg.StorageDir, cfg.RetentionWindow, cfg.CleanupInterval).Start(ctx)
	}

	handler := receiver.NewHandler(cfg.StorageDir, cfg.MaxUploadSize, store, events)
	server := api.NewHTTPServer(cfg.ReceiverAddress, cfg, receiver.SetupRoutes(handler))

	go func() {
		log.Printf("Receiver listening on %s (storage: %s)", cfg.ReceiverAddress, cfg.StorageDir)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down receiver...")

	stopCleanup()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Receiver exited gracefully")
}
