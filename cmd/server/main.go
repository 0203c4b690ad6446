package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/autito-icc/relay/api/handlers"
	"github.com/autito-icc/relay/internal/command"
	"github.com/autito-icc/relay/internal/config"
	"github.com/autito-icc/relay/internal/db"
	"github.com/autito-icc/relay/internal/device"
	"github.com/autito-icc/relay/internal/repository"
	"github.com/autito-icc/relay/internal/ws"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

// run wires the relay and serves until a signal arrives or a component
// fails. Every resource is released before it returns.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	recorders := []command.Sink{command.LogSink{}}

	// Command journal
	var journal *repository.CommandRepository
	if cfg.Journal.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0755); err != nil {
			return fmt.Errorf("failed to create journal directory: %w", err)
		}
		database, err := db.InitDB(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize journal: %w", err)
		}
		defer func() {
			if err := db.CloseDB(); err != nil {
				log.Printf("Failed to close journal: %v", err)
			}
		}()

		journal = repository.NewCommandRepository(database)
		recorders = append(recorders, journal)
	}

	// Device forwarding
	var forwarder *device.Forwarder
	var deviceClient *device.Client
	var delivery command.Delivery
	if cfg.Device.URL != "" {
		deviceClient = device.NewClient(cfg.Device.URL, cfg.Device.Timeout)
		forwarder = device.NewForwarder(deviceClient, 0)
		delivery = forwarder
		log.Printf("Forwarding commands to %s", cfg.Device.URL)
	}

	processor := command.NewProcessor(cfg.Journal.History, delivery, recorders...)

	// Initialize relay service
	relay := ws.NewService(processor, ws.Options{
		HandlerOptions: ws.HandlerOptions{
			MaxMessageSize: cfg.Server.MaxMessageSize,
			SendBuffer:     cfg.Server.SendBuffer,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		},
		IdleTimeout: cfg.Server.IdleTimeout,
	})
	defer relay.Close()

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for the browser client
	r.Use(corsMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	handlers.NewRelayHandler(relay.Handler()).RegisterRoutes(r, cfg.Server.Path)

	api := r.Group("/api")
	{
		handlers.NewCommandHandler(processor, journal, forwarder).RegisterRoutes(api)
		handlers.NewStatusHandler(relay, processor, deviceClient).RegisterRoutes(api)
		handlers.NewDeviceHandler(deviceClient).RegisterRoutes(api)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Relay listening on %s%s", cfg.Server.Addr(), cfg.Server.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return relay.RunReaper(gctx)
	})

	if forwarder != nil {
		g.Go(func() error {
			return forwarder.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		relay.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// corsMiddleware returns a CORS middleware for the browser client.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
