package ws

import (
	"context"
	"log"
	"time"
)

// Options configures the relay service.
type Options struct {
	HandlerOptions

	// IdleTimeout closes clients that send nothing for this long. Zero disables reaping.
	IdleTimeout time.Duration
}

// Service wires the hub, dispatcher and connection handler together.
type Service struct {
	hub         *Hub
	dispatcher  *Dispatcher
	handler     *Handler
	idleTimeout time.Duration

	cancel context.CancelFunc
}

// NewService creates a new relay service. commands may be nil.
func NewService(commands CommandHandler, opts Options) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	hub := NewHub()
	dispatcher := NewDispatcher(hub, commands)
	handler := NewHandler(ctx, hub, dispatcher, opts.HandlerOptions)

	return &Service{
		hub:         hub,
		dispatcher:  dispatcher,
		handler:     handler,
		idleTimeout: opts.IdleTimeout,
		cancel:      cancel,
	}
}

// Handler returns the WebSocket handler.
func (s *Service) Handler() *Handler {
	return s.handler
}

// Hub returns the connection registry.
func (s *Service) Hub() *Hub {
	return s.hub
}

// Dispatcher returns the envelope dispatcher.
func (s *Service) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// ClientCount returns the number of connected clients.
func (s *Service) ClientCount() int {
	return s.hub.ClientCount()
}

// RunReaper closes idle clients until ctx is done.
// It returns immediately when reaping is disabled.
func (s *Service) RunReaper(ctx context.Context) error {
	if s.idleTimeout <= 0 {
		return nil
	}

	interval := s.idleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.ReapIdle(now)
		}
	}
}

// ReapIdle closes every client idle since before now minus the idle timeout.
// It returns the number of clients closed.
func (s *Service) ReapIdle(now time.Time) int {
	if s.idleTimeout <= 0 {
		return 0
	}

	reaped := 0
	for _, client := range s.hub.Snapshot() {
		if now.Sub(client.LastActive()) > s.idleTimeout {
			log.Printf("Closing idle client %s", client.ID())
			s.hub.Unregister(client)
			reaped++
		}
	}
	return reaped
}

// Close closes all WebSocket connections and cleans up resources.
func (s *Service) Close() {
	s.cancel()
	s.hub.Close()
}
