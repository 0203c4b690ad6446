package device

import (
	"context"
	"fmt"
	"log"

	"github.com/autito-icc/relay/internal/model"
)

const defaultQueueSize = 32

// Forwarder queues commands for the device and sends them from a single
// worker, so read pumps never wait on device I/O. Order is preserved.
type Forwarder struct {
	client *Client
	queue  chan *model.Command
}

// NewForwarder creates a Forwarder around client.
func NewForwarder(client *Client, queueSize int) *Forwarder {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Forwarder{
		client: client,
		queue:  make(chan *model.Command, queueSize),
	}
}

// Client returns the underlying device client.
func (f *Forwarder) Client() *Client {
	return f.client
}

// Outcome is the outcome of a command the Forwarder accepted.
func (f *Forwarder) Outcome() model.CommandOutcome {
	return model.OutcomeQueued
}

// Handle enqueues the command. A full queue drops the command.
func (f *Forwarder) Handle(_ context.Context, cmd *model.Command) error {
	if !IsKnown(cmd.Directive) {
		return fmt.Errorf("%w: %q", model.ErrUnknownDirective, cmd.Directive)
	}

	select {
	case f.queue <- cmd:
		return nil
	default:
		return fmt.Errorf("%w: queue full, dropped %s", model.ErrDeviceUnavailable, cmd.Directive)
	}
}

// Flush discards every queued command and returns how many were dropped.
func (f *Forwarder) Flush() int {
	n := 0
	for {
		select {
		case <-f.queue:
			n++
		default:
			return n
		}
	}
}

// Pending returns the number of queued commands.
func (f *Forwarder) Pending() int {
	return len(f.queue)
}

// Run sends queued commands until ctx is done.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-f.queue:
			if err := f.client.Send(ctx, cmd); err != nil {
				log.Printf("Failed to forward %s to device: %v", cmd.Directive, err)
			}
		}
	}
}
