// Package command delivers device directives and records them in write-only sinks.
package command

import (
	"context"
	"errors"
	"log"

	"github.com/autito-icc/relay/internal/buffer"
	"github.com/autito-icc/relay/internal/model"
)

// Sink consumes commands. Sinks never reply to the sender.
type Sink interface {
	Handle(ctx context.Context, cmd *model.Command) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, cmd *model.Command) error

// Handle calls f(ctx, cmd).
func (f SinkFunc) Handle(ctx context.Context, cmd *model.Command) error {
	return f(ctx, cmd)
}

// LogSink prints every command for operator visibility.
type LogSink struct {
	Logger *log.Logger
}

// Handle logs the command.
func (s LogSink) Handle(_ context.Context, cmd *model.Command) error {
	logf := log.Printf
	if s.Logger != nil {
		logf = s.Logger.Printf
	}
	logf("Command: %s (source=%s id=%s)", cmd.Raw, cmd.Source, cmd.ID)
	return nil
}

// Delivery hands commands to the device. Outcome is recorded on every
// command the delivery accepts.
type Delivery interface {
	Sink
	Outcome() model.CommandOutcome
}

// DeliveryFunc adapts a synchronous send function to the Delivery interface.
type DeliveryFunc func(ctx context.Context, cmd *model.Command) error

// Handle calls f(ctx, cmd).
func (f DeliveryFunc) Handle(ctx context.Context, cmd *model.Command) error {
	return f(ctx, cmd)
}

// Outcome reports OutcomeSent.
func (f DeliveryFunc) Outcome() model.CommandOutcome {
	return model.OutcomeSent
}

// Processor delivers commands, then records them in a recent-command
// history and hands them to the recording sinks.
type Processor struct {
	history   *buffer.Ring[*model.Command]
	delivery  Delivery
	recorders []Sink
}

// NewProcessor creates a Processor that remembers up to historySize commands.
// delivery may be nil, in which case commands are only recorded.
func NewProcessor(historySize int, delivery Delivery, recorders ...Sink) *Processor {
	return &Processor{
		history:   buffer.NewRing[*model.Command](historySize),
		delivery:  delivery,
		recorders: recorders,
	}
}

// Process delivers the command through the default delivery and records it.
func (p *Processor) Process(ctx context.Context, cmd *model.Command) error {
	return p.ProcessVia(ctx, cmd, p.delivery)
}

// ProcessVia delivers the command through delivery, which may be nil, then
// records it with its outcome. Recording happens after delivery so history
// and recorders never report a command as delivered when it was not.
// A failing recorder does not stop the others; all failures are returned joined.
func (p *Processor) ProcessVia(ctx context.Context, cmd *model.Command, delivery Delivery) error {
	var errs []error

	cmd.Outcome = model.OutcomeLogged
	if delivery != nil {
		if err := delivery.Handle(ctx, cmd); err != nil {
			log.Printf("Command delivery failed for %s: %v", cmd.ID, err)
			cmd.Outcome = model.OutcomeFailed
			errs = append(errs, err)
		} else {
			cmd.Outcome = delivery.Outcome()
		}
	}

	p.history.Push(cmd)

	for _, sink := range p.recorders {
		if err := sink.Handle(ctx, cmd); err != nil {
			log.Printf("Command sink failed for %s: %v", cmd.ID, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recent returns up to limit commands, newest first. limit <= 0 returns all.
func (p *Processor) Recent(limit int) []*model.Command {
	items := p.history.Items()
	result := make([]*model.Command, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, items[i])
	}
	return result
}

// Last returns the most recent command that was not lost on its way to the device.
func (p *Processor) Last() *model.Command {
	if last, ok := p.history.Last(); !ok || last.Delivered() {
		return last
	}
	items := p.history.Items()
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Delivered() {
			return items[i]
		}
	}
	return nil
}
