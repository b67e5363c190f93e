// Package alert delivers coordinator alerts to stdout, files, memory and Redis.
package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"pairwatch/internal/signal"
)

// Sink consumes alerts. Implementations must be safe for concurrent use.
type Sink interface {
	Publish(ctx context.Context, a signal.Alert) error
}

// Printer writes the human-readable form of each alert, one alert per block.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter returns a Printer writing to w, typically os.Stdout.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Publish writes the alert's text followed by a newline.
func (p *Printer) Publish(_ context.Context, a signal.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := fmt.Fprintln(p.w, a.Text()); err != nil {
		return fmt.Errorf("print alert: %w", err)
	}
	return nil
}

// Fanout forwards each alert to every sink. A failing sink does not stop the others.
type Fanout struct {
	sinks []Sink
}

// NewFanout skips nil sinks so optional outputs can be passed unconditionally.
func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Len reports how many sinks receive alerts.
func (f *Fanout) Len() int { return len(f.sinks) }

// Publish delivers a to all sinks and joins their failures, each tagged with the sink type.
// Logging is left to the caller.
func (f *Fanout) Publish(ctx context.Context, a signal.Alert) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Publish(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}
