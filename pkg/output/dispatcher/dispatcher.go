// Package dispatcher routes panel events to writers and hooks. Writers
// persist results (JSON, table, template, PDF); hooks observe invocations
// as they happen (logging, metrics, tracing).
package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/thecyberx/cyberx/pkg/output/events"
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("dispatcher: closed")

// Writer persists events.
type Writer interface {
	// Write writes an event to the output.
	Write(event events.Event) error

	// Flush ensures all buffered events are written.
	Flush() error

	// Close closes the writer and releases any resources.
	Close() error

	// SupportsEvent returns true if the writer handles this event type.
	SupportsEvent(eventType events.EventType) bool
}

// Hook observes events.
type Hook interface {
	// OnEvent is called for each matching event.
	OnEvent(ctx context.Context, event events.Event) error

	// EventTypes returns the event types this hook handles.
	// Return nil or empty slice to receive all events.
	EventTypes() []events.EventType
}

// Dispatcher routes events to writers and hooks.
// It is safe for concurrent use.
type Dispatcher struct {
	mu      sync.RWMutex
	writers []Writer
	hooks   []Hook
	closed  bool

	async  bool
	hookWg sync.WaitGroup
	logger *slog.Logger
}

// Config configures the dispatcher behavior.
type Config struct {
	// Async runs hooks in goroutines. Close waits for them.
	Async bool

	// Logger receives writer and hook failures at debug level.
	Logger *slog.Logger
}

// New creates a new event dispatcher with the given configuration.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{async: cfg.Async, logger: logger}
}

// RegisterWriter adds a writer to the dispatcher.
func (d *Dispatcher) RegisterWriter(w Writer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writers = append(d.writers, w)
}

// RegisterHook adds a hook to the dispatcher.
func (d *Dispatcher) RegisterHook(h Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks = append(d.hooks, h)
}

// Dispatch sends an event to every matching writer and hook. Individual
// failures are logged and do not stop delivery to the others.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	for _, w := range d.writers {
		if !w.SupportsEvent(event.EventType()) {
			continue
		}
		if err := w.Write(event); err != nil {
			d.logger.Debug("output writer failed", slog.String("event", string(event.EventType())), slog.String("error", err.Error()))
		}
	}

	for _, h := range d.hooks {
		if !hookSupportsEvent(h, event.EventType()) {
			continue
		}
		if d.async {
			d.hookWg.Add(1)
			go func(hook Hook) {
				defer d.hookWg.Done()
				d.runHook(ctx, hook, event)
			}(h)
			continue
		}
		d.runHook(ctx, h, event)
	}
	return nil
}

func (d *Dispatcher) runHook(ctx context.Context, h Hook, event events.Event) {
	if err := h.OnEvent(ctx, event); err != nil {
		d.logger.Debug("output hook failed", slog.String("event", string(event.EventType())), slog.String("error", err.Error()))
	}
}

// hookSupportsEvent checks if a hook handles the given event type.
func hookSupportsEvent(h Hook, eventType events.EventType) bool {
	types := h.EventTypes()
	if len(types) == 0 {
		return true
	}
	for _, et := range types {
		if et == eventType {
			return true
		}
	}
	return false
}

// Flush flushes all registered writers.
func (d *Dispatcher) Flush() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var errs []error
	for _, w := range d.writers {
		if err := w.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close waits for in-flight hooks, then flushes and closes all writers.
// Hooks that implement io.Closer are closed too. Close is idempotent.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.hookWg.Wait()

	var errs []error
	for _, w := range d.writers {
		if err := w.Flush(); err != nil {
			errs = append(errs, err)
		}
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, h := range d.hooks {
		if c, ok := h.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
