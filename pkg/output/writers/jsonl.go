package writers

import (
	"io"
	"os"
	"sync"

	"github.com/thecyberx/cyberx/pkg/jsonutil"
	"github.com/thecyberx/cyberx/pkg/output/dispatcher"
	"github.com/thecyberx/cyberx/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*JSONLWriter)(nil)

// JSONLWriter streams every event as one JSON object per line, so the
// REST server's event log can be followed with jq or tail.
type JSONLWriter struct {
	w       io.Writer
	mu      sync.Mutex
	opts    JSONLOptions
	encoder *jsonutil.Encoder
}

// JSONLOptions configures the JSONL writer behavior.
type JSONLOptions struct {
	// OmitStart skips start events.
	OmitStart bool

	// OmitData drops result payloads, leaving timing and severity.
	OmitData bool
}

// NewJSONLWriter creates a new JSONL writer that writes to w.
// The writer is safe for concurrent use.
func NewJSONLWriter(w io.Writer, opts JSONLOptions) *JSONLWriter {
	return &JSONLWriter{
		w:       w,
		opts:    opts,
		encoder: jsonutil.NewStreamEncoder(w),
	}
}

// Write writes an event as a single JSON line.
func (jw *JSONLWriter) Write(event events.Event) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if re, ok := event.(*events.ResultEvent); ok && jw.opts.OmitData {
		filtered := *re
		filtered.Data = nil
		return jw.encoder.Encode(&filtered)
	}
	return jw.encoder.Encode(event)
}

// Flush is a no-op; lines are written immediately.
func (jw *JSONLWriter) Flush() error {
	return nil
}

// Close closes the destination unless it is a standard stream.
func (jw *JSONLWriter) Close() error {
	if jw.w == os.Stdout || jw.w == os.Stderr {
		return nil
	}
	if closer, ok := jw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent returns true for all event types unless start events
// are omitted.
func (jw *JSONLWriter) SupportsEvent(eventType events.EventType) bool {
	return !(jw.opts.OmitStart && eventType == events.EventTypeStart)
}
