// Package writers renders panel events: console tables, JSON, JSONL,
// Go templates and PDF reports.
package writers

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/thecyberx/cyberx/pkg/jsonutil"
	"github.com/thecyberx/cyberx/pkg/output/dispatcher"
	"github.com/thecyberx/cyberx/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*JSONWriter)(nil)

// JSONWriter buffers result and error events and writes them on Close.
// A single event is written as an object; more are written as an array.
type JSONWriter struct {
	w      io.Writer
	mu     sync.Mutex
	opts   JSONOptions
	buffer []events.Event
}

// JSONOptions configures the JSON writer behavior.
type JSONOptions struct {
	// Pretty enables indented JSON output.
	Pretty bool

	// IndentSize sets the number of spaces for indentation (default 2).
	IndentSize int

	// DataOnly writes each result's data without the event envelope.
	// Error events are still written whole.
	DataOnly bool

	// AlwaysArray writes an array even for a single event.
	AlwaysArray bool
}

// NewJSONWriter creates a new JSON writer that writes to w.
func NewJSONWriter(w io.Writer, opts JSONOptions) *JSONWriter {
	if opts.IndentSize == 0 {
		opts.IndentSize = 2
	}
	return &JSONWriter{w: w, opts: opts}
}

// Write buffers an event until Close.
func (jw *JSONWriter) Write(event events.Event) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	jw.buffer = append(jw.buffer, event)
	return nil
}

// Flush is a no-op; the document is written on Close.
func (jw *JSONWriter) Flush() error {
	return nil
}

// Close encodes the buffered events and closes the destination.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	items := make([]any, 0, len(jw.buffer))
	for _, e := range jw.buffer {
		if re, ok := e.(*events.ResultEvent); ok && jw.opts.DataOnly {
			items = append(items, re.Data)
			continue
		}
		items = append(items, e)
	}

	encoder := jsonutil.NewStreamEncoder(jw.w)
	if jw.opts.Pretty {
		encoder.SetIndent("", strings.Repeat(" ", jw.opts.IndentSize))
	}

	var doc any = items
	if len(items) == 1 && !jw.opts.AlwaysArray {
		doc = items[0]
	}
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("json: encode: %w", err)
	}

	if jw.w == os.Stdout || jw.w == os.Stderr {
		return nil
	}
	if closer, ok := jw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent returns true for result and error events.
func (jw *JSONWriter) SupportsEvent(eventType events.EventType) bool {
	switch eventType {
	case events.EventTypeResult, events.EventTypeError:
		return true
	default:
		return false
	}
}
