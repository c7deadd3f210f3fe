// Package events defines the events a panel invocation emits.
// All events are designed for JSON serialization.
//
// Every invocation produces a StartEvent followed by exactly one
// ResultEvent or ErrorEvent carrying the same run ID.
package events

import (
	"time"

	"github.com/thecyberx/cyberx/pkg/finding"
)

// EventType represents the type of output event.
type EventType string

const (
	// EventTypeStart indicates a panel invocation has started.
	EventTypeStart EventType = "start"
	// EventTypeResult indicates a panel returned a result.
	EventTypeResult EventType = "result"
	// EventTypeError indicates a panel failed or panicked.
	EventTypeError EventType = "error"
)

// Severity is an alias for finding.Severity.
type Severity = finding.Severity

// Event is the base interface for all events.
type Event interface {
	EventType() EventType
	Timestamp() time.Time
	RunID() string
}

// BaseEvent contains common fields for all events.
// It is designed to be embedded in specific event types.
type BaseEvent struct {
	Type EventType `json:"type"`
	Time time.Time `json:"timestamp"`
	Run  string    `json:"run_id"`
}

// EventType returns the type of this event.
func (e BaseEvent) EventType() EventType { return e.Type }

// Timestamp returns when this event occurred.
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// RunID returns the invocation the event belongs to.
func (e BaseEvent) RunID() string { return e.Run }

// PanelInfo identifies the panel that produced an event.
type PanelInfo struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Category string `json:"category"`
}
