package events

import "time"

// StartEvent is emitted before a panel runs.
type StartEvent struct {
	BaseEvent
	Panel PanelInfo      `json:"panel"`
	Args  map[string]any `json:"args,omitempty"`
}

// Table is a flat rendering of a result for text and PDF output.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Len reports the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ResultEvent is emitted when a panel returns.
type ResultEvent struct {
	BaseEvent
	Panel      PanelInfo `json:"panel"`
	DurationMs float64   `json:"duration_ms"`

	// Severity is the worst finding in the result, if the panel grades
	// anything.
	Severity Severity `json:"severity,omitempty"`

	// Data is the panel's typed result.
	Data any `json:"data"`

	Table *Table `json:"-"`
}

// ErrorType classifies an ErrorEvent.
type ErrorType string

const (
	// ErrorTypeFailed is an error the panel returned.
	ErrorTypeFailed ErrorType = "failed"
	// ErrorTypePanic is a panic caught by the fallback boundary.
	ErrorTypePanic ErrorType = "panic"
	// ErrorTypeCanceled is a cancelled or timed-out invocation.
	ErrorTypeCanceled ErrorType = "canceled"
)

// ErrorEvent is emitted when a panel fails.
type ErrorEvent struct {
	BaseEvent
	Panel      PanelInfo `json:"panel"`
	DurationMs float64   `json:"duration_ms"`
	ErrorType  ErrorType `json:"error_type"`
	Message    string    `json:"message"`
}

// NewStart builds a StartEvent stamped now.
func NewStart(run string, panel PanelInfo, args map[string]any) *StartEvent {
	return &StartEvent{
		BaseEvent: BaseEvent{Type: EventTypeStart, Time: time.Now(), Run: run},
		Panel:     panel,
		Args:      args,
	}
}

// NewResult builds a ResultEvent stamped now.
func NewResult(run string, panel PanelInfo, elapsed time.Duration, sev Severity, data any, table *Table) *ResultEvent {
	return &ResultEvent{
		BaseEvent:  BaseEvent{Type: EventTypeResult, Time: time.Now(), Run: run},
		Panel:      panel,
		DurationMs: msec(elapsed),
		Severity:   sev,
		Data:       data,
		Table:      table,
	}
}

// NewError builds an ErrorEvent stamped now.
func NewError(run string, panel PanelInfo, elapsed time.Duration, kind ErrorType, msg string) *ErrorEvent {
	return &ErrorEvent{
		BaseEvent:  BaseEvent{Type: EventTypeError, Time: time.Now(), Run: run},
		Panel:      panel,
		DurationMs: msec(elapsed),
		ErrorType:  kind,
		Message:    msg,
	}
}

func msec(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
