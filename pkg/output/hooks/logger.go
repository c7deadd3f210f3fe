// Package hooks observes panel invocations as they happen: structured log
// lines, Prometheus metrics and OpenTelemetry spans.
package hooks

import (
	"context"
	"log/slog"

	"github.com/thecyberx/cyberx/pkg/output/dispatcher"
	"github.com/thecyberx/cyberx/pkg/output/events"
)

// orDefault returns l if non-nil, otherwise slog.Default().
func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

var _ dispatcher.Hook = (*LogHook)(nil)

// LogHook writes one log record per event. Starts are logged at debug,
// results at info and errors at warn.
type LogHook struct {
	logger *slog.Logger
}

// NewLogHook creates a log hook. A nil logger uses slog.Default().
func NewLogHook(logger *slog.Logger) *LogHook {
	return &LogHook{logger: orDefault(logger)}
}

// OnEvent logs the event.
func (h *LogHook) OnEvent(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.StartEvent:
		h.logger.LogAttrs(ctx, slog.LevelDebug, "panel started",
			slog.String("panel", e.Panel.ID),
			slog.String("run", e.Run),
		)
	case *events.ResultEvent:
		attrs := []slog.Attr{
			slog.String("panel", e.Panel.ID),
			slog.String("run", e.Run),
			slog.Float64("duration_ms", e.DurationMs),
		}
		if e.Severity != "" {
			attrs = append(attrs, slog.String("severity", string(e.Severity)))
		}
		if e.Table != nil {
			attrs = append(attrs, slog.Int("rows", e.Table.Len()))
		}
		h.logger.LogAttrs(ctx, slog.LevelInfo, "panel finished", attrs...)
	case *events.ErrorEvent:
		h.logger.LogAttrs(ctx, slog.LevelWarn, "panel failed",
			slog.String("panel", e.Panel.ID),
			slog.String("run", e.Run),
			slog.String("type", string(e.ErrorType)),
			slog.String("error", e.Message),
		)
	}
	return nil
}

// EventTypes returns nil to receive every event.
func (h *LogHook) EventTypes() []events.EventType { return nil }
