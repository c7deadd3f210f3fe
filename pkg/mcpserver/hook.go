package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/output/events"
)

// Hook forwards panel events to every connected client as log
// notifications. Clients receive them once they set a log level.
// It implements dispatcher.Hook.
type Hook struct {
	send func(context.Context, mcp.LoggingLevel, events.Event)
}

// NewHook creates a Hook that calls fn for every event.
func NewHook(fn func(context.Context, mcp.LoggingLevel, events.Event)) *Hook {
	return &Hook{send: fn}
}

// EventHook returns a Hook broadcasting to the server's sessions.
func (s *Server) EventHook() *Hook {
	return NewHook(func(ctx context.Context, level mcp.LoggingLevel, ev events.Event) {
		for ss := range s.mcp.Sessions() {
			if err := ss.Log(ctx, &mcp.LoggingMessageParams{Level: level, Logger: "cyberx", Data: ev}); err != nil {
				s.logger.Debug("event not delivered", "session", ss.ID(), "error", err)
			}
		}
	})
}

func (h *Hook) OnEvent(ctx context.Context, ev events.Event) error {
	if h.send != nil {
		h.send(ctx, EventLevel(ev), ev)
	}
	return nil
}

// EventTypes returns nil to receive every event type.
func (h *Hook) EventTypes() []events.EventType {
	return nil
}

// EventLevel picks the log level an event is sent at.
func EventLevel(ev events.Event) mcp.LoggingLevel {
	switch e := ev.(type) {
	case *events.StartEvent:
		return logDebug
	case *events.ErrorEvent:
		return logError
	case *events.ResultEvent:
		if e.Severity.Score() >= finding.High.Score() {
			return logWarning
		}
		return logInfo
	default:
		return logInfo
	}
}
