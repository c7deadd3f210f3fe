package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/panel"
)

// registerTools adds one tool per panel, in catalog order.
func (s *Server) registerTools() {
	for _, info := range s.registry.List() {
		s.mcp.AddTool(Tool(info), s.loggedTool(info, s.panelHandler(info)))
	}
}

// Tool describes a panel as an MCP tool.
func Tool(info panel.Info) *mcp.Tool {
	return &mcp.Tool{
		Name:        info.ID,
		Title:       info.Label,
		Description: describe(info),
		InputSchema: InputSchema(info),
		Annotations: &mcp.ToolAnnotations{
			Title:           info.Label,
			ReadOnlyHint:    !mutates(info),
			DestructiveHint: boolPtr(mutates(info)),
			IdempotentHint:  !mutates(info) && info.ID != "uuid",
			OpenWorldHint:   boolPtr(openWorld(info)),
		},
	}
}

func describe(info panel.Info) string {
	var b strings.Builder
	b.WriteString(info.Description)
	fmt.Fprintf(&b, "\n\nCategory: %s.", info.Category)
	if info.Category == panel.Recon {
		b.WriteString(" Reads the page open in the connected browser; pass url to navigate first.")
	}
	if p, ok := info.Param("url"); ok && !p.Required && info.Category == panel.Security {
		b.WriteString(" Without url the active tab's address is used.")
	}
	return b.String()
}

// InputSchema builds a JSON Schema object from the panel parameters.
func InputSchema(info panel.Info) map[string]any {
	props := make(map[string]any, len(info.Params))
	var required []string
	for _, p := range info.Params {
		prop := map[string]any{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if p.Type == panel.TypeArray {
			prop["items"] = map[string]any{"type": "string"}
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// mutates reports whether a panel can change browser state.
func mutates(info panel.Info) bool {
	p, ok := info.Param("action")
	return ok && len(p.Enum) > 1
}

// openWorld reports whether a panel reaches outside the process: a browser
// tab or the network.
func openWorld(info panel.Info) bool {
	if info.Category == panel.Recon || mutates(info) {
		return true
	}
	for _, name := range []string{"url", "urls", "favicon"} {
		if _, ok := info.Param(name); ok {
			return true
		}
	}
	return false
}

// ToolOutput is the structured result of a tool call.
type ToolOutput struct {
	Panel    string           `json:"panel"`
	Severity finding.Severity `json:"severity,omitempty"`
	Data     any              `json:"data"`
	Text     string           `json:"text,omitempty"`
}

func (s *Server) panelHandler(info panel.Info) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := panel.Args{}
		if err := parseArgs(req, &args); err != nil {
			return errorResult(fmt.Sprintf("invalid arguments: %v. Expected a JSON object.", err)), nil
		}

		res, err := s.registry.Run(ctx, info.ID, args)
		if err != nil {
			return toolError(info, err), nil
		}

		out := ToolOutput{Panel: info.ID, Severity: res.Severity, Data: res.Data, Text: res.Text}
		if str, ok := res.Data.(fmt.Stringer); ok && str.String() == res.Text {
			out.Text = ""
		}
		if res.Severity.Score() >= finding.High.Score() {
			logToSession(ctx, req, logWarning, map[string]any{
				"panel":    info.ID,
				"severity": res.Severity,
			})
		}
		return jsonResult(out)
	}
}

// toolError maps a panel failure to an error result with hints the model
// can act on.
func toolError(info panel.Info, err error) *mcp.CallToolResult {
	var pe *panel.PanelError
	switch {
	case errors.As(err, &pe):
		return enrichedError(pe.Error(), []string{
			fmt.Sprintf("The %s tool crashed on this input. Other tools are unaffected.", info.ID),
			"Calling the tool again retries it; changing the input is more likely to help.",
		})
	case errors.Is(err, panel.ErrMissingArg), errors.Is(err, panel.ErrInvalidArg):
		return enrichedError(err.Error(), paramHints(info))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errorResult(fmt.Sprintf("%s was cancelled: %v", info.ID, err))
	default:
		return errorResult(err.Error())
	}
}

func paramHints(info panel.Info) []string {
	hints := make([]string, 0, len(info.Params))
	for _, p := range info.Params {
		h := fmt.Sprintf("%s (%s): %s", p.Name, p.Type, p.Description)
		if len(p.Enum) > 0 {
			h += ". One of: " + strings.Join(p.Enum, ", ")
		}
		if p.Required {
			h += ". Required."
		}
		hints = append(hints, h)
	}
	return hints
}

// loggedTool logs each call with its outcome.
func (s *Server) loggedTool(info panel.Info, h mcp.ToolHandler) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := h(ctx, req)
		failed := err != nil || (res != nil && res.IsError)
		s.logger.Debug("tool call", "tool", info.ID, "failed", failed)
		return res, err
	}
}

// logToSession sends a log notification to the calling client.
func logToSession(ctx context.Context, req *mcp.CallToolRequest, level mcp.LoggingLevel, data any) {
	if req.Session == nil {
		return
	}
	_ = req.Session.Log(ctx, &mcp.LoggingMessageParams{
		Level:  level,
		Logger: "cyberx",
		Data:   data,
	})
}
