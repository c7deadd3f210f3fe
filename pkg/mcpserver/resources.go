package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/jsonutil"
	"github.com/thecyberx/cyberx/pkg/panel"
)

const (
	versionURI = "cyberx://version"
	panelsURI  = "cyberx://panels"
)

func (s *Server) registerResources() {
	s.addVersionResource()
	s.addPanelsResource()
}

func (s *Server) addVersionResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			URI:         versionURI,
			Name:        "CyberX Version",
			Description: "Server version and tool inventory.",
			MIMEType:    "application/json",
		},
		func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			infos := s.registry.List()
			tools := make([]string, len(infos))
			for i, info := range infos {
				tools[i] = info.ID
			}
			return jsonResource(versionURI, map[string]any{
				"name":       defaults.ToolName,
				"version":    defaults.Version,
				"tools":      tools,
				"categories": panel.Categories,
			})
		},
	)
}

// catalogEntry is one panel in the catalog resource.
type catalogEntry struct {
	ID          string         `json:"id"`
	Label       string         `json:"label"`
	Category    panel.Category `json:"category"`
	Description string         `json:"description"`
	Params      []panel.Param  `json:"params,omitempty"`
}

func (s *Server) addPanelsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			URI:         panelsURI,
			Name:        "Panel Catalog",
			Description: "Every panel grouped by category, with parameters, defaults and allowed values.",
			MIMEType:    "application/json",
		},
		func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			catalog := make(map[panel.Category][]catalogEntry, len(panel.Categories))
			for _, c := range panel.Categories {
				for _, info := range s.registry.ByCategory(c) {
					catalog[c] = append(catalog[c], catalogEntry{
						ID:          info.ID,
						Label:       info.Label,
						Category:    info.Category,
						Description: info.Description,
						Params:      info.Params,
					})
				}
			}
			return jsonResource(panelsURI, catalog)
		},
	)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := jsonutil.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
