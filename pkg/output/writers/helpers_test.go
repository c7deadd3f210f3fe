package writers

import (
	"time"

	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/output/events"
)

var (
	headersPanel = events.PanelInfo{ID: "headers", Label: "Headers", Category: "security"}
	hashPanel    = events.PanelInfo{ID: "hasher", Label: "Hash", Category: "core"}
	corsPanel    = events.PanelInfo{ID: "cors", Label: "CORS", Category: "security"}
)

func headersResult() *events.ResultEvent {
	table := &events.Table{
		Columns: []string{"Header", "Status", "Value"},
		Rows: [][]string{
			{"Strict-Transport-Security", "good", "max-age=63072000"},
			{"Content-Security-Policy", "missing", ""},
			{"X-Frame-Options", "good", "DENY"},
		},
	}
	return events.NewResult("run-h", headersPanel, 12*time.Millisecond, finding.Medium, map[string]int{"score": 38}, table)
}

func hashResult() *events.ResultEvent {
	table := &events.Table{
		Columns: []string{"Algorithm", "Digest"},
		Rows:    [][]string{{"MD5", "5d41402abc4b2a76b9719d911017c592"}, {"SHA-1", "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"}},
	}
	return events.NewResult("run-x", hashPanel, time.Millisecond, "", []string{"5d41402abc4b2a76b9719d911017c592"}, table)
}

func corsError() *events.ErrorEvent {
	return events.NewError("run-c", corsPanel, 3*time.Millisecond, events.ErrorTypeFailed, "invalid URL")
}
