// Package extract implements the recon scanners: technology fingerprints,
// API endpoints in inline scripts, comments, links and hidden form inputs.
//
// Every scanner is a pure function of a hostbridge.Snapshot. Scan wraps one
// with the host call and turns any failure into an empty result.
package extract

import (
	"context"
	"log/slog"

	"github.com/thecyberx/cyberx/pkg/hostbridge"
)

// Report is the output of every scanner for one snapshot.
type Report struct {
	URL          string        `json:"url"`
	Technologies []Technology  `json:"technologies"`
	Endpoints    []Endpoint    `json:"endpoints"`
	Scripts      []string      `json:"scripts"`
	Comments     []Comment     `json:"comments"`
	Links        []Link        `json:"links"`
	HiddenInputs []HiddenInput `json:"hidden_inputs"`
}

// All runs every scanner over snap.
func (d *Detector) All(snap *hostbridge.Snapshot) *Report {
	return &Report{
		URL:          snap.URL,
		Technologies: d.Detect(snap),
		Endpoints:    Endpoints(snap),
		Scripts:      nonNil(snap.Scripts),
		Comments:     Comments(snap),
		Links:        Links(snap),
		HiddenInputs: HiddenInputs(snap),
	}
}

// Scan captures one snapshot from h and applies fn. If the host cannot
// supply a snapshot the failure is logged at debug level and an empty,
// non-nil slice is returned.
func Scan[T any](ctx context.Context, h hostbridge.Host, logger *slog.Logger, fn func(*hostbridge.Snapshot) []T) []T {
	if logger == nil {
		logger = slog.Default()
	}
	snap, err := h.Snapshot(ctx)
	if err != nil {
		logger.Debug("snapshot unavailable", slog.String("error", err.Error()))
		return []T{}
	}
	out := fn(snap)
	if ctx.Err() != nil {
		// the caller has moved on
		return []T{}
	}
	return nonNil(out)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
