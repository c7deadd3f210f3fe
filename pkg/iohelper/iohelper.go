// Package iohelper reads HTTP bodies under a size cap and releases
// connections for reuse.
package iohelper

import (
	"io"
	"log/slog"
)

// Body size caps.
const (
	// HeaderProbeMaxBodySize is enough for CORS and header probes that only
	// look at the response head (8KB).
	HeaderProbeMaxBodySize int64 = 8 * 1024

	// PageMaxBodySize bounds a fetched page snapshot (4MB).
	PageMaxBodySize int64 = 4 * 1024 * 1024

	// AssetMaxBodySize bounds favicons and other binary assets (1MB).
	AssetMaxBodySize int64 = 1024 * 1024
)

// drainLimit caps how much of an unread body is discarded before close.
const drainLimit = 64 * 1024

// ReadBody reads at most maxSize bytes from r. A nil reader yields an empty
// slice.
func ReadBody(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// ReadPage reads a page body with PageMaxBodySize.
func ReadPage(r io.Reader) ([]byte, error) {
	return ReadBody(r, PageMaxBodySize)
}

// ReadBodyOrLog reads a page body and logs a read failure instead of
// returning it. The partial body is returned either way.
func ReadBodyOrLog(r io.Reader, logger *slog.Logger) []byte {
	data, err := ReadPage(r)
	if err != nil && logger != nil {
		logger.Warn("body read failed", slog.String("error", err.Error()))
	}
	return data
}

// DrainAndClose discards what is left of r (up to 64KB) and closes it so the
// connection can be reused. It always returns nil so it can be deferred.
func DrainAndClose(r io.Reader) error {
	if r == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r, drainLimit))
	if rc, ok := r.(io.ReadCloser); ok {
		rc.Close()
	}
	return nil
}
