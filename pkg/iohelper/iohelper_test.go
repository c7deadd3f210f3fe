package iohelper

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestReadBody_NilReader(t *testing.T) {
	body, err := ReadBody(nil, PageMaxBodySize)
	if err != nil {
		t.Errorf("expected no error for nil reader, got %v", err)
	}
	if len(body) != 0 {
		t.Errorf("expected empty body, got %d bytes", len(body))
	}
}

func TestReadBody_RespectsLimit(t *testing.T) {
	body, err := ReadBody(strings.NewReader(strings.Repeat("x", 1000)), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body) != 100 {
		t.Errorf("expected 100 bytes, got %d", len(body))
	}
}

func TestReadPage(t *testing.T) {
	body, err := ReadPage(strings.NewReader("<html></html>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "<html></html>" {
		t.Errorf("got %q", body)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestReadBodyOrLog(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	data := ReadBodyOrLog(failingReader{}, logger)
	if len(data) != 0 {
		t.Errorf("expected no data, got %d bytes", len(data))
	}
	if !strings.Contains(logs.String(), "body read failed") {
		t.Errorf("expected warning in log, got %q", logs.String())
	}
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestDrainAndClose(t *testing.T) {
	rc := &closeTracker{Reader: strings.NewReader("rest of body")}
	if err := DrainAndClose(rc); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !rc.closed {
		t.Error("expected reader to be closed")
	}
	if err := DrainAndClose(nil); err != nil {
		t.Errorf("nil reader: unexpected error: %v", err)
	}
}
