package hooks

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/output/events"
)

// =============================================================================
// logRecorder captures slog.Record entries for assertions
// =============================================================================

type logRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

func (r *logRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *logRecorder) Handle(_ context.Context, rec slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *logRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *logRecorder) WithGroup(string) slog.Handler       { return r }

func (r *logRecorder) getRecords() []slog.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	dst := make([]slog.Record, len(r.records))
	copy(dst, r.records)
	return dst
}

func attrValue(rec slog.Record, key string) (string, bool) {
	var (
		val   string
		found bool
	)
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			val, found = a.Value.String(), true
			return false
		}
		return true
	})
	return val, found
}

var testPanel = events.PanelInfo{ID: "headers", Label: "Headers", Category: "security"}

// =============================================================================
// orDefault tests
// =============================================================================

func TestOrDefault_NilReturnsDefault(t *testing.T) {
	if orDefault(nil) != slog.Default() {
		t.Error("expected slog.Default() for nil input")
	}
}

func TestOrDefault_NonNilReturnsInput(t *testing.T) {
	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if orDefault(custom) != custom {
		t.Error("expected custom logger to be returned")
	}
}

// =============================================================================
// LogHook tests
// =============================================================================

func TestLogHook_Levels(t *testing.T) {
	rec := &logRecorder{}
	h := NewLogHook(slog.New(rec))
	ctx := context.Background()

	table := &events.Table{Columns: []string{"name"}, Rows: [][]string{{"a"}, {"b"}}}
	evs := []events.Event{
		events.NewStart("r1", testPanel, nil),
		events.NewResult("r1", testPanel, 2*time.Millisecond, finding.Medium, nil, table),
		events.NewError("r2", testPanel, time.Millisecond, events.ErrorTypeFailed, "Failed to fetch headers."),
	}
	for _, e := range evs {
		if err := h.OnEvent(ctx, e); err != nil {
			t.Fatalf("OnEvent: %v", err)
		}
	}

	records := rec.getRecords()
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	wantLevels := []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn}
	for i, want := range wantLevels {
		if records[i].Level != want {
			t.Errorf("record %d level = %v, want %v", i, records[i].Level, want)
		}
		if v, _ := attrValue(records[i], "panel"); v != "headers" {
			t.Errorf("record %d panel = %q", i, v)
		}
	}

	if v, ok := attrValue(records[1], "severity"); !ok || v != string(finding.Medium) {
		t.Errorf("severity = %q, %v", v, ok)
	}
	if v, _ := attrValue(records[1], "rows"); v != "2" {
		t.Errorf("rows = %q, want 2", v)
	}
	if v, _ := attrValue(records[2], "error"); v != "Failed to fetch headers." {
		t.Errorf("error = %q", v)
	}
	if v, _ := attrValue(records[2], "run"); v != "r2" {
		t.Errorf("run = %q", v)
	}
}

func TestLogHook_ResultWithoutSeverity(t *testing.T) {
	rec := &logRecorder{}
	h := NewLogHook(slog.New(rec))
	_ = h.OnEvent(context.Background(), events.NewResult("r", testPanel, 0, "", "x", nil))

	records := rec.getRecords()
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	if _, ok := attrValue(records[0], "severity"); ok {
		t.Error("severity should be omitted")
	}
	if _, ok := attrValue(records[0], "rows"); ok {
		t.Error("rows should be omitted without a table")
	}
}

func TestLogHook_ReceivesAllEvents(t *testing.T) {
	if NewLogHook(nil).EventTypes() != nil {
		t.Error("expected nil event types")
	}
}
