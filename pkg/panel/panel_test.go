package panel

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thecyberx/cyberx/pkg/output/dispatcher"
	"github.com/thecyberx/cyberx/pkg/output/events"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Write(e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Flush() error                         { return nil }
func (r *recorder) Close() error                         { return nil }
func (r *recorder) SupportsEvent(events.EventType) bool { return true }

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func newRecorded(env Env) (*Registry, *recorder) {
	rec := &recorder{}
	d := dispatcher.New(dispatcher.Config{})
	d.RegisterWriter(rec)
	return New(env, WithDispatcher(d)), rec
}

func TestListOrder(t *testing.T) {
	r := New(Env{})
	var ids []string
	for _, info := range r.List() {
		ids = append(ids, info.ID)
	}
	assert.Equal(t, []string{
		"encoder", "hasher", "jwt", "payloads", "dorks",
		"revshell", "cors", "headers", "cookies",
		"jsextract", "links", "forms", "comments", "tech",
		"regex", "timestamp", "uuid", "ip", "beautify",
	}, ids)

	labels := map[string]string{}
	for _, info := range r.List() {
		labels[info.ID] = info.Label
	}
	assert.Equal(t, "Encode/Decode", labels["encoder"])
	assert.Equal(t, "JS Extract", labels["jsextract"])
	assert.Equal(t, "Time", labels["timestamp"])
	assert.Equal(t, "IP Calc", labels["ip"])
}

func TestByCategory(t *testing.T) {
	r := New(Env{})
	counts := map[Category]int{}
	for _, c := range Categories {
		for _, info := range r.ByCategory(c) {
			assert.Equal(t, c, info.Category)
			counts[c]++
		}
	}
	assert.Equal(t, map[Category]int{Core: 5, Security: 4, Recon: 5, Utils: 5}, counts)
}

func TestLookup(t *testing.T) {
	r := New(Env{})
	info, ok := r.Lookup("JWT")
	require.True(t, ok)
	assert.Equal(t, "jwt", info.ID)

	p, ok := info.Param("token")
	require.True(t, ok)
	assert.True(t, p.Required)

	_, ok = r.Lookup("nope")
	assert.False(t, ok)
}

func TestRunUnknownPanel(t *testing.T) {
	r, rec := newRecorded(Env{})
	_, err := r.Run(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownPanel)
	assert.Empty(t, rec.all())
}

func TestRunEmitsEvents(t *testing.T) {
	r, rec := newRecorded(Env{})
	res, err := r.Run(context.Background(), "hasher", Args{"text": "hello", "algorithm": "md5"})
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", res.Text)

	evs := rec.all()
	require.Len(t, evs, 2)
	start, ok := evs[0].(*events.StartEvent)
	require.True(t, ok)
	result, ok := evs[1].(*events.ResultEvent)
	require.True(t, ok)

	assert.Equal(t, "hasher", start.Panel.ID)
	assert.Equal(t, "core", start.Panel.Category)
	assert.NotEmpty(t, start.Run)
	assert.Equal(t, start.Run, result.Run)
	assert.Same(t, res.Table, result.Table)
}

func TestRunErrorEvent(t *testing.T) {
	r, rec := newRecorded(Env{})
	_, err := r.Run(context.Background(), "jwt", Args{"token": "not-a-token"})
	require.Error(t, err)

	evs := rec.all()
	require.Len(t, evs, 2)
	ev, ok := evs[1].(*events.ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, events.ErrorTypeFailed, ev.ErrorType)
	assert.Equal(t, err.Error(), ev.Message)
}

func TestRunMissingRequired(t *testing.T) {
	r := New(Env{})
	_, err := r.Run(context.Background(), "jwt", Args{"token": "  "})
	assert.ErrorIs(t, err, ErrMissingArg)
}

func TestRunEnumChecked(t *testing.T) {
	r := New(Env{})
	_, err := r.Run(context.Background(), "encoder", Args{"text": "x", "direction": "sideways"})
	assert.ErrorIs(t, err, ErrInvalidArg)

	_, err = r.Run(context.Background(), "encoder", Args{"text": "zz", "direction": "DECODE", "encoding": "hex"})
	assert.Error(t, err, "zz is not hex")
}

func TestRunCancelled(t *testing.T) {
	r, rec := newRecorded(Env{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := r.Run(ctx, "uuid", nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)

	evs := rec.all()
	require.Len(t, evs, 2)
	ev, ok := evs[1].(*events.ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, events.ErrorTypeCanceled, ev.ErrorType)
}

func TestPanicBoundary(t *testing.T) {
	r, rec := newRecorded(Env{})
	calls := 0
	r.add(Info{ID: "boom", Label: "Boom", Category: Utils}, func(context.Context, Args) (*Result, error) {
		calls++
		if calls == 1 {
			panic("kaboom")
		}
		return &Result{Data: "ok"}, nil
	})

	_, err := r.Run(context.Background(), "boom", Args{"n": 1})
	var pe *PanelError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Panel)
	assert.Equal(t, "kaboom", pe.Error())
	assert.NotEmpty(t, pe.Stack)
	assert.Equal(t, 1, calls, "not retried automatically")

	evs := rec.all()
	require.Len(t, evs, 2)
	ev, ok := evs[1].(*events.ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, events.ErrorTypePanic, ev.ErrorType)

	// other panels keep working
	_, err = r.Run(context.Background(), "uuid", nil)
	require.NoError(t, err)

	res, err := pe.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Data)
	assert.Equal(t, 2, calls)
}

func TestPanelErrorMessage(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{"boom", "boom"},
		{errors.New("bad state"), "bad state"},
		{42, DefaultPanicMessage},
		{"", DefaultPanicMessage},
		{errors.New(""), DefaultPanicMessage},
	}
	for _, tt := range tests {
		pe := &PanelError{Value: tt.value}
		if got := pe.Error(); got != tt.want {
			t.Errorf("PanelError{%v}.Error() = %q, want %q", tt.value, got, tt.want)
		}
	}

	cause := errors.New("cause")
	assert.ErrorIs(t, &PanelError{Value: cause}, cause)
}

func TestConcurrentRuns(t *testing.T) {
	r, rec := newRecorded(Env{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Run(context.Background(), "uuid", Args{"count": 2})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, rec.all(), 16)
}

func TestArgs(t *testing.T) {
	a := Args{
		"s":     " x ",
		"n":     "12",
		"f":     float64(3),
		"blank": "",
		"b":     "true",
		"list":  "a, b,,c",
		"arr":   []any{"x", "y"},
	}
	assert.Equal(t, " x ", a.String("s"))
	assert.Equal(t, "x", a.StringOr("s", "d"))
	assert.Equal(t, "d", a.StringOr("blank", "d"))
	assert.Equal(t, "", a.String("missing"))

	n, err := a.Int("n", 0)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	n, err = a.Int("f", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = a.Int("blank", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	_, err = Args{"n": "twelve"}.Int("n", 0)
	assert.ErrorIs(t, err, ErrInvalidArg)

	assert.True(t, a.Bool("b"))
	assert.False(t, a.Bool("missing"))
	assert.Equal(t, []string{"a", "b", "c"}, a.Strings("list"))
	assert.Equal(t, []string{"x", "y"}, a.Strings("arr"))
}
