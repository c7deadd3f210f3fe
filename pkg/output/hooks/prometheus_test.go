package hooks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/output/events"
)

func newTestPrometheusHook(t *testing.T) *PrometheusHook {
	t.Helper()
	hook, err := NewPrometheusHook(PrometheusOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = hook.Close() })
	return hook
}

func TestPrometheusHook_CountsResults(t *testing.T) {
	hook := newTestPrometheusHook(t)
	ctx := context.Background()

	require.NoError(t, hook.OnEvent(ctx, events.NewStart("r1", testPanel, nil)))
	assert.Equal(t, 1.0, testutil.ToFloat64(hook.inFlight.WithLabelValues("headers")))

	require.NoError(t, hook.OnEvent(ctx, events.NewResult("r1", testPanel, 250*time.Millisecond, finding.High, nil, nil)))
	assert.Equal(t, 0.0, testutil.ToFloat64(hook.inFlight.WithLabelValues("headers")))
	assert.Equal(t, 1.0, testutil.ToFloat64(hook.invocationsTotal.WithLabelValues("headers", "security")))
	assert.Equal(t, 1.0, testutil.ToFloat64(hook.findingsTotal.WithLabelValues("headers", string(finding.High))))
	assert.Equal(t, 1, testutil.CollectAndCount(hook.durationSeconds))
}

func TestPrometheusHook_CountsErrors(t *testing.T) {
	hook := newTestPrometheusHook(t)
	ctx := context.Background()

	_ = hook.OnEvent(ctx, events.NewStart("r1", testPanel, nil))
	_ = hook.OnEvent(ctx, events.NewError("r1", testPanel, time.Millisecond, events.ErrorTypePanic, "boom"))
	_ = hook.OnEvent(ctx, events.NewError("r2", testPanel, time.Millisecond, events.ErrorTypeFailed, "nope"))

	assert.Equal(t, 1.0, testutil.ToFloat64(hook.errorsTotal.WithLabelValues("headers", "panic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(hook.errorsTotal.WithLabelValues("headers", "failed")))
	assert.Equal(t, 0, testutil.CollectAndCount(hook.invocationsTotal))
}

func TestPrometheusHook_NoFindingWithoutSeverity(t *testing.T) {
	hook := newTestPrometheusHook(t)
	_ = hook.OnEvent(context.Background(), events.NewResult("r", testPanel, 0, "", "ok", nil))
	assert.Equal(t, 0, testutil.CollectAndCount(hook.findingsTotal))
}

func TestPrometheusHook_IgnoresEventsAfterClose(t *testing.T) {
	hook := newTestPrometheusHook(t)
	require.NoError(t, hook.Close())
	_ = hook.OnEvent(context.Background(), events.NewResult("r", testPanel, 0, "", nil, nil))
	assert.Equal(t, 0, testutil.CollectAndCount(hook.invocationsTotal))
}

func TestPrometheusHook_Handler(t *testing.T) {
	hook := newTestPrometheusHook(t)
	_ = hook.OnEvent(context.Background(), events.NewResult("r", testPanel, time.Second, "", nil, nil))

	srv := httptest.NewServer(hook.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, `cyberx_panel_invocations_total{category="security",panel="headers"} 1`), text)
	assert.Contains(t, text, "cyberx_panel_duration_seconds_bucket")
}

func TestPrometheusHook_CustomNamespace(t *testing.T) {
	hook, err := NewPrometheusHook(PrometheusOptions{Namespace: "probe"})
	require.NoError(t, err)
	_ = hook.OnEvent(context.Background(), events.NewResult("r", testPanel, 0, "", nil, nil))

	families, err := hook.Registry().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
	for _, f := range families {
		assert.True(t, strings.HasPrefix(f.GetName(), "probe_"), f.GetName())
	}
}
