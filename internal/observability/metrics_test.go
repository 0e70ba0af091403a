package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountAndExpose(t *testing.T) {
	m := NewMetrics()

	m.Assigned("emotion", "Suppressor")
	m.Assigned("emotion", "Suppressor")
	m.ScreenedOut("NonSuppressor")
	m.GatewayCall("info-cue", "fallback")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.assignments.WithLabelValues("emotion", "Suppressor")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.screenOuts.WithLabelValues("NonSuppressor")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `csrlab_gateway_calls_total{capability="info-cue",provenance="fallback"} 1`)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Assigned("control", "Suppressor")
		m.ScreenedOut("Suppressor")
		m.Transition("PRE_SURVEY", "ROUND1_CHAT")
		m.GatewayCall("info-cue", "backend")
	})
	assert.Nil(t, m.Registry())
}

func TestLoggerFromContextAddsIDs(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nopWriter{}) })

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithSessionID(ctx, "sess-1")
	LoggerFromContext(ctx).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line))
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "sess-1", line["session_id"])
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
}

func TestSetLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetLevel("info")
		SetOutput(nopWriter{})
	})

	SetLevel("warn")
	Logger().Info("dropped")
	assert.Empty(t, buf.String())

	SetLevel("debug")
	Logger().Debug("kept")
	assert.Contains(t, buf.String(), "kept")
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
