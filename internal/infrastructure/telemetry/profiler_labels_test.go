package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func labelsFrom(ctx context.Context) map[string]string {
	got := map[string]string{}
	pprof.ForLabels(ctx, func(k, v string) bool {
		got[k] = v
		return true
	})
	return got
}

func TestWithProfilingLabels(t *testing.T) {
	var got map[string]string
	WithProfilingLabels(context.Background(), map[string]string{
		"resource":   "bids",
		"method":     "POST",
		"bid_id":     "7f1c",
		"request_id": "req-1",
		"route":      strings.Repeat("r", MaxLabelValueLength+20),
		"role":       "",
	}, func(ctx context.Context) {
		got = labelsFrom(ctx)
	})

	assert.Equal(t, "bids", got["resource"])
	assert.Equal(t, "POST", got["method"])
	assert.NotContains(t, got, "bid_id")
	assert.NotContains(t, got, "request_id")
	assert.NotContains(t, got, "role")
	assert.Len(t, got["route"], MaxLabelValueLength)
}

func TestWithProfilingLabels_EmptyRunsFn(t *testing.T) {
	called := false
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}

func TestSanitizeLabelKey(t *testing.T) {
	tests := map[string]string{
		"Resource":     "resource",
		"accept path":  "accept_path",
		"vehicle-type": "vehicle_type",
		"weird$key!":   "weirdkey",
		"$$$":          "",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeLabelKey(in), in)
	}
}

func TestSanitizeLabels_Deterministic(t *testing.T) {
	pairs := sanitizeLabels(map[string]string{"route": "/loads", "method": "GET", "resource": "loads"})
	assert.Equal(t, []string{"method", "GET", "resource", "loads", "route", "/loads"}, pairs)
}

func TestHTTPRequestLabels(t *testing.T) {
	labels := HTTPRequestLabels("loads", "/api/v1/loads/:id", "GET", "")
	assert.Equal(t, map[string]string{
		ProfilingLabelResource: "loads",
		ProfilingLabelRoute:    "/api/v1/loads/:id",
		ProfilingLabelMethod:   "GET",
	}, labels)
}

func TestOperationLabels(t *testing.T) {
	extra := map[string]string{"operation": "ignored", "path": "counter_offer"}
	labels := OperationLabels("accept_bid", extra)
	assert.Equal(t, "accept_bid", labels[ProfilingLabelOperation])
	assert.Equal(t, "counter_offer", labels["path"])
	assert.Equal(t, "ignored", extra["operation"], "input map is not modified")
}
