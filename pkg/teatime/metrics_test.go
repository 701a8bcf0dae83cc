package teatime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teatime-io/teatime/pkg/teatime"
)

// Not parallel: the interceptors write to the process-global default registry.
func TestPrometheusInterceptors(t *testing.T) {
	record := teatime.PrometheusRequestInterceptor()
	observe := teatime.PrometheusResponseInterceptor()

	ctx := context.Background()

	req := teatime.NewRequest("REPORT", teatime.Rel("items"))
	require.NoError(t, record(ctx, req))
	require.NoError(t, observe(ctx, req, &teatime.Response{StatusCode: 200}, nil))

	failing := teatime.NewRequest("REPORT", teatime.Rel("items"))
	require.NoError(t, record(ctx, failing))
	require.NoError(t, observe(ctx, failing, nil, errors.New("connection refused")))

	assert.GreaterOrEqual(t, counterValue(t, "teatime_requests_total",
		map[string]string{"method": "REPORT", "status": "200"}), 1.0)
	assert.GreaterOrEqual(t, counterValue(t, "teatime_requests_total",
		map[string]string{"method": "REPORT", "status": "error"}), 1.0)
	assert.GreaterOrEqual(t, counterValue(t, "teatime_transport_errors_total", nil), 1.0)
	assert.GreaterOrEqual(t, histogramSamples(t, "teatime_request_duration_seconds",
		map[string]string{"method": "REPORT"}), uint64(2))
}

// counterValue reads one counter series from the default registry, or 0 when
// no series matches the labels.
func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}

		for _, metric := range family.GetMetric() {
			matched := true

			for key, want := range labels {
				got := ""

				for _, label := range metric.GetLabel() {
					if label.GetName() == key {
						got = label.GetValue()
					}
				}

				if got != want {
					matched = false

					break
				}
			}

			if matched {
				return metric.GetCounter().GetValue()
			}
		}
	}

	return 0
}

// histogramSamples reads one histogram's sample count from the default
// registry, or 0 when no series matches the labels.
func histogramSamples(t *testing.T, name string, labels map[string]string) uint64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}

		for _, metric := range family.GetMetric() {
			matched := true

			for key, want := range labels {
				got := ""

				for _, label := range metric.GetLabel() {
					if label.GetName() == key {
						got = label.GetValue()
					}
				}

				if got != want {
					matched = false

					break
				}
			}

			if matched {
				return metric.GetHistogram().GetSampleCount()
			}
		}
	}

	return 0
}
