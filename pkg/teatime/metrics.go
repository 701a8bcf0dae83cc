package teatime

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teatime_requests_total",
		Help: "Total API requests by method and status",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "teatime_request_duration_seconds",
		Help:    "API request duration in seconds by method",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	transportErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teatime_transport_errors_total",
		Help: "Total round trips that failed before a status was received",
	})
)

// PrometheusRequestInterceptor records the dispatch time for the duration
// histogram.
func PrometheusRequestInterceptor() RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		req.SetMetadata(startTimeMetadataKey, time.Now())

		return nil
	}
}

// PrometheusResponseInterceptor exports request counts, durations, and
// transport failures to the default Prometheus registry.
func PrometheusResponseInterceptor() ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response, err error) error {
		if err != nil {
			transportErrorsTotal.Inc()
		}

		status := "error"
		if resp != nil {
			status = strconv.Itoa(resp.StatusCode)
		}

		requestsTotal.WithLabelValues(req.Method, status).Inc()

		if start, ok := req.GetMetadata(startTimeMetadataKey); ok {
			if startTime, ok := start.(time.Time); ok {
				requestDuration.WithLabelValues(req.Method).Observe(time.Since(startTime).Seconds())
			}
		}

		return nil
	}
}
