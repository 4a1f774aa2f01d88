package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// unmatchedRoute labels requests that hit no registered route, so scans of
// random paths cannot grow the label set.
const unmatchedRoute = "unknown"

type requestInstruments struct {
	count    metric.Int64Counter
	duration metric.Float64Histogram
}

func newRequestInstruments(meter metric.Meter, namespace string) (*requestInstruments, error) {
	count, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Requests served by the operations API"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("Latency of operations API requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &requestInstruments{count: count, duration: duration}, nil
}

// HTTPMetricsMiddleware counts and times every request by method, route
// pattern and status code. Instrument creation failures degrade to a
// pass-through middleware; the API keeps serving without request metrics.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	instruments, err := newRequestInstruments(meterProvider.Meter(namespace), namespace)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		set := metric.WithAttributeSet(attribute.NewSet(
			attribute.String("method", c.Request.Method),
			attribute.String("route", routeLabel(c.FullPath())),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		))
		ctx := c.Request.Context()
		instruments.count.Add(ctx, 1, set)
		instruments.duration.Record(ctx, time.Since(start).Seconds(), set)
	}
}

// routeLabel returns the gin route pattern (/v1/items/:id) rather than the
// request path.
func routeLabel(fullPath string) string {
	if fullPath == "" {
		return unmatchedRoute
	}
	return fullPath
}
