package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertBizMetricLine checks that the Prometheus output contains a business metric
// matching the given name, partial label pattern, and value. Uses regex to handle
// extra OTel scope labels injected by the Prometheus exporter.
func assertBizMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewBusinessMetrics(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)

	businessMetrics, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")

	require.NoError(t, err)
	assert.NotNil(t, businessMetrics)
}

func TestNewNoOpBusinessMetrics(t *testing.T) {
	noOpMetrics := NewNoOpBusinessMetrics()

	assert.NotNil(t, noOpMetrics)
	assert.IsType(t, &NoOpBusinessMetrics{}, noOpMetrics)

	ctx := context.Background()
	noOpMetrics.RecordOperation(ctx, "storefront", "create", "success")
	noOpMetrics.RecordDuration(ctx, "storefront", "create", 100*time.Millisecond, "error")
	noOpMetrics.RecordCount(ctx, "marketplace", "sold", 3)
}

func TestBusinessMetrics_Integration(t *testing.T) {
	provider, err := NewProvider("integration_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "integration_test")
	require.NoError(t, err)

	ctx := context.Background()

	bm.RecordOperation(ctx, "storefront", "create", "success")
	bm.RecordOperation(ctx, "storefront", "create", "success")
	bm.RecordOperation(ctx, "storefront", "create", "retry")
	bm.RecordOperation(ctx, "items", "item_retry", "error")

	bm.RecordDuration(ctx, "storefront", "create", 50*time.Millisecond, "success")
	bm.RecordDuration(ctx, "storefront", "create", 60*time.Millisecond, "success")
	bm.RecordDuration(ctx, "storefront", "mark_sold", 100*time.Millisecond, "error")

	bm.RecordCount(ctx, "marketplace", "new_listing", 4)
	bm.RecordCount(ctx, "marketplace", "new_listing", 3)
	bm.RecordCount(ctx, "marketplace", "sold", 0)

	output := scrape(t, provider)

	assertBizMetricLine(t, output, `integration_test_operations_total`,
		`domain="storefront".*operation="create".*status="success"`, `2`)
	assertBizMetricLine(t, output, `integration_test_operations_total`,
		`domain="storefront".*operation="create".*status="retry"`, `1`)
	assertBizMetricLine(t, output, `integration_test_operations_total`,
		`domain="items".*operation="item_retry".*status="error"`, `1`)
	assertBizMetricLine(t, output, `integration_test_operation_duration_seconds_count`,
		`domain="storefront".*operation="create".*status="success"`, `2`)
	assertBizMetricLine(t, output, `integration_test_events_total`,
		`domain="marketplace".*name="new_listing"`, `7`)
	assert.NotContains(t, output, `name="sold"`)
}
