package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecordOperation counts operations per label combination.
func TestRecordOperation(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.RecordOperation("create", OutcomeSuccess)
	c.RecordOperation("create", OutcomeSuccess)
	c.RecordOperation("create", OutcomeInvalid)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.operations.WithLabelValues("create", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("create", OutcomeInvalid)))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.operations.WithLabelValues("delete", OutcomeSuccess)))
}

// TestRecordRequest counts requests and observes their duration.
func TestRecordRequest(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.RecordRequest(http.MethodGet, "/api/contacts/:id", http.StatusNotFound, 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "/api/contacts/:id", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.requestDuration))
}

// TestHandlerServesMetrics expects registered metrics on the scrape endpoint.
func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordOperation("list", OutcomeSuccess)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), `address_book_contact_operations_total{operation="list",outcome="success"} 1`)
}

// TestObserveRateLimitClients reads the client count of each limiter on scrape.
func TestObserveRateLimitClients(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	general, me := 3, 1
	c.ObserveRateLimitClients("general", func() int { return general })
	c.ObserveRateLimitClients("me", func() int { return me })

	general = 5
	expected := `
# HELP address_book_rate_limit_clients Number of clients tracked by a rate limiter.
# TYPE address_book_rate_limit_clients gauge
address_book_rate_limit_clients{limiter="general"} 5
address_book_rate_limit_clients{limiter="me"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "address_book_rate_limit_clients"))
}
