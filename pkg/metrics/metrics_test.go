package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveRequest("GET", "/api/indexes", 200, 10*time.Millisecond)
	m.ObserveRequest("GET", "", 404, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/indexes", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))

	m.IndexOperation("create_index", nil)
	m.IndexOperation("create_index", errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.indexOps.WithLabelValues("create_index", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.indexOps.WithLabelValues("create_index", "error")))

	m.DocumentsIndexed("hotels", 3)
	m.DocumentsIndexed("hotels", 0)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.docsIndexed.WithLabelValues("hotels")))

	m.OnAllow("/x", "ip:1")
	m.OnDeny("/x", "ip:1")
	m.OnDeny("/x", "ip:1")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rateLimit.WithLabelValues("/x", "deny")))

	m.ObserveSearch("hotels", 5*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(m.searchLatency))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.DocumentsIndexed("hotels", 2)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	assert.Contains(t, string(body), `lingsearch_documents_indexed_total{index="hotels"} 2`)
	assert.Contains(t, string(body), "go_goroutines")
}
