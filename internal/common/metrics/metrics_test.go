package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engrave-queue/internal/domain"
)

func TestWrapCountsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServerMetrics(reg, "order")

	h := m.Wrap("submit", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("submit", "201")))
}

func TestQueueGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterQueueGauges(reg,
		func() domain.Statistics { return domain.Statistics{Pending: 3, Processing: 1, Total: 4} },
		func() int { return 2 },
	)

	n, err := testutil.GatherAndCount(reg, "engrave_queue_orders")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `engrave_queue_orders{status="pending"} 3`)
	assert.Contains(t, rec.Body.String(), `engrave_queue_unconfirmed_writes 2`)
}
