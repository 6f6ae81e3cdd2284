package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"engrave-queue/internal/domain"
)

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engrave",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "engrave",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// Wrap records count and latency for h under the given handler label.
func (m *ServerMetrics) Wrap(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r)
		m.Requests.WithLabelValues(name, strconv.Itoa(sw.status)).Inc()
		m.LatencyMS.WithLabelValues(name).Observe(float64(time.Since(start).Microseconds()) / 1000)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RegisterQueueGauges exposes order counts by status, read on every scrape.
func RegisterQueueGauges(reg prometheus.Registerer, stats func() domain.Statistics, unconfirmed func() int) {
	gauge := func(status string, pick func(domain.Statistics) int) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "engrave",
			Subsystem:   "queue",
			Name:        "orders",
			Help:        "Orders currently held by the queue engine, by status.",
			ConstLabels: prometheus.Labels{"status": status},
		}, func() float64 { return float64(pick(stats())) })
	}
	reg.MustRegister(
		gauge(string(domain.StatusPending), func(s domain.Statistics) int { return s.Pending }),
		gauge(string(domain.StatusProcessing), func(s domain.Statistics) int { return s.Processing }),
		gauge(string(domain.StatusCompleted), func(s domain.Statistics) int { return s.Completed }),
		gauge(string(domain.StatusCancelled), func(s domain.Statistics) int { return s.Cancelled }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "engrave",
			Subsystem: "queue",
			Name:      "unconfirmed_writes",
			Help:      "Local mutations not yet reflected by the store feed.",
		}, func() float64 { return float64(unconfirmed()) }),
	)
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
