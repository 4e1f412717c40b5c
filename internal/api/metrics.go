package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects request and reduction counters for the /metrics endpoint.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	reductionsTotal   prometheus.Counter
	selectedWeeks     prometheus.Gauge
	snapshotsKept     prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repweeks_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "repweeks_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		reductionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repweeks_reductions_total",
			Help: "Total reductions executed.",
		}),
		selectedWeeks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "repweeks_selected_weeks",
			Help: "Representative weeks kept by the most recent reduction.",
		}),
		snapshotsKept: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "repweeks_snapshots_kept",
			Help: "Snapshots kept by the most recent reduction.",
		}),
	}

	prometheus.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.reductionsTotal,
		m.selectedWeeks,
		m.snapshotsKept,
	)

	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler records request count and duration for one route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// ReductionRan records the outcome of one finished reduction.
func (m *Metrics) ReductionRan(weeks, snapshots int) {
	if m == nil {
		return
	}
	m.reductionsTotal.Inc()
	m.selectedWeeks.Set(float64(weeks))
	m.snapshotsKept.Set(float64(snapshots))
}
