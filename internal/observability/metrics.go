package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	gatingEvaluations *prometheus.CounterVec
	gatingLatency     *prometheus.HistogramVec

	unlockEvents   *prometheus.CounterVec
	readinessScore prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cp_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cp_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cp_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		gatingEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cp_gating_evaluations_total",
			Help: "Gating evaluations by entrypoint/module/outcome.",
		}, []string{"entrypoint", "module", "outcome", "safety_gate"}),
		gatingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cp_gating_evaluation_duration_seconds",
			Help:    "Gating evaluation latency in seconds by entrypoint.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"entrypoint"}),
		unlockEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cp_module_unlocks_total",
			Help: "Modules that became unlocked after a write, by module.",
		}, []string{"module"}),
		readinessScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cp_readiness_score",
			Help:    "Logged daily drainage readiness scores.",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests,
		m.apiLatency,
		m.apiInflight,
		m.gatingEvaluations,
		m.gatingLatency,
		m.unlockEvents,
		m.readinessScore,
	)
	return m
}

// Init returns nil when metrics are disabled; every method is nil-safe.
func Init(enabled bool, log *logger.Logger) *Metrics {
	if !enabled {
		return nil
	}
	if log != nil {
		log.Info("metrics enabled")
	}
	return NewMetrics()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// StartServer serves /metrics on addr until ctx is cancelled. Empty addr is a no-op.
func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveGating satisfies gating.Observer.
func (m *Metrics) ObserveGating(entrypoint, module string, locked, safetyGate bool, dur time.Duration) {
	if m == nil {
		return
	}
	outcome := "unlocked"
	if locked {
		outcome = "locked"
	}
	m.gatingEvaluations.WithLabelValues(entrypoint, module, outcome, strconv.FormatBool(safetyGate)).Inc()
	m.gatingLatency.WithLabelValues(entrypoint).Observe(dur.Seconds())
}

func (m *Metrics) IncModuleUnlocked(module string) {
	if m == nil {
		return
	}
	m.unlockEvents.WithLabelValues(module).Inc()
}

func (m *Metrics) ObserveReadinessScore(score float64) {
	if m == nil {
		return
	}
	m.readinessScore.Observe(score)
}
