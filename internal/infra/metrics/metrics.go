package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"medication_reminder_bot/internal/domain/notification"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// PrometheusMetrics implements app.Metrics.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	remindersDispatched *prometheus.CounterVec
	ticks               *prometheus.CounterVec
	tickDuration        prometheus.Histogram
	warnings            *prometheus.CounterVec
}

func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,
		remindersDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medreminder_reminders_dispatched_total",
			Help: "Dispatch attempts by terminal status and message kind.",
		}, []string{"status", "kind"}),
		ticks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medreminder_ticks_total",
			Help: "Reminder ticks by result.",
		}, []string{"result"}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "medreminder_tick_duration_seconds",
			Help:    "Duration of completed and failed reminder ticks.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medreminder_assembly_warnings_total",
			Help: "Per-user and per-medication problems skipped during assembly.",
		}, []string{"reason"}),
	}
}

func (m *PrometheusMetrics) ObserveDispatch(status notification.Status, kind notification.Kind) {
	m.remindersDispatched.WithLabelValues(string(status), string(kind)).Inc()
}

func (m *PrometheusMetrics) ObserveTick(result string, duration time.Duration) {
	m.ticks.WithLabelValues(result).Inc()
	if duration > 0 {
		m.tickDuration.Observe(duration.Seconds())
	}
}

func (m *PrometheusMetrics) ObserveWarning(reason string) {
	m.warnings.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server exposes /metrics on its own listener.
type Server struct {
	srv    *http.Server
	logger *logrus.Entry
}

func NewServer(addr string, m *PrometheusMetrics, logger *logrus.Entry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &Server{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		s.logger.WithField("addr", s.srv.Addr).Info("Metrics server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Metrics server stopped")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
