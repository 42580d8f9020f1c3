package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics provides Prometheus metrics for the candidate lifecycle. A nil or
// disabled Metrics is safe to call; every recording method is a no-op then.
type Metrics struct {
	config MetricsConfig

	candidatesCreated prometheus.Counter
	inflightRetries   prometheus.Counter
	pollIterations    prometheus.Counter
	promotionAttempts prometheus.Counter
	promotions        *prometheus.CounterVec
	buildersByStatus  *prometheus.GaugeVec
	operationDuration *prometheus.HistogramVec

	registry *prometheus.Registry
	server   *http.Server
}

// NewMetrics creates a metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		candidatesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_created_total",
			Help:      "Total number of LKGM candidates created and claimed",
		}),
		inflightRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inflight_retries_total",
			Help:      "Total number of failed in-flight marker commit attempts",
		}),
		pollIterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_poll_iterations_total",
			Help:      "Total number of builder status poll iterations",
		}),
		promotionAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotion_attempts_total",
			Help:      "Total number of LKGM promotion attempts",
		}),
		promotions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "promotions_total",
				Help:      "Total number of completed promotions by outcome",
			},
			[]string{"outcome"},
		),
		buildersByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "builders_by_status",
				Help:      "Builder count by status after the last poll",
			},
			[]string{"status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of lifecycle operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	collectors := []prometheus.Collector{
		m.candidatesCreated,
		m.inflightRetries,
		m.pollIterations,
		m.promotionAttempts,
		m.promotions,
		m.buildersByStatus,
		m.operationDuration,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// RecordCandidateCreated increments the created-candidates counter.
func (m *Metrics) RecordCandidateCreated() {
	if m == nil || m.registry == nil {
		return
	}
	m.candidatesCreated.Inc()
}

// RecordInflightRetry increments the in-flight retry counter.
func (m *Metrics) RecordInflightRetry() {
	if m == nil || m.registry == nil {
		return
	}
	m.inflightRetries.Inc()
}

// RecordPollIteration increments the poll iteration counter.
func (m *Metrics) RecordPollIteration() {
	if m == nil || m.registry == nil {
		return
	}
	m.pollIterations.Inc()
}

// RecordPromotionAttempt increments the promotion attempt counter.
func (m *Metrics) RecordPromotionAttempt() {
	if m == nil || m.registry == nil {
		return
	}
	m.promotionAttempts.Inc()
}

// RecordPromotion records a completed promotion with its outcome
// ("success" or "failure").
func (m *Metrics) RecordPromotion(outcome string) {
	if m == nil || m.registry == nil {
		return
	}
	m.promotions.WithLabelValues(outcome).Inc()
}

// ObserveBuilderStatuses updates the builders-by-status gauge from the counts
// of the last poll.
func (m *Metrics) ObserveBuilderStatuses(counts map[string]int) {
	if m == nil || m.registry == nil {
		return
	}
	for _, status := range []string{"unset", "inflight", "pass", "fail"} {
		m.buildersByStatus.WithLabelValues(status).Set(float64(counts[status]))
	}
}

// ObserveOperationDuration records how long a lifecycle operation took.
func (m *Metrics) ObserveOperationDuration(operation string, d time.Duration) {
	if m == nil || m.registry == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// Serve starts the metrics HTTP endpoint if a listen address is configured.
// It returns immediately; the server runs until Shutdown.
func (m *Metrics) Serve() error {
	if m == nil || m.registry == nil || m.config.ListenAddress == "" {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	m.server = &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// The poller keeps working without exposition.
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
	return nil
}

// Shutdown stops the metrics HTTP endpoint.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
