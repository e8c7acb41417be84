package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Permission resolver metrics
	PermissionChecksTotal  *prometheus.CounterVec
	PermissionDenialsTotal *prometheus.CounterVec
	ClientAccessChecksTotal *prometheus.CounterVec

	// Usage limiter metrics
	UsageChecksTotal     *prometheus.CounterVec
	UsageDenialsTotal    *prometheus.CounterVec
	UsageIncrementsTotal *prometheus.CounterVec
	OverageUnitsTotal    *prometheus.CounterVec
	UsageAlertsTotal     *prometheus.CounterVec
	CostThresholdsTotal  *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coachdesk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coachdesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		PermissionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coachdesk_permission_checks_total",
				Help: "Total permission checks by role and outcome",
			},
			[]string{"role", "allowed"},
		),
		PermissionDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coachdesk_permission_denials_total",
				Help: "Permission denials by permission name",
			},
			[]string{"permission"},
		),
		ClientAccessChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coachdesk_client_access_checks_total",
				Help: "Client access checks by role and outcome",
			},
			[]string{"role", "allowed"},
		),

		UsageChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coachdesk_usage_checks_total",
				Help: "Usage limit checks by resource and outcome",
			},
			[]string{"resource", "allowed"},
		),
		UsageDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coachdesk_usage_denials_total",
				Help: "Usage denials by resource and reason",
			},
			[]string{"resource", "reason"},
		),
		UsageIncrementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coachdesk_usage_increments_total",
				Help: "Recorded usage increments by resource",
			},
			[]string{"resource"},
		),
		OverageUnitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coachdesk_overage_units_total",
				Help: "Units requested beyond plan limits, by resource",
			},
			[]string{"resource"},
		),
		UsageAlertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coachdesk_usage_alerts_total",
				Help: "Usage alerts created by resource and severity",
			},
			[]string{"resource", "severity"},
		),
		CostThresholdsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coachdesk_cost_thresholds_total",
				Help: "Cost threshold crossings by intended action",
			},
			[]string{"action"},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coachdesk_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coachdesk_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PermissionChecksTotal,
		m.PermissionDenialsTotal,
		m.ClientAccessChecksTotal,
		m.UsageChecksTotal,
		m.UsageDenialsTotal,
		m.UsageIncrementsTotal,
		m.OverageUnitsTotal,
		m.UsageAlertsTotal,
		m.CostThresholdsTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePermissionCheck records a permission check outcome
func (m *Metrics) ObservePermissionCheck(role string, allowed bool, permission string) {
	m.PermissionChecksTotal.WithLabelValues(role, strconv.FormatBool(allowed)).Inc()
	if !allowed {
		m.PermissionDenialsTotal.WithLabelValues(permission).Inc()
	}
}

// ObserveUsageCheck records a usage limit check outcome
func (m *Metrics) ObserveUsageCheck(resource string, allowed bool, reason string) {
	m.UsageChecksTotal.WithLabelValues(resource, strconv.FormatBool(allowed)).Inc()
	if !allowed && reason != "" {
		m.UsageDenialsTotal.WithLabelValues(resource, reason).Inc()
	}
}

// HTTPMiddleware instruments HTTP handlers with request metrics
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

// statusRecorder captures the response status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
