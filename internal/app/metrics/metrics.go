package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "classledger"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	studentsRegistered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "students",
			Name:      "registered_total",
			Help:      "Total number of students registered.",
		},
	)

	recharges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "recharges_total",
			Help:      "Total number of recharges recorded.",
		},
	)

	rechargeAmount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "recharge_amount_total",
			Help:      "Sum of recharged money.",
		},
	)

	hoursConsumed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "hours_consumed_total",
			Help:      "Total number of class hours consumed.",
		},
	)

	loginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by result.",
		},
		[]string{"result"},
	)

	cleanupRemoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "maintenance",
			Name:      "removed_rows_total",
			Help:      "Rows removed by the cleanup job.",
		},
		[]string{"table"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		studentsRegistered,
		recharges,
		rechargeAmount,
		hoursConsumed,
		loginAttempts,
		cleanupRemoved,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one finished request. path should be a route
// template so label cardinality stays bounded.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// InFlight adjusts the in-flight gauge by delta.
func InFlight(delta float64) {
	httpInFlight.Add(delta)
}

// RecordStudentRegistered counts a new student.
func RecordStudentRegistered() {
	studentsRegistered.Inc()
}

// RecordRecharge counts a recharge and its amount.
func RecordRecharge(amount decimal.Decimal) {
	recharges.Inc()
	f, _ := amount.Float64()
	rechargeAmount.Add(f)
}

// RecordHoursConsumed counts consumed class hours.
func RecordHoursConsumed(hours int) {
	if hours > 0 {
		hoursConsumed.Add(float64(hours))
	}
}

// RecordLoginAttempt counts a login by result (success, failure, throttled).
func RecordLoginAttempt(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

// RecordCleanup counts rows removed from table.
func RecordCleanup(table string, removed int64) {
	if removed > 0 {
		cleanupRemoved.WithLabelValues(table).Add(float64(removed))
	}
}
