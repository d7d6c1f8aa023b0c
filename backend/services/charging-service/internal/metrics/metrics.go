package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "evcharge_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	scanOutcomes     *prometheus.CounterVec
	scanRetries      *prometheus.CounterVec
	scanAcquire      *prometheus.HistogramVec
	sessionStates    *prometheus.CounterVec
	sessionTicks     *prometheus.CounterVec
	sessionsActive   prometheus.Gauge
	sessionEnergy    prometheus.Histogram
	backendCalls     *prometheus.CounterVec
	backendLatency   *prometheus.HistogramVec
	directoryLookups *prometheus.CounterVec
)

// Init registers the charging metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		scanOutcomes = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "scan_outcomes_total",
				Help: "Total scan activations by outcome",
			},
			[]string{"outcome"},
		)
		scanRetries = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "scan_decode_retries_total",
				Help: "Frames silently retried by reason",
			},
			[]string{"reason"},
		)
		scanAcquire = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "scan_acquire_latency_seconds",
				Help:    "Capture device acquisition latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		sessionStates = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "session_transitions_total",
				Help: "Charging session state transitions by target state",
			},
			[]string{"state"},
		)
		sessionTicks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "session_ticks_total",
				Help: "Meter ticks by result",
			},
			[]string{"result"},
		)
		sessionsActive = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "sessions_active",
				Help: "Sessions currently charging",
			},
		)
		sessionEnergy = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "session_energy_kwh",
				Help:    "Energy delivered per finished session",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 50},
			},
		)
		backendCalls = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "backend_calls_total",
				Help: "Session backend confirmations by operation and result",
			},
			[]string{"operation", "result"},
		)
		backendLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "backend_latency_seconds",
				Help:    "Session backend confirmation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		)
		directoryLookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "directory_lookups_total",
				Help: "Station directory cache lookups by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			scanOutcomes,
			scanRetries,
			scanAcquire,
			sessionStates,
			sessionTicks,
			sessionsActive,
			sessionEnergy,
			backendCalls,
			backendLatency,
			directoryLookups,
		)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncScanOutcome counts a resolved scan activation.
func IncScanOutcome(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if scanOutcomes != nil {
		scanOutcomes.WithLabelValues(outcome).Inc()
	}
}

// IncScanRetry counts a frame that was decoded without a usable code.
func IncScanRetry(reason string) {
	if scanRetries != nil {
		scanRetries.WithLabelValues(reason).Inc()
	}
}

// ObserveAcquire records capture device acquisition latency.
func ObserveAcquire(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if scanAcquire != nil {
		scanAcquire.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncSessionState counts a transition into state.
func IncSessionState(state string) {
	if sessionStates != nil {
		sessionStates.WithLabelValues(state).Inc()
	}
}

// IncTick counts a meter tick by result.
func IncTick(result string) {
	if sessionTicks != nil {
		sessionTicks.WithLabelValues(result).Inc()
	}
}

// AddActiveSessions moves the charging gauge by delta.
func AddActiveSessions(delta float64) {
	if sessionsActive != nil {
		sessionsActive.Add(delta)
	}
}

// ObserveSessionEnergy records the frozen energy of a finished session.
func ObserveSessionEnergy(kwh float64) {
	if sessionEnergy != nil {
		sessionEnergy.Observe(kwh)
	}
}

// ObserveBackendCall records a confirm start/stop round trip.
func ObserveBackendCall(operation string, err error, duration time.Duration) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if backendCalls != nil {
		backendCalls.WithLabelValues(operation, result).Inc()
	}
	if backendLatency != nil {
		backendLatency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// IncDirectoryLookup counts a cache hit or miss.
func IncDirectoryLookup(result string) {
	if directoryLookups != nil {
		directoryLookups.WithLabelValues(result).Inc()
	}
}

// Exported labels for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	TickAccepted = "accepted"
	TickRejected = "rejected"
	TickSkipped  = "skipped"

	LookupHit  = "hit"
	LookupMiss = "miss"
)
