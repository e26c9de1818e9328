package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pldmd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests against the debug/metrics surface.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pldmd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	updateSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pldmd",
			Subsystem: "fwupdate",
			Name:      "sessions_total",
			Help:      "Completed firmware-update sessions by device and outcome.",
		},
		[]string{"tid", "outcome"},
	)
	commandRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pldmd",
			Subsystem: "transport",
			Name:      "command_retries_total",
			Help:      "Requester-role command retries by PLDM type and command.",
		},
		[]string{"tid", "pldm_type", "command"},
	)
	reservationHolds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "pldmd",
			Subsystem: "transport",
			Name:      "bandwidth_reservations_held",
			Help:      "Exclusive (tid, pldm_type) bandwidth reservations currently held.",
		},
		[]string{"tid", "pldm_type"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, updateSessions, commandRetries, reservationHolds)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordUpdateSession tallies one firmware-update session's terminal
// outcome (spec.md §4.4 "Post-session").
func RecordUpdateSession(tid uint8, outcome string) {
	RegisterMetrics()
	updateSessions.WithLabelValues(strconv.Itoa(int(tid)), outcome).Inc()
}

// RecordCommandRetry tallies one requester-role retry (spec.md §4.1
// SendRequest retry/backoff).
func RecordCommandRetry(tid uint8, pldmType, command uint8) {
	RegisterMetrics()
	commandRetries.WithLabelValues(strconv.Itoa(int(tid)), strconv.Itoa(int(pldmType)), strconv.Itoa(int(command))).Inc()
}

// SetReservationHeld reflects whether a (tid, pldmType) bandwidth
// reservation is currently held (spec.md §4.4 "Bandwidth reservation").
func SetReservationHeld(tid uint8, pldmType uint8, held bool) {
	RegisterMetrics()
	v := 0.0
	if held {
		v = 1.0
	}
	reservationHolds.WithLabelValues(strconv.Itoa(int(tid)), strconv.Itoa(int(pldmType))).Set(v)
}
