package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Auth failure reasons used as the reason label.
const (
	ReasonExpired   = "expired"
	ReasonMalformed = "malformed"
	ReasonSignature = "signature"
	ReasonRevoked   = "revoked"
)

// Metrics holds the service-level counters that are not tied to HTTP traffic.
type Metrics struct {
	AuthFailures           *prometheus.CounterVec
	ActivityAppendFailures prometheus.Counter
}

// NewMetrics registers the counters on reg, reusing collectors that are already registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	authFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "registry",
		Name:      "auth_failures_total",
		Help:      "Rejected bearer tokens by reason.",
	}, []string{"reason"})

	appendFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "registry",
		Name:      "activity_append_failures_total",
		Help:      "Activity log entries that could not be persisted.",
	})

	return &Metrics{
		AuthFailures:           registerOrReuse(reg, authFailures),
		ActivityAppendFailures: registerOrReuse(reg, appendFailures),
	}
}

// AuthFailure increments the auth failure counter. Nil-safe.
func (m *Metrics) AuthFailure(reason string) {
	if m == nil || m.AuthFailures == nil {
		return
	}
	m.AuthFailures.WithLabelValues(reason).Inc()
}

// ActivityAppendFailure increments the activity append failure counter. Nil-safe.
func (m *Metrics) ActivityAppendFailure() {
	if m == nil || m.ActivityAppendFailures == nil {
		return
	}
	m.ActivityAppendFailures.Inc()
}

func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}
