// Package metrics exposes session and OAuth handshake metrics to Prometheus.
package metrics

import (
	"net/http"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/social"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authclient"

// Verification failure classes.
const (
	ClassHard      = "hard"
	ClassSoft      = "soft"
	ClassExpired   = "expired"
	ClassMalformed = "malformed"
	ClassOther     = "other"
)

// Collector records session transitions and handshake outcomes.
type Collector struct {
	transitions    *prometheus.CounterVec
	verifyFailures *prometheus.CounterVec
	handshakes     *prometheus.CounterVec
	exchange       *prometheus.HistogramVec
}

var _ social.Observer = (*Collector)(nil)

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session state transitions by source and target state.",
		}, []string{"from", "to"}),
		verifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verify_failures_total",
			Help:      "Token verification failures by class.",
		}, []string{"class"}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_handshakes_total",
			Help:      "Completed popup OAuth handshakes by provider and outcome.",
		}, []string{"provider", "outcome"}),
		exchange: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oauth_exchange_seconds",
			Help:      "Token exchange and profile fetch latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}

	reg.MustRegister(
		c.transitions,
		c.verifyFailures,
		c.handshakes,
		c.exchange,
	)

	return c
}

// Listener returns a controller listener, see authclient.WithListener.
func (c *Collector) Listener() authclient.Listener {
	return c.ObserveSession
}

// ObserveSession records one settle.
func (c *Collector) ObserveSession(prev, next authclient.Snapshot) {
	c.transitions.WithLabelValues(string(prev.State), string(next.State)).Inc()
	if next.Err != nil {
		c.verifyFailures.WithLabelValues(FailureClass(next.Err)).Inc()
	}
}

// ObserveExchange implements social.Observer.
func (c *Collector) ObserveExchange(ex *social.Exchange) {
	if ex == nil {
		return
	}
	c.handshakes.WithLabelValues(ex.Provider, string(ex.Phase)).Inc()
	if ex.Duration > 0 {
		c.exchange.WithLabelValues(ex.Provider).Observe(ex.Duration.Seconds())
	}
}

// FailureClass maps a settle error to a metric label.
func FailureClass(err error) string {
	switch {
	case authclient.IsHardAuthError(err):
		return ClassHard
	case authclient.IsSoftAuthError(err):
		return ClassSoft
	case authclient.IsTokenExpiredError(err):
		return ClassExpired
	case authclient.IsMalformedTokenError(err):
		return ClassMalformed
	default:
		return ClassOther
	}
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
