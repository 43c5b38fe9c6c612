package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters. Each instance owns its registry so
// several applications can coexist in one process (tests build many).
type Metrics struct {
	registry           *prometheus.Registry
	Subscriptions      *prometheus.CounterVec
	SubscribersDeleted prometheus.Counter
	LinkResolutions    *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Subscriptions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_subscriptions_total",
			Help: "Subscription requests accepted, by outcome (created, updated, merged)",
		}, []string{"outcome"}),
		SubscribersDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_subscribers_deleted_total",
			Help: "Subscribers removed through the admin API",
		}),
		LinkResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_link_resolutions_total",
			Help: "Short link lookups, by result (redirected, not_found, revoked, expired)",
		}, []string{"result"}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_validation_failures_total",
			Help: "Rejected subscription requests, by field",
		}, []string{"field"}),
	}
}

func (m *Metrics) IncSubscription(outcome string) {
	m.Subscriptions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncSubscriberDeleted() {
	m.SubscribersDeleted.Inc()
}

func (m *Metrics) IncLinkResolution(result string) {
	m.LinkResolutions.WithLabelValues(result).Inc()
}

func (m *Metrics) IncValidationFailure(field string) {
	m.ValidationFailures.WithLabelValues(field).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
