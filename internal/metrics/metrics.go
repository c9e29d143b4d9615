// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MembershipOps counts membership operations by operation and result
	MembershipOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "familia_membership_operations_total",
		Help: "Membership operations by operation and result",
	}, []string{"operation", "result"})

	// ChatSends counts chat send attempts by result
	ChatSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "familia_chat_sends_total",
		Help: "Chat message sends by result",
	}, []string{"result"})

	// ActiveSubscriptions tracks open chat subscriptions
	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "familia_chat_active_subscriptions",
		Help: "Number of open chat subscriptions",
	})

	// ReconcileRepairs counts rows repaired by the reconciler, by kind
	ReconcileRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "familia_reconcile_repairs_total",
		Help: "Membership rows repaired by the reconciler",
	}, []string{"kind"})

	// HTTPDuration tracks request latency by route pattern and status
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "familia_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	}, []string{"route", "status"})
)

// Result maps an error to a result label
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
