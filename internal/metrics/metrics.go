// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "checkout"

var (
	SessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_opened_total",
		Help:      "Checkout sessions opened.",
	})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Checkout sessions currently held in memory.",
	})

	PromoApplications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "promo_applications_total",
		Help:      "Promo code applications by outcome.",
	}, []string{"outcome"})

	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Order submissions by outcome.",
	}, []string{"outcome"})

	RelayedOrders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relayed_orders_total",
		Help:      "Orders relayed to the order platform by outcome.",
	}, []string{"outcome"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of calls to upstream services.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "operation", "status"})
)

// Outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
	OutcomeNoPayLink = "no_payment_link"
	OutcomeDuplicate = "duplicate"
	OutcomeReplayed  = "replayed"
	OutcomeDiscarded = "discarded"
)

// ObserveUpstream records one upstream HTTP call. status is "error" when the call
// failed before a response arrived.
func ObserveUpstream(service, operation string, start time.Time, resp *http.Response, err error) {
	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	UpstreamDuration.WithLabelValues(service, operation, status).Observe(time.Since(start).Seconds())
}
