package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors for the action surface. Hops are independent stateless
// requests, so per-route counters and latencies are the whole story.
var (
	HopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actions_hops_total",
		Help: "Action hops served, by method, route and status code.",
	}, []string{"method", "route", "status"})

	HopDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "actions_hop_duration_seconds",
		Help:    "Action hop latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	VerifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "actions_verify_failures_total",
		Help: "Signature verifications that failed the cryptographic check.",
	})

	CollaboratorErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actions_collaborator_errors_total",
		Help: "Failed calls to external collaborators.",
	}, []string{"collaborator"})
)
