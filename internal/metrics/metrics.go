package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mdocs"

var (
	Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "document_transitions_total", Help: "Document lifecycle transitions by kind."},
		[]string{"transition"},
	)
	Swept = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "trash_swept_total", Help: "Documents purged by trash sweeps by scope."},
		[]string{"scope"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

const (
	TransitionCreate          = "create"
	TransitionSoftDelete      = "soft_delete"
	TransitionRestore         = "restore"
	TransitionPermanentDelete = "permanent_delete"
	TransitionExpire          = "expire"
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(Transitions)
	reg.MustRegister(Swept)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
