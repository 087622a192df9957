package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		eventsReceivedTotal,
		transitionsTotal,
		unroutableTotal,
		invalidStateTotal,
		handlerFailuresTotal,
		rateLimitedTotal,
	)
}

var (
	eventsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_events_total",
			Help: "Inbound events by platform and kind.",
		},
		[]string{"platform", "kind"},
	)

	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_transitions_total",
			Help: "Handled events by source and destination state.",
		},
		[]string{"from", "to"},
	)

	unroutableTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_unroutable_total",
			Help: "Events that matched no transition in the current state.",
		},
		[]string{"state"},
	)

	invalidStateTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "conversation_invalid_state_total",
			Help: "Stored states that could not be parsed and were reset.",
		},
	)

	handlerFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_handler_failures_total",
			Help: "Handler errors surfaced to the user as a retry prompt.",
		},
		[]string{"handler"},
	)

	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_rate_limited_total",
			Help: "Events dropped by the per-user rate limiter.",
		},
		[]string{"platform"},
	)
)

func IncEvent(platform, kind string) {
	eventsReceivedTotal.WithLabelValues(norm(platform), norm(kind)).Inc()
}

func IncTransition(from, to string) {
	transitionsTotal.WithLabelValues(norm(from), norm(to)).Inc()
}

func IncUnroutable(state string) {
	unroutableTotal.WithLabelValues(norm(state)).Inc()
}

func IncInvalidState() {
	invalidStateTotal.Inc()
}

func IncHandlerFailure(handler string) {
	handlerFailuresTotal.WithLabelValues(norm(handler)).Inc()
}

func IncRateLimited(platform string) {
	rateLimitedTotal.WithLabelValues(norm(platform)).Inc()
}
