// Package metrics holds the Prometheus collectors of the chat service.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "parlor"

// Message kinds.
const (
	KindUser   = "user"
	KindAuto   = "auto"
	KindSystem = "system"
)

// Auto-reply states.
const (
	ReplyScheduled = "scheduled"
	ReplyDelivered = "delivered"
	ReplyCancelled = "cancelled"
	ReplySkipped   = "skipped"
)

type Metrics struct {
	messages      *prometheus.CounterVec
	reactions     *prometheus.CounterVec
	autoReplies   *prometheus.CounterVec
	typingExpired prometheus.Counter
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages appended to rooms.",
		}, []string{"kind"}),
		reactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reactions_total",
			Help:      "Reaction changes by resulting state.",
		}, []string{"result"}),
		autoReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auto_replies_total",
			Help:      "Simulated replies by lifecycle state.",
		}, []string{"state"}),
		typingExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "typing_expired_total",
			Help:      "Typing indicators removed by the sweep.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(m.messages, m.reactions, m.autoReplies, m.typingExpired, m.requests, m.duration)
	return m
}

func (m *Metrics) MessageAdded(kind string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(kind).Inc()
}

func (m *Metrics) Reaction(result string) {
	if m == nil {
		return
	}
	m.reactions.WithLabelValues(result).Inc()
}

func (m *Metrics) AutoReply(state string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.autoReplies.WithLabelValues(state).Add(float64(n))
}

func (m *Metrics) TypingExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.typingExpired.Add(float64(n))
}

func (m *Metrics) Request(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
