package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voice_agent",
			Name:      "tool_calls_total",
			Help:      "Tool invocations by name and outcome.",
		},
		[]string{"tool", "outcome"},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "voice_agent",
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts refused because the slot was taken.",
		},
	)

	summaryQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "voice_agent",
			Name:      "summary_queue_depth",
			Help:      "Pending conversation summaries awaiting persistence.",
		},
	)

	storeOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "voice_agent",
			Name:      "store_op_duration_seconds",
			Help:      "Record store operation latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(toolCalls, bookingConflicts, summaryQueueDepth, storeOpDuration)
	})
}

// IncToolCall increments the counter for a tool invocation outcome
// ("success" or "error").
func IncToolCall(tool, outcome string) {
	toolCalls.WithLabelValues(tool, outcome).Inc()
}

// IncBookingConflict counts a refused booking.
func IncBookingConflict() {
	bookingConflicts.Inc()
}

// SetSummaryQueueDepth records the worker backlog.
func SetSummaryQueueDepth(n int) {
	summaryQueueDepth.Set(float64(n))
}

// ObserveStoreOp records one store operation's latency.
func ObserveStoreOp(op string, d time.Duration) {
	storeOpDuration.WithLabelValues(op).Observe(d.Seconds())
}
