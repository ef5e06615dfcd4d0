package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	before := testutil.ToFloat64(bookingConflicts)
	IncBookingConflict()
	assert.Equal(t, before+1, testutil.ToFloat64(bookingConflicts))

	IncToolCall("book_appointment", "success")
	assert.Equal(t, float64(1), testutil.ToFloat64(toolCalls.WithLabelValues("book_appointment", "success")))

	SetSummaryQueueDepth(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(summaryQueueDepth))

	assert.NotPanics(t, func() {
		ObserveStoreOp("create_appointment", 5*time.Millisecond)
	})
}
