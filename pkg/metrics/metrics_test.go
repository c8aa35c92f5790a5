package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ChatTurn("ok")
	m.ChatTurn("ok")
	m.ToolExecution("query_my_matters", "executed")
	m.Notification("deadline_approaching", "sent")
	m.Tokens(100, 20)
	m.Tokens(0, 5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.chatTurns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolExecutions.WithLabelValues("query_my_matters", "executed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("deadline_approaching", "sent")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.tokens.WithLabelValues("input")))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.tokens.WithLabelValues("output")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ChatTurn("ok")
	m.ToolExecution("x", "y")
	m.Notification("a", "b")
	m.Tokens(1, 1)
}
