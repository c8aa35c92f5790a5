// Package metrics defines the assistant's prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the counters. A nil *Metrics records nothing.
type Metrics struct {
	chatTurns      *prometheus.CounterVec
	toolExecutions *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	tokens         *prometheus.CounterVec
}

// New registers the counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prima_ai_chat_turns_total",
			Help: "Chat turns by outcome.",
		}, []string{"outcome"}),
		toolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prima_ai_tool_executions_total",
			Help: "Tool calls by tool and resulting status.",
		}, []string{"tool", "status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prima_ai_notifications_total",
			Help: "Proactive notifications by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prima_ai_tokens_total",
			Help: "Model tokens by direction.",
		}, []string{"direction"}),
	}
	reg.MustRegister(m.chatTurns, m.toolExecutions, m.notifications, m.tokens)
	return m
}

// ChatTurn counts one chat turn.
func (m *Metrics) ChatTurn(outcome string) {
	if m == nil {
		return
	}
	m.chatTurns.WithLabelValues(outcome).Inc()
}

// ToolExecution counts one tool call.
func (m *Metrics) ToolExecution(tool, status string) {
	if m == nil {
		return
	}
	m.toolExecutions.WithLabelValues(tool, status).Inc()
}

// Notification counts one engine outcome.
func (m *Metrics) Notification(eventType, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(eventType, outcome).Inc()
}

// Tokens adds model usage.
func (m *Metrics) Tokens(input, output int) {
	if m == nil {
		return
	}
	if input > 0 {
		m.tokens.WithLabelValues("input").Add(float64(input))
	}
	if output > 0 {
		m.tokens.WithLabelValues("output").Add(float64(output))
	}
}
