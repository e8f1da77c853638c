// Package metrics exposes Prometheus counters for workflow activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters the service layer increments.
type Metrics struct {
	registry *prometheus.Registry

	transitions       *prometheus.CounterVec
	permissionDenials *prometheus.CounterVec
	workflowErrors    *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rvmdesk",
			Name:      "status_transitions_total",
			Help:      "Completed status transitions by entity type and target status.",
		}, []string{"entity", "to_status"}),
		permissionDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rvmdesk",
			Name:      "permission_denials_total",
			Help:      "Requests rejected by the permission gate, by action.",
		}, []string{"action"}),
		workflowErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rvmdesk",
			Name:      "workflow_errors_total",
			Help:      "Domain errors returned to callers, by error code.",
		}, []string{"code"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rvmdesk",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status class.",
		}, []string{"method", "class"}),
	}
}

// Transition records a completed status transition.
func (m *Metrics) Transition(entity, toStatus string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(entity, toStatus).Inc()
}

// PermissionDenied records a permission-gate rejection.
func (m *Metrics) PermissionDenied(action string) {
	if m == nil {
		return
	}
	m.permissionDenials.WithLabelValues(action).Inc()
}

// WorkflowError records a domain error by code.
func (m *Metrics) WorkflowError(code string) {
	if m == nil {
		return
	}
	m.workflowErrors.WithLabelValues(code).Inc()
}

// HTTPRequest records a served request. class is "2xx", "4xx", or "5xx".
func (m *Metrics) HTTPRequest(method, class string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, class).Inc()
}

// Handler serves the Prometheus exposition endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
