// Package metrics holds the prometheus collectors of the API and worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ActivityWritten   prometheus.Counter
	ActivityFailures  *prometheus.CounterVec
	QRVerifications   *prometheus.CounterVec
	RequestTransition *prometheus.CounterVec
	WSClients         prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActivityWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "edutrack",
			Name:      "activity_entries_written_total",
			Help:      "Activity log entries persisted.",
		}),
		ActivityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edutrack",
			Name:      "activity_failures_total",
			Help:      "Activity log entries lost, by stage.",
		}, []string{"stage"}),
		QRVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edutrack",
			Name:      "qr_verifications_total",
			Help:      "QR verification attempts, by outcome.",
		}, []string{"outcome"}),
		RequestTransition: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edutrack",
			Name:      "request_transitions_total",
			Help:      "Document request status changes.",
		}, []string{"status"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "edutrack",
			Name:      "realtime_clients",
			Help:      "Connected websocket clients.",
		}),
	}
	reg.MustRegister(m.ActivityWritten, m.ActivityFailures, m.QRVerifications, m.RequestTransition, m.WSClients)
	return m
}

// NewRegistry returns a registry with the Go and process collectors attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func (m *Metrics) ActivityWrite() {
	if m != nil {
		m.ActivityWritten.Inc()
	}
}

func (m *Metrics) ActivityFailed(stage string) {
	if m != nil {
		m.ActivityFailures.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) Verification(outcome string) {
	if m != nil {
		m.QRVerifications.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Transition(status string) {
	if m != nil {
		m.RequestTransition.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) ClientConnected(delta float64) {
	if m != nil {
		m.WSClients.Add(delta)
	}
}
