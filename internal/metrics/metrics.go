// Package metrics exposes lifecycle counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/visit-management/internal/model"
)

// Recorder counts visit transitions, policy denials, sweep expiries and
// audit append failures.  It owns its registry so tests can build several.
type Recorder struct {
	reg          *prometheus.Registry
	transitions  *prometheus.CounterVec
	denials      *prometheus.CounterVec
	expired      prometheus.Counter
	auditFailure prometheus.Counter
}

// New registers the counters together with the Go and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		reg: reg,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visits",
			Name:      "transitions_total",
			Help:      "Visit transitions applied, by audit action.",
		}, []string{"action"}),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visits",
			Name:      "denials_total",
			Help:      "Requests refused by the access policy, by reason.",
		}, []string{"reason"}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "visits",
			Name:      "expired_total",
			Help:      "Overdue visits cancelled by the sweep.",
		}),
		auditFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "visits",
			Name:      "audit_write_failures_total",
			Help:      "Transitions whose audit entry could not be appended.",
		}),
	}
	reg.MustRegister(
		r.transitions, r.denials, r.expired, r.auditFailure,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Transition(action model.AuditAction) {
	r.transitions.WithLabelValues(string(action)).Inc()
}

func (r *Recorder) Denied(reason model.DenyReason) {
	r.denials.WithLabelValues(string(reason)).Inc()
}

func (r *Recorder) Expired(n int) {
	if n > 0 {
		r.expired.Add(float64(n))
	}
}

func (r *Recorder) AuditFailed() { r.auditFailure.Inc() }

// Handler serves the registry for scraping.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
