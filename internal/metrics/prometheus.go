package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder holds the agent's Prometheus collectors. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	completions        *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	toolDispatch       *prometheus.CounterVec
	toolDuration       *prometheus.HistogramVec
}

// NewRecorder registers the collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		completions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_completions_total",
			Help: "Completion calls by provider, phase and outcome.",
		}, []string{"provider", "phase", "outcome"}),
		completionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agent_completion_duration_seconds",
			Help:    "Completion call latency.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"provider", "phase"}),
		toolDispatch: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_tool_dispatch_total",
			Help: "Tool dispatches by tool and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agent_tool_duration_seconds",
			Help:    "Tool execution latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
	}
}

// ObserveCompletion records one completion call.
func (r *Recorder) ObserveCompletion(provider, phase string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.completions.WithLabelValues(provider, phase, outcome(err)).Inc()
	r.completionDuration.WithLabelValues(provider, phase).Observe(d.Seconds())
}

// ObserveTool records one tool dispatch. outcome is free-form so callers can
// distinguish rejected arguments from execution failures.
func (r *Recorder) ObserveTool(tool, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.toolDispatch.WithLabelValues(tool, outcome).Inc()
	r.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
