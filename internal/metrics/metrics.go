// Package metrics counts what the progress pipeline observed during a run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns a private registry so several runs (and tests) never collide.
type Recorder struct {
	registry *prometheus.Registry

	events          *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	jobErrors       prometheus.Counter
	readyTransition prometheus.Counter
	readyLatency    prometheus.Histogram
}

// New creates a recorder with all collectors registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "genreel_progress_events_total",
			Help: "Progress events accepted, by stage and derived status.",
		}, []string{"stage", "status"}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "genreel_progress_events_rejected_total",
			Help: "Progress events rejected, by reason.",
		}, []string{"reason"}),
		jobErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "genreel_job_reported_errors_total",
			Help: "Events in which the job reported an error.",
		}),
		readyTransition: f.NewCounter(prometheus.CounterOpts{
			Name: "genreel_ready_transitions_total",
			Help: "Sessions that switched to playback.",
		}),
		readyLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "genreel_time_to_ready_seconds",
			Help:    "Time from the first accepted event to playback.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// Event records an accepted event.
func (r *Recorder) Event(stage, status string) {
	if r == nil {
		return
	}
	r.events.WithLabelValues(stage, status).Inc()
	if status == "error" {
		r.jobErrors.Inc()
	}
}

// Rejected records a rejected event.
func (r *Recorder) Rejected(reason string) {
	if r == nil {
		return
	}
	r.rejected.WithLabelValues(reason).Inc()
}

// Ready records a playback transition and how long the job took to get there.
func (r *Recorder) Ready(seconds float64) {
	if r == nil {
		return
	}
	r.readyTransition.Inc()
	r.readyLatency.Observe(seconds)
}

// Registry exposes the underlying registry as a Gatherer.
func (r *Recorder) Registry() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the current values in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
