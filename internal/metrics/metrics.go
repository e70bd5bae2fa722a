// Package metrics exposes prometheus instruments for the editor lifecycle
// and the upload pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Upload outcome label values.
const (
	UploadCompleted = "completed"
	UploadFailed    = "failed"
	UploadCancelled = "cancelled"
	UploadTimedOut  = "timeout"
	UploadRejected  = "rejected"
)

// Metrics bundles the library's instruments. A nil *Metrics disables
// recording, mirroring the nil-logger convention.
type Metrics struct {
	editorCreations   *prometheus.CounterVec
	editorInitSeconds prometheus.Histogram
	uploads           *prometheus.CounterVec
	uploadBytes       prometheus.Counter
	pluginLoadErrors  prometheus.Counter
}

// New registers the instruments with reg. A nil registerer gets a private
// registry, which keeps tests isolated from the default one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		editorCreations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editorhost",
			Name:      "editor_creations_total",
			Help:      "Editor creation attempts by result.",
		}, []string{"result"}),
		editorInitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "editorhost",
			Name:      "editor_init_seconds",
			Help:      "Editor initialization latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editorhost",
			Name:      "uploads_total",
			Help:      "Upload tasks by terminal status.",
		}, []string{"status"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "editorhost",
			Name:      "upload_bytes_total",
			Help:      "Decoded bytes accepted by the host upload handler.",
		}),
		pluginLoadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "editorhost",
			Name:      "plugin_load_errors_total",
			Help:      "Non-fatal plugin load failures.",
		}),
	}

	reg.MustRegister(m.editorCreations, m.editorInitSeconds, m.uploads, m.uploadBytes, m.pluginLoadErrors)
	return m
}

// ObserveCreation records one creation attempt.
func (m *Metrics) ObserveCreation(success bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
		m.editorInitSeconds.Observe(d.Seconds())
	}
	m.editorCreations.WithLabelValues(result).Inc()
}

// ObserveUpload records one upload reaching a terminal status.
func (m *Metrics) ObserveUpload(status string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(status).Inc()
}

// AddUploadBytes accumulates accepted upload payload sizes.
func (m *Metrics) AddUploadBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.uploadBytes.Add(float64(n))
}

// AddPluginLoadErrors accumulates non-fatal plugin load failures.
func (m *Metrics) AddPluginLoadErrors(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pluginLoadErrors.Add(float64(n))
}
