// Package metrics records chain stage timings and outcomes with Prometheus collectors
// and exports them as a node_exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mcmsa/msaauth/internal/auth/msa"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "msaauth"

// Recorder is a msa.StageObserver backed by its own registry.
type Recorder struct {
	registry      *prometheus.Registry
	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	runs          *prometheus.CounterVec
	lastSuccess   prometheus.Gauge
}

// NewRecorder creates a Recorder with freshly registered collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each sign-in stage request.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"stage", "outcome"}),
		stageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Stage failures by failure kind.",
		}, []string{"stage", "kind"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed sign-in runs by outcome.",
		}, []string{"outcome"}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful sign-in.",
		}),
	}
}

// ObserveStage implements msa.StageObserver.
func (r *Recorder) ObserveStage(stage msa.Stage, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		kind := msa.KindOf(err)
		if kind == "" {
			kind = "unknown"
		}
		r.stageFailures.WithLabelValues(stage.String(), string(kind)).Inc()
	}
	r.stageDuration.WithLabelValues(stage.String(), outcome).Observe(elapsed.Seconds())
}

// ObserveRun records the outcome of a whole sign-in.
func (r *Recorder) ObserveRun(err error) {
	if err != nil {
		r.runs.WithLabelValues("failure").Inc()
		return
	}
	r.runs.WithLabelValues("success").Inc()
	r.lastSuccess.SetToCurrentTime()
}

// WriteTextfile writes all collected metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("metrics: failed to create directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: failed to write textfile: %w", err)
	}
	return nil
}
