// Package metrics provides Prometheus metrics for encode runs.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values for RecordRun.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeCanceled  = "canceled"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "debezel",
		Name:      "runs_total",
		Help:      "Finished encode runs by outcome",
	}, []string{"outcome"})

	passDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "debezel",
		Name:      "pass_duration_seconds",
		Help:      "Wall time of each encoder pass",
		Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
	}, []string{"pass"})

	runProgress = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "debezel",
		Name:      "run_progress_percent",
		Help:      "Current progress of a running job",
	}, []string{"job_id"})

	videoBitrate = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "debezel",
		Name:      "video_bitrate_kbps",
		Help:      "Video bitrate chosen for the most recent run",
	})

	bitrateClamped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "debezel",
		Name:      "bitrate_clamped_total",
		Help:      "Runs whose size-derived bitrate was clamped to the bounds",
	})

	// Local cache so the API can report progress without scraping.
	progressCache   = make(map[string]float64)
	progressCacheMu sync.RWMutex
)

// RecordRun counts a finished run.
func RecordRun(outcome string) {
	runsTotal.WithLabelValues(outcome).Inc()
}

// ObservePass records how long a pass took.
func ObservePass(pass int, seconds float64) {
	label := "1"
	if pass == 2 {
		label = "2"
	}
	passDuration.WithLabelValues(label).Observe(seconds)
}

// SetBitrate records the planned bitrate and whether it was clamped.
func SetBitrate(kbps int, clamped bool) {
	videoBitrate.Set(float64(kbps))
	if clamped {
		bitrateClamped.Inc()
	}
}

// SetProgress sets the progress gauge of a job.
func SetProgress(jobID string, percent float64) {
	runProgress.WithLabelValues(jobID).Set(percent)
	progressCacheMu.Lock()
	progressCache[jobID] = percent
	progressCacheMu.Unlock()
}

// DeleteProgress removes a job's progress gauge.
func DeleteProgress(jobID string) {
	runProgress.DeleteLabelValues(jobID)
	progressCacheMu.Lock()
	delete(progressCache, jobID)
	progressCacheMu.Unlock()
}

// GetProgress returns the last progress set for a job.
func GetProgress(jobID string) (float64, bool) {
	progressCacheMu.RLock()
	defer progressCacheMu.RUnlock()
	p, ok := progressCache[jobID]
	return p, ok
}

// Handler returns the Prometheus metrics HTTP handler.
// This collects all promauto-registered metrics automatically.
func Handler() http.Handler {
	return promhttp.Handler()
}
