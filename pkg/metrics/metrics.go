// Package metrics exposes prometheus instrumentation for the analysis
// pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	registry       *prometheus.Registry
	registryOnce   sync.Once
	metricsEnabled = true

	// Analysis metrics
	AnalysesTotal    *prometheus.CounterVec
	AnalysisErrors   *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	StageDuration    *prometheus.HistogramVec

	// Input/quality metrics
	QualityGrades  *prometheus.CounterVec
	TimelineEvents *prometheus.HistogramVec

	// Output metrics
	OverallScores prometheus.Histogram

	// Messaging metrics
	ResultsPublished *prometheus.CounterVec
	PublishErrors    *prometheus.CounterVec
)

// Init registers all pipeline metrics. Safe to call more than once.
func Init(logger *logrus.Logger) {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		AnalysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interaction_analyses_total",
			Help: "Number of analysis invocations by outcome",
		}, []string{"outcome"})

		AnalysisErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interaction_analysis_errors_total",
			Help: "Number of analysis errors by stage",
		}, []string{"stage"})

		AnalysisDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "interaction_analysis_duration_seconds",
			Help:    "End-to-end analysis duration",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"depth"})

		StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "interaction_stage_duration_seconds",
			Help:    "Per-stage pipeline duration",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}, []string{"stage"})

		QualityGrades = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interaction_quality_grades_total",
			Help: "Data quality grades assigned to analyzed sessions",
		}, []string{"grade"})

		TimelineEvents = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "interaction_timeline_events",
			Help:    "Fused timeline event counts per modality",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"modality"})

		OverallScores = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "interaction_overall_score",
			Help:    "Published overall development scores",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		})

		ResultsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interaction_results_published_total",
			Help: "Analysis results delivered to the reporting queue",
		}, []string{"queue"})

		PublishErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interaction_publish_errors_total",
			Help: "Failed result publish attempts",
		}, []string{"queue"})

		registry.MustRegister(
			AnalysesTotal,
			AnalysisErrors,
			AnalysisDuration,
			StageDuration,
			QualityGrades,
			TimelineEvents,
			OverallScores,
			ResultsPublished,
			PublishErrors,
		)

		if logger != nil {
			logger.WithField("component", "metrics").Debug("Prometheus metrics registered")
		}
	})
}

// SetEnabled toggles metric recording without unregistering collectors.
func SetEnabled(enabled bool) {
	metricsEnabled = enabled
}

// Enabled reports whether metric recording is active.
func Enabled() bool {
	return metricsEnabled && registry != nil
}

// Handler returns the HTTP handler serving the metrics registry.
func Handler() http.Handler {
	if registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveAnalysis records one completed analysis invocation.
func ObserveAnalysis(outcome, depth string, duration time.Duration) {
	if !Enabled() {
		return
	}
	AnalysesTotal.WithLabelValues(outcome).Inc()
	AnalysisDuration.WithLabelValues(depth).Observe(duration.Seconds())
}

// ObserveStage records one pipeline stage duration.
func ObserveStage(stage string, duration time.Duration) {
	if !Enabled() {
		return
	}
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveQuality records the quality grade of an analyzed session.
func ObserveQuality(grade string) {
	if !Enabled() {
		return
	}
	QualityGrades.WithLabelValues(grade).Inc()
}

// ObserveTimeline records fused event counts per modality.
func ObserveTimeline(modality string, events int) {
	if !Enabled() {
		return
	}
	TimelineEvents.WithLabelValues(modality).Observe(float64(events))
}

// ObserveScore records a published overall score.
func ObserveScore(score float64) {
	if !Enabled() {
		return
	}
	OverallScores.Observe(score)
}

// ObservePublish records a result publish attempt.
func ObservePublish(queue string, err error) {
	if !Enabled() {
		return
	}
	if err != nil {
		PublishErrors.WithLabelValues(queue).Inc()
		return
	}
	ResultsPublished.WithLabelValues(queue).Inc()
}
