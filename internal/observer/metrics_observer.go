package observer

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "leaf_inspector"

// MetricsObserver records analysis events as Prometheus metrics
type MetricsObserver struct {
	analyses     *prometheus.CounterVec
	failures     *prometheus.CounterVec
	fallbacks    prometheus.Counter
	diseases     *prometheus.CounterVec
	imageFetches *prometheus.CounterVec
	duration     prometheus.Histogram
}

// NewMetricsObserver creates the collectors and registers them with reg
func NewMetricsObserver(reg prometheus.Registerer) (*MetricsObserver, error) {
	o := &MetricsObserver{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "analyses_total",
			Help:      "Total number of leaf analyses, labeled by result.",
		}, []string{"result"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "analysis_failures_total",
			Help:      "Total number of failed leaf analyses, labeled by error type.",
		}, []string{"type"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "enrichment_fallbacks_total",
			Help:      "Total number of results that carry fallback disease text.",
		}),
		diseases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "diseases_detected_total",
			Help:      "Total number of successful analyses, labeled by winning label.",
		}, []string{"disease"}),
		imageFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "image_fetches_total",
			Help:      "Total number of remote image downloads, labeled by source and result.",
		}, []string{"source", "result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end time of a leaf analysis.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60},
		}),
	}

	for _, c := range []prometheus.Collector{o.analyses, o.failures, o.fallbacks, o.diseases, o.imageFetches, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// OnEvent handles analysis events by updating collectors
func (o *MetricsObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	switch event.EventType {
	case AnalysisCompleted:
		o.analyses.WithLabelValues("success").Inc()
		o.diseases.WithLabelValues(event.Disease).Inc()
		o.duration.Observe(event.ProcessingTime.Seconds())
	case AnalysisFailed:
		o.analyses.WithLabelValues("failure").Inc()
		o.failures.WithLabelValues(event.ErrorType).Inc()
		o.duration.Observe(event.ProcessingTime.Seconds())
	case EnrichmentFallback:
		o.fallbacks.Inc()
	case ImageFetched:
		o.imageFetches.WithLabelValues(event.Source, "success").Inc()
	case ImageFetchFailed:
		o.imageFetches.WithLabelValues(event.Source, "failure").Inc()
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}
