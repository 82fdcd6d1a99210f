package observer

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	name   string
	events []AnalysisEvent
}

func (r *recordingObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	r.events = append(r.events, event)
}

func (r *recordingObserver) GetObserverName() string { return r.name }

type panickingObserver struct{}

func (panickingObserver) OnEvent(context.Context, AnalysisEvent) { panic("boom") }
func (panickingObserver) GetObserverName() string { return "panicking" }

func TestEventPublisher_NotifiesInOrder(t *testing.T) {
	first := &recordingObserver{name: "first"}
	second := &recordingObserver{name: "second"}
	publisher := NewEventPublisher(first, panickingObserver{})
	publisher.Subscribe(second)

	publisher.NotifyObservers(context.Background(), AnalysisEvent{EventType: AnalysisStarted})

	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	assert.False(t, first.events[0].Timestamp.IsZero(), "timestamp is filled in")

	publisher.Unsubscribe(first)
	publisher.NotifyObservers(context.Background(), AnalysisEvent{EventType: AnalysisCompleted})
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 2)
}

func TestMetricsObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetricsObserver(reg)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.OnEvent(ctx, AnalysisEvent{EventType: AnalysisStarted})
	metrics.OnEvent(ctx, AnalysisEvent{EventType: AnalysisCompleted, Disease: "Leaf_Blight", ProcessingTime: time.Second})
	metrics.OnEvent(ctx, AnalysisEvent{EventType: AnalysisCompleted, Disease: "Healthy"})
	metrics.OnEvent(ctx, AnalysisEvent{EventType: AnalysisFailed, ErrorType: "validation"})
	metrics.OnEvent(ctx, AnalysisEvent{EventType: EnrichmentFallback})
	metrics.OnEvent(ctx, AnalysisEvent{EventType: ImageFetched, Source: "url"})
	metrics.OnEvent(ctx, AnalysisEvent{EventType: ImageFetchFailed, Source: "blob"})

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.analyses.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.analyses.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.fallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.diseases.WithLabelValues("Leaf_Blight")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.imageFetches.WithLabelValues("url", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.imageFetches.WithLabelValues("blob", "failure")))
	families, err := reg.Gather()
	require.NoError(t, err)
	var samples uint64
	for _, mf := range families {
		if mf.GetName() == "leaf_inspector_analysis_duration_seconds" {
			samples = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(3), samples)

	_, err = NewMetricsObserver(reg)
	assert.Error(t, err, "registering twice on one registry fails")
}

func TestLoggingObserver(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	obs := NewLoggingObserver(logger)

	obs.OnEvent(context.Background(), AnalysisEvent{
		EventType:    AnalysisFailed,
		Source:       "upload",
		ErrorType:    "upstream",
		ErrorMessage: "Failed to analyze image.",
	})
	obs.OnEvent(context.Background(), AnalysisEvent{
		EventType:  AnalysisCompleted,
		Disease:    "Rust",
		Confidence: 0.8,
		Metadata:   map[string]interface{}{"enriched": true},
	})

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, logrus.WarnLevel, entries[0].Level)
	assert.Equal(t, "upstream", entries[0].Data["error_type"])
	assert.Equal(t, logrus.InfoLevel, entries[1].Level)
	assert.Equal(t, "Rust", entries[1].Data["disease"])
	assert.Equal(t, true, entries[1].Data["enriched"])
}
