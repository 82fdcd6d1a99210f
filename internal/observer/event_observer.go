package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AnalysisEvent represents a step of the analysis pipeline
type AnalysisEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Source         string                 `json:"source,omitempty"`
	Disease        string                 `json:"disease,omitempty"`
	Confidence     float64                `json:"confidence,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorType      string                 `json:"error_type,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of analysis event
type EventType string

const (
	// AnalysisStarted when a pipeline run begins
	AnalysisStarted EventType = "analysis_started"
	// AnalysisCompleted when a pipeline run yields a success outcome
	AnalysisCompleted EventType = "analysis_completed"
	// AnalysisFailed when a pipeline run yields a failure outcome
	AnalysisFailed EventType = "analysis_failed"
	// EnrichmentFallback when generated text was replaced by fallback content
	EnrichmentFallback EventType = "enrichment_fallback"
	// ImageFetched when a remote image was downloaded
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when a remote image could not be downloaded
	ImageFetchFailed EventType = "image_fetch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event AnalysisEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AnalysisEvent)
}

// LoggingObserver logs analysis events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles analysis events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	fields := logrus.Fields{
		"event_type":         event.EventType,
		"source":             event.Source,
		"processing_time_ms": event.ProcessingTime.Milliseconds(),
		"success":            event.Success,
	}
	if event.Disease != "" {
		fields["disease"] = event.Disease
		fields["confidence"] = event.Confidence
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
		fields["error_type"] = event.ErrorType
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AnalysisStarted:
		entry.Debug("Leaf analysis started")
	case AnalysisCompleted:
		entry.Info("Leaf analysis completed")
	case AnalysisFailed:
		entry.Warn("Leaf analysis failed")
	case EnrichmentFallback:
		entry.Warn("Disease text generation failed, using fallback content")
	case ImageFetched:
		entry.Debug("Remote image fetched")
	case ImageFetchFailed:
		entry.Error("Remote image fetch failed")
	default:
		entry.Info("Analysis event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(observers ...Observer) *EventPublisher {
	return &EventPublisher{
		observers: append([]Observer(nil), observers...),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers the event to every observer in subscription order.
// A panicking observer is logged and skipped.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event AnalysisEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		notify(ctx, obs, event)
	}
}

func notify(ctx context.Context, obs Observer, event AnalysisEvent) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
