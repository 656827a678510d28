package observer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PipelineEvent is a user-visible notification raised by the capture and sync pipeline
type PipelineEvent struct {
	EventType    EventType              `json:"event_type"`
	Timestamp    time.Time              `json:"timestamp"`
	RecordID     string                 `json:"record_id,omitempty"`
	Message      string                 `json:"message"`
	Success      bool                   `json:"success"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of pipeline event
type EventType string

const (
	// RecordSaved when an approved invoice is durably queued
	RecordSaved EventType = "record_saved"
	// CaptureRejected when the operator rejects a review
	CaptureRejected EventType = "capture_rejected"
	// ExtractionFailed when the extraction collaborator fails
	ExtractionFailed EventType = "extraction_failed"
	// SyncCompleted when a sync pass uploaded at least one record
	SyncCompleted EventType = "sync_completed"
	// UploadFailed when a single record upload fails
	UploadFailed EventType = "upload_failed"
)

// NewEvent stamps an event with the current time
func NewEvent(t EventType, message string) PipelineEvent {
	return PipelineEvent{EventType: t, Timestamp: time.Now(), Message: message, Success: true}
}

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event PipelineEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event PipelineEvent)
}

// LoggingObserver logs pipeline events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles pipeline events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"success":    event.Success,
	}
	if event.RecordID != "" {
		fields["record_id"] = event.RecordID
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case UploadFailed, ExtractionFailed:
		entry.Warn(event.Message)
	case CaptureRejected:
		entry.Debug(event.Message)
	default:
		entry.Info(event.Message)
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// ConsoleObserver prints the message of each event, the CLI's toast
type ConsoleObserver struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleObserver creates an observer writing to out
func NewConsoleObserver(out io.Writer) Observer {
	return &ConsoleObserver{out: out}
}

// OnEvent prints operator-facing events
func (o *ConsoleObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	if event.EventType == UploadFailed {
		// upload failures are retried silently
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(o.out, event.Message)
}

// GetObserverName returns the observer name
func (o *ConsoleObserver) GetObserverName() string {
	return "console_observer"
}

// MetricsObserver counts pipeline events
type MetricsObserver struct {
	mu                sync.RWMutex
	recordsSaved      int64
	capturesRejected  int64
	extractionsFailed int64
	recordsSynced     int64
	uploadsFailed     int64
	syncPasses        int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles pipeline events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case RecordSaved:
		o.recordsSaved++
	case CaptureRejected:
		o.capturesRejected++
	case ExtractionFailed:
		o.extractionsFailed++
	case SyncCompleted:
		o.syncPasses++
		if n, ok := event.Metadata["synced"].(int); ok {
			o.recordsSynced += int64(n)
		}
	case UploadFailed:
		o.uploadsFailed++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return map[string]interface{}{
		"records_saved":      o.recordsSaved,
		"captures_rejected":  o.capturesRejected,
		"extractions_failed": o.extractionsFailed,
		"records_synced":     o.recordsSynced,
		"uploads_failed":     o.uploadsFailed,
		"sync_passes":        o.syncPasses,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	inflight  sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
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

// NotifyObservers delivers the event to every observer without waiting for them
func (p *EventPublisher) NotifyObservers(ctx context.Context, event PipelineEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	// Notify observers concurrently
	for _, observer := range observers {
		p.inflight.Add(1)
		go func(obs Observer) {
			defer p.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					// Log panic but don't crash the application
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Flush waits for notifications already in flight, e.g. before exiting
func (p *EventPublisher) Flush() {
	p.inflight.Wait()
}
