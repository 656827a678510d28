package observer

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

type panickingObserver struct{}

func (panickingObserver) OnEvent(ctx context.Context, event PipelineEvent) { panic("boom") }
func (panickingObserver) GetObserverName() string                        { return "panicking" }

func TestEventPublisher_FanOut(t *testing.T) {
	p := NewEventPublisher()
	metrics := NewMetricsObserver()
	var out bytes.Buffer

	p.Subscribe(metrics)
	p.Subscribe(NewConsoleObserver(&out))
	p.Subscribe(panickingObserver{})

	ctx := context.Background()
	p.NotifyObservers(ctx, NewEvent(RecordSaved, "Invoice saved for sync when online"))
	completed := NewEvent(SyncCompleted, "2 invoices synced successfully")
	completed.Metadata = map[string]interface{}{"synced": 2}
	p.NotifyObservers(ctx, completed)
	p.NotifyObservers(ctx, PipelineEvent{EventType: UploadFailed, Message: "upload failed"})
	p.Flush()

	got := metrics.GetMetrics()
	if got["records_saved"] != int64(1) || got["records_synced"] != int64(2) || got["uploads_failed"] != int64(1) {
		t.Errorf("Unexpected metrics %v", got)
	}

	printed := out.String()
	if !strings.Contains(printed, "Invoice saved for sync when online") || !strings.Contains(printed, "2 invoices synced successfully") {
		t.Errorf("Expected messages on console, got %q", printed)
	}
	if strings.Contains(printed, "upload failed") {
		t.Error("Upload failures must not reach the operator")
	}
}

func TestEventPublisher_Unsubscribe(t *testing.T) {
	p := NewEventPublisher()
	metrics := NewMetricsObserver()
	p.Subscribe(metrics)
	p.Unsubscribe(metrics)

	p.NotifyObservers(context.Background(), NewEvent(RecordSaved, "saved"))
	p.Flush()

	if metrics.GetMetrics()["records_saved"] != int64(0) {
		t.Error("Expected unsubscribed observer to receive nothing")
	}
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	o := NewLoggingObserver(log)
	e := NewEvent(RecordSaved, "Invoice approved and uploading")
	e.RecordID = "abc"
	o.OnEvent(context.Background(), e)

	line := buf.String()
	if !strings.Contains(line, `"record_id":"abc"`) || !strings.Contains(line, "Invoice approved and uploading") {
		t.Errorf("Unexpected log line %q", line)
	}

	log.SetOutput(io.Discard)
}
