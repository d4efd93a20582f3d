package event

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"rmcast/internal/message"
)

func TestRecorder_CapturesEvents(t *testing.T) {
	r := NewRecorder()

	r.RecordOrigination(Origination{Process: "p1", ID: message.ID{Origin: "p1", Seq: 1}, Content: "a", Clock: 1})
	r.RecordDelivery(Delivery{Process: "p2", ID: message.ID{Origin: "p1", Seq: 1}, Content: "a", Origin: "p1", Timestamp: 1, Clock: 2})
	r.RecordDelivery(Delivery{Process: "p3", ID: message.ID{Origin: "p1", Seq: 1}, Content: "a", Origin: "p1", Timestamp: 1, Clock: 2})

	if got := len(r.Originations()); got != 1 {
		t.Errorf("Expected 1 origination, got %d", got)
	}
	if got := len(r.Deliveries()); got != 2 {
		t.Errorf("Expected 2 deliveries, got %d", got)
	}
	if got := len(r.DeliveriesFor("p2")); got != 1 {
		t.Errorf("Expected 1 delivery at p2, got %d", got)
	}
	if got := len(r.DeliveriesFor("p9")); got != 0 {
		t.Errorf("Expected no deliveries at p9, got %d", got)
	}
}

func TestRecorder_DeliveryCounts(t *testing.T) {
	r := NewRecorder()
	id := message.ID{Origin: "p1", Seq: 1}

	r.RecordDelivery(Delivery{Process: "p2", ID: id})
	r.RecordDelivery(Delivery{Process: "p2", ID: id})
	r.RecordDelivery(Delivery{Process: "p3", ID: id})

	counts := r.DeliveryCounts()
	if counts["p2"][id] != 2 {
		t.Errorf("Expected count 2 at p2, got %d", counts["p2"][id])
	}
	if counts["p3"][id] != 1 {
		t.Errorf("Expected count 1 at p3, got %d", counts["p3"][id])
	}
}

func TestRecorder_ConcurrentAccess(t *testing.T) {
	r := NewRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.RecordDelivery(Delivery{Process: "p1", ID: message.ID{Origin: "p2", Seq: uint64(i + 1)}})
		}(i)
	}
	wg.Wait()

	if got := len(r.Deliveries()); got != 10 {
		t.Errorf("Expected 10 deliveries, got %d", got)
	}
}

func TestMultiSink_FansOut(t *testing.T) {
	r1 := NewRecorder()
	r2 := NewRecorder()
	sink := MultiSink(r1, r2, NopSink{})

	sink.RecordOrigination(Origination{Process: "p1", ID: message.ID{Origin: "p1", Seq: 1}})
	sink.RecordDelivery(Delivery{Process: "p2", ID: message.ID{Origin: "p1", Seq: 1}})

	for i, r := range []*Recorder{r1, r2} {
		if len(r.Originations()) != 1 || len(r.Deliveries()) != 1 {
			t.Errorf("Recorder %d missed events: %d originations, %d deliveries",
				i, len(r.Originations()), len(r.Deliveries()))
		}
	}
}

func TestLogSink_WritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewLogSink(zap.New(core))

	sink.RecordDelivery(Delivery{
		Process:   "p2",
		ID:        message.ID{Origin: "p1", Seq: 3},
		Content:   "hello",
		Origin:    "p1",
		Timestamp: 4,
		Clock:     5,
	})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(entries))
	}
	if entries[0].Message != "message delivered" {
		t.Errorf("Expected 'message delivered', got %q", entries[0].Message)
	}

	fields := entries[0].ContextMap()
	if fields["process"] != "p2" {
		t.Errorf("Expected process p2, got %v", fields["process"])
	}
	if fields["msg_id"] != "p1-3" {
		t.Errorf("Expected msg_id p1-3, got %v", fields["msg_id"])
	}
	if fields["clock"] != int64(5) {
		t.Errorf("Expected clock 5, got %v", fields["clock"])
	}
}

func TestNewLogSink_NilLogger(t *testing.T) {
	sink := NewLogSink(nil)
	// Must not panic.
	sink.RecordOrigination(Origination{Process: "p1"})
	sink.RecordDelivery(Delivery{Process: "p1"})
}
