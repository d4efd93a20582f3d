package event

import (
	"sync"

	"rmcast/internal/message"
)

// Recorder captures events in memory for inspection by tests and run
// summaries.
type Recorder struct {
	mu           sync.Mutex
	originations []Origination
	deliveries   []Delivery
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) RecordOrigination(e Origination) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.originations = append(r.originations, e)
}

func (r *Recorder) RecordDelivery(e Delivery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, e)
}

// Originations returns a copy of all recorded origination events.
func (r *Recorder) Originations() []Origination {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Origination(nil), r.originations...)
}

// Deliveries returns a copy of all recorded delivery events.
func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delivery(nil), r.deliveries...)
}

// DeliveriesFor returns the delivery events observed at one process.
func (r *Recorder) DeliveriesFor(process string) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Delivery, 0)
	for _, e := range r.deliveries {
		if e.Process == process {
			out = append(out, e)
		}
	}
	return out
}

// DeliveryCounts returns, per process, how many times each message was
// delivered there. Every count should be 1; anything higher indicates a
// duplicate delivery.
func (r *Recorder) DeliveryCounts() map[string]map[message.ID]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]map[message.ID]int)
	for _, e := range r.deliveries {
		if out[e.Process] == nil {
			out[e.Process] = make(map[message.ID]int)
		}
		out[e.Process][e.ID]++
	}
	return out
}
