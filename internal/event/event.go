// Package event carries the observable protocol events emitted by
// processes, decoupled from any particular logging backend.
package event

import (
	"rmcast/internal/message"
)

// Origination records a process creating a new multicast message.
type Origination struct {
	Process string
	ID      message.ID
	Content string
	Clock   int64
}

// Delivery records the first absorption of a message at a process.
type Delivery struct {
	Process   string
	ID        message.ID
	Content   string
	Origin    string
	Timestamp int64
	Clock     int64
}

// Sink consumes protocol events. Implementations must be safe for
// concurrent use; processes emit from their own goroutines.
type Sink interface {
	RecordOrigination(e Origination)
	RecordDelivery(e Delivery)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordOrigination(Origination) {}
func (NopSink) RecordDelivery(Delivery)       {}

// MultiSink fans events out to several sinks in order.
func MultiSink(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) RecordOrigination(e Origination) {
	for _, s := range m {
		s.RecordOrigination(e)
	}
}

func (m multiSink) RecordDelivery(e Delivery) {
	for _, s := range m {
		s.RecordDelivery(e)
	}
}
