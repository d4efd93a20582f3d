// Package process implements a logical process participating in the
// reliable multicast exchange: it originates messages, absorbs messages
// pushed by peers, and keeps its Lamport clock and message log in step.
package process

import (
	"fmt"
	"sync"

	"rmcast/internal/event"
	"rmcast/internal/lamport"
	"rmcast/internal/message"
	"rmcast/internal/storage"
)

// Status reports the outcome of absorbing a message.
type Status int

const (
	// Delivered means the message was new and has been delivered locally.
	Delivered Status = iota
	// AlreadyKnown means the message was a duplicate and was ignored.
	AlreadyKnown
)

// String returns the string representation of Status.
func (s Status) String() string {
	switch s {
	case Delivered:
		return "DELIVERED"
	case AlreadyKnown:
		return "ALREADY_KNOWN"
	default:
		return "UNKNOWN"
	}
}

// DeliveryResult describes the outcome of one absorption.
type DeliveryResult struct {
	Status    Status
	ID        message.ID
	Content   string
	Origin    string
	Timestamp int64
	// NewClock is the local clock after the merge. For AlreadyKnown it
	// is the unchanged current value.
	NewClock int64
}

// Process is one logical participant in the multicast exchange. All
// exported methods are safe for concurrent use; a single mutex
// serializes every state transition, so absorptions from concurrent
// gossip pushes cannot interleave.
type Process struct {
	id   string
	sink event.Sink

	mu  sync.Mutex
	clk lamport.Clock
	seq uint64
	log *storage.Log
}

// New creates a process with an empty log and a zeroed clock. A nil
// sink disables event reporting.
func New(id string, sink event.Sink) (*Process, error) {
	if id == "" {
		return nil, fmt.Errorf("process ID cannot be empty")
	}
	if sink == nil {
		sink = event.NopSink{}
	}
	return &Process{
		id:   id,
		sink: sink,
		log:  storage.NewLog(),
	}, nil
}

// ID returns the process identifier.
func (p *Process) ID() string {
	return p.id
}

// Originate creates a new multicast message stamped with a fresh
// sequence number and the post-tick clock value, delivers it locally,
// and returns it for dissemination.
func (p *Process) Originate(content string) message.Message {
	p.mu.Lock()
	ts := p.clk.Tick()
	p.seq++
	msg := message.Message{
		ID:        message.ID{Origin: p.id, Seq: p.seq},
		Content:   content,
		Timestamp: ts,
	}
	p.log.Add(msg)
	p.log.MarkDelivered(msg.ID)
	p.mu.Unlock()

	p.sink.RecordOrigination(event.Origination{
		Process: p.id,
		ID:      msg.ID,
		Content: msg.Content,
		Clock:   ts,
	})
	return msg
}

// Absorb applies a message received from a peer. The first receipt
// inserts it into the known set, merges the clock past the message
// timestamp, and delivers; any later receipt reports AlreadyKnown and
// leaves the clock untouched.
func (p *Process) Absorb(msg message.Message) (DeliveryResult, error) {
	if err := msg.Validate(); err != nil {
		return DeliveryResult{}, fmt.Errorf("absorb at %s: %w", p.id, err)
	}

	p.mu.Lock()
	if !p.log.Add(msg) {
		result := DeliveryResult{
			Status:    AlreadyKnown,
			ID:        msg.ID,
			Content:   msg.Content,
			Origin:    msg.ID.Origin,
			Timestamp: msg.Timestamp,
			NewClock:  p.clk.Now(),
		}
		p.mu.Unlock()
		return result, nil
	}
	newClock := p.clk.Merge(msg.Timestamp)
	p.log.MarkDelivered(msg.ID)
	p.mu.Unlock()

	p.sink.RecordDelivery(event.Delivery{
		Process:   p.id,
		ID:        msg.ID,
		Content:   msg.Content,
		Origin:    msg.ID.Origin,
		Timestamp: msg.Timestamp,
		Clock:     newClock,
	})
	return DeliveryResult{
		Status:    Delivered,
		ID:        msg.ID,
		Content:   msg.Content,
		Origin:    msg.ID.Origin,
		Timestamp: msg.Timestamp,
		NewClock:  newClock,
	}, nil
}

// AbsorbAll absorbs a batch in order and returns how many messages were
// newly delivered.
func (p *Process) AbsorbAll(msgs []message.Message) (int, error) {
	delivered := 0
	for _, msg := range msgs {
		result, err := p.Absorb(msg)
		if err != nil {
			return delivered, err
		}
		if result.Status == Delivered {
			delivered++
		}
	}
	return delivered, nil
}

// Tick records a causally relevant local event other than a receive,
// such as pushing gossip to a peer, and returns the new clock value.
// Originations tick implicitly; message payloads are never affected.
func (p *Process) Tick() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clk.Tick()
}

// Clock returns the current Lamport clock value.
func (p *Process) Clock() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clk.Now()
}

// Snapshot returns every message the process knows, ordered by origin
// and sequence number.
func (p *Process) Snapshot() []message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log.Snapshot()
}

// Since returns the known messages the digest does not cover.
func (p *Process) Since(d message.Digest) []message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log.Since(d)
}

// Progress returns the contiguous per-origin progress digest.
func (p *Process) Progress() message.Digest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log.Progress()
}

// KnownIDs returns the set of known message IDs.
func (p *Process) KnownIDs() map[message.ID]bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log.IDs()
}

// KnownCount returns the number of known messages.
func (p *Process) KnownCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log.Len()
}

// DeliveredCount returns how many messages this process has delivered,
// including its own originations.
func (p *Process) DeliveredCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log.DeliveredCount()
}
