package storage

import (
	"sort"

	"rmcast/internal/message"
)

// Log tracks the messages one process knows and has delivered. A known
// message stays known forever; delivery is a one-way transition.
// Thread-safe operations should be handled by the caller.
type Log struct {
	known     map[message.ID]message.Message
	delivered map[message.ID]bool
	progress  message.Digest
}

// NewLog creates an empty message log.
func NewLog() *Log {
	return &Log{
		known:     make(map[message.ID]message.Message),
		delivered: make(map[message.ID]bool),
		progress:  message.NewDigest(),
	}
}

// Has reports whether the message is already known.
func (l *Log) Has(id message.ID) bool {
	_, exists := l.known[id]
	return exists
}

// Add inserts a message into the known set. It returns false if the
// message was already known.
func (l *Log) Add(msg message.Message) bool {
	if _, exists := l.known[msg.ID]; exists {
		return false
	}
	l.known[msg.ID] = msg
	l.advance(msg.ID.Origin)
	return true
}

// MarkDelivered records local delivery of a known message.
func (l *Log) MarkDelivered(id message.ID) {
	if _, exists := l.known[id]; exists {
		l.delivered[id] = true
	}
}

// Delivered reports whether the message has been delivered locally.
func (l *Log) Delivered(id message.ID) bool {
	return l.delivered[id]
}

// Len returns the number of known messages.
func (l *Log) Len() int {
	return len(l.known)
}

// DeliveredCount returns the number of delivered messages.
func (l *Log) DeliveredCount() int {
	return len(l.delivered)
}

// Snapshot returns all known messages ordered by origin and sequence
// number. Messages are values, so callers cannot mutate the log.
func (l *Log) Snapshot() []message.Message {
	out := make([]message.Message, 0, len(l.known))
	for _, msg := range l.known {
		out = append(out, msg)
	}
	sortMessages(out)
	return out
}

// Since returns the known messages the digest does not cover yet,
// ordered by origin and sequence number. Messages behind a gap in the
// digest are included again; absorption is idempotent, so a resend is
// safe.
func (l *Log) Since(d message.Digest) []message.Message {
	out := make([]message.Message, 0)
	for id, msg := range l.known {
		if !d.Covers(id) {
			out = append(out, msg)
		}
	}
	sortMessages(out)
	return out
}

// Progress returns a copy of the contiguous per-origin progress digest.
func (l *Log) Progress() message.Digest {
	return l.progress.Copy()
}

// IDs returns the set of known message IDs.
func (l *Log) IDs() map[message.ID]bool {
	out := make(map[message.ID]bool, len(l.known))
	for id := range l.known {
		out[id] = true
	}
	return out
}

// advance moves the origin's progress past every contiguously known
// sequence number.
func (l *Log) advance(origin string) {
	next := l.progress.Next(origin)
	for l.Has(message.ID{Origin: origin, Seq: next}) {
		next++
	}
	l.progress.Set(origin, next)
}

func sortMessages(msgs []message.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].ID.Less(msgs[j].ID)
	})
}
