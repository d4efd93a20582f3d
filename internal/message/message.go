package message

import (
	"errors"
	"fmt"
)

// ErrInvalid indicates a message that violates the construction contract.
var ErrInvalid = errors.New("invalid message")

// ID uniquely identifies a message by its origin process and the
// origin's per-message sequence number. Sequence numbers start at 1.
type ID struct {
	Origin string
	Seq    uint64
}

// String returns the canonical "origin-seq" form of the ID.
func (id ID) String() string {
	return fmt.Sprintf("%s-%d", id.Origin, id.Seq)
}

// Less orders IDs by origin, then by sequence number.
func (id ID) Less(other ID) bool {
	if id.Origin != other.Origin {
		return id.Origin < other.Origin
	}
	return id.Seq < other.Seq
}

// Message is an immutable multicast payload. Timestamp carries the
// originator's Lamport clock value at origination time and never
// changes as the message propagates.
type Message struct {
	ID        ID
	Content   string
	Timestamp int64
}

// Validate checks the construction contract. Messages are only built by
// originating processes, so a violation indicates a defect rather than
// a recoverable condition.
func (m Message) Validate() error {
	if m.ID.Origin == "" {
		return fmt.Errorf("%w: empty origin", ErrInvalid)
	}
	if m.ID.Seq == 0 {
		return fmt.Errorf("%w: sequence numbers start at 1", ErrInvalid)
	}
	if m.Timestamp <= 0 {
		return fmt.Errorf("%w: timestamp must be positive, got %d", ErrInvalid, m.Timestamp)
	}
	return nil
}
