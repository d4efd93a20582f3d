// Package lamport provides a Lamport logical clock for ordering events
// in a distributed exchange. The clock captures happened-before
// relationships with a single monotonically increasing counter.
package lamport
