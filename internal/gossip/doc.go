// Package gossip implements push-based anti-entropy dissemination.
// Each process periodically pushes the messages it knows to a few
// selected peers; receivers suppress duplicates, so repeated rounds
// converge every process on the same message set.
//
// Limitations (learning-grade implementation):
// - Push only, no pull or push-pull exchange
// - No failure detection; peers are assumed reachable
// - Per-peer delta tracking resends everything past a sequence gap
package gossip
