package gossip

import (
	"math/rand"
)

// Selector picks the push targets for one gossip round. Implementations
// need not be safe for concurrent use; the disseminator serializes
// calls.
type Selector interface {
	// Pick returns up to k distinct peer IDs. It never returns the
	// local process and returns fewer than k only when fewer peers
	// exist.
	Pick(k int) []string
}

// UniformSelector picks peers uniformly at random without replacement.
// The seed makes the sequence of rounds reproducible.
type UniformSelector struct {
	peers []string
	rng   *rand.Rand
}

// NewUniformSelector creates a seeded uniform selector over the given
// peers.
func NewUniformSelector(peers []string, seed int64) *UniformSelector {
	return &UniformSelector{
		peers: append([]string(nil), peers...),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (s *UniformSelector) Pick(k int) []string {
	if k <= 0 || len(s.peers) == 0 {
		return nil
	}
	if k > len(s.peers) {
		k = len(s.peers)
	}

	out := make([]string, 0, k)
	for _, i := range s.rng.Perm(len(s.peers))[:k] {
		out = append(out, s.peers[i])
	}
	return out
}

// RoundRobinSelector cycles through the peers in order. Deterministic,
// useful for tests and for ring topologies with a single peer.
type RoundRobinSelector struct {
	peers []string
	next  int
}

// NewRoundRobinSelector creates a round-robin selector over the given
// peers.
func NewRoundRobinSelector(peers []string) *RoundRobinSelector {
	return &RoundRobinSelector{peers: append([]string(nil), peers...)}
}

func (s *RoundRobinSelector) Pick(k int) []string {
	if k <= 0 || len(s.peers) == 0 {
		return nil
	}
	if k > len(s.peers) {
		k = len(s.peers)
	}

	out := make([]string, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, s.peers[s.next])
		s.next = (s.next + 1) % len(s.peers)
	}
	return out
}
