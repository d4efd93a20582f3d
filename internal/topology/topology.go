package topology

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownPeer indicates a reference to a process that is not part of
// the exchange. This is a configuration error detected at setup time,
// never during a run.
var ErrUnknownPeer = errors.New("unknown peer")

// ErrNotConnected indicates a topology on which eventual delivery
// cannot be guaranteed because some process cannot reach some other.
var ErrNotConnected = errors.New("topology is not strongly connected")

// Topology is a directed peer graph over a fixed set of processes.
type Topology struct {
	peers map[string][]string // process -> sorted push targets
}

// FullMesh builds a topology in which every process may push to every
// other process.
func FullMesh(ids []string) (*Topology, error) {
	set, err := processSet(ids)
	if err != nil {
		return nil, err
	}

	t := &Topology{peers: make(map[string][]string, len(set))}
	for id := range set {
		targets := make([]string, 0, len(set)-1)
		for other := range set {
			if other != id {
				targets = append(targets, other)
			}
		}
		sort.Strings(targets)
		t.peers[id] = targets
	}
	return t, nil
}

// Ring builds a directed cycle in the order the IDs are listed: each
// process pushes only to its successor.
func Ring(ids []string) (*Topology, error) {
	if _, err := processSet(ids); err != nil {
		return nil, err
	}

	t := &Topology{peers: make(map[string][]string, len(ids))}
	for i, id := range ids {
		if len(ids) == 1 {
			t.peers[id] = []string{}
			continue
		}
		t.peers[id] = []string{ids[(i+1)%len(ids)]}
	}
	return t, nil
}

// Star builds a hub-and-spoke topology: the hub pushes to every leaf
// and each leaf pushes only to the hub.
func Star(hub string, leaves []string) (*Topology, error) {
	ids := append([]string{hub}, leaves...)
	if _, err := processSet(ids); err != nil {
		return nil, err
	}

	t := &Topology{peers: make(map[string][]string, len(ids))}
	sortedLeaves := append([]string(nil), leaves...)
	sort.Strings(sortedLeaves)
	t.peers[hub] = sortedLeaves
	for _, leaf := range leaves {
		t.peers[leaf] = []string{hub}
	}
	return t, nil
}

// FromMap builds a topology from an explicit adjacency list. Every
// process in ids participates; processes absent from adj have no push
// targets. Targets must name known processes and may not include the
// process itself. The resulting graph must be strongly connected.
func FromMap(ids []string, adj map[string][]string) (*Topology, error) {
	set, err := processSet(ids)
	if err != nil {
		return nil, err
	}

	t := &Topology{peers: make(map[string][]string, len(set))}
	for id := range set {
		t.peers[id] = []string{}
	}

	for id, targets := range adj {
		if !set[id] {
			return nil, fmt.Errorf("%w: %q is not a process in this exchange", ErrUnknownPeer, id)
		}
		seen := make(map[string]bool, len(targets))
		out := make([]string, 0, len(targets))
		for _, target := range targets {
			if target == id {
				return nil, fmt.Errorf("process %q lists itself as a peer", id)
			}
			if !set[target] {
				return nil, fmt.Errorf("%w: %q (peer of %q)", ErrUnknownPeer, target, id)
			}
			if !seen[target] {
				seen[target] = true
				out = append(out, target)
			}
		}
		sort.Strings(out)
		t.peers[id] = out
	}

	if !t.Connected() {
		return nil, fmt.Errorf("adjacency over %d processes: %w", len(set), ErrNotConnected)
	}
	return t, nil
}

// Processes returns all process IDs in sorted order.
func (t *Topology) Processes() []string {
	out := make([]string, 0, len(t.peers))
	for id := range t.peers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// PeersOf returns a copy of the push targets of the given process.
func (t *Topology) PeersOf(id string) []string {
	return append([]string(nil), t.peers[id]...)
}

// Contains reports whether the process participates in this topology.
func (t *Topology) Contains(id string) bool {
	_, exists := t.peers[id]
	return exists
}

// Size returns the number of processes.
func (t *Topology) Size() int {
	return len(t.peers)
}

// Connected reports whether the graph is strongly connected: every
// process can reach every other by following push edges.
func (t *Topology) Connected() bool {
	if len(t.peers) <= 1 {
		return true
	}

	var start string
	for id := range t.peers {
		start = id
		break
	}

	// Strong connectivity holds when one node reaches all others along
	// forward edges and along reversed edges.
	if len(t.reach(start, t.peers)) != len(t.peers) {
		return false
	}

	reversed := make(map[string][]string, len(t.peers))
	for id, targets := range t.peers {
		if _, exists := reversed[id]; !exists {
			reversed[id] = []string{}
		}
		for _, target := range targets {
			reversed[target] = append(reversed[target], id)
		}
	}
	return len(t.reach(start, reversed)) == len(t.peers)
}

func (t *Topology) reach(start string, edges map[string][]string) map[string]bool {
	visited := map[string]bool{start: true}
	frontier := []string{start}
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		for _, next := range edges[id] {
			if !visited[next] {
				visited[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	return visited
}

// processSet validates the ID list and returns it as a set.
func processSet(ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("topology requires at least one process")
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("process ID cannot be empty")
		}
		if set[id] {
			return nil, fmt.Errorf("duplicate process ID: %s", id)
		}
		set[id] = true
	}
	return set, nil
}
