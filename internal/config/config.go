// Package config holds the simulation configuration and parsers for
// the flag values that describe it.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Topology names accepted by Validate.
const (
	TopologyMesh = "mesh"
	TopologyRing = "ring"
	TopologyStar = "star"
)

// Scheduled is one planned origination: after At elapses, Process
// multicasts Content.
type Scheduled struct {
	At      time.Duration
	Process string
	Content string
}

// Config describes a full simulation run.
type Config struct {
	Processes      []string
	Topology       string
	GossipInterval time.Duration
	Fanout         int
	Seed           int64
	TrackPeers     bool
	RunFor         time.Duration
	Schedule       []Scheduled
}

// Default returns a six-process full-mesh run with three staggered
// originations, sized so every process converges well inside RunFor.
func Default() Config {
	return Config{
		Processes:      []string{"p0", "p1", "p2", "p3", "p4", "p5"},
		Topology:       TopologyMesh,
		GossipInterval: 100 * time.Millisecond,
		Fanout:         2,
		Seed:           1,
		RunFor:         10 * time.Second,
		Schedule: []Scheduled{
			{At: 400 * time.Millisecond, Process: "p2", Content: "deploy finished"},
			{At: 1100 * time.Millisecond, Process: "p5", Content: "cache flushed"},
			{At: 1600 * time.Millisecond, Process: "p0", Content: "all clear"},
		},
	}
}

// ParseProcesses parses a comma-separated list of process IDs.
func ParseProcesses(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("process list cannot be empty")
	}

	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		id := strings.TrimSpace(part)
		if id == "" {
			return nil, fmt.Errorf("invalid process list: %s (empty entry)", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseSchedule parses a comma-separated list of scheduled
// originations, each in the form delay=process=content, e.g.
// "250ms=p2=hello,1s=p0=done".
func ParseSchedule(s string) ([]Scheduled, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	entries := make([]Scheduled, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		fields := strings.SplitN(part, "=", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid schedule entry: %s (expected delay=process=content)", part)
		}

		at, err := time.ParseDuration(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid schedule delay in %s: %w", part, err)
		}
		if at < 0 {
			return nil, fmt.Errorf("invalid schedule entry: %s (delay cannot be negative)", part)
		}

		proc := strings.TrimSpace(fields[1])
		if proc == "" {
			return nil, fmt.Errorf("invalid schedule entry: %s (process cannot be empty)", part)
		}

		entries = append(entries, Scheduled{
			At:      at,
			Process: proc,
			Content: fields[2],
		})
	}
	return entries, nil
}

// Validate checks the configuration and fills in defaults for the
// zero-valued tuning knobs.
func (c *Config) Validate() error {
	if len(c.Processes) == 0 {
		return fmt.Errorf("config must name at least one process")
	}
	seen := make(map[string]bool, len(c.Processes))
	for _, id := range c.Processes {
		if id == "" {
			return fmt.Errorf("process IDs cannot be empty")
		}
		if seen[id] {
			return fmt.Errorf("duplicate process ID: %s", id)
		}
		seen[id] = true
	}

	switch c.Topology {
	case "":
		c.Topology = TopologyMesh
	case TopologyMesh, TopologyRing, TopologyStar:
	default:
		return fmt.Errorf("unknown topology: %s (expected mesh, ring or star)", c.Topology)
	}

	if c.GossipInterval < 0 {
		return fmt.Errorf("gossip interval cannot be negative")
	}
	if c.GossipInterval == 0 {
		c.GossipInterval = 100 * time.Millisecond
	}
	if c.Fanout < 0 {
		return fmt.Errorf("fanout cannot be negative")
	}
	if c.Fanout == 0 {
		c.Fanout = 1
	}
	if c.RunFor < 0 {
		return fmt.Errorf("run duration cannot be negative")
	}
	if c.RunFor == 0 {
		c.RunFor = 10 * time.Second
	}
	return nil
}
