package it

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rmcast/internal/config"
	"rmcast/internal/event"
	"rmcast/internal/process"
	"rmcast/internal/sim"
)

// Cluster wraps a full in-process simulation for integration tests.
type Cluster struct {
	cfg config.Config
	sim *sim.Simulation
}

// FastConfig returns a run over n processes tuned for test speed:
// short gossip interval, deterministic seed, tight convergence budget.
func FastConfig(n int, topo string) config.Config {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d", i)
	}
	return config.Config{
		Processes:      ids,
		Topology:       topo,
		GossipInterval: 5 * time.Millisecond,
		Fanout:         2,
		Seed:           42,
		RunFor:         2 * time.Second,
	}
}

// NewCluster builds the simulation behind a test cluster. The logger
// may be nil for a silent run.
func NewCluster(cfg config.Config, logger *zap.Logger) (*Cluster, error) {
	s, err := sim.New(cfg, sim.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	return &Cluster{cfg: cfg, sim: s}, nil
}

// Run executes the simulation to completion.
func (c *Cluster) Run(ctx context.Context) (sim.Summary, error) {
	return c.sim.Run(ctx)
}

// Process returns one process of the cluster by ID.
func (c *Cluster) Process(id string) *process.Process {
	return c.sim.Process(id)
}

// Events returns the recorder that saw every origination and delivery.
func (c *Cluster) Events() *event.Recorder {
	return c.sim.Events()
}

// Report returns the current convergence report.
func (c *Cluster) Report() sim.Report {
	return c.sim.ConvergenceReport()
}
