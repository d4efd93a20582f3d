package sim

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"rmcast/internal/config"
	"rmcast/internal/event"
	"rmcast/internal/gossip"
	"rmcast/internal/message"
	"rmcast/internal/process"
	"rmcast/internal/topology"
)

// Options carries the injectable collaborators of a Simulation. The
// zero value gives a silent run on the wall clock.
type Options struct {
	// Logger receives structured run logs. Defaults to a no-op logger.
	Logger *zap.Logger
	// Clock drives schedules, gossip rounds and convergence polling.
	// Defaults to the wall clock.
	Clock clock.Clock
	// Sink receives origination and delivery events in addition to the
	// simulation's own recorder.
	Sink event.Sink
}

// Simulation owns a set of processes wired by a topology, one gossip
// disseminator per process, and the schedule of originations to fire.
type Simulation struct {
	cfg    config.Config
	runID  string
	logger *zap.Logger
	clk    clock.Clock

	topo  *topology.Topology
	procs map[string]*process.Process
	order []string
	diss  map[string]*gossip.Disseminator
	rec   *event.Recorder
}

// New builds a simulation from the configuration. It validates the
// configuration, constructs the requested topology, and wires one
// process and one disseminator per configured ID.
func New(cfg config.Config, opts Options) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	topo, err := buildTopology(cfg)
	if err != nil {
		return nil, err
	}
	if !topo.Connected() {
		return nil, fmt.Errorf("topology %s over %d processes: %w",
			cfg.Topology, len(cfg.Processes), topology.ErrNotConnected)
	}
	for _, entry := range cfg.Schedule {
		if !topo.Contains(entry.Process) {
			return nil, fmt.Errorf("schedule entry at %v: %w: %q",
				entry.At, topology.ErrUnknownPeer, entry.Process)
		}
	}

	s := &Simulation{
		cfg:    cfg,
		runID:  uuid.NewString(),
		clk:    clk,
		topo:   topo,
		procs:  make(map[string]*process.Process, len(cfg.Processes)),
		order:  topo.Processes(),
		diss:   make(map[string]*gossip.Disseminator, len(cfg.Processes)),
		rec:    event.NewRecorder(),
	}
	s.logger = logger.With(zap.String("run_id", s.runID))

	sinks := []event.Sink{s.rec, event.NewLogSink(s.logger)}
	if opts.Sink != nil {
		sinks = append(sinks, opts.Sink)
	}
	sink := event.MultiSink(sinks...)

	for _, id := range s.order {
		p, err := process.New(id, sink)
		if err != nil {
			return nil, err
		}
		s.procs[id] = p
	}

	for i, id := range s.order {
		p := s.procs[id]
		d, err := gossip.New(gossip.Config{
			ProcessID:  id,
			Peers:      topo.PeersOf(id),
			Source:     p,
			Push:       s.pushTo,
			OnSend:     func() { p.Tick() },
			Interval:   cfg.GossipInterval,
			Fanout:     cfg.Fanout,
			Seed:       cfg.Seed + int64(i),
			TrackPeers: cfg.TrackPeers,
			Clock:      clk,
			Logger:     s.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("disseminator for %s: %w", id, err)
		}
		s.diss[id] = d
	}
	return s, nil
}

func buildTopology(cfg config.Config) (*topology.Topology, error) {
	switch cfg.Topology {
	case config.TopologyMesh:
		return topology.FullMesh(cfg.Processes)
	case config.TopologyRing:
		return topology.Ring(cfg.Processes)
	case config.TopologyStar:
		return topology.Star(cfg.Processes[0], cfg.Processes[1:])
	default:
		return nil, fmt.Errorf("unknown topology: %s", cfg.Topology)
	}
}

// pushTo delivers a gossip batch to the named process. It is the
// PushFunc shared by every disseminator in the run.
func (s *Simulation) pushTo(ctx context.Context, peerID string, msgs []message.Message) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	target, ok := s.procs[peerID]
	if !ok {
		return 0, fmt.Errorf("push: %w: %q", topology.ErrUnknownPeer, peerID)
	}
	return target.AbsorbAll(msgs)
}

// Run executes the simulation: it starts every disseminator, fires the
// schedule, waits until either all processes converge or the RunFor
// budget expires, then stops everything and summarizes the run.
func (s *Simulation) Run(ctx context.Context) (Summary, error) {
	start := s.clk.Now()
	s.logger.Info("run starting",
		zap.Int("processes", len(s.order)),
		zap.String("topology", s.cfg.Topology),
		zap.Duration("gossip_interval", s.cfg.GossipInterval),
		zap.Int("fanout", s.cfg.Fanout),
	)

	for _, id := range s.order {
		s.diss[id].Start()
	}

	if err := s.fireSchedule(ctx); err != nil {
		s.stopAll()
		return Summary{}, err
	}

	budget := s.cfg.RunFor - s.clk.Now().Sub(start)
	converged, err := s.WaitConverged(ctx, budget)
	s.stopAll()
	if err != nil {
		return Summary{}, err
	}

	summary := s.summarize(start, converged)
	s.logger.Info("run finished",
		zap.Bool("converged", summary.Converged),
		zap.Int("messages", summary.Messages),
		zap.Int("deliveries", summary.Deliveries),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// fireSchedule sleeps through the configured delays and triggers each
// origination in order.
func (s *Simulation) fireSchedule(ctx context.Context) error {
	entries := make([]config.Scheduled, len(s.cfg.Schedule))
	copy(entries, s.cfg.Schedule)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].At < entries[j].At
	})

	elapsed := time.Duration(0)
	for _, entry := range entries {
		if wait := entry.At - elapsed; wait > 0 {
			timer := s.clk.Timer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			elapsed = entry.At
		}
		msg := s.procs[entry.Process].Originate(entry.Content)
		s.logger.Debug("schedule fired",
			zap.Duration("at", entry.At),
			zap.Stringer("msg_id", msg.ID),
		)
	}
	return nil
}

// WaitConverged polls until every process knows the same message set,
// the timeout expires, or the context is cancelled. It reports whether
// convergence was reached.
func (s *Simulation) WaitConverged(ctx context.Context, timeout time.Duration) (bool, error) {
	if s.Converged() {
		return true, nil
	}
	if timeout <= 0 {
		return false, nil
	}

	deadline := s.clk.Timer(timeout)
	defer deadline.Stop()
	poll := s.clk.Ticker(s.cfg.GossipInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return s.Converged(), nil
		case <-poll.C:
			if s.Converged() {
				return true, nil
			}
		}
	}
}

// Converged reports whether every process knows the union of all
// messages originated so far.
func (s *Simulation) Converged() bool {
	union := make(map[message.ID]bool)
	sets := make([]map[message.ID]bool, 0, len(s.order))
	for _, id := range s.order {
		set := s.procs[id].KnownIDs()
		sets = append(sets, set)
		for msgID := range set {
			union[msgID] = true
		}
	}
	for _, set := range sets {
		if len(set) != len(union) {
			return false
		}
	}
	return true
}

func (s *Simulation) stopAll() {
	for _, id := range s.order {
		s.diss[id].Stop()
	}
}

// Process returns the process with the given ID, or nil if the run has
// no such process.
func (s *Simulation) Process(id string) *process.Process {
	return s.procs[id]
}

// Events returns the recorder collecting every origination and
// delivery in the run.
func (s *Simulation) Events() *event.Recorder {
	return s.rec
}

// RunID returns the unique identifier of this run.
func (s *Simulation) RunID() string {
	return s.runID
}
