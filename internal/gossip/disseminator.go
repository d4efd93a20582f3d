package gossip

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"rmcast/internal/message"
)

const (
	// DefaultInterval is the default time between gossip rounds.
	DefaultInterval = 100 * time.Millisecond
	// DefaultFanout is the default number of peers contacted per round.
	DefaultFanout = 1
	// DefaultPushTimeout is the default timeout for the pushes of one round.
	DefaultPushTimeout = 2 * time.Second
)

// Source provides the local view a disseminator pushes from.
type Source interface {
	// Snapshot returns every known message ordered by origin and sequence.
	Snapshot() []message.Message
	// Since returns the known messages the digest does not cover.
	Since(d message.Digest) []message.Message
}

// PushFunc delivers a batch of messages to one peer. It returns how
// many of them the peer had not seen before.
type PushFunc func(ctx context.Context, peerID string, msgs []message.Message) (int, error)

// Config configures a Disseminator.
type Config struct {
	ProcessID string
	Peers     []string
	Source    Source
	Push      PushFunc

	// Selector overrides the default seeded uniform selection over Peers.
	Selector Selector

	// OnSend, if set, is called once per peer push before the batch is
	// handed to Push. The owning process advances its clock here so
	// each push counts as a send event.
	OnSend func()

	Interval    time.Duration
	Fanout      int
	PushTimeout time.Duration
	Seed        int64

	// TrackPeers enables per-peer delta tracking: each peer is only
	// pushed messages it has not been sent successfully before.
	TrackPeers bool

	Clock  clock.Clock
	Logger *zap.Logger
}

// RoundResult summarizes one gossip round.
type RoundResult struct {
	Selected  []string // peers picked this round
	Pushed    int      // messages pushed across all peers
	Delivered int      // messages that were new to their receiver
	Failed    int      // pushes that returned an error
}

// Disseminator runs the periodic gossip loop for one process.
type Disseminator struct {
	processID   string
	source      Source
	push        PushFunc
	onSend      func()
	interval    time.Duration
	fanout      int
	pushTimeout time.Duration
	clk         clock.Clock
	logger      *zap.Logger

	mu   sync.Mutex
	sel  Selector
	sent map[string]message.Digest // peer -> progress pushed so far, nil unless tracking

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a disseminator from the config, applying defaults for
// unset durations, fanout, clock, and logger.
func New(cfg Config) (*Disseminator, error) {
	if cfg.ProcessID == "" {
		return nil, fmt.Errorf("process ID cannot be empty")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("gossip source cannot be nil")
	}
	if cfg.Push == nil {
		return nil, fmt.Errorf("push function cannot be nil")
	}

	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Fanout <= 0 {
		cfg.Fanout = DefaultFanout
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = DefaultPushTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	sel := cfg.Selector
	if sel == nil {
		sel = NewUniformSelector(cfg.Peers, cfg.Seed)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Disseminator{
		processID:   cfg.ProcessID,
		source:      cfg.Source,
		push:        cfg.Push,
		onSend:      cfg.OnSend,
		interval:    cfg.Interval,
		fanout:      cfg.Fanout,
		pushTimeout: cfg.PushTimeout,
		clk:         cfg.Clock,
		logger:      cfg.Logger.With(zap.String("process", cfg.ProcessID)),
		sel:         sel,
		ctx:         ctx,
		cancel:      cancel,
	}
	if cfg.TrackPeers {
		d.sent = make(map[string]message.Digest)
	}
	return d, nil
}

// Start launches the periodic gossip loop.
func (d *Disseminator) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := d.clk.Ticker(d.interval)
		defer ticker.Stop()

		for {
			select {
			case <-d.ctx.Done():
				return
			case <-ticker.C:
				d.RunRound(d.ctx)
			}
		}
	}()
}

// Stop terminates the gossip loop and waits for it to drain. In-flight
// pushes are abandoned to their per-round timeout; absorption is
// idempotent, so an abandoned push cannot corrupt a receiver.
func (d *Disseminator) Stop() {
	d.cancel()
	d.wg.Wait()
}

// RunRound executes a single gossip round: select up to fanout peers
// and push each one the messages it has not been sent yet.
func (d *Disseminator) RunRound(ctx context.Context) RoundResult {
	type job struct {
		peer  string
		batch []message.Message
	}

	d.mu.Lock()
	targets := d.sel.Pick(d.fanout)
	jobs := make([]job, 0, len(targets))
	for _, peer := range targets {
		var batch []message.Message
		if d.sent != nil {
			batch = d.source.Since(d.sent[peer])
		} else {
			batch = d.source.Snapshot()
		}
		if len(batch) > 0 {
			jobs = append(jobs, job{peer: peer, batch: batch})
		}
	}
	d.mu.Unlock()

	var (
		mu     sync.Mutex
		result = RoundResult{Selected: targets}
		wg     sync.WaitGroup
	)

	roundCtx, cancel := context.WithTimeout(ctx, d.pushTimeout)
	defer cancel()

	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()

			if d.onSend != nil {
				d.onSend()
			}
			delivered, err := d.push(roundCtx, j.peer, j.batch)
			if err != nil {
				d.logger.Debug("push failed",
					zap.String("peer", j.peer),
					zap.Int("batch", len(j.batch)),
					zap.Error(err),
				)
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return
			}

			d.noteSent(j.peer, j.batch)
			mu.Lock()
			result.Pushed += len(j.batch)
			result.Delivered += delivered
			mu.Unlock()
		}(j)
	}

	// Wait for the round or for cancellation, whichever comes first.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	out := result
	if out.Pushed > 0 || out.Failed > 0 {
		d.logger.Debug("gossip round",
			zap.Strings("peers", out.Selected),
			zap.Int("pushed", out.Pushed),
			zap.Int("delivered", out.Delivered),
			zap.Int("failed", out.Failed),
		)
	}
	return out
}

// noteSent advances the peer's sent digest over the pushed batch.
// Only successful pushes advance it; a failed peer is offered the same
// messages again next round.
func (d *Disseminator) noteSent(peerID string, batch []message.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sent == nil {
		return
	}
	dig := d.sent[peerID]
	if dig == nil {
		dig = message.NewDigest()
		d.sent[peerID] = dig
	}
	for _, msg := range batch {
		dig.Observe(msg.ID.Origin, msg.ID.Seq)
	}
}

// SentTo returns a copy of the progress digest pushed to the peer so
// far, or nil when delta tracking is disabled.
func (d *Disseminator) SentTo(peerID string) message.Digest {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sent == nil {
		return nil
	}
	dig, exists := d.sent[peerID]
	if !exists {
		return message.NewDigest()
	}
	return dig.Copy()
}
