package it

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rmcast/internal/config"
	"rmcast/internal/event"
	"rmcast/internal/gossip"
	"rmcast/internal/message"
	"rmcast/internal/process"
	"rmcast/internal/topology"
)

func TestSmoke_SixProcessConvergence(t *testing.T) {
	cfg := FastConfig(6, config.TopologyMesh)
	cfg.Schedule = []config.Scheduled{
		{At: 0, Process: "p2", Content: "deploy finished"},
		{At: 10 * time.Millisecond, Process: "p5", Content: "cache flushed"},
		{At: 20 * time.Millisecond, Process: "p0", Content: "all clear"},
	}

	cluster, err := NewCluster(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary, err := cluster.Run(ctx)
	require.NoError(t, err)

	// Every process ends up with every message.
	require.True(t, summary.Converged, "cluster did not converge: %+v", cluster.Report())
	assert.Equal(t, 3, summary.Messages)
	assert.Equal(t, 18, summary.Deliveries, "6 processes x 3 messages")
	for id, ps := range summary.PerProcess {
		assert.Equal(t, 3, ps.Known, "process %s", id)
		assert.GreaterOrEqual(t, ps.Clock, int64(3), "process %s", id)
	}

	// Each message is delivered exactly once per process; origins
	// deliver locally at origination, not through gossip.
	rec := cluster.Events()
	assert.Len(t, rec.Originations(), 3)
	assert.Len(t, rec.Deliveries(), 15, "3 messages x 5 non-origin processes")
	for id, counts := range rec.DeliveryCounts() {
		for msgID, n := range counts {
			assert.Equal(t, 1, n, "process %s delivered %s more than once", id, msgID)
		}
	}
}

func TestRing_PeerTrackingConverges(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := FastConfig(6, config.TopologyRing)
	cfg.Fanout = 1
	cfg.TrackPeers = true
	cfg.RunFor = 5 * time.Second
	cfg.Schedule = []config.Scheduled{
		{At: 0, Process: "p0", Content: "around we go"},
		{At: 25 * time.Millisecond, Process: "p4", Content: "meet you halfway"},
	}

	cluster, err := NewCluster(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary, err := cluster.Run(ctx)
	require.NoError(t, err)

	require.True(t, summary.Converged, "ring did not converge: %+v", cluster.Report())
	assert.Equal(t, 2, summary.Messages)
	assert.Equal(t, 12, summary.Deliveries)
}

func TestStar_HubRelaysLeafMessages(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := FastConfig(5, config.TopologyStar)
	cfg.RunFor = 5 * time.Second
	// Leaf messages need two hops: leaf to hub, hub to other leaves.
	cfg.Schedule = []config.Scheduled{
		{At: 0, Process: "p1", Content: "from one edge"},
		{At: 10 * time.Millisecond, Process: "p4", Content: "from another"},
	}

	cluster, err := NewCluster(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary, err := cluster.Run(ctx)
	require.NoError(t, err)

	require.True(t, summary.Converged, "star did not converge: %+v", cluster.Report())
	assert.Equal(t, 2, summary.Messages)
	assert.Equal(t, 10, summary.Deliveries)
}

func TestLatecomerOriginations_SpreadOnceGossipStarts(t *testing.T) {
	cfg := FastConfig(4, config.TopologyMesh)

	cluster, err := NewCluster(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	// Originate before any disseminator runs: nothing spreads yet.
	cluster.Process("p0").Originate("written early")
	cluster.Process("p0").Originate("also early")
	report := cluster.Report()
	require.False(t, report.Converged)
	require.Len(t, report.Missing, 3, "the three other processes lag")

	// Running the cluster drains the backlog through anti-entropy.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary, err := cluster.Run(ctx)
	require.NoError(t, err)
	require.True(t, summary.Converged, "backlog did not spread: %+v", cluster.Report())
	assert.Equal(t, 2, summary.Messages)
	assert.Equal(t, 8, summary.Deliveries)
}

// TestScenario_ThreeProcessExchange walks a three-process exchange by
// hand: one manual delivery with its duplicate, then explicit gossip
// rounds until both messages reach everyone.
func TestScenario_ThreeProcessExchange(t *testing.T) {
	rec := event.NewRecorder()
	procs := make(map[string]*process.Process, 3)
	for _, id := range []string{"A", "B", "C"} {
		p, err := process.New(id, rec)
		require.NoError(t, err)
		procs[id] = p
	}

	push := func(ctx context.Context, peerID string, msgs []message.Message) (int, error) {
		return procs[peerID].AbsorbAll(msgs)
	}
	newDisseminator := func(id string, peers []string) *gossip.Disseminator {
		p := procs[id]
		d, err := gossip.New(gossip.Config{
			ProcessID: id,
			Source:    p,
			Push:      push,
			OnSend:    func() { p.Tick() },
			Selector:  gossip.NewRoundRobinSelector(peers),
			Fanout:    2,
		})
		require.NoError(t, err)
		return d
	}
	dissA := newDisseminator("A", []string{"B", "C"})
	dissB := newDisseminator("B", []string{"A", "C"})
	dissC := newDisseminator("C", []string{"A", "B"})

	// A multicasts "hello" and self-delivers at clock 1.
	m1 := procs["A"].Originate("hello")
	require.EqualValues(t, 1, m1.Timestamp)
	require.EqualValues(t, 1, procs["A"].Clock())

	// First receipt at B delivers and merges past the timestamp.
	res, err := procs["B"].Absorb(m1)
	require.NoError(t, err)
	assert.Equal(t, process.Delivered, res.Status)
	assert.Equal(t, "hello", res.Content)
	assert.Equal(t, "A", res.Origin)
	assert.EqualValues(t, 1, res.Timestamp)
	assert.EqualValues(t, 2, res.NewClock)

	// The second receipt is suppressed and leaves the clock alone.
	res, err = procs["B"].Absorb(m1)
	require.NoError(t, err)
	assert.Equal(t, process.AlreadyKnown, res.Status)
	assert.EqualValues(t, 2, res.NewClock)

	// C multicasts independently with its own clock.
	m2 := procs["C"].Originate("world")
	require.EqualValues(t, 1, m2.Timestamp)

	// Repeated rounds spread both messages everywhere.
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		dissA.RunRound(ctx)
		dissB.RunRound(ctx)
		dissC.RunRound(ctx)
	}

	for id, p := range procs {
		assert.Equal(t, 2, p.KnownCount(), "process %s known set", id)
		assert.Equal(t, 2, p.DeliveredCount(), "process %s deliveries", id)
		assert.GreaterOrEqual(t, p.Clock(), int64(3), "process %s final clock", id)
	}

	// M1 was delivered at B and C, M2 at A and B; duplicates stayed
	// silent.
	assert.Len(t, rec.Originations(), 2)
	assert.Len(t, rec.Deliveries(), 4)
	for id, counts := range rec.DeliveryCounts() {
		for msgID, n := range counts {
			assert.Equal(t, 1, n, "process %s delivered %s more than once", id, msgID)
		}
	}
}

func TestSetup_UnknownScheduleSender(t *testing.T) {
	cfg := FastConfig(3, config.TopologyMesh)
	cfg.Schedule = []config.Scheduled{
		{At: time.Millisecond, Process: "p9", Content: "nobody home"},
	}

	_, err := NewCluster(cfg, nil)
	require.ErrorIs(t, err, topology.ErrUnknownPeer)
}
