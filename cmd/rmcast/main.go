package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"go.uber.org/zap"

	"rmcast/internal/config"
	"rmcast/internal/sim"
)

func main() {
	var (
		processesCSV = flag.String("processes", "", "Comma-separated process IDs (default p0..p5)")
		topo         = flag.String("topology", config.TopologyMesh, "Push topology: mesh, ring or star")
		interval     = flag.Duration("interval", 100*time.Millisecond, "Gossip round interval")
		fanout       = flag.Int("fanout", 2, "Peers contacted per gossip round")
		seed         = flag.Int64("seed", 1, "Base seed for peer selection")
		trackPeers   = flag.Bool("track-peers", false, "Push each peer only messages not yet sent to it")
		runFor       = flag.Duration("run-for", 10*time.Second, "Total budget for the run to converge")
		scheduleCSV  = flag.String("schedule", "", "Originations as delay=process=content,... (default demo schedule)")
		debug        = flag.Bool("debug", false, "Log at debug level, including per-round gossip")
	)
	flag.Parse()

	logger, err := buildLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := config.Default()
	cfg.Topology = *topo
	cfg.GossipInterval = *interval
	cfg.Fanout = *fanout
	cfg.Seed = *seed
	cfg.TrackPeers = *trackPeers
	cfg.RunFor = *runFor
	if *processesCSV != "" {
		ids, err := config.ParseProcesses(*processesCSV)
		if err != nil {
			logger.Fatal("invalid -processes", zap.Error(err))
		}
		cfg.Processes = ids
		// The demo schedule names the default processes; a custom
		// process list needs its own schedule.
		cfg.Schedule = nil
	}
	if *scheduleCSV != "" {
		entries, err := config.ParseSchedule(*scheduleCSV)
		if err != nil {
			logger.Fatal("invalid -schedule", zap.Error(err))
		}
		cfg.Schedule = entries
	}

	s, err := sim.New(cfg, sim.Options{Logger: logger})
	if err != nil {
		logger.Fatal("setup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := s.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("run interrupted", zap.Error(err))
			return
		}
		logger.Fatal("run failed", zap.Error(err))
	}

	logger.Info("run complete",
		zap.Bool("converged", summary.Converged),
		zap.Int("processes", summary.Processes),
		zap.Int("messages", summary.Messages),
		zap.Int("deliveries", summary.Deliveries),
		zap.Duration("elapsed", summary.Elapsed),
	)

	ids := make([]string, 0, len(summary.PerProcess))
	for id := range summary.PerProcess {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		ps := summary.PerProcess[id]
		logger.Info("process state",
			zap.String("process", id),
			zap.Int("known", ps.Known),
			zap.Int("delivered", ps.Delivered),
			zap.Int64("clock", ps.Clock),
		)
	}

	if !summary.Converged {
		report := s.ConvergenceReport()
		for id, missing := range report.Missing {
			gaps := make([]string, len(missing))
			for i, msgID := range missing {
				gaps[i] = msgID.String()
			}
			logger.Warn("process did not converge",
				zap.String("process", id),
				zap.Strings("missing", gaps),
			)
		}
	}
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
