package sim

import (
	"sort"
	"time"

	"rmcast/internal/message"
)

// ProcessSummary is the per-process slice of a run Summary.
type ProcessSummary struct {
	// Known is how many distinct messages the process holds.
	Known int
	// Delivered is how many messages the process delivered, including
	// its own originations.
	Delivered int
	// Clock is the final Lamport clock value.
	Clock int64
}

// Summary describes a finished run.
type Summary struct {
	RunID     string
	Processes int
	// Messages is the number of distinct messages originated anywhere.
	Messages int
	// Deliveries is the total number of local deliveries across all
	// processes. When the run converged it equals Processes*Messages.
	Deliveries int
	Converged  bool
	Elapsed    time.Duration
	PerProcess map[string]ProcessSummary
}

// Report describes how far a run is from convergence.
type Report struct {
	Converged bool
	// Total is the number of distinct messages known anywhere.
	Total int
	// Missing lists, per lagging process, the message IDs it has not
	// yet received, ordered by origin and sequence number.
	Missing map[string][]message.ID
}

// ConvergenceReport compares every process against the union of all
// known messages and lists what each one is still missing.
func (s *Simulation) ConvergenceReport() Report {
	union := make(map[message.ID]bool)
	sets := make(map[string]map[message.ID]bool, len(s.order))
	for _, id := range s.order {
		set := s.procs[id].KnownIDs()
		sets[id] = set
		for msgID := range set {
			union[msgID] = true
		}
	}

	report := Report{
		Converged: true,
		Total:     len(union),
		Missing:   make(map[string][]message.ID),
	}
	for _, id := range s.order {
		var missing []message.ID
		for msgID := range union {
			if !sets[id][msgID] {
				missing = append(missing, msgID)
			}
		}
		if len(missing) == 0 {
			continue
		}
		sort.Slice(missing, func(i, j int) bool {
			return missing[i].Less(missing[j])
		})
		report.Converged = false
		report.Missing[id] = missing
	}
	return report
}

func (s *Simulation) summarize(start time.Time, converged bool) Summary {
	union := make(map[message.ID]bool)
	perProcess := make(map[string]ProcessSummary, len(s.order))
	deliveries := 0

	for _, id := range s.order {
		p := s.procs[id]
		known := p.KnownIDs()
		for msgID := range known {
			union[msgID] = true
		}
		delivered := p.DeliveredCount()
		deliveries += delivered
		perProcess[id] = ProcessSummary{
			Known:     len(known),
			Delivered: delivered,
			Clock:     p.Clock(),
		}
	}

	return Summary{
		RunID:      s.runID,
		Processes:  len(s.order),
		Messages:   len(union),
		Deliveries: deliveries,
		Converged:  converged,
		Elapsed:    s.clk.Now().Sub(start),
		PerProcess: perProcess,
	}
}
