// Package sim drives a full multicast exchange: it builds the
// processes and their gossip disseminators from a configuration, fires
// the scheduled originations, waits for every process to converge on
// the same message set, and reports what happened.
package sim
