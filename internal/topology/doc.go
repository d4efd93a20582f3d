// Package topology describes which peers each process may push to.
// Eventual delivery is only guaranteed on strongly connected graphs,
// so disconnected topologies are rejected at setup time.
package topology
