// Package storage provides the per-process message log. The log tracks
// which messages a process knows and which it has delivered, and keeps
// a contiguous per-origin progress digest for delta exchanges.
package storage
