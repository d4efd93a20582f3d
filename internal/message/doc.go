// Package message defines the multicast message value, its globally
// unique identifier, and the digest type used to summarize per-origin
// propagation progress.
package message
