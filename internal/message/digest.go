package message

import (
	"fmt"
	"sort"
	"strings"
)

// Digest summarizes contiguous per-origin progress as a map from origin
// to the next sequence number expected from that origin. An origin that
// is absent (or mapped to 1) has not been seen at all.
// Thread-safe operations should be handled by the caller.
type Digest map[string]uint64

// NewDigest creates a new empty digest.
func NewDigest() Digest {
	return make(Digest)
}

// Next returns the next sequence number expected from the origin.
// Unknown origins start at 1.
func (d Digest) Next(origin string) uint64 {
	if next, ok := d[origin]; ok && next > 1 {
		return next
	}
	return 1
}

// Set records the next sequence number expected from the origin.
func (d Digest) Set(origin string, next uint64) {
	d[origin] = next
}

// Observe records that seq from origin has been seen, advancing the
// next-expected counter only when seq extends the contiguous prefix.
func (d Digest) Observe(origin string, seq uint64) {
	if seq == d.Next(origin) {
		d[origin] = seq + 1
	}
}

// Covers reports whether the digest already accounts for the given ID.
func (d Digest) Covers(id ID) bool {
	return id.Seq < d.Next(id.Origin)
}

// Merge merges another digest into this one, taking the maximum
// next-expected value for each origin.
func (d Digest) Merge(other Digest) {
	for origin, next := range other {
		if d[origin] < next {
			d[origin] = next
		}
	}
}

// Copy creates a deep copy of the digest.
func (d Digest) Copy() Digest {
	out := make(Digest, len(d))
	for origin, next := range d {
		out[origin] = next
	}
	return out
}

// Equal checks if two digests describe the same progress. Origins that
// are absent compare equal to origins still expecting their first
// sequence number.
func (d Digest) Equal(other Digest) bool {
	origins := make(map[string]bool, len(d)+len(other))
	for origin := range d {
		origins[origin] = true
	}
	for origin := range other {
		origins[origin] = true
	}
	for origin := range origins {
		if d.Next(origin) != other.Next(origin) {
			return false
		}
	}
	return true
}

// String returns a string representation of the digest.
func (d Digest) String() string {
	if len(d) == 0 {
		return "{}"
	}

	// Sort for deterministic output
	origins := make([]string, 0, len(d))
	for origin := range d {
		origins = append(origins, origin)
	}
	sort.Strings(origins)

	var parts []string
	for _, origin := range origins {
		parts = append(parts, fmt.Sprintf("%s:%d", origin, d[origin]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
