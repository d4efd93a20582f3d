package lamport

// Clock is a Lamport logical clock. The zero value is ready to use.
// Thread-safe operations should be handled by the caller.
type Clock struct {
	counter int64
}

// New creates a new clock starting at zero.
func New() *Clock {
	return &Clock{}
}

// Tick advances the clock for a local event and returns the new value.
func (c *Clock) Tick() int64 {
	c.counter++
	return c.counter
}

// Merge advances the clock past an observed timestamp, taking
// max(local, observed)+1, and returns the new value.
func (c *Clock) Merge(observed int64) int64 {
	if observed > c.counter {
		c.counter = observed
	}
	c.counter++
	return c.counter
}

// Now returns the current value without advancing the clock.
func (c *Clock) Now() int64 {
	return c.counter
}
