package host

import "time"

// DefaultMaxDelta bounds the wall-clock delta after a stall.
const DefaultMaxDelta = 100 * time.Millisecond

// Clock produces per-frame timing.
type Clock struct {
	now      func() time.Time
	step     time.Duration
	maxDelta time.Duration

	last    time.Time
	elapsed time.Duration
	frames  uint64
}

// NewClock returns a wall clock. The first Tick has a zero delta.
func NewClock() *Clock {
	return &Clock{now: time.Now, maxDelta: DefaultMaxDelta}
}

// NewFixedClock returns a clock that advances by step every Tick.
func NewFixedClock(step time.Duration) *Clock {
	return &Clock{step: step}
}

// Tick advances the clock and returns the frame delta and the time elapsed
// up to the start of this frame, in seconds.
func (c *Clock) Tick() (delta, elapsed float32) {
	var d time.Duration
	if c.now == nil {
		d = c.step
	} else {
		t := c.now()
		if c.frames > 0 {
			d = min(t.Sub(c.last), c.maxDelta)
		}
		c.last = t
	}
	elapsed = float32(c.elapsed.Seconds())
	c.elapsed += d
	c.frames++
	return float32(d.Seconds()), elapsed
}

// Frames returns the number of Ticks.
func (c *Clock) Frames() uint64 { return c.frames }
