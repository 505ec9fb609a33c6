package animation

import "time"

// TickSource is the monotonic time base of the scheduler. Ticks wrap at 2^32.
type TickSource interface {
	Now() uint32
}

// Counter is advanced explicitly, once per control-loop iteration.
type Counter struct {
	n uint32
}

func (c *Counter) Now() uint32 { return c.n }

// Advance moves the counter forward by one tick.
func (c *Counter) Advance() { c.n++ }

// Add moves the counter forward by n ticks.
func (c *Counter) Add(n uint32) { c.n += n }

// Millis counts milliseconds since it was created.
type Millis struct {
	start time.Time
}

func NewMillis() *Millis { return &Millis{start: time.Now()} }

func (m *Millis) Now() uint32 {
	return uint32(time.Since(m.start).Milliseconds())
}
