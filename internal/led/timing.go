package led

import (
	"errors"
	"fmt"
	"time"
)

// MinReset is the shortest low interval the WS2812B family latches on.
const MinReset = 50 * time.Microsecond

// BitTiming describes the NRZ symbol shapes of a strip.
//
// A "1" is high for T1H then low for T1L, a "0" is high for T0H then low for
// T0L. Both symbols must take the same total time; the driver chip locks onto
// that period.
type BitTiming struct {
	T0H, T0L time.Duration
	T1H, T1L time.Duration
	// Reset is how long the line is held low to latch a frame.
	Reset time.Duration
}

// WS2812B is the 1.25µs symbol timing with a conservative 150µs latch.
var WS2812B = BitTiming{
	T0H:   400 * time.Nanosecond,
	T0L:   850 * time.Nanosecond,
	T1H:   800 * time.Nanosecond,
	T1L:   450 * time.Nanosecond,
	Reset: 150 * time.Microsecond,
}

var ErrTiming = errors.New("led: invalid bit timing")

// Period is the duration of one symbol.
func (t BitTiming) Period() time.Duration {
	return t.T1H + t.T1L
}

func (t BitTiming) Validate() error {
	if t.T0H <= 0 || t.T0L <= 0 || t.T1H <= 0 || t.T1L <= 0 {
		return fmt.Errorf("%w: all phases must be positive", ErrTiming)
	}
	if t.T0H+t.T0L != t.T1H+t.T1L {
		return fmt.Errorf("%w: symbol periods differ (%v vs %v)", ErrTiming, t.T0H+t.T0L, t.T1H+t.T1L)
	}
	if t.T1H <= t.T0H {
		return fmt.Errorf("%w: T1H must be longer than T0H", ErrTiming)
	}
	if t.Reset < MinReset {
		return fmt.Errorf("%w: reset %v below %v", ErrTiming, t.Reset, MinReset)
	}
	return nil
}

// phases returns the high and low lengths of one bit.
func (t BitTiming) phases(bit bool) (high, low time.Duration) {
	if bit {
		return t.T1H, t.T1L
	}
	return t.T0H, t.T0L
}
