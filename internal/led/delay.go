package led

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Delayer blocks the caller for d. Implementations used for bit timing must
// not yield to the scheduler.
type Delayer interface {
	Delay(d time.Duration)
}

// BusyWait spins on the monotonic clock.
type BusyWait struct{}

func (BusyWait) Delay(d time.Duration) {
	if d <= 0 {
		return
	}
	start := time.Now()
	for time.Since(start) < d {
	}
}

// CalibratedSpin burns a fixed number of loop iterations per microsecond and
// never reads the clock inside the bit loop.
type CalibratedSpin struct {
	// LoopsPerMicro is the number of spin iterations in one microsecond.
	LoopsPerMicro float64
}

var spinSink uint64

func spin(n int64) {
	var acc uint64
	for i := int64(0); i < n; i++ {
		acc += uint64(i)
	}
	spinSink = acc
}

func (c CalibratedSpin) Delay(d time.Duration) {
	n := int64(float64(d.Nanoseconds()) * c.LoopsPerMicro / 1000)
	if n <= 0 {
		return
	}
	spin(n)
}

// Calibrate measures the spin rate of this host over the sample window.
func Calibrate(sample time.Duration) CalibratedSpin {
	const loops = 1 << 20
	var elapsed time.Duration
	var runs int64
	for elapsed < sample {
		start := time.Now()
		spin(loops)
		elapsed += time.Since(start)
		runs++
	}
	c := CalibratedSpin{LoopsPerMicro: float64(runs*loops) / float64(elapsed.Microseconds()+1)}
	log.Debug().Float64("loops_per_us", c.LoopsPerMicro).Dur("sample", elapsed).Msg("spin calibrated")
	return c
}
