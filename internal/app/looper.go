package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-stripdriver/internal/sequence"
)

// Looper is the control loop. One iteration advances the tick counter,
// ticks every player and then sleeps Interval.
type Looper struct {
	Core     *Core
	Interval time.Duration

	iterations uint64
}

func NewLooper(c *Core, interval time.Duration) *Looper {
	return &Looper{Core: c, Interval: interval}
}

func (l *Looper) Iterations() uint64 { return l.iterations }

// Step runs one iteration without sleeping.
func (l *Looper) Step() {
	if l.Core.Ticks != nil {
		l.Core.Ticks.Advance()
	}
	for _, sp := range l.Core.Players {
		sp.With(func(p *sequence.Player) { p.Tick() })
	}
	l.iterations++
}

// Run loops until ctx is done or the process gets SIGINT or SIGTERM, then
// switches the strips off and closes the transport.
func (l *Looper) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wait *time.Timer
	if l.Interval > 0 {
		wait = time.NewTimer(l.Interval)
		defer wait.Stop()
	}
	for {
		l.Step()
		if wait == nil {
			select {
			case <-ctx.Done():
				return l.shutdown(ctx)
			default:
			}
			continue
		}
		select {
		case <-ctx.Done():
			return l.shutdown(ctx)
		case <-wait.C:
			wait.Reset(l.Interval)
		}
	}
}

func (l *Looper) shutdown(ctx context.Context) error {
	log.Info().Err(context.Cause(ctx)).Uint64("iterations", l.iterations).Msg("control loop stopping")
	return l.Core.Close()
}
