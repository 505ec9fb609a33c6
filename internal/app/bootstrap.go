// Package app wires configuration, channels, transport, scheduler and
// programs together and runs the control loop.
package app

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/spi"

	"github.com/coreman2200/funtimes-stripdriver/internal/animation"
	"github.com/coreman2200/funtimes-stripdriver/internal/channel"
	"github.com/coreman2200/funtimes-stripdriver/internal/config"
	diag "github.com/coreman2200/funtimes-stripdriver/internal/diagnostics"
	"github.com/coreman2200/funtimes-stripdriver/internal/led"
	"github.com/coreman2200/funtimes-stripdriver/internal/sequence"
)

// CalibrationSample is how long the spin delay is measured for.
const CalibrationSample = 50 * time.Millisecond

// Hardware supplies host access. Nil fields fall back to the host defaults.
type Hardware struct {
	Pins    channel.PinResolver
	OpenSPI func(name string) (spi.PortCloser, error)
	Console io.Writer
	Delay   led.Delayer
}

// Rejected is a configured channel the registry refused.
type Rejected struct {
	Handle channel.Handle
	Pin    string
	Err    error
}

// Core is the assembled driver.
type Core struct {
	Reg     *channel.Registry
	Eng     *led.Engine
	Sched   *animation.Scheduler
	Players []*sequence.SafePlayer
	// Ticks is nil when the scheduler runs on wall-clock milliseconds.
	Ticks *animation.Counter
	// Rejected channels stay absent; the rest run without them.
	Rejected []Rejected

	ports []spi.PortCloser
}

func InitCore(cfg *config.Config, hw Hardware) (*Core, error) {
	c := &Core{Reg: channel.NewRegistry(hw.Pins)}

	// 1) Channels come up first so every data line idles low before any
	//    transport touches it.
	for _, ch := range cfg.Channels {
		h := channel.Handle(ch.Handle)
		if err := c.Reg.Configure(h, ch.Pin, ch.Pixels, uint8(ch.Brightness)); err != nil {
			log.Warn().Err(err).Uint8("handle", uint8(h)).Str("pin", ch.Pin).Msg("channel rejected")
			c.Rejected = append(c.Rejected, Rejected{Handle: h, Pin: ch.Pin, Err: err})
		}
	}

	// 2) Transport
	tx, err := c.transport(cfg, hw)
	if err != nil {
		c.closePorts()
		return nil, err
	}

	// 3) Engine and scheduler
	c.Eng = led.NewEngine(c.Reg, tx, cfg.Balance())
	var ticks animation.TickSource
	if cfg.TickSource == config.TicksMillis {
		ticks = animation.NewMillis()
	} else {
		c.Ticks = &animation.Counter{}
		ticks = c.Ticks
	}
	c.Sched = animation.New(c.Reg, c.Eng, ticks, animation.Options{PerChannelSend: cfg.PerChannelSend})

	// 4) Programs
	for _, p := range cfg.Programs {
		if _, ok := c.Reg.Lookup(channel.Handle(p.Channel)); !ok {
			log.Warn().Int("channel", p.Channel).Msg("program skipped; channel not active")
			continue
		}
		prog, err := p.Sequence()
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("program for channel %d: %w", p.Channel, err)
		}
		sp := sequence.NewSafePlayer(channel.Handle(p.Channel), c.Sched)
		sp.With(func(pl *sequence.Player) {
			err = pl.Load(prog)
			pl.Start()
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("program for channel %d: %w", p.Channel, err)
		}
		c.Players = append(c.Players, sp)
	}

	log.Info().
		Str("transport", cfg.Transport).
		Int("channels", len(c.Reg.Active())).
		Int("rejected", len(c.Rejected)).
		Int("programs", len(c.Players)).
		Msg("driver ready")
	return c, nil
}

// Report returns a configuration diagnostic per rejected channel.
func (c *Core) Report() []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(c.Rejected))
	for _, r := range c.Rejected {
		out = append(out, diag.ConfigureFailed(r.Handle, r.Pin, r.Err))
	}
	return out
}

func (c *Core) transport(cfg *config.Config, hw Hardware) (led.Transport, error) {
	switch cfg.Transport {
	case config.TransportSPI:
		if hw.OpenSPI == nil {
			return nil, errors.New("spi transport: no port opener")
		}
		ports := map[channel.Handle]spi.Port{}
		for _, ch := range cfg.Channels {
			if _, ok := c.Reg.Lookup(channel.Handle(ch.Handle)); !ok {
				continue
			}
			p, err := hw.OpenSPI(ch.SPIPort)
			if err != nil {
				return nil, fmt.Errorf("channel %d: open %s: %w", ch.Handle, ch.SPIPort, err)
			}
			c.ports = append(c.ports, p)
			ports[channel.Handle(ch.Handle)] = p
		}
		return led.NewSPI(ports, cfg.SPIFreq()), nil

	case config.TransportConsole:
		width := 0
		for _, h := range c.Reg.Active() {
			width = max(width, c.Reg.LedCount(h))
		}
		if hw.Console != nil {
			return led.NewConsoleTo(hw.Console, width), nil
		}
		return led.NewConsole(width), nil

	default:
		d := hw.Delay
		if d == nil && cfg.Timing.Spin {
			spin := led.Calibrate(CalibrationSample)
			log.Info().Float64("loops_per_us", spin.LoopsPerMicro).Msg("spin delay calibrated")
			d = spin
		}
		return led.NewBitBang(cfg.BitTiming(), d)
	}
}

func (c *Core) closePorts() error {
	var errs []error
	for _, p := range c.ports {
		errs = append(errs, p.Close())
	}
	c.ports = nil
	return errors.Join(errs...)
}

// Close switches every channel off and releases the transport.
func (c *Core) Close() error {
	var errs []error
	if c.Sched != nil {
		for _, h := range c.Reg.Active() {
			c.Sched.Off(h)
		}
	}
	if c.Eng != nil {
		errs = append(errs, c.Eng.Close())
	}
	errs = append(errs, c.closePorts())
	return errors.Join(errs...)
}
