// Package animation advances LED effects one frame at a time without ever
// blocking the caller.
//
// Every animated operation reads the tick source, compares it with the time
// of the channel's last frame for that effect and returns immediately when
// the frame is not yet due. The control loop supplies the passage of time by
// calling again.
package animation

import (
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-stripdriver/internal/channel"
	"github.com/coreman2200/funtimes-stripdriver/internal/effect"
	"github.com/coreman2200/funtimes-stripdriver/internal/led"
)

type Options struct {
	// PerChannelSend transmits only the channel whose frame advanced. By
	// default every active channel is re-sent.
	PerChannelSend bool
}

// Scheduler owns the effect cursors of every channel.
type Scheduler struct {
	reg        *channel.Registry
	eng        *led.Engine
	ticks      TickSource
	states     [channel.Capacity]State
	perChannel bool
}

func New(reg *channel.Registry, eng *led.Engine, ticks TickSource, opts Options) *Scheduler {
	return &Scheduler{
		reg:        reg,
		eng:        eng,
		ticks:      ticks,
		perChannel: opts.PerChannelSend,
	}
}

// Cursor returns the cursor of effect f on h.
func (s *Scheduler) Cursor(h channel.Handle, f Family) (Cursor, bool) {
	if int(h) >= channel.Capacity || f < 0 || f >= numFamilies {
		return Cursor{}, false
	}
	return s.states[h].cursors[f], true
}

// Configure sets up a channel. Effect cursors are kept.
func (s *Scheduler) Configure(h channel.Handle, pin string, pixels int, brightness uint8) error {
	return s.reg.Configure(h, pin, pixels, brightness)
}

// step runs one non-blocking frame of effect f on h. draw renders the frame
// for the current cursor, advance moves the cursor on afterwards.
func (s *Scheduler) step(h channel.Handle, f Family, speed uint16, draw func([]channel.Pixel, *Cursor), advance func(*Cursor, int)) bool {
	ch, ok := s.reg.Lookup(h)
	if !ok {
		return false
	}
	cur := &s.states[h].cursors[f]
	now := s.ticks.Now()
	if !cur.due(now, speed) {
		return false
	}
	cur.stamp(now)
	draw(ch.Pixels(), cur)
	s.transmit(h)
	advance(cur, ch.Len())
	return true
}

func (s *Scheduler) transmit(h channel.Handle) {
	var err error
	if s.perChannel {
		err = s.eng.SendChannel(h)
	} else {
		err = s.eng.SendAll()
	}
	if err != nil {
		log.Debug().Err(err).Uint8("handle", uint8(h)).Msg("frame transmit")
	}
}

func wheelNext(c *Cursor, _ int) { c.wrap(effect.WheelPeriod) }

// Rainbow rotates one hue wheel spread over the whole strip.
func (s *Scheduler) Rainbow(h channel.Handle, speed uint16) bool {
	return s.step(h, FamilyRainbow, speed, func(buf []channel.Pixel, c *Cursor) {
		effect.Rainbow(buf, c.Pos)
	}, wheelNext)
}

// RainbowCycle rotates a hue ramp of one wheel step per pixel.
func (s *Scheduler) RainbowCycle(h channel.Handle, speed uint16) bool {
	return s.step(h, FamilyRainbowCycle, speed, func(buf []channel.Pixel, c *Cursor) {
		effect.RainbowCycle(buf, c.Pos)
	}, wheelNext)
}

// Rainbows rotates a hue wheel repeated every width pixels. A zero width
// does nothing.
func (s *Scheduler) Rainbows(h channel.Handle, speed, width uint16) bool {
	if width == 0 {
		return false
	}
	return s.step(h, FamilyRainbows, speed, func(buf []channel.Pixel, c *Cursor) {
		effect.Rainbows(buf, c.Pos, int(width))
	}, wheelNext)
}

func (s *Scheduler) TheaterChase(h channel.Handle, r, g, b uint8, speed uint16) bool {
	return s.step(h, FamilyTheaterChase, speed, func(buf []channel.Pixel, c *Cursor) {
		effect.TheaterChase(buf, c.Pos, channel.RGB(r, g, b))
	}, func(c *Cursor, _ int) { c.wrap(effect.ChasePeriod) })
}

// ColorWipe paints one more pixel per frame and starts over at the strip's
// end without clearing.
func (s *Scheduler) ColorWipe(h channel.Handle, r, g, b uint8, speed uint16) bool {
	return s.step(h, FamilyColorWipe, speed, func(buf []channel.Pixel, c *Cursor) {
		if c.Pos >= len(buf) {
			c.Pos = 0
		}
		effect.WipeStep(buf, c.Pos, channel.RGB(r, g, b))
	}, func(c *Cursor, n int) { c.wrap(n) })
}

// Pulse fades the strip between off and the given colour and back.
func (s *Scheduler) Pulse(h channel.Handle, r, g, b uint8, speed uint16) bool {
	return s.step(h, FamilyPulse, speed, func(buf []channel.Pixel, c *Cursor) {
		effect.Pulse(buf, uint8(c.Pos), channel.RGB(r, g, b))
	}, func(c *Cursor, _ int) { c.bounce() })
}

// Flash cycles the whole strip through red, green and blue.
func (s *Scheduler) Flash(h channel.Handle, speed uint16, brightness uint8) bool {
	return s.step(h, FamilyFlash, speed, func(buf []channel.Pixel, c *Cursor) {
		effect.Flash(buf, c.Pos, brightness)
	}, func(c *Cursor, _ int) { c.wrap(effect.FlashPeriod) })
}
