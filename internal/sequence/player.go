// Package sequence plays per-channel programs of effect clips on top of the
// non-blocking animation scheduler.
package sequence

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-stripdriver/internal/animation"
	"github.com/coreman2200/funtimes-stripdriver/internal/channel"
)

var _ Invoker = (*animation.Scheduler)(nil)

var (
	ErrEmptyProgram  = errors.New("sequence: program has no clips")
	ErrUnknownEffect = errors.New("sequence: unknown effect")
)

// Static effects paint once when their clip starts.
const (
	EffectOff         = "off"
	EffectRed         = "red"
	EffectGreen       = "green"
	EffectBlue        = "blue"
	EffectFill        = "fill"
	EffectSinglePixel = "single_pixel"
)

func isStatic(name string) bool {
	switch name {
	case EffectOff, EffectRed, EffectGreen, EffectBlue, EffectFill, EffectSinglePixel:
		return true
	}
	return false
}

// ValidEffect reports whether name is a static effect or an animation
// family.
func ValidEffect(name string) bool {
	if isStatic(name) {
		return true
	}
	_, ok := animation.ParseFamily(name)
	return ok
}

func NewPlayer(h channel.Handle, inv Invoker) *Player {
	return &Player{State: Idle, handle: h, inv: inv}
}

func (p *Player) Handle() channel.Handle { return p.handle }

// Load replaces the current program and resets the player to Idle.
func (p *Player) Load(prog Program) error {
	if len(prog.Clips) == 0 {
		return ErrEmptyProgram
	}
	for i, c := range prog.Clips {
		if !ValidEffect(c.Effect) {
			return fmt.Errorf("%w: clip %d: %q", ErrUnknownEffect, i, c.Effect)
		}
	}
	p.prog = prog
	p.State = Idle
	p.enter(0)
	return nil
}

// Start moves to Running from the current position.
func (p *Player) Start() {
	if p.State == Running || len(p.prog.Clips) == 0 {
		return
	}
	p.State = Running
	p.logClip()
}

func (p *Player) Pause() {
	if p.State == Running {
		p.State = Paused
	}
}

func (p *Player) Resume() {
	if p.State == Paused {
		p.State = Running
	}
}

// Stop halts playback and rewinds to the first clip. The strip keeps its
// last frame.
func (p *Player) Stop() {
	p.State = Idle
	p.enter(0)
}

// Seek jumps to program tick t. A clip that runs forever absorbs every tick
// past its start.
func (p *Player) Seek(t int) {
	if len(p.prog.Clips) == 0 {
		return
	}
	if t < 0 {
		t = 0
	}
	acc := 0
	for i, c := range p.prog.Clips {
		if c.DurationTicks == 0 || t < acc+c.DurationTicks {
			p.enter(i)
			p.local = t - acc
			return
		}
		acc += c.DurationTicks
	}
	last := len(p.prog.Clips) - 1
	p.enter(last)
	p.local = p.prog.Clips[last].DurationTicks - 1
}

// Current returns the active clip and its index.
func (p *Player) Current() (Clip, int, bool) {
	if len(p.prog.Clips) == 0 {
		return Clip{}, 0, false
	}
	return p.prog.Clips[p.idx], p.idx, true
}

// Tick runs the active clip once and advances the timeline by one tick. It
// reports whether the clip drew a frame.
func (p *Player) Tick() bool {
	if p.State != Running || len(p.prog.Clips) == 0 {
		return false
	}
	clip := p.prog.Clips[p.idx]
	faded := p.fade(clip)
	drawn := p.invoke(clip)
	if !drawn && faded && isStatic(clip.Effect) {
		// A painted static clip only shows a new level when re-sent.
		drawn = p.inv.SendChannel(p.handle) == nil
	}
	p.local++
	if clip.DurationTicks > 0 && p.local >= clip.DurationTicks {
		p.advance()
	}
	return drawn
}

// fade applies the envelope level for the current tick and reports whether
// the level changed. The channel brightness in force before the first fade
// frame is kept for restore.
func (p *Player) fade(c Clip) bool {
	if c.Fade.Empty() {
		return false
	}
	lvl := c.Fade.Level(float64(p.local))
	if !p.fading {
		p.base, p.fading = p.inv.Brightness(p.handle), true
	} else if lvl == p.level {
		return false
	}
	p.level = lvl
	p.inv.SetBrightness(p.handle, lvl)
	return true
}

func (p *Player) restore() {
	if p.fading {
		p.inv.SetBrightness(p.handle, p.base)
		p.fading = false
	}
}

func (p *Player) invoke(c Clip) bool {
	h, px := p.handle, c.Color
	if isStatic(c.Effect) {
		if p.painted {
			return false
		}
		p.painted = true
		switch c.Effect {
		case EffectOff:
			p.inv.Off(h)
		case EffectRed:
			p.inv.Red(h, c.Brightness)
		case EffectGreen:
			p.inv.Green(h, c.Brightness)
		case EffectBlue:
			p.inv.Blue(h, c.Brightness)
		case EffectFill:
			p.inv.Fill(h, uint16(px.R), uint16(px.G), uint16(px.B))
		case EffectSinglePixel:
			p.inv.SinglePixel(h, c.Position, px.R, px.G, px.B)
		}
		return true
	}
	f, _ := animation.ParseFamily(c.Effect)
	switch f {
	case animation.FamilyRainbow:
		return p.inv.Rainbow(h, c.Speed)
	case animation.FamilyRainbowCycle:
		return p.inv.RainbowCycle(h, c.Speed)
	case animation.FamilyRainbows:
		return p.inv.Rainbows(h, c.Speed, c.Width)
	case animation.FamilyTheaterChase:
		return p.inv.TheaterChase(h, px.R, px.G, px.B, c.Speed)
	case animation.FamilyColorWipe:
		return p.inv.ColorWipe(h, px.R, px.G, px.B, c.Speed)
	case animation.FamilyPulse:
		return p.inv.Pulse(h, px.R, px.G, px.B, c.Speed)
	case animation.FamilyFlash:
		return p.inv.Flash(h, c.Speed, c.Brightness)
	}
	return false
}

func (p *Player) advance() {
	next := p.idx + 1
	if next >= len(p.prog.Clips) {
		if !p.prog.Loop {
			p.State = Idle
			p.enter(0)
			log.Debug().Uint8("handle", uint8(p.handle)).Msg("program finished")
			return
		}
		next = 0
	}
	p.enter(next)
	p.logClip()
}

func (p *Player) enter(i int) {
	p.restore()
	p.idx = i
	p.local = 0
	p.painted = false
}

func (p *Player) logClip() {
	c := p.prog.Clips[p.idx]
	log.Debug().
		Uint8("handle", uint8(p.handle)).
		Int("clip", p.idx).
		Str("name", c.Name).
		Str("effect", c.Effect).
		Msg("clip")
}

// SafePlayer serialises access to a Player shared between the control loop
// and the monitor.
type SafePlayer struct {
	mu sync.Mutex
	P  *Player
}

func NewSafePlayer(h channel.Handle, inv Invoker) *SafePlayer {
	return &SafePlayer{P: NewPlayer(h, inv)}
}

func (s *SafePlayer) With(f func(p *Player)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.P)
}
