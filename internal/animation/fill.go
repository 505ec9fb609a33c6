package animation

import (
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-stripdriver/internal/channel"
	"github.com/coreman2200/funtimes-stripdriver/internal/effect"
)

// fill runs paint over the buffer of h and transmits that channel straight
// away.
func (s *Scheduler) fill(h channel.Handle, paint func([]channel.Pixel)) {
	ch, ok := s.reg.Lookup(h)
	if !ok {
		return
	}
	paint(ch.Pixels())
	if err := s.eng.SendChannel(h); err != nil {
		log.Debug().Err(err).Uint8("handle", uint8(h)).Msg("fill transmit")
	}
}

func (s *Scheduler) Off(h channel.Handle) {
	s.fill(h, func(buf []channel.Pixel) { effect.Fill(buf, channel.Black) })
}

func (s *Scheduler) Red(h channel.Handle, brightness uint8) {
	s.fill(h, func(buf []channel.Pixel) { effect.Fill(buf, channel.RGB(brightness, 0, 0)) })
}

func (s *Scheduler) Green(h channel.Handle, brightness uint8) {
	s.fill(h, func(buf []channel.Pixel) { effect.Fill(buf, channel.RGB(0, brightness, 0)) })
}

func (s *Scheduler) Blue(h channel.Handle, brightness uint8) {
	s.fill(h, func(buf []channel.Pixel) { effect.Fill(buf, channel.RGB(0, 0, brightness)) })
}

// Fill paints the whole strip; components above 255 saturate.
func (s *Scheduler) Fill(h channel.Handle, r, g, b uint16) {
	s.fill(h, func(buf []channel.Pixel) { effect.Fill(buf, channel.Clamp(r, g, b)) })
}

// SinglePixel clears the strip and lights pos. Positions past the end are
// ignored.
func (s *Scheduler) SinglePixel(h channel.Handle, pos int, r, g, b uint8) {
	if pos < 0 || pos >= s.reg.LedCount(h) {
		return
	}
	s.fill(h, func(buf []channel.Pixel) { effect.SinglePixel(buf, pos, channel.RGB(r, g, b)) })
}

// SendAllChannels re-transmits every active channel as it is.
func (s *Scheduler) SendAllChannels() error {
	return s.eng.SendAll()
}

// ChannelBuffer gives direct access to the pixels of h, or nil.
func (s *Scheduler) ChannelBuffer(h channel.Handle) []channel.Pixel {
	return s.reg.Buffer(h)
}

func (s *Scheduler) ChannelLedCount(h channel.Handle) int {
	return s.reg.LedCount(h)
}

// SetBrightness changes the transmit brightness of h from its next frame on.
func (s *Scheduler) SetBrightness(h channel.Handle, level uint8) {
	if ch, ok := s.reg.Lookup(h); ok {
		ch.SetBrightness(level)
	}
}

// Brightness returns the transmit brightness of h, or 0 for an absent
// channel.
func (s *Scheduler) Brightness(h channel.Handle) uint8 {
	if ch, ok := s.reg.Lookup(h); ok {
		return ch.Brightness()
	}
	return 0
}

// SendChannel re-transmits h as it is.
func (s *Scheduler) SendChannel(h channel.Handle) error {
	return s.eng.SendChannel(h)
}
