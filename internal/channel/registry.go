// Package channel holds the fixed table of LED strips ("channels") and the
// pixel buffers they own.
//
// Every access goes through Lookup; an out-of-range or unconfigured handle is
// reported as absent and callers treat that as a no-op.
package channel

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

const (
	// Capacity is the number of channel slots in a Registry.
	Capacity = 4
	// MaxPixels is the largest buffer a channel may own.
	MaxPixels = 65535
)

// Handle indexes a slot in the Registry.
type Handle uint8

var (
	ErrConfiguration = errors.New("channel: configuration error")
	ErrInvalidHandle = fmt.Errorf("%w: handle out of range", ErrConfiguration)
	ErrZeroPixels    = fmt.Errorf("%w: pixel count must be positive", ErrConfiguration)
	ErrAllocation    = fmt.Errorf("%w: cannot allocate pixel buffer", ErrConfiguration)
	ErrUnknownPin    = fmt.Errorf("%w: unknown pin", ErrConfiguration)
	ErrPinSetup      = fmt.Errorf("%w: cannot drive pin", ErrConfiguration)
)

// PinResolver maps an opaque pin token to an output pin. It returns nil when
// the token does not name a pin.
type PinResolver func(token string) gpio.PinOut

// ByName resolves pins through the periph GPIO registry.
func ByName(token string) gpio.PinOut {
	p := gpioreg.ByName(token)
	if p == nil {
		return nil
	}
	return p
}

// Channel is one physical LED strip.
type Channel struct {
	handle     Handle
	token      string
	pin        gpio.PinOut
	buf        []Pixel
	brightness uint8
	active     bool
}

func (c *Channel) Handle() Handle    { return c.handle }
func (c *Channel) PinName() string   { return c.token }
func (c *Channel) Pin() gpio.PinOut  { return c.pin }
func (c *Channel) Len() int          { return len(c.buf) }
func (c *Channel) Brightness() uint8 { return c.brightness }

// Pixels returns the channel's buffer. It is mutable in place.
func (c *Channel) Pixels() []Pixel { return c.buf }

// SetBrightness changes the transmit-time scale factor.
func (c *Channel) SetBrightness(b uint8) { c.brightness = b }

// Registry is a fixed-capacity table of channels.
type Registry struct {
	slots   [Capacity]Channel
	resolve PinResolver
}

// NewRegistry returns an empty registry. A nil resolver falls back to ByName.
func NewRegistry(resolve PinResolver) *Registry {
	if resolve == nil {
		resolve = ByName
	}
	return &Registry{resolve: resolve}
}

// Configure validates the request, resolves the pin, allocates a zeroed
// buffer and activates the slot. On error the slot is left as it was.
func (r *Registry) Configure(h Handle, pin string, pixels int, brightness uint8) error {
	if int(h) >= Capacity {
		return fmt.Errorf("%w: %d >= %d", ErrInvalidHandle, h, Capacity)
	}
	if pixels <= 0 {
		return ErrZeroPixels
	}
	if pixels > MaxPixels {
		return fmt.Errorf("%w: %d pixels", ErrAllocation, pixels)
	}
	p := r.resolve(pin)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownPin, pin)
	}
	if err := p.Out(gpio.Low); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPinSetup, pin, err)
	}

	// Build the replacement completely before it becomes visible.
	r.slots[h] = Channel{
		handle:     h,
		token:      pin,
		pin:        p,
		buf:        make([]Pixel, pixels),
		brightness: brightness,
		active:     true,
	}
	log.Debug().Uint8("handle", uint8(h)).Str("pin", pin).Int("pixels", pixels).Msg("channel configured")
	return nil
}

// Lookup returns the channel at h, or false if h is out of range or inactive.
func (r *Registry) Lookup(h Handle) (*Channel, bool) {
	if int(h) >= Capacity || !r.slots[h].active {
		return nil, false
	}
	return &r.slots[h], true
}

// Release makes a slot inert and drops its buffer.
func (r *Registry) Release(h Handle) {
	if int(h) >= Capacity {
		return
	}
	r.slots[h] = Channel{}
}

// Active lists configured handles in ascending order.
func (r *Registry) Active() []Handle {
	var hs []Handle
	for i := range r.slots {
		if r.slots[i].active {
			hs = append(hs, Handle(i))
		}
	}
	return hs
}

// Buffer exposes the pixel buffer of h, or nil.
func (r *Registry) Buffer(h Handle) []Pixel {
	c, ok := r.Lookup(h)
	if !ok {
		return nil
	}
	return c.buf
}

// LedCount returns the pixel count of h, or 0.
func (r *Registry) LedCount(h Handle) int {
	c, ok := r.Lookup(h)
	if !ok {
		return 0
	}
	return len(c.buf)
}
