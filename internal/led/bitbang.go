package led

import (
	"periph.io/x/conn/v3/gpio"

	"github.com/coreman2200/funtimes-stripdriver/internal/channel"
)

// BitBang drives the strip by toggling the channel's pin directly, timing
// every phase with a busy-wait Delayer.
type BitBang struct {
	Timing BitTiming
	Delay  Delayer
}

// NewBitBang validates t. A nil d uses BusyWait.
func NewBitBang(t BitTiming, d Delayer) (*BitBang, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if d == nil {
		d = BusyWait{}
	}
	return &BitBang{Timing: t, Delay: d}, nil
}

// Transmit sends each pixel as green, red, blue, most significant bit first,
// then holds the line low to latch the frame.
func (b *BitBang) Transmit(ch *channel.Channel, rgb []byte) error {
	pin := ch.Pin()
	for i := 0; i+2 < len(rgb); i += 3 {
		for _, v := range [3]byte{rgb[i+1], rgb[i], rgb[i+2]} {
			if err := b.writeByte(pin, v); err != nil {
				// Leave the line idle low, best effort.
				_ = pin.Out(gpio.Low)
				return err
			}
		}
	}
	if err := pin.Out(gpio.Low); err != nil {
		return err
	}
	// Latch after the last pixel, then the frame separator.
	b.Delay.Delay(b.Timing.Reset)
	b.Delay.Delay(b.Timing.Reset)
	return nil
}

func (b *BitBang) writeByte(pin gpio.PinOut, v byte) error {
	for i := 7; i >= 0; i-- {
		high, low := b.Timing.phases(v>>uint(i)&1 == 1)
		if err := pin.Out(gpio.High); err != nil {
			return err
		}
		b.Delay.Delay(high)
		if err := pin.Out(gpio.Low); err != nil {
			return err
		}
		b.Delay.Delay(low)
	}
	return nil
}

func (b *BitBang) Close() error { return nil }
