package led

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/nrzled"

	"github.com/coreman2200/funtimes-stripdriver/internal/channel"
)

// DefaultSPIFreq clocks 3 SPI bits per NRZ symbol.
const DefaultSPIFreq = 2500 * physic.KiloHertz

var (
	ErrNoPort    = errors.New("led: no spi port for channel")
	ErrSPIResize = errors.New("led: spi strip length changed after first frame")
)

// SPI encodes frames with nrzled and clocks them out of an SPI port, one port
// per channel. The port's MOSI line carries the strip data.
type SPI struct {
	ports map[channel.Handle]spi.Port
	freq  physic.Frequency
	devs  map[channel.Handle]*nrzled.Dev
	sizes map[channel.Handle]int
}

func NewSPI(ports map[channel.Handle]spi.Port, freq physic.Frequency) *SPI {
	if freq == 0 {
		freq = DefaultSPIFreq
	}
	return &SPI{
		ports: ports,
		freq:  freq,
		devs:  map[channel.Handle]*nrzled.Dev{},
		sizes: map[channel.Handle]int{},
	}
}

// device opens the nrzled device for ch on first use. A port connects once,
// so the strip length is fixed from then on.
func (s *SPI) device(ch *channel.Channel) (*nrzled.Dev, error) {
	h := ch.Handle()
	if d, ok := s.devs[h]; ok {
		if s.sizes[h] != ch.Len() {
			return nil, fmt.Errorf("%w: handle %d %d -> %d", ErrSPIResize, h, s.sizes[h], ch.Len())
		}
		return d, nil
	}
	p, ok := s.ports[h]
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrNoPort, h)
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{NumPixels: ch.Len(), Channels: 3, Freq: s.freq})
	if err != nil {
		return nil, err
	}
	log.Debug().Uint8("handle", uint8(h)).Str("dev", d.String()).Int("pixels", ch.Len()).Msg("nrzled opened")
	s.devs[h] = d
	s.sizes[h] = ch.Len()
	return d, nil
}

func (s *SPI) Transmit(ch *channel.Channel, rgb []byte) error {
	d, err := s.device(ch)
	if err != nil {
		return err
	}
	_, err = d.Write(rgb)
	return err
}

// Close blanks every strip that was opened.
func (s *SPI) Close() error {
	var errs []error
	for h, d := range s.devs {
		if err := d.Halt(); err != nil {
			errs = append(errs, err)
		}
		delete(s.devs, h)
	}
	return errors.Join(errs...)
}
