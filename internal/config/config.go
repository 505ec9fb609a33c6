// Package config loads the strip driver's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/funtimes-stripdriver/internal/channel"
	"github.com/coreman2200/funtimes-stripdriver/internal/led"
	"github.com/coreman2200/funtimes-stripdriver/internal/sequence"
)

var ErrInvalid = errors.New("config: invalid")

const (
	TransportBitBang = "bitbang"
	TransportSPI     = "spi"
	TransportConsole = "console"

	TicksLoop   = "loop"
	TicksMillis = "millis"
)

type Channel struct {
	Handle     int    `yaml:"handle"`
	Pin        string `yaml:"pin"`
	Pixels     int    `yaml:"pixels"`
	Brightness int    `yaml:"brightness"`
	SPIPort    string `yaml:"spi_port,omitempty"` // e.g. /dev/spidev0.0 or SPI0.0
}

// Timing is the bit-bang waveform in nanoseconds.
type Timing struct {
	T0HNs   int  `yaml:"t0h_ns"`
	T0LNs   int  `yaml:"t0l_ns"`
	T1HNs   int  `yaml:"t1h_ns"`
	T1LNs   int  `yaml:"t1l_ns"`
	ResetNs int  `yaml:"reset_ns"`
	Spin    bool `yaml:"calibrated_spin"`
}

type SPI struct {
	FreqKHz int `yaml:"freq_khz"`
}

type Monitor struct {
	Addr string `yaml:"addr"` // empty disables the monitor
}

type Clip struct {
	Name       string              `yaml:"name,omitempty"`
	Effect     string              `yaml:"effect"`
	Color      string              `yaml:"color,omitempty"` // "#rrggbb"
	Speed      int                 `yaml:"speed,omitempty"`
	Width      int                 `yaml:"width,omitempty"`
	Position   int                 `yaml:"position,omitempty"`
	Brightness int                 `yaml:"brightness,omitempty"`
	Ticks      int                 `yaml:"ticks,omitempty"`
	Fade       []sequence.Keyframe `yaml:"fade,omitempty"`
}

type Program struct {
	Channel int    `yaml:"channel"`
	Loop    bool   `yaml:"loop,omitempty"`
	Clips   []Clip `yaml:"clips"`
}

type Config struct {
	Transport      string    `yaml:"transport"` // "bitbang" | "spi" | "console"
	Channels       []Channel `yaml:"channels"`
	Timing         Timing    `yaml:"timing"`
	SPI            SPI       `yaml:"spi,omitempty"`
	BalanceOffset  int       `yaml:"balance_offset"`
	TickSource     string    `yaml:"tick_source"` // "loop" | "millis"
	IntervalMs     int       `yaml:"interval_ms"`
	PerChannelSend bool      `yaml:"per_channel_send,omitempty"`
	Monitor        Monitor   `yaml:"monitor"`
	Programs       []Program `yaml:"programs,omitempty"`
}

// Default is a single 60 pixel strip on PD4 bit-banged with WS2812B timing.
func Default() *Config {
	t := led.WS2812B
	return &Config{
		Transport: TransportBitBang,
		Channels: []Channel{
			{Handle: 0, Pin: "PD4", Pixels: 60, Brightness: 255},
		},
		Timing: Timing{
			T0HNs:   int(t.T0H),
			T0LNs:   int(t.T0L),
			T1HNs:   int(t.T1H),
			T1LNs:   int(t.T1L),
			ResetNs: int(t.Reset),
		},
		SPI:           SPI{FreqKHz: int(led.DefaultSPIFreq / physic.KiloHertz)},
		BalanceOffset: led.DefaultBalanceOffset,
		TickSource:    TicksLoop,
		IntervalMs:    1,
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	switch c.Transport {
	case TransportBitBang, TransportSPI, TransportConsole:
	default:
		errs = append(errs, invalid("transport %q", c.Transport))
	}
	switch c.TickSource {
	case TicksLoop, TicksMillis:
	default:
		errs = append(errs, invalid("tick_source %q", c.TickSource))
	}
	if c.IntervalMs < 0 {
		errs = append(errs, invalid("interval_ms %d", c.IntervalMs))
	}
	if c.Transport == TransportBitBang {
		if err := c.BitTiming().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
		}
	}

	seen := map[int]bool{}
	for _, ch := range c.Channels {
		switch {
		case ch.Handle < 0 || ch.Handle >= channel.Capacity:
			errs = append(errs, invalid("channel handle %d", ch.Handle))
		case seen[ch.Handle]:
			errs = append(errs, invalid("channel %d defined twice", ch.Handle))
		}
		seen[ch.Handle] = true
		if ch.Pin == "" {
			errs = append(errs, invalid("channel %d: no pin", ch.Handle))
		}
		if ch.Pixels <= 0 || ch.Pixels > channel.MaxPixels {
			errs = append(errs, invalid("channel %d: pixels %d", ch.Handle, ch.Pixels))
		}
		if ch.Brightness < 0 || ch.Brightness > 255 {
			errs = append(errs, invalid("channel %d: brightness %d", ch.Handle, ch.Brightness))
		}
		if c.Transport == TransportSPI && ch.SPIPort == "" {
			errs = append(errs, invalid("channel %d: spi transport needs spi_port", ch.Handle))
		}
	}

	for _, p := range c.Programs {
		if !seen[p.Channel] {
			errs = append(errs, invalid("program for unconfigured channel %d", p.Channel))
		}
		if _, err := p.Sequence(); err != nil {
			errs = append(errs, fmt.Errorf("%w: channel %d: %w", ErrInvalid, p.Channel, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) BitTiming() led.BitTiming {
	return led.BitTiming{
		T0H:   time.Duration(c.Timing.T0HNs),
		T0L:   time.Duration(c.Timing.T0LNs),
		T1H:   time.Duration(c.Timing.T1HNs),
		T1L:   time.Duration(c.Timing.T1LNs),
		Reset: time.Duration(c.Timing.ResetNs),
	}
}

// SPIFreq is the SPI clock, or zero for the transport default.
func (c *Config) SPIFreq() physic.Frequency {
	return physic.Frequency(c.SPI.FreqKHz) * physic.KiloHertz
}

func (c *Config) Balance() led.ColorBalance {
	return led.ColorBalance{Offset: c.BalanceOffset}
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// ParseColor parses "#rgb" or "#rrggbb". The empty string is black.
func ParseColor(s string) (channel.Pixel, error) {
	if s == "" {
		return channel.Black, nil
	}
	col, err := colorful.Hex(s)
	if err != nil {
		return channel.Black, err
	}
	r, g, b := col.RGB255()
	return channel.RGB(r, g, b), nil
}

func clampU16(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > 0xffff {
		return 0xffff
	}
	return uint16(v)
}

func clampU8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Sequence converts p into a playable program.
func (p Program) Sequence() (sequence.Program, error) {
	out := sequence.Program{Version: "seq.v1", Loop: p.Loop}
	if len(p.Clips) == 0 {
		return out, sequence.ErrEmptyProgram
	}
	for i, c := range p.Clips {
		if !sequence.ValidEffect(c.Effect) {
			return out, fmt.Errorf("%w: clip %d: %q", sequence.ErrUnknownEffect, i, c.Effect)
		}
		col, err := ParseColor(c.Color)
		if err != nil {
			return out, fmt.Errorf("clip %d: color %q: %w", i, c.Color, err)
		}
		if c.Ticks < 0 {
			return out, fmt.Errorf("clip %d: ticks %d", i, c.Ticks)
		}
		out.Clips = append(out.Clips, sequence.Clip{
			Name:          c.Name,
			Effect:        c.Effect,
			Color:         col,
			Speed:         clampU16(c.Speed),
			Width:         clampU16(c.Width),
			Position:      c.Position,
			Brightness:    clampU8(c.Brightness),
			DurationTicks: c.Ticks,
			Fade:          sequence.Envelope{Keys: c.Fade},
		})
	}
	return out, nil
}
