package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/funtimes-stripdriver/internal/channel"
	"github.com/coreman2200/funtimes-stripdriver/internal/led"
	"github.com/coreman2200/funtimes-stripdriver/internal/sequence"
)

const sample = `
transport: bitbang
channels:
  - {handle: 0, pin: PD4, pixels: 30, brightness: 200}
  - {handle: 2, pin: PB1, pixels: 8, brightness: 255}
balance_offset: 80
tick_source: millis
interval_ms: 5
monitor:
  addr: ":8080"
programs:
  - channel: 0
    loop: true
    clips:
      - {name: warm, effect: pulse, color: "#ff8000", speed: 10, ticks: 500}
      - effect: rainbows
        speed: 4
        width: 15
        fade:
          - {t: 0, v: 0}
          - {t: 100, v: 255, ease: smooth}
`

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, led.WS2812B, c.BitTiming())
	assert.Equal(t, led.DefaultBalance(), c.Balance())
	assert.Equal(t, led.DefaultSPIFreq, c.SPIFreq())
	assert.Equal(t, time.Millisecond, c.Interval())
}

func TestLoad(t *testing.T) {
	c, err := Load(write(t, sample))
	require.NoError(t, err)

	assert.Equal(t, TransportBitBang, c.Transport)
	require.Len(t, c.Channels, 2)
	assert.Equal(t, Channel{Handle: 2, Pin: "PB1", Pixels: 8, Brightness: 255}, c.Channels[1])
	assert.Equal(t, 80, c.BalanceOffset)
	assert.Equal(t, TicksMillis, c.TickSource)
	assert.Equal(t, 5*time.Millisecond, c.Interval())
	assert.Equal(t, ":8080", c.Monitor.Addr)
	assert.Equal(t, led.WS2812B, c.BitTiming(), "timing falls back to defaults")

	prog, err := c.Programs[0].Sequence()
	require.NoError(t, err)
	assert.True(t, prog.Loop)
	require.Len(t, prog.Clips, 2)
	assert.Equal(t, sequence.Clip{
		Name:          "warm",
		Effect:        "pulse",
		Color:         channel.RGB(255, 128, 0),
		Speed:         10,
		DurationTicks: 500,
	}, prog.Clips[0])
	assert.Equal(t, uint16(15), prog.Clips[1].Width)
	assert.Equal(t, uint8(128), prog.Clips[1].Fade.Level(50))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(write(t, "transport: [\n"))
	assert.Error(t, err)

	_, err = Load(write(t, "transport: pwm\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"tick source", func(c *Config) { c.TickSource = "rtc" }, "tick_source"},
		{"negative interval", func(c *Config) { c.IntervalMs = -1 }, "interval_ms"},
		{"bad timing", func(c *Config) { c.Timing.T1HNs = 100 }, "timing"},
		{"handle range", func(c *Config) { c.Channels[0].Handle = channel.Capacity }, "handle"},
		{"duplicate", func(c *Config) { c.Channels = append(c.Channels, c.Channels[0]) }, "twice"},
		{"no pin", func(c *Config) { c.Channels[0].Pin = "" }, "no pin"},
		{"zero pixels", func(c *Config) { c.Channels[0].Pixels = 0 }, "pixels"},
		{"too many pixels", func(c *Config) { c.Channels[0].Pixels = channel.MaxPixels + 1 }, "pixels"},
		{"brightness", func(c *Config) { c.Channels[0].Brightness = 256 }, "brightness"},
		{"spi port", func(c *Config) { c.Transport = TransportSPI }, "spi_port"},
		{"orphan program", func(c *Config) {
			c.Programs = []Program{{Channel: 3, Clips: []Clip{{Effect: "off"}}}}
		}, "unconfigured"},
		{"unknown effect", func(c *Config) {
			c.Programs = []Program{{Channel: 0, Clips: []Clip{{Effect: "strobe"}}}}
		}, "unknown effect"},
		{"bad colour", func(c *Config) {
			c.Programs = []Program{{Channel: 0, Clips: []Clip{{Effect: "fill", Color: "orange"}}}}
		}, "color"},
		{"empty program", func(c *Config) {
			c.Programs = []Program{{Channel: 0}}
		}, "no clips"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			err := c.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSpiTransportOnlyTimingFree(t *testing.T) {
	c := Default()
	c.Transport = TransportSPI
	c.Channels[0].SPIPort = "SPI0.0"
	c.Timing = Timing{}
	c.SPI.FreqKHz = 3200
	require.NoError(t, c.Validate())
	assert.Equal(t, 3200*physic.KiloHertz, c.SPIFreq())
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want channel.Pixel
		ok   bool
	}{
		{"", channel.Black, true},
		{"#ff0000", channel.RGB(255, 0, 0), true},
		{"#0f0", channel.RGB(0, 255, 0), true},
		{"#0A3306", channel.RGB(10, 51, 6), true},
		{"red", channel.Black, false},
	}
	for _, c := range cases {
		got, err := ParseColor(c.in)
		if !c.ok {
			assert.Error(t, err, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	c, err := Load(write(t, sample))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(path, c))
	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}
