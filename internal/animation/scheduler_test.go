package animation_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	. "github.com/coreman2200/funtimes-stripdriver/internal/animation"
	"github.com/coreman2200/funtimes-stripdriver/internal/channel"
	"github.com/coreman2200/funtimes-stripdriver/internal/effect"
	"github.com/coreman2200/funtimes-stripdriver/internal/led"
)

// recorder is a Transport that keeps every frame it was given.
type recorder struct {
	frames []sent
}

type sent struct {
	h   channel.Handle
	rgb []byte
}

func (r *recorder) Transmit(ch *channel.Channel, rgb []byte) error {
	r.frames = append(r.frames, sent{h: ch.Handle(), rgb: append([]byte{}, rgb...)})
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) count(h channel.Handle) int {
	n := 0
	for _, f := range r.frames {
		if f.h == h {
			n++
		}
	}
	return n
}

type rig struct {
	reg   *channel.Registry
	tx    *recorder
	ticks *Counter
	s     *Scheduler
}

func newRig(t *testing.T, opts Options, pixels ...int) *rig {
	reg := channel.NewRegistry(func(token string) gpio.PinOut { return &gpiotest.Pin{N: token} })
	for i, n := range pixels {
		require.NoError(t, reg.Configure(channel.Handle(i), "P"+string(rune('A'+i)), n, 255))
	}
	tx := &recorder{}
	ticks := &Counter{}
	eng := led.NewEngine(reg, tx, led.DefaultBalance())
	return &rig{reg: reg, tx: tx, ticks: ticks, s: New(reg, eng, ticks, opts)}
}

func snapshot(buf []channel.Pixel) []channel.Pixel {
	return append([]channel.Pixel{}, buf...)
}

func TestInvalidHandleNoop(t *testing.T) {
	r := newRig(t, Options{}, 5)
	effect.Fill(r.s.ChannelBuffer(0), channel.RGB(7, 7, 7))
	before := snapshot(r.s.ChannelBuffer(0))

	for _, h := range []channel.Handle{1, 3, channel.Capacity, 255} {
		r.s.Off(h)
		r.s.Red(h, 255)
		r.s.Green(h, 255)
		r.s.Blue(h, 255)
		r.s.Fill(h, 1, 2, 3)
		r.s.SinglePixel(h, 0, 1, 1, 1)
		assert.False(t, r.s.Rainbow(h, 0))
		assert.False(t, r.s.RainbowCycle(h, 0))
		assert.False(t, r.s.Rainbows(h, 0, 4))
		assert.False(t, r.s.TheaterChase(h, 1, 2, 3, 0))
		assert.False(t, r.s.ColorWipe(h, 1, 2, 3, 0))
		assert.False(t, r.s.Pulse(h, 1, 2, 3, 0))
		assert.False(t, r.s.Flash(h, 0, 255))
		assert.Nil(t, r.s.ChannelBuffer(h))
		assert.Zero(t, r.s.ChannelLedCount(h))
	}
	assert.Empty(t, r.tx.frames)
	assert.Equal(t, before, r.s.ChannelBuffer(0))

	_, ok := r.s.Cursor(channel.Capacity, FamilyRainbow)
	assert.False(t, ok)
}

func TestStaticFills(t *testing.T) {
	r := newRig(t, Options{}, 4, 2)

	r.s.Fill(0, 300, 127, math.MaxUint16)
	for _, p := range r.s.ChannelBuffer(0) {
		assert.Equal(t, channel.RGB(255, 127, 255), p)
	}
	r.s.Red(0, 10)
	assert.Equal(t, channel.RGB(10, 0, 0), r.s.ChannelBuffer(0)[3])
	r.s.Green(0, 20)
	assert.Equal(t, channel.RGB(0, 20, 0), r.s.ChannelBuffer(0)[3])
	r.s.Blue(0, 30)
	assert.Equal(t, channel.RGB(0, 0, 30), r.s.ChannelBuffer(0)[3])

	r.s.Off(0)
	for _, p := range r.s.ChannelBuffer(0) {
		assert.Equal(t, channel.Black, p)
	}

	r.s.SinglePixel(0, 2, 1, 2, 3)
	assert.Equal(t, []channel.Pixel{channel.Black, channel.Black, channel.RGB(1, 2, 3), channel.Black}, r.s.ChannelBuffer(0))
	r.s.SinglePixel(0, 4, 1, 2, 3)

	// Fills only transmit their own channel.
	assert.Equal(t, 6, r.tx.count(0))
	assert.Zero(t, r.tx.count(1))
	assert.Equal(t, 4, r.s.ChannelLedCount(0))
}

func TestNonBlocking(t *testing.T) {
	r := newRig(t, Options{}, 6)

	require.True(t, r.s.Rainbow(0, 10), "first call is due")
	frame := snapshot(r.s.ChannelBuffer(0))
	require.Len(t, r.tx.frames, 1)

	assert.False(t, r.s.Rainbow(0, 10))
	r.ticks.Add(9)
	assert.False(t, r.s.Rainbow(0, 10))
	assert.Equal(t, frame, r.s.ChannelBuffer(0), "not-due calls leave the buffer alone")
	assert.Len(t, r.tx.frames, 1, "not-due calls do not transmit")

	r.ticks.Advance()
	assert.True(t, r.s.Rainbow(0, 10))
	assert.Len(t, r.tx.frames, 2)

	// A long gap still yields exactly one frame.
	r.ticks.Add(1000)
	assert.True(t, r.s.Rainbow(0, 10))
	assert.False(t, r.s.Rainbow(0, 10))
	c, _ := r.s.Cursor(0, FamilyRainbow)
	assert.Equal(t, 3, c.Pos)
	assert.Equal(t, r.ticks.Now(), c.Last)
}

func TestTickWrap(t *testing.T) {
	r := newRig(t, Options{}, 3)
	r.ticks.Add(math.MaxUint32 - 2)
	require.True(t, r.s.Flash(0, 5, 255))

	r.ticks.Add(4)
	assert.False(t, r.s.Flash(0, 5, 255))
	r.ticks.Advance()
	assert.True(t, r.s.Flash(0, 5, 255), "elapsed ticks survive counter wrap")
}

func TestRetransmitAll(t *testing.T) {
	r := newRig(t, Options{}, 3, 2, 1)
	require.True(t, r.s.RainbowCycle(1, 5))
	assert.Equal(t, 1, r.tx.count(0))
	assert.Equal(t, 1, r.tx.count(1))
	assert.Equal(t, 1, r.tx.count(2))
	assert.Equal(t, channel.Handle(0), r.tx.frames[0].h, "ascending handle order")

	p := newRig(t, Options{PerChannelSend: true}, 3, 2)
	require.True(t, p.s.RainbowCycle(1, 5))
	assert.Zero(t, p.tx.count(0))
	assert.Equal(t, 1, p.tx.count(1))
}

func TestColorWipe(t *testing.T) {
	r := newRig(t, Options{}, 4)
	red := channel.RGB(255, 0, 0)
	for i := 0; i < 4; i++ {
		require.True(t, r.s.ColorWipe(0, 255, 0, 0, 0))
		buf := r.s.ChannelBuffer(0)
		for j := 0; j < 4; j++ {
			if j <= i {
				assert.Equal(t, red, buf[j], "frame %d pixel %d", i, j)
			} else {
				assert.Equal(t, channel.Black, buf[j], "frame %d pixel %d", i, j)
			}
		}
	}
	c, _ := r.s.Cursor(0, FamilyColorWipe)
	assert.Zero(t, c.Pos, "cursor wraps after the last pixel")

	require.True(t, r.s.ColorWipe(0, 0, 0, 255, 0))
	buf := r.s.ChannelBuffer(0)
	assert.Equal(t, channel.RGB(0, 0, 255), buf[0])
	assert.Equal(t, []channel.Pixel{red, red, red}, buf[1:], "the next pass paints over without clearing")
}

func TestColorWipeShrunkStrip(t *testing.T) {
	r := newRig(t, Options{}, 8)
	for i := 0; i < 6; i++ {
		r.s.ColorWipe(0, 1, 1, 1, 0)
	}
	require.NoError(t, r.s.Configure(0, "PA", 3, 255))
	require.True(t, r.s.ColorWipe(0, 9, 9, 9, 0))
	assert.Equal(t, channel.RGB(9, 9, 9), r.s.ChannelBuffer(0)[0])
}

func TestTheaterChaseCycle(t *testing.T) {
	r := newRig(t, Options{}, 6)
	c := channel.RGB(0, 255, 0)
	for frame := 0; frame < 6; frame++ {
		require.True(t, r.s.TheaterChase(0, 0, 255, 0, 0))
		for i, p := range r.s.ChannelBuffer(0) {
			if i%3 == frame%3 {
				assert.Equal(t, c, p)
			} else {
				assert.Equal(t, channel.Black, p)
			}
		}
	}
}

func TestPulseBounce(t *testing.T) {
	r := newRig(t, Options{}, 1)
	var levels []uint8
	for i := 0; i < 512; i++ {
		require.True(t, r.s.Pulse(0, 255, 0, 0, 0))
		levels = append(levels, r.s.ChannelBuffer(0)[0].R)
	}
	assert.Equal(t, []uint8{0, 1, 2}, levels[:3])
	assert.Equal(t, uint8(255), levels[255])
	assert.Equal(t, uint8(254), levels[256])
	assert.Equal(t, uint8(0), levels[510])
	assert.Equal(t, uint8(1), levels[511])
}

func TestFlashCycle(t *testing.T) {
	r := newRig(t, Options{}, 2)
	want := []channel.Pixel{channel.RGB(90, 0, 0), channel.RGB(0, 90, 0), channel.RGB(0, 0, 90), channel.RGB(90, 0, 0)}
	for _, w := range want {
		require.True(t, r.s.Flash(0, 0, 90))
		assert.Equal(t, w, r.s.ChannelBuffer(0)[1])
	}
}

func TestCursorsIndependent(t *testing.T) {
	r := newRig(t, Options{}, 5, 5)

	r.s.Rainbows(0, 0, 5)
	r.s.Rainbows(0, 0, 5)
	for i := 0; i < 4; i++ {
		r.s.Flash(0, 0, 255)
	}
	r.s.Rainbows(1, 0, 5)

	c, _ := r.s.Cursor(0, FamilyRainbows)
	assert.Equal(t, 2, c.Pos, "flash frames must not move the rainbow cursor")
	c, _ = r.s.Cursor(0, FamilyFlash)
	assert.Equal(t, 1, c.Pos)
	c, _ = r.s.Cursor(1, FamilyRainbows)
	assert.Equal(t, 1, c.Pos, "channels keep separate cursors")

	assert.False(t, r.s.Rainbows(0, 0, 0), "zero width is ignored")
}

func TestSendAllChannels(t *testing.T) {
	r := newRig(t, Options{}, 2, 2)
	effect.Fill(r.s.ChannelBuffer(1), channel.RGB(200, 0, 0))
	require.NoError(t, r.s.SendAllChannels())
	require.NoError(t, r.s.SendAllChannels())
	require.Len(t, r.tx.frames, 4)
	assert.Equal(t, r.tx.frames[1].rgb, r.tx.frames[3].rgb)
	assert.Equal(t, []byte{200, 0, 0, 200, 0, 0}, r.tx.frames[1].rgb)
}

func TestFamilyNames(t *testing.T) {
	for f := FamilyRainbow; f <= FamilyFlash; f++ {
		got, ok := ParseFamily(f.String())
		assert.True(t, ok)
		assert.Equal(t, f, got)
	}
	_, ok := ParseFamily("strobe")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Family(42).String())
}

func TestBrightnessAndResend(t *testing.T) {
	r := newRig(t, Options{}, 2)
	assert.Equal(t, uint8(255), r.s.Brightness(0))
	assert.Zero(t, r.s.Brightness(2))

	r.s.SetBrightness(0, 40)
	assert.Equal(t, uint8(40), r.s.Brightness(0))
	require.NoError(t, r.s.SendChannel(0))
	require.NoError(t, r.s.SendChannel(2), "absent channels are skipped")
	assert.Equal(t, 1, r.tx.count(0))
	assert.Len(t, r.tx.frames, 1)
}
