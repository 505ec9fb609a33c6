// Package effect holds the frame generators used by the animation scheduler.
// Every function is pure: given a buffer, a cursor and parameters it writes
// the same frame every time.
package effect

import "github.com/coreman2200/funtimes-stripdriver/internal/channel"

const (
	// WheelPeriod is the number of steps around the hue wheel.
	WheelPeriod = 256
	ChasePeriod = 3
	FlashPeriod = 3
)

// Wheel maps a position on the 256-step hue wheel to a colour. The wheel is
// three linear ramps: green→red, red→blue, blue→green, split at 85 and 170.
func Wheel(pos uint8) channel.Pixel {
	switch {
	case pos < 85:
		return channel.RGB(pos*3, 255-pos*3, 0)
	case pos < 170:
		pos -= 85
		return channel.RGB(255-pos*3, 0, pos*3)
	default:
		pos -= 170
		return channel.RGB(0, pos*3, 255-pos*3)
	}
}

func Fill(buf []channel.Pixel, c channel.Pixel) {
	for i := range buf {
		buf[i] = c
	}
}

// Rainbow spreads one full wheel across the strip and rotates it by j.
func Rainbow(buf []channel.Pixel, j int) {
	Rainbows(buf, j, len(buf))
}

// RainbowCycle steps the hue by one per pixel.
func RainbowCycle(buf []channel.Pixel, j int) {
	for i := range buf {
		buf[i] = Wheel(uint8((i + j) & 255))
	}
}

// Rainbows makes every width pixels span one wheel. A zero width leaves the
// buffer untouched.
func Rainbows(buf []channel.Pixel, j, width int) {
	if width <= 0 {
		return
	}
	for i := range buf {
		buf[i] = Wheel(uint8((i*256/width + j) & 255))
	}
}

// TheaterChase lights every third pixel starting at q and clears the rest.
func TheaterChase(buf []channel.Pixel, q int, c channel.Pixel) {
	for i := range buf {
		if i%ChasePeriod == q {
			buf[i] = c
		} else {
			buf[i] = channel.Black
		}
	}
}

// WipeStep sets the pixel at pos; earlier pixels keep their colour.
func WipeStep(buf []channel.Pixel, pos int, c channel.Pixel) {
	if pos < 0 || pos >= len(buf) {
		return
	}
	buf[pos] = c
}

// Pulse fills the strip with c dimmed to level/255.
func Pulse(buf []channel.Pixel, level uint8, c channel.Pixel) {
	Fill(buf, c.Scale(level))
}

// Flash fills the strip with red, green or blue at brightness.
func Flash(buf []channel.Pixel, phase int, brightness uint8) {
	var c channel.Pixel
	switch phase % FlashPeriod {
	case 0:
		c.R = brightness
	case 1:
		c.G = brightness
	default:
		c.B = brightness
	}
	Fill(buf, c)
}

// SinglePixel clears the strip and lights only pos.
func SinglePixel(buf []channel.Pixel, pos int, c channel.Pixel) {
	if pos < 0 || pos >= len(buf) {
		return
	}
	Fill(buf, channel.Black)
	buf[pos] = c
}
