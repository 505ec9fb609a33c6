package led

import "github.com/coreman2200/funtimes-stripdriver/internal/channel"

// DefaultBalanceOffset is subtracted from a channel's brightness to get the
// ceiling for green and blue. Red uses the brightness unchanged.
const DefaultBalanceOffset = 100

// ColorBalance scales buffer colours into the transmit range.
type ColorBalance struct {
	Offset int
}

func DefaultBalance() ColorBalance {
	return ColorBalance{Offset: DefaultBalanceOffset}
}

// MapRange clamps v into [inMin, inMax] and maps it linearly onto
// [outMin, outMax] with truncating integer division.
func MapRange(v, inMin, inMax, outMin, outMax int) int {
	if v < inMin {
		v = inMin
	}
	if v > inMax {
		v = inMax
	}
	return (v-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

// Limits returns the red and green/blue ceilings for a brightness.
func (c ColorBalance) Limits(brightness uint8) (red, greenBlue int) {
	red = int(brightness)
	greenBlue = int(brightness) - c.Offset
	if greenBlue < 0 {
		greenBlue = 0
	}
	if greenBlue > 255 {
		greenBlue = 255
	}
	return red, greenBlue
}

// Scale writes the scaled RGB stream for px into dst and returns it. dst is
// reused when it has enough capacity.
func (c ColorBalance) Scale(dst []byte, px []channel.Pixel, brightness uint8) []byte {
	n := len(px) * 3
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	rmax, gbmax := c.Limits(brightness)
	for i, p := range px {
		dst[3*i] = uint8(MapRange(int(p.R), 0, 255, 0, rmax))
		dst[3*i+1] = uint8(MapRange(int(p.G), 0, 255, 0, gbmax))
		dst[3*i+2] = uint8(MapRange(int(p.B), 0, 255, 0, gbmax))
	}
	return dst
}
