package channel

// Pixel is one RGB triple in a strip's buffer.
type Pixel struct {
	R, G, B uint8
}

var Black = Pixel{}

func RGB(r, g, b uint8) Pixel {
	return Pixel{R: r, G: g, B: b}
}

// Clamp builds a Pixel from wide components, saturating each at 255.
func Clamp(r, g, b uint16) Pixel {
	return Pixel{R: clamp8(r), G: clamp8(g), B: clamp8(b)}
}

func clamp8(v uint16) uint8 {
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Scale multiplies every component by level/255.
func (p Pixel) Scale(level uint8) Pixel {
	return Pixel{
		R: uint8(uint16(p.R) * uint16(level) / 255),
		G: uint8(uint16(p.G) * uint16(level) / 255),
		B: uint8(uint16(p.B) * uint16(level) / 255),
	}
}
