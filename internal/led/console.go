package led

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"github.com/maruel/ansi256"
	"periph.io/x/conn/v3/display"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/funtimes-stripdriver/internal/channel"
)

// Console previews frames on a terminal instead of a strip. The handle
// prefix and the pixel blocks of a line always go to the same writer.
type Console struct {
	out    io.Writer
	drawer display.Drawer
}

// NewConsole draws up to width pixels per channel on stdout.
func NewConsole(width int) *Console {
	return &Console{out: os.Stdout, drawer: screen.New(width)}
}

// NewConsoleTo draws up to width pixels per channel on w.
func NewConsoleTo(w io.Writer, width int) *Console {
	return &Console{out: w, drawer: &ansiLine{w: w, width: width}}
}

func (c *Console) Transmit(ch *channel.Channel, rgb []byte) error {
	im := image.NewNRGBA(image.Rect(0, 0, len(rgb)/3, 1))
	for x := 0; x < im.Rect.Max.X; x++ {
		i := x * 4
		im.Pix[i], im.Pix[i+1], im.Pix[i+2], im.Pix[i+3] = rgb[3*x], rgb[3*x+1], rgb[3*x+2], 255
	}
	if _, err := fmt.Fprintf(c.out, "%d %-6s ", ch.Handle(), ch.PinName()); err != nil {
		return err
	}
	if err := c.drawer.Draw(c.drawer.Bounds(), im, image.Point{}); err != nil {
		return err
	}
	_, err := io.WriteString(c.out, "\n")
	return err
}

func (c *Console) Close() error {
	return c.drawer.Halt()
}

// ansiLine renders one row of 256-colour blocks, like screen.Dev, on any writer.
type ansiLine struct {
	w     io.Writer
	width int
}

func (a *ansiLine) String() string          { return "ANSI" }
func (a *ansiLine) ColorModel() color.Model { return color.NRGBAModel }
func (a *ansiLine) Bounds() image.Rectangle { return image.Rect(0, 0, a.width, 1) }

func (a *ansiLine) Halt() error {
	_, err := io.WriteString(a.w, "\n\033[0m")
	return err
}

func (a *ansiLine) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(a.Bounds())
	sr := src.Bounds()
	buf := []byte("\033[0m")
	for x := 0; x < r.Dx() && sp.X+sr.Min.X+x < sr.Max.X; x++ {
		c := color.NRGBAModel.Convert(src.At(sp.X+sr.Min.X+x, sp.Y+sr.Min.Y)).(color.NRGBA)
		buf = append(buf, ansi256.Default.Block(c)...)
	}
	buf = append(buf, "\033[0m "...)
	_, err := a.w.Write(buf)
	return err
}
