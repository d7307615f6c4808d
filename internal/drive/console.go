package drive

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/display"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/arcaluminis-cube8/internal/cube"
)

// StripWidth is the width of one layer drawn as a strip: 8 rows of 8.
const StripWidth = cube.Size * cube.Size

var (
	litColor  = color.NRGBA{R: 0x30, G: 0xa0, B: 0xff, A: 0xff}
	darkColor = color.NRGBA{A: 0xff}
)

// Strip renders layer z of f as a StripWidth x 1 image, row 0 first.
func Strip(f cube.Frame, z int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, StripWidth, 1))
	for y := 0; y < cube.Size; y++ {
		for x := 0; x < cube.Size; x++ {
			c := darkColor
			if f.Point(x, y, z) {
				c = litColor
			}
			img.SetNRGBA(y*cube.Size+x, 0, c)
		}
	}
	return img
}

// Console draws frames on a terminal, one strip per line from the top
// layer down.
type Console struct {
	drawer display.Drawer
	out    io.Writer
	clock  clockwork.Clock
	drawn  bool
}

// NewConsole uses the periph terminal screen when d is nil.
func NewConsole(d display.Drawer, out io.Writer, clock clockwork.Clock) *Console {
	if d == nil {
		d = screen.New(StripWidth)
	}
	if out == nil {
		out = os.Stdout
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Console{drawer: d, out: out, clock: clock}
}

// cursorUp moves the terminal cursor back over the previous frame.
var cursorUp = fmt.Sprintf("\033[%dA", cube.Size)

// Draw redraws f in place over the frame drawn before it.
func (c *Console) Draw(f cube.Frame) error {
	if c.drawn {
		fmt.Fprint(c.out, cursorUp)
	}
	c.drawn = true
	for z := cube.Size - 1; z >= 0; z-- {
		if err := c.drawer.Draw(c.drawer.Bounds(), Strip(f, z), image.Point{}); err != nil {
			return fmt.Errorf("drive: console layer %d: %w", z, err)
		}
		fmt.Fprintln(c.out)
	}
	return nil
}

// Run draws src fps times a second until ctx ends.
func (c *Console) Run(ctx context.Context, fps int, src func() cube.Frame) error {
	t := c.clock.NewTicker(time.Second / time.Duration(fps))
	defer t.Stop()
	defer c.drawer.Halt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.Chan():
			if err := c.Draw(src()); err != nil {
				return err
			}
		}
	}
}
