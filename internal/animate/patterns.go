package animate

import (
	"context"
	"strings"
	"time"

	"github.com/coreman2200/arcaluminis-cube8/internal/config"
	"github.com/coreman2200/arcaluminis-cube8/internal/cube"
	"github.com/coreman2200/arcaluminis-cube8/internal/glyph"
)

// Modes names the pattern of each mode, mode 0 first.
var Modes = []string{"scroll", "points", "planes", "flash", "sequence"}

// Flash blinks the whole cube once.
type Flash struct {
	On, Off time.Duration
}

func (Flash) Name() string { return "flash" }

func (f Flash) Run(ctx context.Context, c *cube.Cube, w Waiter) error {
	c.SetAll(true)
	if err := w.Wait(ctx, f.On); err != nil {
		return err
	}
	c.SetAll(false)
	return w.Wait(ctx, f.Off)
}

// Planes sweeps a single lit plane through the cube along X, then Y, then Z.
type Planes struct {
	Hold time.Duration
}

func (Planes) Name() string { return "planes" }

func (p Planes) Run(ctx context.Context, c *cube.Cube, w Waiter) error {
	c.SetAll(false)
	for _, a := range []cube.Axis{cube.X, cube.Y, cube.Z} {
		for i := 0; i < cube.Size; i++ {
			c.SetPlane(a, i, true)
			if err := w.Wait(ctx, p.Hold); err != nil {
				return err
			}
			c.SetPlane(a, i, false)
		}
	}
	return nil
}

// Points walks a single lit LED through all 512 positions, z fastest.
type Points struct {
	Hold time.Duration
}

func (Points) Name() string { return "points" }

func (p Points) Run(ctx context.Context, c *cube.Cube, w Waiter) error {
	c.SetAll(false)
	for x := 0; x < cube.Size; x++ {
		for y := 0; y < cube.Size; y++ {
			for z := 0; z < cube.Size; z++ {
				c.SetPoint(x, y, z, true)
				if err := w.Wait(ctx, p.Hold); err != nil {
					return err
				}
				c.SetPoint(x, y, z, false)
			}
		}
	}
	return nil
}

// Scroll moves each character of a text from the front of the cube to the
// back, then lights everything for Finale.
type Scroll struct {
	Glyphs []glyph.Glyph
	Step   time.Duration
	Finale time.Duration
}

func NewScroll(text string, step, finale time.Duration) Scroll {
	return Scroll{Glyphs: glyph.Text(text), Step: step, Finale: finale}
}

func (Scroll) Name() string { return "scroll" }

func (s Scroll) Run(ctx context.Context, c *cube.Cube, w Waiter) error {
	c.SetAll(false)
	for _, g := range s.Glyphs {
		for y := 0; y < cube.Size; y++ {
			c.SetYPlaneFromMask(y, g)
			if err := w.Wait(ctx, s.Step); err != nil {
				return err
			}
			c.SetYPlane(y, false)
		}
	}
	c.SetAll(true)
	return w.Wait(ctx, s.Finale)
}

// Sequence runs its patterns in order and stops at the first one that
// does not complete.
type Sequence struct {
	Patterns []Pattern
}

func (Sequence) Name() string { return "sequence" }

func (s Sequence) Run(ctx context.Context, c *cube.Cube, w Waiter) error {
	for _, p := range s.Patterns {
		if err := p.Run(ctx, c, w); err != nil {
			return err
		}
	}
	return nil
}

func (s Sequence) String() string {
	names := make([]string, len(s.Patterns))
	for i, p := range s.Patterns {
		names[i] = p.Name()
	}
	return "sequence(" + strings.Join(names, ",") + ")"
}

// Defaults registers the built-in patterns with the timings of p.
func Defaults(p config.Patterns) *Registry {
	scroll := NewScroll(p.Text, p.Scroll, p.Finale)
	points := Points{Hold: p.Point}
	planes := Planes{Hold: p.Plane}
	flash := Flash{On: p.Flash, Off: p.Flash}
	return NewRegistry(scroll, points, planes, flash, Sequence{Patterns: []Pattern{scroll, points, planes, flash}})
}
