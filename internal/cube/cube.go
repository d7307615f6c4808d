// Package cube holds the shared on/off state of an 8x8x8 LED cube.
//
// Looking from the front, X runs left to right, Y front to back and Z bottom
// to top. Each z layer is stored as a single 64-bit word: byte y of the word
// is row y, and bit 7-x of that byte is LED x (MSB on the left). A set bit
// lights the LED; the inverted drive logic of the board is applied by the
// scanner, never here.
//
// The buffer has no lock. The animation goroutine writes it while the
// scanner reads it at a fixed rate. Every layer update is a single atomic
// word swap, so the scanner always sees a whole layer either before or after
// a change. Different layers may be observed at different points of an
// animation step; that tearing lasts at most one scan and is not visible.
package cube

import (
	"math/bits"
	"sync/atomic"
)

const (
	// Size is the edge length of the cube.
	Size = 8
	// Count is the number of LEDs in the cube.
	Count = Size * Size * Size

	allOn   uint64 = 0xFFFFFFFFFFFFFFFF
	colMask uint64 = 0x0101010101010101
)

type Axis int

const (
	X Axis = iota
	Y
	Z
)

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	}
	return "axis?"
}

type Cube struct {
	layers [Size]atomic.Uint64
}

// New returns a cube with every LED off.
func New() *Cube {
	return &Cube{}
}

func rowShift(y int) uint {
	return uint(y) * 8
}

func bit(x int) uint64 {
	return uint64(0x80 >> uint(x))
}

// update applies f to layer z as one atomic swap.
func (c *Cube) update(z int, f func(uint64) uint64) {
	l := &c.layers[z]
	for {
		old := l.Load()
		if l.CompareAndSwap(old, f(old)) {
			return
		}
	}
}

func (c *Cube) SetAll(on bool) {
	v := uint64(0)
	if on {
		v = allOn
	}
	for z := range c.layers {
		c.layers[z].Store(v)
	}
}

func (c *Cube) SetPlane(a Axis, i int, on bool) {
	switch a {
	case X:
		c.SetXPlane(i, on)
	case Y:
		c.SetYPlane(i, on)
	case Z:
		c.SetZPlane(i, on)
	default:
		panic("cube: invalid axis " + a.String())
	}
}

// SetXPlane lights or clears the 64 LEDs with the given x.
func (c *Cube) SetXPlane(x int, on bool) {
	m := colMask * bit(x)
	for z := 0; z < Size; z++ {
		c.update(z, func(w uint64) uint64 {
			if on {
				return w | m
			}
			return w &^ m
		})
	}
}

// SetYPlane lights or clears the 64 LEDs with the given y.
func (c *Cube) SetYPlane(y int, on bool) {
	v := byte(0)
	if on {
		v = 0xFF
	}
	for z := 0; z < Size; z++ {
		c.setRow(z, y, v)
	}
}

// SetZPlane lights or clears a whole layer.
func (c *Cube) SetZPlane(z int, on bool) {
	v := uint64(0)
	if on {
		v = allOn
	}
	c.layers[z].Store(v)
}

func (c *Cube) SetPoint(x, y, z int, on bool) {
	m := bit(x) << rowShift(y)
	c.update(z, func(w uint64) uint64 {
		if on {
			return w | m
		}
		return w &^ m
	})
}

// SetYPlaneFromMask loads a front-to-back slice from a bitmap: mask[z]
// becomes row y of layer z, MSB on the left.
func (c *Cube) SetYPlaneFromMask(y int, mask [Size]byte) {
	for z := 0; z < Size; z++ {
		c.setRow(z, y, mask[z])
	}
}

func (c *Cube) setRow(z, y int, v byte) {
	s := rowShift(y)
	m := uint64(0xFF) << s
	c.update(z, func(w uint64) uint64 {
		return (w &^ m) | uint64(v)<<s
	})
}

func (c *Cube) Point(x, y, z int) bool {
	return c.Layer(z)&(bit(x)<<rowShift(y)) != 0
}

func (c *Cube) Row(z, y int) byte {
	return byte(c.Layer(z) >> rowShift(y))
}

// Layer returns a consistent snapshot of layer z.
func (c *Cube) Layer(z int) uint64 {
	return c.layers[z].Load()
}

// Snapshot copies the cube one layer at a time.
func (c *Cube) Snapshot() Frame {
	var f Frame
	for z := range f {
		f[z] = c.Layer(z)
	}
	return f
}

// Lit counts the LEDs that are on.
func (c *Cube) Lit() int {
	return c.Snapshot().Lit()
}

// Frame is a copy of the cube, one word per layer in the same layout.
type Frame [Size]uint64

func (f Frame) Point(x, y, z int) bool {
	return f[z]&(bit(x)<<rowShift(y)) != 0
}

func (f Frame) Row(z, y int) byte {
	return byte(f[z] >> rowShift(y))
}

func (f Frame) Lit() int {
	n := 0
	for _, w := range f {
		n += bits.OnesCount64(w)
	}
	return n
}

// Index maps x,y,z to a linear LED index (0..Count-1), z-major.
func Index(x, y, z int) int {
	return z*Size*Size + y*Size + x
}

// Bytes flattens the frame into Size*Size row bytes, z-major then y.
func (f Frame) Bytes() []byte {
	out := make([]byte, 0, Size*Size)
	for z := 0; z < Size; z++ {
		for y := 0; y < Size; y++ {
			out = append(out, f.Row(z, y))
		}
	}
	return out
}
