// Package drive is the output side of the cube: the three 8-bit buses that
// select a layer, select a cathode latch and load it, and the boards that
// implement them on real GPIO lines or in memory.
package drive

// Bus is one 8-bit output port. Bit i of the written byte drives line i.
type Bus interface {
	Write(b byte) error
}

// BusFunc adapts a function to a Bus.
type BusFunc func(b byte) error

func (f BusFunc) Write(b byte) error { return f(b) }

// Ports are the three buses of the board. Layer is active low: writing
// ^(1<<z) enables layer z and 0xFF disables them all. Latch selects which
// cathode latch Data is loaded into. Data is active low too: a 0 bit sinks
// the column and lights the LED.
type Ports struct {
	Layer Bus
	Latch Bus
	Data  Bus
}

// LayersOff is the layer bus value that disables every layer.
const LayersOff byte = 0xFF
