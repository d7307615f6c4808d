package drive

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/coreman2200/arcaluminis-cube8/internal/config"
)

// PinBus drives eight GPIO outputs, bit i on pin i.
type PinBus struct {
	pins [8]gpio.PinOut
}

func NewPinBus(pins [8]gpio.PinOut) *PinBus {
	return &PinBus{pins: pins}
}

func (b *PinBus) Write(v byte) error {
	for i, p := range b.pins {
		if err := p.Out(gpio.Level(v&(1<<uint(i)) != 0)); err != nil {
			return fmt.Errorf("drive: %s: %w", p, err)
		}
	}
	return nil
}

func (b *PinBus) String() string {
	return fmt.Sprintf("%s..%s", b.pins[0], b.pins[7])
}

// Board is a cube wired to real GPIO lines.
type Board struct {
	Ports
	Pause, Reset, Advance gpio.PinIn

	layer *PinBus
	all   []gpio.PinIO
}

// OpenPins resolves every line of p through gpioreg. host.Init must have
// run first. The layer bus is driven off before anything else.
func OpenPins(p config.Pins) (*Board, error) {
	b := &Board{}
	var err error
	bus := func(name string, names []string) *PinBus {
		if err != nil {
			return nil
		}
		if len(names) != 8 {
			err = fmt.Errorf("drive: %s bus has %d pins, want 8", name, len(names))
			return nil
		}
		var pins [8]gpio.PinOut
		for i, n := range names {
			pin := gpioreg.ByName(n)
			if pin == nil {
				err = fmt.Errorf("drive: %s bus pin %d: no gpio named %q", name, i, n)
				return nil
			}
			pins[i] = pin
			b.all = append(b.all, pin)
		}
		return NewPinBus(pins)
	}
	in := func(name, n string) gpio.PinIn {
		if err != nil {
			return nil
		}
		pin := gpioreg.ByName(n)
		if pin == nil {
			err = fmt.Errorf("drive: %s button: no gpio named %q", name, n)
			return nil
		}
		b.all = append(b.all, pin)
		return pin
	}

	b.layer = bus("layer", p.Layer)
	latch := bus("latch", p.Latch)
	data := bus("data", p.Data)
	b.Pause = in("pause", p.Pause)
	b.Reset = in("reset", p.Reset)
	b.Advance = in("advance", p.Advance)
	if err != nil {
		return nil, errors.Join(err, b.release())
	}
	b.Ports = Ports{Layer: b.layer, Latch: latch, Data: data}
	if err := b.layer.Write(LayersOff); err != nil {
		return nil, errors.Join(err, b.release())
	}
	log.Info().Stringer("layer", b.layer).Stringer("latch", latch).Stringer("data", data).Msg("gpio board ready")
	return b, nil
}

// Halt turns every layer off and releases the lines.
func (b *Board) Halt() error {
	var errs []error
	if b.layer != nil {
		errs = append(errs, b.layer.Write(LayersOff))
	}
	errs = append(errs, b.release())
	return errors.Join(errs...)
}

func (b *Board) release() error {
	var errs []error
	for _, p := range b.all {
		errs = append(errs, p.Halt())
	}
	return errors.Join(errs...)
}
