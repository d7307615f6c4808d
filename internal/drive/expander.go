package drive

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/mcp23xxx"
)

// Expander is an MCP23017 on I²C. Opening it registers its sixteen lines
// in gpioreg, so config.Pins can name them like header pins.
//
// Every line change is an I²C write. The layer bus moves two lines per
// step and the buttons are only read, so those belong on the expander;
// the latch and data buses stay on the header.
type Expander struct {
	dev  *mcp23xxx.Dev
	addr uint16
}

func OpenExpander(bus i2c.Bus, addr uint16) (*Expander, error) {
	dev, err := mcp23xxx.NewI2C(bus, mcp23xxx.MCP23017, addr)
	if err != nil {
		return nil, fmt.Errorf("drive: expander %#x on %s: %w", addr, bus, err)
	}
	x := &Expander{dev: dev, addr: addr}
	log.Info().Str("bus", bus.String()).Strs("porta", x.Port(0)).Strs("portb", x.Port(1)).Msg("expander ready")
	return x, nil
}

// Port returns the gpioreg names of port i (0 is A, 1 is B), bit 0 first.
func (x *Expander) Port(i int) []string {
	if i < 0 || i >= len(x.dev.Pins) {
		return nil
	}
	names := make([]string, len(x.dev.Pins[i]))
	for j, p := range x.dev.Pins[i] {
		names[j] = p.Name()
	}
	return names
}

// Close unregisters the lines. Halt the board that uses them first.
func (x *Expander) Close() error {
	return x.dev.Close()
}
