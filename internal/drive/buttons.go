package drive

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/coreman2200/arcaluminis-cube8/internal/control"
)

// SimButtons stands in for the three push buttons of the board.
type SimButtons struct {
	Pause, Reset, Advance *gpiotest.Pin

	clock clockwork.Clock
}

func NewSimButtons(clock clockwork.Clock) *SimButtons {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SimButtons{
		Pause:   &gpiotest.Pin{N: "SIM_PAUSE", Num: 1, L: gpio.High},
		Reset:   &gpiotest.Pin{N: "SIM_RESET", Num: 2, L: gpio.High},
		Advance: &gpiotest.Pin{N: "SIM_ADVANCE", Num: 3, L: gpio.High},
		clock:   clock,
	}
}

func (s *SimButtons) pin(b control.Button) *gpiotest.Pin {
	switch b {
	case control.Pause:
		return s.Pause
	case control.Reset:
		return s.Reset
	case control.Advance:
		return s.Advance
	}
	panic(fmt.Sprintf("drive: no simulated button %s", b))
}

// Press holds b down for hold and releases it. It blocks for hold; the
// hold has to outlast a poll tick or the press can be missed.
func (s *SimButtons) Press(b control.Button, hold time.Duration) {
	p := s.pin(b)
	_ = p.Out(gpio.Low)
	s.clock.Sleep(hold)
	_ = p.Out(gpio.High)
}
