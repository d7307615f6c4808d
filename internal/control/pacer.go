package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrModeChanged is returned by Wait when a button selected another mode.
var ErrModeChanged = errors.New("mode changed")

const DefaultTick = time.Millisecond

// Poller is satisfied by *Buttons.
type Poller interface {
	Poll(ctx context.Context) (Event, bool, error)
}

// Pacer is the step/wait primitive of the animations and their only
// cancellation point.
type Pacer struct {
	buttons Poller
	clock   clockwork.Clock
	tick    time.Duration
}

func NewPacer(p Poller, clock clockwork.Clock, tick time.Duration) *Pacer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Pacer{buttons: p, clock: clock, tick: tick}
}

// Ticks is the number of polls a wait of d performs. It is never less
// than one, so even a zero wait gives the buttons a look.
func (p *Pacer) Ticks(d time.Duration) int {
	n := int((d + p.tick - 1) / p.tick)
	if n < 1 {
		n = 1
	}
	return n
}

// Wait spends d polling the buttons once per tick. It returns an error
// wrapping ErrModeChanged as soon as a mode change is seen, or ctx.Err().
// Time spent paused inside a poll does not count against d.
func (p *Pacer) Wait(ctx context.Context, d time.Duration) error {
	for i, n := 0, p.Ticks(d); i < n; i++ {
		if err := sleep(ctx, p.clock, p.tick); err != nil {
			return err
		}
		ev, changed, err := p.buttons.Poll(ctx)
		if changed {
			return fmt.Errorf("%w: %s button, mode %d", ErrModeChanged, ev.Button, ev.Mode)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
