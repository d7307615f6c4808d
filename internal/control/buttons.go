// Package control reads the three cube buttons and turns them into the
// pause flag, the selected mode and the wait primitive used by animations.
//
// Button 1 is pause on/off, button 2 selects mode 0 and button 3 steps
// through the modes one at a time. All three are active low with pull-ups.
package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
)

type Button int

const (
	Pause Button = iota
	Reset
	Advance

	buttonCount = 3
)

func (b Button) String() string {
	switch b {
	case Pause:
		return "pause"
	case Reset:
		return "reset"
	case Advance:
		return "advance"
	}
	return fmt.Sprintf("button(%d)", int(b))
}

// Event is a confirmed mode change.
type Event struct {
	Button Button
	Mode   int
}

const (
	DefaultDebounce     = 20 * time.Millisecond
	DefaultPollInterval = time.Millisecond
)

type Options struct {
	// Debounce is the settle delay after a confirmed press.
	Debounce time.Duration
	// PollInterval is how often the pause button is re-read while paused.
	PollInterval time.Duration
	Clock        clockwork.Clock
}

// Buttons debounces the three inputs. It is not safe for concurrent use;
// only the animation goroutine polls it.
type Buttons struct {
	pins  [buttonCount]gpio.PinIn
	latch [buttonCount]bool
	state *State

	clock        clockwork.Clock
	debounce     time.Duration
	pollInterval time.Duration
}

// NewButtons configures the three lines as pulled-up inputs so they read as
// released before the first poll.
func NewButtons(pause, reset, advance gpio.PinIn, s *State, o Options) (*Buttons, error) {
	if s == nil {
		return nil, errors.New("control: nil state")
	}
	b := &Buttons{
		pins:         [buttonCount]gpio.PinIn{pause, reset, advance},
		state:        s,
		clock:        o.Clock,
		debounce:     o.Debounce,
		pollInterval: o.PollInterval,
	}
	if b.clock == nil {
		b.clock = clockwork.NewRealClock()
	}
	if b.debounce <= 0 {
		b.debounce = DefaultDebounce
	}
	if b.pollInterval <= 0 {
		b.pollInterval = DefaultPollInterval
	}
	for i, p := range b.pins {
		if p == nil {
			return nil, fmt.Errorf("control: no pin for %s button", Button(i))
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("control: configure %s button on %s: %w", Button(i), p, err)
		}
	}
	return b, nil
}

func (b *Buttons) pressed(btn Button) bool {
	return b.pins[btn].Read() == gpio.Low
}

// edge reports a new press of btn and tracks its latch.
func (b *Buttons) edge(btn Button) bool {
	if !b.pressed(btn) {
		b.latch[btn] = false
		return false
	}
	if b.latch[btn] {
		return false
	}
	b.latch[btn] = true
	return true
}

// Poll samples the buttons once.
//
// A pause press toggles the pause flag; while paused Poll blocks, watching
// only the pause button, until it is pressed again or ctx is done. A new
// press of reset or advance changes the mode and is returned at once, with
// changed set, without looking at the remaining buttons.
func (b *Buttons) Poll(ctx context.Context) (ev Event, changed bool, err error) {
	for {
		if b.edge(Pause) {
			paused := b.state.togglePause()
			log.Info().Bool("paused", paused).Msg("pause toggled")
			if err := sleep(ctx, b.clock, b.debounce); err != nil {
				return Event{}, false, err
			}
		}
		if !b.state.Paused() {
			break
		}
		if err := sleep(ctx, b.clock, b.pollInterval); err != nil {
			return Event{}, false, err
		}
	}

	for _, btn := range []Button{Reset, Advance} {
		if !b.edge(btn) {
			continue
		}
		ev = Event{Button: btn}
		if btn == Reset {
			ev.Mode = b.state.resetMode()
		} else {
			ev.Mode = b.state.advanceMode()
		}
		log.Info().Stringer("button", btn).Int("mode", ev.Mode).Msg("mode changed")
		return ev, true, sleep(ctx, b.clock, b.debounce)
	}
	return Event{}, false, nil
}

func sleep(ctx context.Context, c clockwork.Clock, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.After(d):
		return nil
	}
}
