package animate

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcaluminis-cube8/internal/control"
	"github.com/coreman2200/arcaluminis-cube8/internal/cube"
)

// Animator is the dispatch loop: it runs the pattern of the current mode,
// over and over, and switches when a wait reports a mode change.
type Animator struct {
	cube  *cube.Cube
	state *control.State
	wait  Waiter
	table []Pattern

	runs        atomic.Uint64
	completed   atomic.Uint64
	interrupted atomic.Uint64
}

func New(c *cube.Cube, s *control.State, w Waiter, table []Pattern) (*Animator, error) {
	if len(table) != control.ModeCount {
		return nil, fmt.Errorf("animate: %d patterns for %d modes", len(table), control.ModeCount)
	}
	for i, p := range table {
		if p == nil {
			return nil, fmt.Errorf("animate: no pattern for mode %d", i)
		}
	}
	return &Animator{cube: c, state: s, wait: w, table: table}, nil
}

// Pattern returns the pattern mode runs.
func (a *Animator) Pattern(mode int) Pattern {
	return a.table[mode]
}

// Run loops until ctx ends. The mode is read once before each pattern run;
// a pattern that completes starts again unless the mode moved meanwhile.
// It returns nil on cancellation and any error that is neither a mode
// change nor ctx's.
func (a *Animator) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		mode := a.state.Mode()
		p := a.table[mode]
		a.runs.Add(1)
		log.Debug().Int("mode", mode).Str("pattern", p.Name()).Msg("pattern start")

		err := p.Run(ctx, a.cube, a.wait)
		switch {
		case err == nil:
			a.completed.Add(1)
		case Interrupted(err):
			a.interrupted.Add(1)
			log.Debug().Err(err).Str("pattern", p.Name()).Msg("pattern interrupted")
		case ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("animate: %s: %w", p.Name(), err)
		}
	}
	return nil
}

type Counts struct {
	Runs        uint64 `json:"runs"`
	Completed   uint64 `json:"completed"`
	Interrupted uint64 `json:"interrupted"`
}

func (a *Animator) Counts() Counts {
	return Counts{
		Runs:        a.runs.Load(),
		Completed:   a.completed.Load(),
		Interrupted: a.interrupted.Load(),
	}
}
