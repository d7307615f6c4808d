// Package animate holds the cube animations and the loop that runs the one
// the buttons selected.
//
// A pattern mutates the cube between waits and has no other way to yield:
// every Wait is both its pacing and its only cancellation point.
package animate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/coreman2200/arcaluminis-cube8/internal/control"
	"github.com/coreman2200/arcaluminis-cube8/internal/cube"
)

// Waiter paces a pattern. *control.Pacer is the production Waiter.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

// Pattern is one animation. Run returns nil when the animation completed,
// or the first error a wait returned, unchanged or wrapped.
type Pattern interface {
	Name() string
	Run(ctx context.Context, c *cube.Cube, w Waiter) error
}

// Interrupted reports whether err ended a pattern because the mode changed.
func Interrupted(err error) bool {
	return errors.Is(err, control.ErrModeChanged)
}

type Registry struct{ m map[string]Pattern }

func NewRegistry(ps ...Pattern) *Registry {
	r := &Registry{m: map[string]Pattern{}}
	for _, p := range ps {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Pattern) {
	if p == nil {
		return
	}
	r.m[p.Name()] = p
}

func (r *Registry) Get(name string) (Pattern, bool) { p, ok := r.m[name]; return p, ok }

func (r *Registry) List() []string {
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Table resolves names, in mode order, to patterns.
func (r *Registry) Table(names []string) ([]Pattern, error) {
	out := make([]Pattern, len(names))
	for i, n := range names {
		p, ok := r.Get(n)
		if !ok {
			return nil, fmt.Errorf("animate: mode %d: no pattern %q", i, n)
		}
		out[i] = p
	}
	return out, nil
}
