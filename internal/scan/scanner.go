// Package scan multiplexes the frame buffer onto the board, one layer per
// tick.
package scan

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/coreman2200/arcaluminis-cube8/internal/cube"
	"github.com/coreman2200/arcaluminis-cube8/internal/drive"
)

// Stats are running counters of a scanner. A frame is a full pass over the
// eight layers.
type Stats struct {
	Steps    uint64 `json:"steps"`
	Frames   uint64 `json:"frames"`
	Overruns uint64 `json:"overruns"`
	Errors   uint64 `json:"errors"`
}

type Scanner struct {
	cube   *cube.Cube
	ports  drive.Ports
	settle time.Duration
	clock  clockwork.Clock

	layer atomic.Int32 // written only by Step

	steps, frames, overruns, errors atomic.Uint64
}

// New returns a scanner for c on ports. settle is the pause between latch
// select and data, and after data; it is spun, not slept, so keep it to a
// few microseconds, and zero with a fake clock.
func New(c *cube.Cube, ports drive.Ports, settle time.Duration, clock clockwork.Clock) *Scanner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scanner{cube: c, ports: ports, settle: settle, clock: clock}
}

// Layer is the layer the next Step will show.
func (s *Scanner) Layer() int {
	return int(s.layer.Load())
}

func (s *Scanner) Stats() Stats {
	return Stats{
		Steps:    s.steps.Load(),
		Frames:   s.frames.Load(),
		Overruns: s.overruns.Load(),
		Errors:   s.errors.Load(),
	}
}

func (s *Scanner) wait() {
	if s.settle <= 0 {
		return
	}
	for start := s.clock.Now(); s.clock.Since(start) < s.settle; {
	}
}

// Step blanks the board, loads the eight cathode latches with the next
// layer and enables that layer alone. The layer is read as one snapshot.
func (s *Scanner) Step() error {
	if err := s.step(); err != nil {
		s.errors.Add(1)
		return err
	}
	return nil
}

func (s *Scanner) step() error {
	z := int(s.layer.Load())
	if err := s.ports.Layer.Write(drive.LayersOff); err != nil {
		return fmt.Errorf("scan: blank: %w", err)
	}
	word := s.cube.Layer(z)
	for i := 0; i < cube.Size; i++ {
		if err := s.ports.Latch.Write(1 << uint(i)); err != nil {
			return fmt.Errorf("scan: select latch %d: %w", i, err)
		}
		s.wait()
		if err := s.ports.Data.Write(^byte(word >> (8 * uint(i)))); err != nil {
			return fmt.Errorf("scan: load latch %d: %w", i, err)
		}
		s.wait()
	}
	if err := s.ports.Layer.Write(^byte(1 << uint(z))); err != nil {
		return fmt.Errorf("scan: enable layer %d: %w", z, err)
	}
	next := (z + 1) % cube.Size
	s.layer.Store(int32(next))
	s.steps.Add(1)
	if next == 0 {
		s.frames.Add(1)
	}
	return nil
}

// Blank turns every layer off.
func (s *Scanner) Blank() error {
	return s.ports.Layer.Write(drive.LayersOff)
}
