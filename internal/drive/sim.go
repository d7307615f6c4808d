package drive

import (
	"math/bits"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcaluminis-cube8/internal/cube"
)

// Violation is a bus write the real board would turn into ghosting or a
// wrong image.
type Violation int

const (
	// MultipleLayers: more than one anode layer enabled at once.
	MultipleLayers Violation = iota
	// NoLatch: data written with zero or several latches selected.
	NoLatch
	// LiveLoad: a latch loaded while a layer is lit.
	LiveLoad

	violationCount = 3
)

func (v Violation) String() string {
	switch v {
	case MultipleLayers:
		return "multiple-layers"
	case NoLatch:
		return "no-latch"
	case LiveLoad:
		return "live-load"
	}
	return "violation?"
}

// Sim is an in-memory board. It keeps the latch registers the way the
// hardware does and records, for every layer, the image it showed the last
// time it was enabled.
type Sim struct {
	mu sync.Mutex

	latchSel byte
	latches  [cube.Size]byte // raw, active low
	anode    byte
	visible  cube.Frame

	enables    int
	violations [violationCount]int
}

func NewSim() *Sim {
	return &Sim{anode: LayersOff}
}

func (s *Sim) Ports() Ports {
	return Ports{
		Layer: BusFunc(s.writeLayer),
		Latch: BusFunc(s.writeLatch),
		Data:  BusFunc(s.writeData),
	}
}

func (s *Sim) violate(v Violation, b byte) {
	s.violations[v]++
	log.Debug().Stringer("violation", v).Uint8("value", b).Msg("sim bus")
}

func (s *Sim) writeLayer(b byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anode = b
	on := ^b
	switch bits.OnesCount8(on) {
	case 0:
	case 1:
		z := bits.TrailingZeros8(on)
		var w uint64
		for y, l := range s.latches {
			w |= uint64(^l) << (8 * uint(y))
		}
		s.visible[z] = w
		s.enables++
	default:
		s.violate(MultipleLayers, b)
	}
	return nil
}

func (s *Sim) writeLatch(b byte) error {
	s.mu.Lock()
	s.latchSel = b
	s.mu.Unlock()
	return nil
}

func (s *Sim) writeData(b byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bits.OnesCount8(s.latchSel) != 1 {
		s.violate(NoLatch, b)
		return nil
	}
	if s.anode != LayersOff {
		s.violate(LiveLoad, b)
	}
	s.latches[bits.TrailingZeros8(s.latchSel)] = b
	return nil
}

// Visible is the persistence-of-vision image: each layer as it was last lit.
func (s *Sim) Visible() cube.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Enabled reports the layer lit right now, if exactly one is.
func (s *Sim) Enabled() (z int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	on := ^s.anode
	if bits.OnesCount8(on) != 1 {
		return 0, false
	}
	return bits.TrailingZeros8(on), true
}

// Enables counts layer enables, one per scan step.
func (s *Sim) Enables() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enables
}

func (s *Sim) Violations(v Violation) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.violations[v]
}

func (s *Sim) TotalViolations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.violations {
		n += c
	}
	return n
}
