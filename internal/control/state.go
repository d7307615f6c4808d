package control

import "sync/atomic"

// ModeCount is the number of selectable animation modes.
const ModeCount = 5

// State is the selected mode and the pause flag. Buttons is its only writer;
// everything else reads it.
type State struct {
	mode   atomic.Int32
	paused atomic.Bool
}

func NewState() *State {
	return &State{}
}

// Mode returns the selected mode in [0, ModeCount).
func (s *State) Mode() int {
	return int(s.mode.Load())
}

func (s *State) Paused() bool {
	return s.paused.Load()
}

func (s *State) resetMode() int {
	s.mode.Store(0)
	return 0
}

func (s *State) advanceMode() int {
	m := (s.mode.Load() + 1) % ModeCount
	s.mode.Store(m)
	return int(m)
}

func (s *State) togglePause() bool {
	p := !s.paused.Load()
	s.paused.Store(p)
	return p
}
