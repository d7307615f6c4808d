package scan

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
)

// DefaultRate refreshes the whole cube 100 times a second.
const DefaultRate = 800 * physic.Hertz

// Run steps the scanner at rate layers per second until ctx ends, then
// blanks the board. A step that outlasts its period is an overrun: it is
// counted, the ticker drops the missed ticks and the scan carries on.
func (s *Scanner) Run(ctx context.Context, rate physic.Frequency) error {
	if rate <= 0 {
		return fmt.Errorf("scan: rate %s", rate)
	}
	period := rate.Period()
	sampled := log.Sample(&zerolog.BasicSampler{N: 1000})

	t := s.clock.NewTicker(period)
	defer t.Stop()
	defer func() {
		if err := s.Blank(); err != nil {
			log.Error().Err(err).Msg("scan: blank on exit")
		}
	}()

	log.Info().Stringer("rate", rate).Dur("period", period).Msg("scan started")
	for {
		select {
		case <-ctx.Done():
			st := s.Stats()
			log.Info().Uint64("frames", st.Frames).Uint64("overruns", st.Overruns).Msg("scan stopped")
			return nil
		case <-t.Chan():
			start := s.clock.Now()
			if err := s.Step(); err != nil {
				sampled.Warn().Err(err).Msg("scan step")
			}
			if took := s.clock.Since(start); took > period {
				s.overruns.Add(1)
				sampled.Warn().Dur("took", took).Dur("period", period).Msg("scan overrun")
			}
		}
	}
}
