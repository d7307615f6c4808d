package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcaluminis-cube8/internal/control"
)

var keys = map[string]control.Button{
	"p": control.Pause,
	"r": control.Reset,
	"a": control.Advance,
}

// feedButtons turns lines of r into button presses until r ends or ctx is
// done. Unknown lines are logged and skipped.
func feedButtons(ctx context.Context, r io.Reader, press func(control.Button)) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		if line == "" {
			continue
		}
		btn, ok := keys[line]
		if !ok {
			log.Warn().Str("input", line).Msg("want p, r or a")
			continue
		}
		press(btn)
	}
	return sc.Err()
}
