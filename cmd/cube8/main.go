package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/coreman2200/arcaluminis-cube8/internal/animate"
	"github.com/coreman2200/arcaluminis-cube8/internal/config"
	"github.com/coreman2200/arcaluminis-cube8/internal/control"
	"github.com/coreman2200/arcaluminis-cube8/internal/cube"
	"github.com/coreman2200/arcaluminis-cube8/internal/drive"
	"github.com/coreman2200/arcaluminis-cube8/internal/preview"
	"github.com/coreman2200/arcaluminis-cube8/internal/scan"
)

// simHold is how long a terminal key press holds a simulated button.
const simHold = 50 * time.Millisecond

func main() {
	// ---- Flags (explicitly set flags win over cube8.yaml) ----
	var (
		configPath = flag.String("config", "cube8.yaml", "path to cube8.yaml")
		driver     = flag.String("driver", config.DriverSim, "driver: gpio | sim")
		refresh    = flag.Int("refresh", 800, "layer refresh rate in Hz (8 layers per cube)")
		text       = flag.String("text", "DAVE", "text for the scroll pattern")
		addr       = flag.String("addr", "", "preview HTTP listen address, empty to disable")
		console    = flag.Bool("console", false, "draw the cube on the terminal")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// ---- Config ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with defaults and flags")
		cfg = config.Default()
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "driver":
			cfg.Driver = *driver
		case "refresh":
			cfg.RefreshHz = *refresh
		case "text":
			cfg.Patterns.Text = *text
		case "addr":
			cfg.Preview.Addr = *addr
		case "console":
			cfg.Console.Enabled = *console
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("cube8")
	}
	log.Info().Msg("bye")
}

// board is whatever run drives: its output ports, its three buttons and
// how to let go of it.
type board struct {
	ports                 drive.Ports
	pause, reset, advance gpio.PinIn
	visible               func() cube.Frame
	halt                  func() error
	settle                time.Duration
}

func openBoard(ctx context.Context, cfg *config.Config, c *cube.Cube) (*board, error) {
	switch cfg.Driver {
	case config.DriverGPIO:
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("host init: %w", err)
		}
		release, err := openExpander(cfg.Expander)
		if err != nil {
			return nil, err
		}
		b, err := drive.OpenPins(cfg.Pins)
		if err != nil {
			return nil, errors.Join(err, release())
		}
		return &board{
			ports: b.Ports,
			pause: b.Pause, reset: b.Reset, advance: b.Advance,
			visible: c.Snapshot,
			halt: func() error {
				return errors.Join(b.Halt(), release())
			},
			settle: cfg.LatchSettle,
		}, nil
	default:
		sim := drive.NewSim()
		buttons := drive.NewSimButtons(nil)
		go func() {
			err := feedButtons(ctx, os.Stdin, func(btn control.Button) { buttons.Press(btn, simHold) })
			if err != nil {
				log.Warn().Err(err).Msg("stdin")
			}
		}()
		log.Info().Msg("simulated board: type p, r or a and enter to press pause, reset or advance")
		return &board{
			ports: sim.Ports(),
			pause: buttons.Pause, reset: buttons.Reset, advance: buttons.Advance,
			visible: sim.Visible,
			halt: func() error {
				if n := sim.TotalViolations(); n > 0 {
					log.Warn().Int("violations", n).Msg("sim bus")
				}
				return nil
			},
		}, nil
	}
}

// openExpander registers the expander lines, if there is one, so OpenPins
// can resolve them. The returned func lets go of the expander and its bus.
func openExpander(x *config.Expander) (func() error, error) {
	if x == nil {
		return func() error { return nil }, nil
	}
	bus, err := i2creg.Open(x.Bus)
	if err != nil {
		return nil, fmt.Errorf("i2c %q: %w", x.Bus, err)
	}
	dev, err := drive.OpenExpander(bus, x.Addr)
	if err != nil {
		return nil, errors.Join(err, bus.Close())
	}
	return func() error {
		return errors.Join(dev.Close(), bus.Close())
	}, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := cube.New()
	state := control.NewState()

	b, err := openBoard(ctx, cfg, c)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.halt(); err != nil {
			log.Error().Err(err).Msg("halt")
		}
	}()

	buttons, err := control.NewButtons(b.pause, b.reset, b.advance, state, control.Options{
		Debounce: cfg.Buttons.Debounce,
	})
	if err != nil {
		return err
	}
	pacer := control.NewPacer(buttons, nil, cfg.Buttons.Tick)
	table, err := animate.Defaults(cfg.Patterns).Table(animate.Modes)
	if err != nil {
		return err
	}
	anim, err := animate.New(c, state, pacer, table)
	if err != nil {
		return err
	}
	scanner := scan.New(c, b.ports, b.settle, nil)

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := scanner.Run(ctx, physic.Frequency(cfg.RefreshHz)*physic.Hertz); err != nil {
			log.Error().Err(err).Msg("scan")
			cancel()
		}
	}()

	if cfg.Preview.Addr != "" {
		srv := preview.New(preview.Source{Cube: c, State: state, Stats: scanner.Stats, Driver: cfg.Driver}, nil)
		wg.Add(2)
		go func() {
			defer wg.Done()
			srv.Run(ctx, cfg.Preview.FPS)
		}()
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, cfg.Preview.Addr); err != nil {
				log.Error().Err(err).Msg("preview server")
			}
		}()
	}
	if cfg.Console.Enabled {
		con := drive.NewConsole(nil, os.Stdout, nil)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := con.Run(ctx, cfg.Console.FPS, b.visible); err != nil {
				log.Error().Err(err).Msg("console")
			}
		}()
	}

	log.Info().Str("driver", cfg.Driver).Int("refresh_hz", cfg.RefreshHz).Str("text", cfg.Patterns.Text).Msg("cube running")
	err = anim.Run(ctx)
	cancel()
	wg.Wait()
	return err
}
