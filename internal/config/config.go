package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid config")

const (
	DriverGPIO = "gpio"
	DriverSim  = "sim"

	// MinRefreshHz is the slowest layer rate that still refreshes the whole
	// cube 50 times a second.
	MinRefreshHz = 400

	busWidth = 8
)

// Pins names the GPIO lines as known to gpioreg. Layer, Latch and Data list
// bit 0 first.
type Pins struct {
	Layer   []string `yaml:"layer"`
	Latch   []string `yaml:"latch"`
	Data    []string `yaml:"data"`
	Pause   string   `yaml:"pause"`
	Reset   string   `yaml:"reset"`
	Advance string   `yaml:"advance"`
}

// Expander is an MCP23017 on I²C. Its lines join gpioreg as
// MCP23017_<addr>_PORTA_0..PORTB_7 and are named in Pins like any other.
type Expander struct {
	Bus  string `yaml:"bus"` // i2creg name, empty for the first bus
	Addr uint16 `yaml:"addr"`
}

type Buttons struct {
	Debounce time.Duration `yaml:"debounce"`
	Tick     time.Duration `yaml:"tick"` // pacing unit of every animation wait
}

type Patterns struct {
	Text   string        `yaml:"text"`
	Flash  time.Duration `yaml:"flash"`
	Plane  time.Duration `yaml:"plane"`
	Point  time.Duration `yaml:"point"`
	Scroll time.Duration `yaml:"scroll"`
	Finale time.Duration `yaml:"finale"`
}

type Preview struct {
	Addr string `yaml:"addr"` // empty disables the server
	FPS  int    `yaml:"fps"`
}

type Console struct {
	Enabled bool `yaml:"enabled"`
	FPS     int  `yaml:"fps"`
}

type Config struct {
	Driver      string        `yaml:"driver"` // "gpio" | "sim"
	RefreshHz   int           `yaml:"refresh_hz"`
	LatchSettle time.Duration `yaml:"latch_settle"`

	Pins     Pins      `yaml:"pins,omitempty"`
	Expander *Expander `yaml:"expander,omitempty"`
	Buttons  Buttons   `yaml:"buttons"`
	Patterns Patterns  `yaml:"patterns"`
	Preview  Preview   `yaml:"preview"`
	Console  Console   `yaml:"console"`
}

func Default() *Config {
	return &Config{
		Driver:      DriverSim,
		RefreshHz:   800,
		LatchSettle: time.Microsecond,
		Buttons: Buttons{
			Debounce: 20 * time.Millisecond,
			Tick:     time.Millisecond,
		},
		Patterns: Patterns{
			Text:   "DAVE",
			Flash:  500 * time.Millisecond,
			Plane:  150 * time.Millisecond,
			Point:  20 * time.Millisecond,
			Scroll: 80 * time.Millisecond,
			Finale: time.Second,
		},
		Preview: Preview{FPS: 30},
		Console: Console{FPS: 5},
	}
}

// Load reads path over the defaults, so a file only needs the keys it
// changes.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func invalid(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, a...))
}

func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSim:
	case DriverGPIO:
		if err := c.Pins.validate(); err != nil {
			return err
		}
		if x := c.Expander; x != nil && (x.Addr < 0x20 || x.Addr > 0x27) {
			return invalid("expander.addr %#x is outside 0x20-0x27", x.Addr)
		}
	default:
		return invalid("driver %q, want %s or %s", c.Driver, DriverGPIO, DriverSim)
	}
	if c.RefreshHz < MinRefreshHz {
		return invalid("refresh_hz %d is below %d, the cube would flicker", c.RefreshHz, MinRefreshHz)
	}
	if c.LatchSettle < 0 {
		return invalid("latch_settle %s is negative", c.LatchSettle)
	}
	// sixteen settles per step must leave room in the period
	if period := time.Second / time.Duration(c.RefreshHz); 2*busWidth*c.LatchSettle >= period {
		return invalid("latch_settle %s does not fit a %s scan period", c.LatchSettle, period)
	}
	if c.Buttons.Debounce <= 0 || c.Buttons.Tick <= 0 {
		return invalid("buttons.debounce and buttons.tick must be positive")
	}
	p := c.Patterns
	for name, d := range map[string]time.Duration{
		"flash": p.Flash, "plane": p.Plane, "point": p.Point, "scroll": p.Scroll, "finale": p.Finale,
	} {
		if d <= 0 {
			return invalid("patterns.%s must be positive", name)
		}
	}
	if c.Preview.Addr != "" && c.Preview.FPS <= 0 {
		return invalid("preview.fps must be positive")
	}
	if c.Console.Enabled && c.Console.FPS <= 0 {
		return invalid("console.fps must be positive")
	}
	return nil
}

func (p Pins) validate() error {
	for name, bus := range map[string][]string{"layer": p.Layer, "latch": p.Latch, "data": p.Data} {
		if len(bus) != busWidth {
			return invalid("pins.%s has %d lines, want %d", name, len(bus), busWidth)
		}
		for i, n := range bus {
			if strings.TrimSpace(n) == "" {
				return invalid("pins.%s[%d] is empty", name, i)
			}
		}
	}
	for name, n := range map[string]string{"pause": p.Pause, "reset": p.Reset, "advance": p.Advance} {
		if strings.TrimSpace(n) == "" {
			return invalid("pins.%s is empty", name)
		}
	}
	return nil
}
