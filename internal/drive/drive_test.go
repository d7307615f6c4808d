package drive

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/arcaluminis-cube8/internal/config"
	"github.com/coreman2200/arcaluminis-cube8/internal/control"
	"github.com/coreman2200/arcaluminis-cube8/internal/cube"
)

func TestPinBusWritesBits(t *testing.T) {
	var raw [8]*gpiotest.Pin
	var pins [8]gpio.PinOut
	for i := range raw {
		raw[i] = &gpiotest.Pin{N: "D" + string(rune('0'+i)), Num: i}
		pins[i] = raw[i]
	}
	b := NewPinBus(pins)

	for _, v := range []byte{0x00, 0xFF, 0xA5, 0x01, 0x80} {
		require.NoError(t, b.Write(v))
		for i, p := range raw {
			assert.Equal(t, gpio.Level(v>>uint(i)&1 == 1), p.Read(), "value %#02x bit %d", v, i)
		}
	}
	assert.Equal(t, "D0(0)..D7(7)", b.String())
}

func TestOpenPinsUnknownName(t *testing.T) {
	p := config.Pins{
		Layer: []string{"NOPE0", "NOPE1", "NOPE2", "NOPE3", "NOPE4", "NOPE5", "NOPE6", "NOPE7"},
	}
	_, err := OpenPins(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOPE0")

	_, err = OpenPins(config.Pins{Layer: []string{"x"}})
	assert.Error(t, err)
}

// registerPins registers n fresh lines named prefix0.. in gpioreg for the
// length of the test.
func registerPins(t *testing.T, prefix string, n int) ([]*gpiotest.Pin, []string) {
	t.Helper()
	pins := make([]*gpiotest.Pin, n)
	names := make([]string, n)
	for i := range pins {
		names[i] = fmt.Sprintf("%s%d", prefix, i)
		pins[i] = &gpiotest.Pin{N: names[i], Num: 100 + i}
		require.NoError(t, gpioreg.Register(pins[i]))
		name := names[i]
		t.Cleanup(func() { _ = gpioreg.Unregister(name) })
	}
	return pins, names
}

func TestOpenPinsResolvesEveryLine(t *testing.T) {
	pins, names := registerPins(t, "OPEN_", 27)
	for _, p := range pins[:8] {
		p.L = gpio.Low
	}
	b, err := OpenPins(config.Pins{
		Layer: names[0:8], Latch: names[8:16], Data: names[16:24],
		Pause: names[24], Reset: names[25], Advance: names[26],
	})
	require.NoError(t, err)

	for i, p := range pins[:8] {
		assert.Equal(t, gpio.High, p.Read(), "layer line %d is off after open", i)
	}
	assert.Same(t, pins[24], b.Pause)
	assert.Same(t, pins[25], b.Reset)
	assert.Same(t, pins[26], b.Advance)

	require.NoError(t, b.Latch.Write(0x01))
	assert.Equal(t, gpio.High, pins[8].Read())
	assert.Equal(t, gpio.Low, pins[9].Read())
	require.NoError(t, b.Data.Write(0x80))
	assert.Equal(t, gpio.High, pins[23].Read())
	require.NoError(t, b.Layer.Write(^byte(1<<2)))
	assert.Equal(t, gpio.Low, pins[2].Read())

	require.NoError(t, b.Halt())
	for i, p := range pins[:8] {
		assert.Equal(t, gpio.High, p.Read(), "layer line %d is off after halt", i)
	}
}

type haltPin struct {
	*gpiotest.Pin
	halts int
}

func (p *haltPin) Halt() error {
	p.halts++
	return nil
}

func TestOpenPinsReleasesLinesOnError(t *testing.T) {
	var layer []*haltPin
	var names []string
	for i := 0; i < 8; i++ {
		p := &haltPin{Pin: &gpiotest.Pin{N: fmt.Sprintf("PART_%d", i), Num: 200 + i}}
		require.NoError(t, gpioreg.Register(p))
		t.Cleanup(func() { _ = gpioreg.Unregister(p.Name()) })
		layer = append(layer, p)
		names = append(names, p.Name())
	}

	_, err := OpenPins(config.Pins{
		Layer: names,
		Latch: []string{"GONE0", "GONE1", "GONE2", "GONE3", "GONE4", "GONE5", "GONE6", "GONE7"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GONE0")
	for i, p := range layer {
		assert.Equal(t, 1, p.halts, "layer line %d", i)
	}
}

// mcpRegs answers register reads and writes the way an MCP23017 does in
// its power-on bank mode: all lines inputs, pulled-up levels on both ports.
type mcpRegs struct {
	mu   sync.Mutex
	regs [0x16]byte
}

func newMCPRegs() *mcpRegs {
	r := &mcpRegs{}
	r.regs[0x00], r.regs[0x01] = 0xFF, 0xFF
	r.regs[0x12], r.regs[0x13] = 0xFF, 0xFF
	return r
}

func (r *mcpRegs) String() string                  { return "mcp23017" }
func (r *mcpRegs) SetSpeed(physic.Frequency) error { return nil }

func (r *mcpRegs) Tx(_ uint16, w, read []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(w) == 0 || int(w[0]) >= len(r.regs) {
		return fmt.Errorf("mcp23017: bad register %v", w)
	}
	copy(r.regs[w[0]:], w[1:])
	copy(read, r.regs[w[0]:])
	return nil
}

func (r *mcpRegs) reg(a byte) byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.regs[a]
}

func (r *mcpRegs) set(a, v byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs[a] = v
}

func TestExpanderCarriesLayerBusAndButtons(t *testing.T) {
	regs := newMCPRegs()
	rec := &i2ctest.Record{Bus: regs}
	x, err := OpenExpander(rec, 0x20)
	require.NoError(t, err)
	defer x.Close()

	porta, portb := x.Port(0), x.Port(1)
	require.Len(t, porta, 8)
	require.Len(t, portb, 8)
	assert.Equal(t, "MCP23017_20_PORTA_0", porta[0])
	assert.Equal(t, "MCP23017_20_PORTB_7", portb[7])
	assert.Nil(t, x.Port(2))

	_, header := registerPins(t, "HDR_", 16)
	b, err := OpenPins(config.Pins{
		Layer: porta, Latch: header[:8], Data: header[8:],
		Pause: portb[0], Reset: portb[1], Advance: portb[2],
	})
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), regs.reg(0x00), "port A drives")
	assert.Equal(t, byte(0xFF), regs.reg(0x14), "layers off")

	require.NoError(t, b.Layer.Write(^byte(1<<3)))
	assert.Equal(t, byte(0xF7), regs.reg(0x14))

	require.NoError(t, b.Advance.In(gpio.PullUp, gpio.NoEdge))
	assert.Equal(t, byte(0x04), regs.reg(0x0D)&0x04, "advance pulled up")
	assert.Equal(t, gpio.High, b.Advance.Read())
	regs.set(0x13, 0xFB)
	assert.Equal(t, gpio.Low, b.Advance.Read())

	require.NoError(t, b.Halt())
	assert.Equal(t, byte(0xFF), regs.reg(0x14), "layers off after halt")
	assert.Equal(t, byte(0xFF), regs.reg(0x00), "port A released to inputs")
	require.NotEmpty(t, rec.Ops)
	assert.Equal(t, i2ctest.IO{Addr: 0x20, W: []byte{0x00}, R: []byte{0xFF}}, rec.Ops[0])
}

func TestOpenExpanderRejectsAddress(t *testing.T) {
	_, err := OpenExpander(&i2ctest.Record{Bus: newMCPRegs()}, 0x40)
	assert.Error(t, err)
}

// load drives one full layer through the ports the way the scanner does.
func load(t *testing.T, p Ports, z int, rows [cube.Size]byte) {
	t.Helper()
	require.NoError(t, p.Layer.Write(LayersOff))
	for i, r := range rows {
		require.NoError(t, p.Latch.Write(1<<uint(i)))
		require.NoError(t, p.Data.Write(^r))
	}
	require.NoError(t, p.Layer.Write(^byte(1<<uint(z))))
}

func TestSimCapturesLayerOnEnable(t *testing.T) {
	s := NewSim()
	p := s.Ports()
	rows := [cube.Size]byte{0x80, 0, 0, 0, 0, 0, 0, 0x01}
	load(t, p, 3, rows)

	f := s.Visible()
	assert.True(t, f.Point(0, 0, 3))
	assert.True(t, f.Point(7, 7, 3))
	assert.Equal(t, 2, f.Lit())
	z, ok := s.Enabled()
	assert.True(t, ok)
	assert.Equal(t, 3, z)
	assert.Equal(t, 1, s.Enables())
	assert.Zero(t, s.TotalViolations())

	require.NoError(t, p.Layer.Write(LayersOff))
	_, ok = s.Enabled()
	assert.False(t, ok)
	assert.Equal(t, 2, s.Visible().Lit(), "blanking keeps the last image")
}

func TestSimViolations(t *testing.T) {
	s := NewSim()
	p := s.Ports()

	require.NoError(t, p.Layer.Write(0xFC))
	assert.Equal(t, 1, s.Violations(MultipleLayers))

	require.NoError(t, p.Layer.Write(LayersOff))
	require.NoError(t, p.Latch.Write(0x00))
	require.NoError(t, p.Data.Write(0x00))
	require.NoError(t, p.Latch.Write(0x03))
	require.NoError(t, p.Data.Write(0x00))
	assert.Equal(t, 2, s.Violations(NoLatch))

	require.NoError(t, p.Latch.Write(0x01))
	require.NoError(t, p.Layer.Write(^byte(1)))
	require.NoError(t, p.Data.Write(0x00))
	assert.Equal(t, 1, s.Violations(LiveLoad))
	assert.Equal(t, 4, s.TotalViolations())
	assert.Equal(t, "live-load", LiveLoad.String())
}

func TestSimButtonsPress(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewSimButtons(clock)
	for _, p := range []*gpiotest.Pin{b.Pause, b.Reset, b.Advance} {
		assert.Equal(t, gpio.High, p.Read())
	}

	done := make(chan struct{})
	go func() {
		b.Press(control.Advance, 50*time.Millisecond)
		close(done)
	}()
	clock.BlockUntil(1)
	assert.Equal(t, gpio.Low, b.Advance.Read())
	assert.Equal(t, gpio.High, b.Reset.Read())
	clock.Advance(50 * time.Millisecond)
	<-done
	assert.Equal(t, gpio.High, b.Advance.Read())
}

func TestSimButtonsUnknownButton(t *testing.T) {
	b := NewSimButtons(clockwork.NewFakeClock())
	assert.Panics(t, func() { b.Press(control.Button(7), time.Millisecond) })
	for _, p := range []*gpiotest.Pin{b.Pause, b.Reset, b.Advance} {
		assert.Equal(t, gpio.High, p.Read())
	}
}

func TestStrip(t *testing.T) {
	c := cube.New()
	c.SetPoint(2, 1, 4, true)
	f := c.Snapshot()

	img := Strip(f, 4)
	assert.Equal(t, image.Rect(0, 0, StripWidth, 1), img.Bounds())
	assert.Equal(t, litColor, img.NRGBAAt(1*cube.Size+2, 0))
	assert.Equal(t, darkColor, img.NRGBAAt(0, 0))
	assert.Equal(t, darkColor, Strip(f, 3).NRGBAAt(1*cube.Size+2, 0))
}

type recordingDrawer struct {
	mu     sync.Mutex
	draws  []image.Image
	halted bool
}

func (d *recordingDrawer) String() string          { return "recorder" }
func (d *recordingDrawer) ColorModel() color.Model { return color.NRGBAModel }
func (d *recordingDrawer) Bounds() image.Rectangle { return image.Rect(0, 0, StripWidth, 1) }

func (d *recordingDrawer) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.halted = true
	return nil
}

func (d *recordingDrawer) Draw(_ image.Rectangle, src image.Image, _ image.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draws = append(d.draws, src)
	return nil
}

func TestConsoleDrawsTopLayerFirst(t *testing.T) {
	d := &recordingDrawer{}
	var out bytes.Buffer
	con := NewConsole(d, &out, nil)

	c := cube.New()
	c.SetZPlane(7, true)
	require.NoError(t, con.Draw(c.Snapshot()))

	require.Len(t, d.draws, cube.Size)
	top := d.draws[0].(*image.NRGBA)
	bottom := d.draws[cube.Size-1].(*image.NRGBA)
	assert.Equal(t, litColor, top.NRGBAAt(0, 0))
	assert.Equal(t, darkColor, bottom.NRGBAAt(0, 0))
	assert.Equal(t, cube.Size, bytes.Count(out.Bytes(), []byte("\n")))
}

func TestConsoleRedrawsInPlace(t *testing.T) {
	var out bytes.Buffer
	con := NewConsole(&recordingDrawer{}, &out, nil)
	f := cube.New().Snapshot()

	require.NoError(t, con.Draw(f))
	assert.NotContains(t, out.String(), "\033[")
	first := out.Len()

	require.NoError(t, con.Draw(f))
	second := out.String()[first:]
	assert.True(t, strings.HasPrefix(second, "\033[8A"), "%q", second)
	assert.Equal(t, cube.Size, strings.Count(second, "\n"))
}

func TestConsoleRunStopsWithContext(t *testing.T) {
	d := &recordingDrawer{}
	con := NewConsole(d, &bytes.Buffer{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, con.Run(ctx, 100, cube.New().Snapshot))
	d.mu.Lock()
	defer d.mu.Unlock()
	assert.NotEmpty(t, d.draws)
	assert.True(t, d.halted)
}
