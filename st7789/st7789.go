// Package st7789 controls an ST7789 RGB565 colour LCD via SPI.
//
// The ST7789 drives panels up to 240x320 pixels. The common 1.69" module is 240x280 and
// sits 20 rows into the controller's RAM.
//
// See the examples for how to use this package.
package st7789

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync/atomic"
	"time"

	"github.com/flavioheleno/firepanel/rgb565"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Controller RAM size.
const (
	ramW = 240
	ramH = 320
)

// Commands used by the driver.
const (
	CmdSWRESET = 0x01 // Software reset
	CmdSLPIN   = 0x10 // Sleep in
	CmdSLPOUT  = 0x11 // Sleep out
	CmdNORON   = 0x13 // Normal display mode
	CmdINVOFF  = 0x20 // Inversion off
	CmdINVON   = 0x21 // Inversion on
	CmdDISPOFF = 0x28 // Display off
	CmdDISPON  = 0x29 // Display on
	CmdCASET   = 0x2A // Column address window
	CmdRASET   = 0x2B // Row address window
	CmdRAMWR   = 0x2C // Begin memory write
	CmdMADCTL  = 0x36 // Memory data access control
	CmdCOLMOD  = 0x3A // Interface pixel format
)

var (
	// ErrHalted is returned by operations on a halted device.
	ErrHalted = errors.New("st7789: halted")
	// ErrBusy is returned by blocking operations while a frame transfer is in flight.
	ErrBusy = errors.New("st7789: transfer in flight")
)

// Opts is the configuration for the ST7789 display.
type Opts struct {
	// Display dimensions in pixels
	W int // Width (default: 240, must be ≤240)
	H int // Height (default: 280, must be ≤320)

	// Position of the visible area inside the controller RAM
	ColOffset int
	RowOffset int // 20 for 240x280 modules

	Rotated  bool // 180° rotation
	Inverted bool // Colour inversion, needed by most IPS modules

	// SPI clock (default: 24MHz)
	Speed physic.Frequency

	// Optional pins, nil if not used
	RST gpio.PinOut // Hardware reset
	CS  gpio.PinOut // Chip select, when not driven by the SPI port itself
	BL  gpio.PinOut // Backlight
}

func (o *Opts) validate() error {
	if o.W <= 0 || o.W > ramW {
		return errors.New("st7789: width must be between 1 and 240")
	}
	if o.H <= 0 || o.H > ramH {
		return errors.New("st7789: height must be between 1 and 320")
	}
	if o.ColOffset < 0 || o.ColOffset+o.W > ramW {
		return errors.New("st7789: column offset puts the window outside RAM")
	}
	if o.RowOffset < 0 || o.RowOffset+o.H > ramH {
		return errors.New("st7789: row offset puts the window outside RAM")
	}
	return nil
}

// Stats counts completed transfers.
type Stats struct {
	Frames uint64 // Frames streamed successfully
	Failed uint64 // Frames lost to a bus error, while setting the window or streaming
}

// Dev is the device handle for the ST7789 display.
//
// Busy and Stats may be used from any goroutine. Everything else expects a single owner.
type Dev struct {
	// Communication
	c     conn.Conn   // SPI connection
	dc    gpio.PinOut // Data/Command pin
	cs    gpio.PinOut // Chip select (optional)
	rst   gpio.PinOut // Reset pin (optional)
	bl    gpio.PinOut // Backlight (optional)
	maxTx int         // Largest single Tx the bus accepts, 0 if unlimited
	sleep func(time.Duration)

	// Display geometry
	rect      image.Rectangle
	colOffset int
	rowOffset int

	// Transfer engine
	busy atomic.Bool
	jobs chan []byte   // Single slot, filled only by a successful Start
	done chan struct{} // Closed when the stream worker exits

	frames atomic.Uint64
	failed atomic.Uint64

	// State
	halted bool
}

// NewSPI creates a new ST7789 device connected via SPI.
//
// The SPI port is configured for Mode0 (CPOL=0, CPHA=0), 8-bit transfers at opts.Speed.
// The dc (Data/Command) GPIO pin must be provided and configured as an output.
//
// opts can be nil to use defaults (240x280 module, inverted, 24MHz).
func NewSPI(p spi.Port, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{W: 240, H: 280, RowOffset: 20, Inverted: true}
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("st7789: dc pin is required")
	}

	speed := opts.Speed
	if speed == 0 {
		speed = 24 * physic.MegaHertz
	}
	c, err := p.Connect(speed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("st7789: %w", err)
	}

	d := newDev(c, dc, opts)
	if err := d.init(opts); err != nil {
		return nil, err
	}
	d.startStream()
	return d, nil
}

func newDev(c conn.Conn, dc gpio.PinOut, opts *Opts) *Dev {
	d := &Dev{
		c:         c,
		dc:        dc,
		cs:        opts.CS,
		rst:       opts.RST,
		bl:        opts.BL,
		sleep:     time.Sleep,
		rect:      image.Rect(0, 0, opts.W, opts.H),
		colOffset: opts.ColOffset,
		rowOffset: opts.RowOffset,
		jobs:      make(chan []byte, 1),
	}
	// Rotating by 180° mirrors RAM addressing, the visible area moves to the other end.
	if opts.Rotated {
		d.colOffset = ramW - opts.W - opts.ColOffset
		d.rowOffset = ramH - opts.H - opts.RowOffset
	}
	if l, ok := c.(conn.Limits); ok {
		d.maxTx = l.MaxTxSize()
	}
	return d
}

// init sends the initialization sequence to the display.
func (d *Dev) init(opts *Opts) error {
	if err := d.chipSelect(gpio.High); err != nil {
		return fmt.Errorf("st7789: failed to release CS: %w", err)
	}

	// Hardware reset sequence (if RST pin is provided)
	if d.rst != nil {
		if err := d.rst.Out(gpio.Low); err != nil {
			return fmt.Errorf("st7789: failed to pull RST low: %w", err)
		}
		d.sleep(10 * time.Millisecond)

		if err := d.rst.Out(gpio.High); err != nil {
			return fmt.Errorf("st7789: failed to pull RST high: %w", err)
		}
		d.sleep(120 * time.Millisecond)
	}

	madctl := byte(0x00)
	if opts.Rotated {
		madctl = 0xC0 // MY | MX
	}
	inversion := byte(CmdINVOFF)
	if opts.Inverted {
		inversion = CmdINVON
	}

	seq := []struct {
		cmd   byte
		args  []byte
		delay time.Duration
	}{
		{CmdSWRESET, nil, 150 * time.Millisecond},
		{CmdSLPOUT, nil, 10 * time.Millisecond},
		{CmdCOLMOD, []byte{0x55}, 10 * time.Millisecond}, // 16 bits per pixel
		{CmdMADCTL, []byte{madctl}, 0},
		{inversion, nil, 10 * time.Millisecond},
		{CmdNORON, nil, 10 * time.Millisecond},
	}
	for _, s := range seq {
		if err := d.command(s.cmd, s.args...); err != nil {
			return fmt.Errorf("st7789: init command 0x%02X: %w", s.cmd, err)
		}
		if s.delay > 0 {
			d.sleep(s.delay)
		}
	}

	// Clear display RAM before showing it
	if _, err := d.Write(make([]byte, 2*d.rect.Dx()*d.rect.Dy())); err != nil {
		return err
	}
	if err := d.command(CmdDISPON); err != nil {
		return err
	}
	d.sleep(10 * time.Millisecond)

	if d.bl != nil {
		if err := d.bl.Out(gpio.High); err != nil {
			return fmt.Errorf("st7789: failed to enable backlight: %w", err)
		}
	}
	return nil
}

// chipSelect drives the CS pin when the driver owns it.
func (d *Dev) chipSelect(l gpio.Level) error {
	if d.cs == nil {
		return nil
	}
	return d.cs.Out(l)
}

// command sends a command byte followed by its parameters as one selected exchange.
func (d *Dev) command(cmd byte, args ...byte) error {
	if err := d.chipSelect(gpio.Low); err != nil {
		return err
	}
	err := d.sendCommand(cmd)
	if err == nil && len(args) > 0 {
		err = d.sendData(args)
	}
	if e := d.chipSelect(gpio.High); err == nil {
		err = e
	}
	return err
}

// sendCommand sends a single command byte.
func (d *Dev) sendCommand(cmd byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	return d.c.Tx([]byte{cmd}, nil)
}

// sendData sends a slice of data bytes.
func (d *Dev) sendData(data []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	return d.tx(data)
}

// tx writes p, split to what the bus accepts in one transaction.
func (d *Dev) tx(p []byte) error {
	if d.maxTx <= 0 {
		return d.c.Tx(p, nil)
	}
	for len(p) > 0 {
		n := min(len(p), d.maxTx)
		if err := d.c.Tx(p[:n], nil); err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// setWindow declares the full panel as the destination rectangle.
func (d *Dev) setWindow() error {
	x0 := uint16(d.colOffset)
	x1 := uint16(d.colOffset + d.rect.Dx() - 1)
	y0 := uint16(d.rowOffset)
	y1 := uint16(d.rowOffset + d.rect.Dy() - 1)

	if err := d.command(CmdCASET, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	return d.command(CmdRASET, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1))
}

// beginWrite sets the window, selects the chip and opens a memory write.
// On success the chip stays selected and DC is left high for the pixel stream.
func (d *Dev) beginWrite() error {
	if err := d.setWindow(); err != nil {
		return err
	}
	if err := d.chipSelect(gpio.Low); err != nil {
		return err
	}
	if err := d.sendCommand(CmdRAMWR); err != nil {
		return err
	}
	return d.dc.Out(gpio.High)
}

// startStream launches the goroutine that plays the part of the DMA engine.
func (d *Dev) startStream() {
	d.done = make(chan struct{})
	go d.stream()
}

func (d *Dev) stream() {
	defer close(d.done)
	for p := range d.jobs {
		if err := d.tx(p); err != nil {
			d.failed.Add(1)
		} else {
			d.frames.Add(1)
		}
		d.complete()
	}
}

// complete is the end-of-transfer notification. It must stay O(1): release the
// chip and mark the engine idle, nothing else.
func (d *Dev) complete() {
	if d.cs != nil {
		_ = d.cs.Out(gpio.High)
	}
	d.busy.Store(false)
}

// Start begins streaming a full frame of wire-order samples and returns immediately.
//
// It returns false, without touching the bus, while a previous frame is still in
// flight. It also returns false if samples is not the panel area, pix is too short,
// the device is halted or the window could not be set. pix must not be modified until
// Busy reports false again.
func (d *Dev) Start(pix []byte, samples int) bool {
	if d.halted || samples != d.rect.Dx()*d.rect.Dy() || len(pix) < 2*samples {
		return false
	}
	if !d.busy.CompareAndSwap(false, true) {
		return false
	}
	if err := d.beginWrite(); err != nil {
		d.failed.Add(1)
		d.complete()
		return false
	}
	d.jobs <- pix[:2*samples]
	return true
}

// Busy reports whether a frame transfer is in flight.
func (d *Dev) Busy() bool {
	return d.busy.Load()
}

// Stats returns the transfer counters.
func (d *Dev) Stats() Stats {
	return Stats{Frames: d.frames.Load(), Failed: d.failed.Load()}
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return rgb565.Model
}

// Bounds returns the image bounds of the display.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Write synchronously writes a full frame of wire-order pixel data.
// The data must be exactly 2 * d.rect.Dx() * d.rect.Dy() bytes.
func (d *Dev) Write(pix []byte) (int, error) {
	if d.halted {
		return 0, ErrHalted
	}
	if len(pix) != 2*d.rect.Dx()*d.rect.Dy() {
		return 0, errors.New("st7789: invalid buffer size")
	}
	if !d.busy.CompareAndSwap(false, true) {
		return 0, ErrBusy
	}
	defer d.complete()

	if err := d.beginWrite(); err != nil {
		return 0, err
	}
	if err := d.tx(pix); err != nil {
		return 0, err
	}
	return len(pix), nil
}

// Draw draws an image onto the display.
// The whole panel is always rewritten; areas outside dst are black.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return ErrHalted
	}

	// Fast path: source is already a full-size frame
	if f, ok := src.(*rgb565.Frame); ok && dst == d.rect && sp == (image.Point{}) && f.Rect == d.rect {
		_, err := d.Write(f.Pix)
		return err
	}

	f := rgb565.NewFrame(d.rect)
	draw.Draw(f, dst.Intersect(d.rect), src, sp, draw.Src)
	_, err := d.Write(f.Pix)
	return err
}

// Invert toggles colour inversion.
func (d *Dev) Invert(invert bool) error {
	if d.halted {
		return ErrHalted
	}
	if !d.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer d.busy.Store(false)

	cmd := byte(CmdINVOFF)
	if invert {
		cmd = CmdINVON
	}
	return d.command(cmd)
}

// Sleep puts the panel into sleep mode, or wakes it up.
// The controller keeps its RAM while asleep.
func (d *Dev) Sleep(sleep bool) error {
	if d.halted {
		return ErrHalted
	}
	if !d.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer d.busy.Store(false)

	cmd, delay := byte(CmdSLPOUT), 120*time.Millisecond
	if sleep {
		cmd, delay = CmdSLPIN, 5*time.Millisecond
	}
	if err := d.command(cmd); err != nil {
		return err
	}
	d.sleep(delay)
	return nil
}

// Halt waits for the frame in flight, if any, then turns the display and backlight off.
// After calling Halt, the display will not respond to further commands
// until the device is re-initialized. Halting again does nothing.
func (d *Dev) Halt() error {
	if d.halted {
		return nil
	}
	d.halted = true

	close(d.jobs)
	if d.done != nil {
		<-d.done
	}

	err := d.command(CmdDISPOFF)
	if d.bl != nil {
		if e := d.bl.Out(gpio.Low); err == nil {
			err = e
		}
	}
	return err
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("st7789.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}
