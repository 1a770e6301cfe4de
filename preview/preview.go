// Package preview shows what an ST7789 panel would display, in a terminal.
//
// A Panel is an spi.Port and a DC pin. It decodes the command stream the st7789 driver
// sends into a mirror of the controller RAM, and repaints a tcell screen every time a
// memory write fills its window. Each terminal cell shows two pixels stacked with a
// half block, and the window is downsampled when the terminal is too small.
package preview

import (
	"errors"
	"fmt"
	"sync"

	"github.com/flavioheleno/firepanel/rgb565"
	"github.com/flavioheleno/firepanel/st7789"
	"github.com/gdamore/tcell/v2"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Controller RAM size mirrored by the panel.
const (
	ramW = 240
	ramH = 320
)

// Opts is the configuration for a Panel.
type Opts struct {
	// Largest single transaction accepted (default: 4096, like spidev)
	MaxTxSize int
}

// Panel emulates an ST7789 on a tcell screen.
type Panel struct {
	scr   tcell.Screen
	dc    *dcPin
	maxTx int

	mu     sync.Mutex
	ram    [ramW * ramH]rgb565.Color
	cmd    byte
	args   []byte
	win    window
	cur    int  // Pixels written since the last RAMWR
	hi     byte // First byte of a pixel split across transactions
	odd    bool
	on     bool
	frames uint64
	speed  physic.Frequency
	closed bool
}

// window is an inclusive RAM rectangle, as CASET and RASET describe it.
type window struct {
	x0, x1, y0, y1 int
}

func (w window) dx() int { return w.x1 - w.x0 + 1 }
func (w window) dy() int { return w.y1 - w.y0 + 1 }

// New creates a panel drawing on scr. scr must already be initialized.
//
// opts can be nil to use defaults.
func New(scr tcell.Screen, opts *Opts) *Panel {
	maxTx := 4096
	if opts != nil && opts.MaxTxSize > 0 {
		maxTx = opts.MaxTxSize
	}
	return &Panel{
		scr:   scr,
		dc:    &dcPin{},
		maxTx: maxTx,
		win:   window{x1: ramW - 1, y1: ramH - 1},
	}
}

// DC returns the Data/Command pin to hand to the driver.
func (p *Panel) DC() gpio.PinOut { return p.dc }

// String implements conn.Resource.
func (p *Panel) String() string { return "preview.Panel" }

// Connect implements spi.Port. Only 8-bit words are supported.
func (p *Panel) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if bits != 8 {
		return nil, fmt.Errorf("preview: %d bits per word is not supported", bits)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("preview: port closed")
	}
	p.speed = f
	return &link{p: p}, nil
}

// LimitSpeed implements spi.Port.
func (p *Panel) LimitSpeed(f physic.Frequency) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.speed = f
	return nil
}

// Close implements io.Closer. The screen stays with its owner.
func (p *Panel) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Frames returns how many memory writes have filled their window.
func (p *Panel) Frames() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// At returns the colour held in controller RAM at (x, y), 0 outside it.
func (p *Panel) At(x, y int) rgb565.Color {
	if x < 0 || x >= ramW || y < 0 || y >= ramH {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ram[y*ramW+x]
}

// tx decodes one bus transaction.
func (p *Panel) tx(w []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("preview: port closed")
	}
	if p.dc.Read() == gpio.Low {
		for _, c := range w {
			p.command(c)
		}
		return nil
	}
	p.data(w)
	return nil
}

func (p *Panel) command(c byte) {
	p.cmd = c
	p.args = p.args[:0]
	p.odd = false

	switch c {
	case st7789.CmdSWRESET:
		p.win = window{x1: ramW - 1, y1: ramH - 1}
		p.on = false
	case st7789.CmdRAMWR:
		p.cur = 0
	case st7789.CmdDISPON:
		p.on = true
		p.paint()
	case st7789.CmdDISPOFF:
		p.on = false
		p.scr.Clear()
		p.scr.Show()
	}
}

func (p *Panel) data(w []byte) {
	switch p.cmd {
	case st7789.CmdCASET, st7789.CmdRASET:
		p.args = append(p.args, w...)
		if len(p.args) < 4 {
			return
		}
		lo := int(p.args[0])<<8 | int(p.args[1])
		hi := int(p.args[2])<<8 | int(p.args[3])
		if p.cmd == st7789.CmdCASET {
			p.win.x0, p.win.x1 = clamp(lo, hi, ramW)
		} else {
			p.win.y0, p.win.y1 = clamp(lo, hi, ramH)
		}
	case st7789.CmdRAMWR:
		for _, b := range w {
			if !p.odd {
				p.hi, p.odd = b, true
				continue
			}
			p.odd = false
			p.pixel(rgb565.Sample{p.hi, b}.Color())
		}
	}
}

// pixel stores c at the write cursor. The cursor walks the window in raster order
// and wraps to its top left once the window is full.
func (p *Panel) pixel(c rgb565.Color) {
	w, h := p.win.dx(), p.win.dy()
	x := p.win.x0 + p.cur%w
	y := p.win.y0 + p.cur/w
	p.ram[y*ramW+x] = c

	p.cur++
	if p.cur == w*h {
		p.cur = 0
		p.frames++
		if p.on {
			p.paint()
		}
	}
}

// paint draws the current window on the screen.
func (p *Panel) paint() {
	sw, sh := p.scr.Size()
	if sw <= 0 || sh <= 0 {
		return
	}
	w, h := p.win.dx(), p.win.dy()
	step := max((w+sw-1)/sw, (h+2*sh-1)/(2*sh), 1)

	for cy := 0; 2*cy*step < h && cy < sh; cy++ {
		for cx := 0; cx*step < w && cx < sw; cx++ {
			x := p.win.x0 + cx*step
			top := p.ram[(p.win.y0+2*cy*step)*ramW+x]
			bottom := rgb565.Color(0)
			if y := (2*cy + 1) * step; y < h {
				bottom = p.ram[(p.win.y0+y)*ramW+x]
			}
			style := tcell.StyleDefault.Foreground(cellColor(top)).Background(cellColor(bottom))
			p.scr.SetContent(cx, cy, '▀', nil, style)
		}
	}
	p.scr.Show()
}

func cellColor(c rgb565.Color) tcell.Color {
	r, g, b := c.RGB8()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

// clamp orders a CASET/RASET pair and keeps it inside [0, n).
func clamp(lo, hi, n int) (int, int) {
	if lo > hi {
		lo, hi = hi, lo
	}
	return min(lo, n-1), min(hi, n-1)
}

// link is the spi.Conn returned by Panel.Connect.
type link struct {
	p *Panel
}

func (l *link) String() string { return "preview.Panel" }

// Tx implements conn.Conn. The panel is write only.
func (l *link) Tx(w, r []byte) error {
	if len(r) != 0 {
		return errors.New("preview: reads are not supported")
	}
	if len(w) > l.p.maxTx {
		return fmt.Errorf("preview: %d bytes exceeds the %d byte transaction limit", len(w), l.p.maxTx)
	}
	return l.p.tx(w)
}

// Duplex implements conn.Conn.
func (l *link) Duplex() conn.Duplex { return conn.Half }

// TxPackets implements spi.Conn.
func (l *link) TxPackets(pkts []spi.Packet) error {
	for _, pkt := range pkts {
		if err := l.Tx(pkt.W, pkt.R); err != nil {
			return err
		}
	}
	return nil
}

// MaxTxSize implements conn.Limits.
func (l *link) MaxTxSize() int { return l.p.maxTx }

// dcPin is the Data/Command line: low for commands, high for data.
type dcPin struct {
	mu sync.Mutex
	l  gpio.Level
}

func (d *dcPin) String() string   { return "preview.DC" }
func (d *dcPin) Halt() error      { return nil }
func (d *dcPin) Name() string     { return "DC" }
func (d *dcPin) Number() int      { return -1 }
func (d *dcPin) Function() string { return "Out" }

// Out implements gpio.PinOut.
func (d *dcPin) Out(l gpio.Level) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.l = l
	return nil
}

// PWM implements gpio.PinOut.
func (d *dcPin) PWM(gpio.Duty, physic.Frequency) error {
	return errors.New("preview: DC does not support PWM")
}

// Read returns the last level driven.
func (d *dcPin) Read() gpio.Level {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.l
}
