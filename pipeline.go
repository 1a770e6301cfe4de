package firepanel

import (
	"context"
	"errors"
	"image"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/flavioheleno/firepanel/fire"
	"github.com/flavioheleno/firepanel/rgb565"
)

// Transport streams frames to a panel asynchronously.
type Transport interface {
	// Start begins sending the first 2*samples bytes of pix and returns without waiting.
	// It returns false, with no side effect, while a previous frame is in flight.
	Start(pix []byte, samples int) bool
	// Busy reports whether a frame is in flight.
	Busy() bool
}

// DoubleBuffer holds two panel-sized frames. Back is owned by the renderer, Front by
// the transport.
type DoubleBuffer struct {
	frames [2]*rgb565.Frame
	index  int
}

// NewDoubleBuffer allocates both frames with bounds r.
func NewDoubleBuffer(r image.Rectangle) *DoubleBuffer {
	return &DoubleBuffer{frames: [2]*rgb565.Frame{rgb565.NewFrame(r), rgb565.NewFrame(r)}}
}

// Back returns the frame the renderer may write.
func (b *DoubleBuffer) Back() *rgb565.Frame { return b.frames[b.index] }

// Front returns the frame last handed to the transport.
func (b *DoubleBuffer) Front() *rgb565.Frame { return b.frames[1-b.index] }

// Flip swaps ownership of the two frames.
func (b *DoubleBuffer) Flip() { b.index = 1 - b.index }

// Index returns which frame is currently the back one.
func (b *DoubleBuffer) Index() int { return b.index }

// Opts is the configuration for a Pipeline.
type Opts struct {
	// Grid dimensions in cells (default: 60x70)
	GridW int
	GridH int

	// Random source for the fire, seeded from the clock when nil
	Source fire.Source
}

// Stats counts what Tick did.
type Stats struct {
	Ticks   uint64 // Calls to Tick
	Frames  uint64 // Frames handed to the transport
	Skipped uint64 // Ticks dropped because the transport was busy or refused the frame
}

// Pipeline is the per-tick orchestrator.
//
// Tick and Run expect a single owner. Stats may be read from any goroutine.
type Pipeline struct {
	t    Transport
	grid *fire.Grid
	r    *fire.Renderer
	buf  *DoubleBuffer

	ticks   atomic.Uint64
	frames  atomic.Uint64
	skipped atomic.Uint64
}

// New creates a pipeline that renders into frames of the given bounds and sends them
// through t. The bounds must be an integer multiple of the grid size.
//
// opts can be nil to use defaults.
func New(t Transport, bounds image.Rectangle, opts *Opts) (*Pipeline, error) {
	if t == nil {
		return nil, errors.New("firepanel: transport is required")
	}
	o := Opts{GridW: 60, GridH: 70}
	if opts != nil {
		o = *opts
		if o.GridW == 0 {
			o.GridW = 60
		}
		if o.GridH == 0 {
			o.GridH = 70
		}
	}
	if o.GridW < 1 || o.GridH < 2 {
		return nil, errors.New("firepanel: grid must be at least 1x2 cells")
	}
	if o.Source == nil {
		seed := uint64(time.Now().UnixNano())
		o.Source = rand.New(rand.NewPCG(seed, seed>>32))
	}

	g := fire.NewGrid(o.GridW, o.GridH, o.Source)
	r, err := fire.NewRenderer(g, bounds)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		t:    t,
		grid: g,
		r:    r,
		buf:  NewDoubleBuffer(r.Bounds()),
	}, nil
}

// Grid returns the heat grid driven by the pipeline.
func (p *Pipeline) Grid() *fire.Grid { return p.grid }

// Buffers returns the pipeline's double buffer.
func (p *Pipeline) Buffers() *DoubleBuffer { return p.buf }

// Tick runs one step of the pipeline and reports whether a frame was started.
//
// If the transport is busy nothing happens. Otherwise intensity is injected, the grid
// steps, the result is rendered into the back buffer and handed to the transport. The
// buffers flip only when the transport accepts the frame.
func (p *Pipeline) Tick(intensity int) bool {
	p.ticks.Add(1)
	if p.t.Busy() {
		p.skipped.Add(1)
		return false
	}

	p.grid.Inject(intensity)
	p.grid.Step()
	back := p.buf.Back()
	n := p.r.Render(back)
	if !p.t.Start(back.Pix, n) {
		p.skipped.Add(1)
		return false
	}
	p.buf.Flip()
	p.frames.Add(1)
	return true
}

// Run calls Tick every period with the value returned by level until ctx is done, and
// then returns ctx.Err(). level may be nil for a plain fire.
func (p *Pipeline) Run(ctx context.Context, period time.Duration, level func() int) error {
	if period <= 0 {
		return errors.New("firepanel: period must be positive")
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			intensity := 0
			if level != nil {
				intensity = level()
			}
			p.Tick(intensity)
		}
	}
}

// Stats returns the tick counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Ticks:   p.ticks.Load(),
		Frames:  p.frames.Load(),
		Skipped: p.skipped.Load(),
	}
}
