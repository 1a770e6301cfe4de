package firepanel

import (
	"context"
	"image"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/flavioheleno/firepanel/fire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// transport is a fake Transport that stays busy until release is called.
type transport struct {
	mu      sync.Mutex
	busy    bool
	refuse  bool // Start returns false even when idle
	started [][]byte
	busyN   int
}

func (t *transport) Start(pix []byte, samples int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.busy || t.refuse {
		return false
	}
	t.busy = true
	t.started = append(t.started, pix[:2*samples])
	return true
}

func (t *transport) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.busyN++
	return t.busy
}

func (t *transport) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.busy = false
}

func (t *transport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.started)
}

func testOpts() *Opts {
	return &Opts{GridW: 60, GridH: 70, Source: rand.New(rand.NewPCG(1, 2))}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		bounds  image.Rectangle
		opts    *Opts
		wantErr bool
	}{
		{"defaults", image.Rect(0, 0, 240, 280), nil, false},
		{"grid defaults fill in", image.Rect(0, 0, 240, 280), &Opts{}, false},
		{"scale 1", image.Rect(0, 0, 60, 70), testOpts(), false},
		{"custom grid", image.Rect(0, 0, 240, 240), &Opts{GridW: 80, GridH: 80}, false},
		{"not a multiple", image.Rect(0, 0, 250, 280), testOpts(), true},
		{"uneven scale", image.Rect(0, 0, 240, 140), testOpts(), true},
		{"grid too short", image.Rect(0, 0, 240, 280), &Opts{GridW: 60, GridH: 1}, true},
		{"negative grid", image.Rect(0, 0, 240, 280), &Opts{GridW: -1, GridH: 70}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(&transport{}, tt.bounds, tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bounds, p.Buffers().Back().Bounds())
			assert.Equal(t, tt.bounds, p.Buffers().Front().Bounds())
		})
	}
}

func TestNewRequiresTransport(t *testing.T) {
	_, err := New(nil, image.Rect(0, 0, 240, 280), nil)
	assert.EqualError(t, err, "firepanel: transport is required")
}

func TestDoubleBuffer(t *testing.T) {
	b := NewDoubleBuffer(image.Rect(0, 0, 4, 4))
	back, front := b.Back(), b.Front()
	assert.NotSame(t, back, front)
	assert.Equal(t, 0, b.Index())

	b.Flip()
	assert.Equal(t, 1, b.Index())
	assert.Same(t, front, b.Back())
	assert.Same(t, back, b.Front())

	b.Flip()
	assert.Equal(t, 0, b.Index())
	assert.Same(t, back, b.Back())
}

func TestTickStartsFrame(t *testing.T) {
	tr := &transport{}
	p, err := New(tr, image.Rect(0, 0, 240, 280), testOpts())
	require.NoError(t, err)
	back := p.Buffers().Back()

	require.True(t, p.Tick(0))
	require.Len(t, tr.started, 1)
	assert.Len(t, tr.started[0], 240*280*2)
	assert.Same(t, &back.Pix[0], &tr.started[0][0], "the rendered buffer is sent")
	assert.Equal(t, 1, p.Buffers().Index())
	assert.Same(t, back, p.Buffers().Front())
	assert.Equal(t, Stats{Ticks: 1, Frames: 1}, p.Stats())
}

func TestTickSkipsWhileBusy(t *testing.T) {
	tr := &transport{}
	p, err := New(tr, image.Rect(0, 0, 240, 280), testOpts())
	require.NoError(t, err)

	require.True(t, p.Tick(0))
	sent := append([]byte(nil), tr.started[0]...)
	grid := snapshot(p.Grid())

	for i := 0; i < 5; i++ {
		assert.False(t, p.Tick(10))
	}
	assert.Equal(t, 1, tr.count())
	assert.Equal(t, 1, p.Buffers().Index(), "no flip on skipped ticks")
	assert.Equal(t, grid, snapshot(p.Grid()), "grid does not advance on skipped ticks")
	assert.Equal(t, sent, tr.started[0], "in-flight buffer left untouched")
	assert.Equal(t, Stats{Ticks: 6, Frames: 1, Skipped: 5}, p.Stats())
}

func TestTickAlternatesBuffers(t *testing.T) {
	tr := &transport{}
	p, err := New(tr, image.Rect(0, 0, 120, 140), testOpts())
	require.NoError(t, err)
	frames := [2][]byte{p.Buffers().Back().Pix, p.Buffers().Front().Pix}

	want := 0
	for i := 0; i < 40; i++ {
		// Release on every third tick so busy ticks are mixed in.
		if i%3 == 0 {
			tr.release()
		}
		before := p.Buffers().Index()
		started := p.Tick(i % fire.Levels)
		if !started {
			assert.Equal(t, before, p.Buffers().Index())
			continue
		}
		assert.Equal(t, want, before)
		assert.Same(t, &frames[want][0], &tr.started[len(tr.started)-1][0])
		want = 1 - want
	}
	assert.Equal(t, 14, tr.count())
}

func TestTickRefusedStartIsSkip(t *testing.T) {
	tr := &transport{refuse: true}
	p, err := New(tr, image.Rect(0, 0, 240, 280), testOpts())
	require.NoError(t, err)

	assert.False(t, p.Tick(0))
	assert.Equal(t, 0, p.Buffers().Index())
	assert.Equal(t, Stats{Ticks: 1, Skipped: 1}, p.Stats())
}

func TestTickInjectsIntensity(t *testing.T) {
	tr := &transport{}
	p, err := New(tr, image.Rect(0, 0, 60, 70), testOpts())
	require.NoError(t, err)

	g := p.Grid()
	for x := 0; x < g.Width(); x++ {
		assert.Equal(t, uint8(fire.Levels-1), g.At(x, g.Height()-1))
	}
	require.True(t, p.Tick(fire.Levels-1))

	// Full intensity lands heat halfway up the flame, well above what a single step reaches.
	hot := 0
	for y := 0; y < g.Height()/2; y++ {
		for x := 0; x < g.Width(); x++ {
			if g.At(x, y) > 0 {
				hot++
			}
		}
	}
	assert.Positive(t, hot)
}

func TestRun(t *testing.T) {
	tr := &transport{}
	p, err := New(tr, image.Rect(0, 0, 60, 70), testOpts())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	levels := 0
	done := make(chan error)
	go func() {
		done <- p.Run(ctx, time.Millisecond, func() int {
			levels++
			tr.release()
			return 5
		})
	}()

	require.Eventually(t, func() bool { return tr.count() >= 3 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, uint64(levels), p.Stats().Ticks)
}

func TestRunNeverBlocksOnTransport(t *testing.T) {
	tr := &transport{}
	p, err := New(tr, image.Rect(0, 0, 60, 70), testOpts())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Never released: every tick after the first is a skip.
	assert.ErrorIs(t, p.Run(ctx, time.Millisecond, nil), context.DeadlineExceeded)
	s := p.Stats()
	assert.Equal(t, uint64(1), s.Frames)
	assert.Greater(t, s.Skipped, uint64(5))
}

func TestRunRejectsPeriod(t *testing.T) {
	p, err := New(&transport{}, image.Rect(0, 0, 60, 70), testOpts())
	require.NoError(t, err)
	assert.Error(t, p.Run(context.Background(), 0, nil))
}

func snapshot(g *fire.Grid) []uint8 {
	out := make([]uint8, 0, g.Width()*g.Height())
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			out = append(out, g.At(x, y))
		}
	}
	return out
}
