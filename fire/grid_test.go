package fire

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// script replays fixed answers, cycling when it runs out.
type script struct {
	vals []int
	i    int
}

func (s *script) IntN(n int) int {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	if v >= n {
		panic("script value out of range")
	}
	return v
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestNewGrid(t *testing.T) {
	g := NewGrid(60, 70, newRand())
	assert.Equal(t, 60, g.Width())
	assert.Equal(t, 70, g.Height())

	for y := 0; y < 70; y++ {
		for x := 0; x < 60; x++ {
			want := uint8(0)
			if y == 69 {
				want = Levels - 1
			}
			require.Equal(t, want, g.At(x, y), "cell (%d,%d)", x, y)
		}
	}
}

func TestNewGridPanics(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"zero width", 0, 10},
		{"single row", 10, 1},
		{"negative", -1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { NewGrid(tt.w, tt.h, newRand()) })
		})
	}
}

func TestStepKeepsInvariants(t *testing.T) {
	g := NewGrid(60, 70, newRand())

	for tick := 0; tick < 500; tick++ {
		g.Step()
		for y := 0; y < g.Height(); y++ {
			for x := 0; x < g.Width(); x++ {
				heat := g.At(x, y)
				require.LessOrEqual(t, heat, uint8(Levels-1))
				if y == g.Height()-1 {
					require.Equal(t, uint8(Levels-1), heat, "fuel row changed at tick %d", tick)
				}
			}
		}
	}
}

func TestStepFirstGeneration(t *testing.T) {
	g := NewGrid(60, 70, newRand())
	g.Step()

	hot := false
	for x := 0; x < 60; x++ {
		if h := g.At(x, 68); h >= 34 && h <= 36 {
			hot = true
		}
		assert.Equal(t, uint8(0), g.At(x, 0), "row 0 column %d", x)
	}
	assert.True(t, hot, "row 68 should catch fire on the first step")
}

func TestStepClampsLeftEdge(t *testing.T) {
	// Every cell: cooling 0, drift index 0 (-1).
	g := NewGrid(3, 2, &script{vals: []int{0, 0}})
	g.Step()

	// x=0 and x=1 both land on column 0, x=2 lands on column 1.
	assert.Equal(t, uint8(Levels-1), g.At(0, 0))
	assert.Equal(t, uint8(Levels-1), g.At(1, 0))
	assert.Equal(t, uint8(0), g.At(2, 0))
}

func TestStepClampsRightEdge(t *testing.T) {
	// Every cell: cooling 0, drift index 3 (+2).
	g := NewGrid(3, 2, &script{vals: []int{0, 3}})
	g.Step()

	assert.Equal(t, uint8(0), g.At(0, 0))
	assert.Equal(t, uint8(0), g.At(1, 0))
	assert.Equal(t, uint8(Levels-1), g.At(2, 0))
}

func TestStepCoolingFloorsAtZero(t *testing.T) {
	// Every cell: cooling 2, drift index 1 (0).
	g := NewGrid(2, 3, &script{vals: []int{2, 1}})
	g.Set(0, 1, 1)
	g.Set(1, 1, 2)
	g.Step()

	// Row 0 reads row 1 before row 1 is rewritten from the fuel row.
	assert.Equal(t, uint8(0), g.At(0, 0))
	assert.Equal(t, uint8(0), g.At(1, 0))
	assert.Equal(t, uint8(Levels-3), g.At(0, 1))
	assert.Equal(t, uint8(Levels-3), g.At(1, 1))
}

func TestSetAndAtBounds(t *testing.T) {
	g := NewGrid(4, 4, newRand())

	g.Set(-1, 0, 10)
	g.Set(0, -1, 10)
	g.Set(4, 0, 10)
	g.Set(0, 4, 10)
	assert.Equal(t, uint8(0), g.At(-1, 0))
	assert.Equal(t, uint8(0), g.At(4, 4))

	g.Set(1, 1, 200)
	assert.Equal(t, uint8(Levels-1), g.At(1, 1), "heat clamps to the top level")

	g.Set(2, 3, 0)
	assert.Equal(t, uint8(Levels-1), g.At(2, 3), "fuel row is read-only")
}

func TestReset(t *testing.T) {
	g := NewGrid(8, 8, newRand())
	for i := 0; i < 10; i++ {
		g.Step()
	}
	g.Reset()

	fresh := NewGrid(8, 8, newRand())
	assert.Equal(t, fresh.cells, g.cells)
}

func TestInject(t *testing.T) {
	tests := []struct {
		name      string
		intensity int
		wantRow   int
		wantHeat  uint8
	}{
		{"low intensity stays near the fuel", 1, 18, 1},
		{"full intensity reaches mid-height", 36, 9, 36},
		{"above range clamps", 100, 9, 36},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGrid(20, 20, &script{vals: []int{5}})
			g.Inject(tt.intensity)

			assert.Equal(t, tt.wantHeat, g.At(5, tt.wantRow))
			for y := 0; y < 19; y++ {
				for x := 0; x < 20; x++ {
					if x == 5 && y == tt.wantRow {
						continue
					}
					require.Equal(t, uint8(0), g.At(x, y), "cell (%d,%d)", x, y)
				}
			}
		})
	}
}

func TestInjectNoop(t *testing.T) {
	for _, intensity := range []int{0, -5} {
		g := NewGrid(10, 10, newRand())
		g.Inject(intensity)
		assert.Equal(t, NewGrid(10, 10, newRand()).cells, g.cells)
	}
}

func TestInjectKeepsHotterCells(t *testing.T) {
	g := NewGrid(20, 20, &script{vals: []int{5}})
	g.Set(5, 18, 30)
	g.Inject(1)
	assert.Equal(t, uint8(30), g.At(5, 18))
}
