// Package fire implements the Doom PSX fire: a heat cellular automaton, the palette that
// colours it and a renderer that upscales it into panel-sized RGB565 frames.
//
// The simulation runs at a fraction of the panel resolution. Each step every cell copies
// the heat of the cell below it, loses a little to random cooling and lands a little to
// the side. The bottom row is held at maximum heat and feeds the flames.
package fire

// Levels is the number of distinct heat values; heat ranges over [0, Levels-1].
const Levels = 37

// maxHeat is the fuel value held by the bottom row.
const maxHeat = Levels - 1

// Source provides uniformly distributed integers in [0, n).
// *math/rand/v2.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// Grid is the heat state of the fire, stored row-major.
type Grid struct {
	w, h  int
	cells []uint8
	src   Source
}

// NewGrid creates a w×h grid with every cell cold and the bottom row at maximum heat.
// It panics if w < 1 or h < 2.
func NewGrid(w, h int, src Source) *Grid {
	if w < 1 || h < 2 {
		panic("fire: grid must be at least 1x2")
	}
	g := &Grid{
		w:     w,
		h:     h,
		cells: make([]uint8, w*h),
		src:   src,
	}
	g.Reset()
	return g
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.w }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.h }

// Reset restores the initial state: cold everywhere except the fuel row.
func (g *Grid) Reset() {
	clear(g.cells)
	fuel := g.cells[(g.h-1)*g.w:]
	for x := range fuel {
		fuel[x] = maxHeat
	}
}

// At returns the heat at (x, y), or 0 outside the grid.
func (g *Grid) At(x, y int) uint8 {
	if x < 0 || x >= g.w || y < 0 || y >= g.h {
		return 0
	}
	return g.cells[y*g.w+x]
}

// Set stores heat at (x, y), clamped to the valid range.
// Coordinates outside the grid and cells of the fuel row are left alone.
func (g *Grid) Set(x, y int, heat uint8) {
	if x < 0 || x >= g.w || y < 0 || y >= g.h-1 {
		return
	}
	g.cells[y*g.w+x] = min(heat, maxHeat)
}

// Step advances the simulation by one generation.
//
// Rows are visited top to bottom so that the row being read (y+1) has not been
// written yet in this pass. The fuel row is never written.
func (g *Grid) Step() {
	for y := 0; y < g.h-1; y++ {
		row := g.cells[y*g.w : (y+1)*g.w]
		below := g.cells[(y+1)*g.w : (y+2)*g.w]
		for x, heat := range below {
			cooling := uint8(g.src.IntN(3))
			// -1..2: one more step right than left, the flames lean.
			drift := g.src.IntN(4) - 1

			dst := min(max(x+drift, 0), g.w-1)
			if heat > cooling {
				row[dst] = heat - cooling
			} else {
				row[dst] = 0
			}
		}
	}
}

// Inject adds flares driven by an external intensity in the heat range.
// Higher intensity raises more cells, further up the grid, to at least that heat.
// Intensity is clamped to [0, Levels-1]; zero does nothing.
func (g *Grid) Inject(intensity int) {
	intensity = min(max(intensity, 0), maxHeat)
	if intensity == 0 || g.h < 3 {
		return
	}

	// Flares start just above the fuel row and climb to mid-height at full intensity.
	span := (g.h - 2) / 2
	y := g.h - 2 - span*intensity/maxHeat
	row := g.cells[y*g.w : (y+1)*g.w]

	heat := uint8(intensity)
	for n := 1 + intensity/6; n > 0; n-- {
		x := g.src.IntN(g.w)
		row[x] = max(row[x], heat)
	}
}
