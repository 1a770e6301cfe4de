package fire

import (
	"fmt"
	"image"

	"github.com/flavioheleno/firepanel/rgb565"
)

// Renderer expands a Grid into panel-sized frames, each cell becoming a scale×scale block.
type Renderer struct {
	g     *Grid
	scale int
	rect  image.Rectangle
}

// NewRenderer checks that bounds is an exact integer multiple of the grid in both axes.
// The check happens here, once, so Render can stay free of it.
func NewRenderer(g *Grid, bounds image.Rectangle) (*Renderer, error) {
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || w%g.w != 0 || h%g.h != 0 || w/g.w != h/g.h {
		return nil, fmt.Errorf("fire: %dx%d is not an integer scale of the %dx%d grid", w, h, g.w, g.h)
	}
	return &Renderer{g: g, scale: w / g.w, rect: bounds}, nil
}

// Scale returns the upscaling factor.
func (r *Renderer) Scale() int {
	return r.scale
}

// Bounds returns the frame size the renderer produces.
func (r *Renderer) Bounds() image.Rectangle {
	return r.rect
}

// Render writes the grid into dst in raster order and returns the number of samples
// written, always the full frame. dst must have the renderer's bounds.
//
// Each grid row is expanded once into the frame and the expanded row is then copied
// scale-1 times below itself.
func (r *Renderer) Render(dst *rgb565.Frame) int {
	g, s := r.g, r.scale
	pix := dst.Pix
	rowBytes := g.w * s * 2

	i := 0
	for y := 0; y < g.h; y++ {
		start := i
		for _, heat := range g.cells[y*g.w : (y+1)*g.w] {
			c := palette[heat]
			for k := 0; k < s; k++ {
				pix[i] = c[0]
				pix[i+1] = c[1]
				i += 2
			}
		}
		for k := 1; k < s; k++ {
			i += copy(pix[i:i+rowBytes], pix[start:start+rowBytes])
		}
	}
	return i / 2
}
