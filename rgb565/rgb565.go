package rgb565

import (
	"image"
	"image/color"
)

// Color is a packed 5/6/5 colour in host byte order.
// Bits 15-11 hold red, 10-5 green and 4-0 blue.
type Color uint16

// RGB packs 8-bit channels into a Color, dropping the low bits of each channel.
func RGB(r, g, b uint8) Color {
	return Color(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// RGB8 expands the colour back to 8-bit channels.
// Full intensity in any channel maps to 0xFF.
func (c Color) RGB8() (r, g, b uint8) {
	r5 := uint32(c>>11) & 0x1F
	g6 := uint32(c>>5) & 0x3F
	b5 := uint32(c) & 0x1F
	return uint8(r5 * 255 / 31), uint8(g6 * 255 / 63), uint8(b5 * 255 / 31)
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	r8, g8, b8 := c.RGB8()
	r = uint32(r8) * 0x101
	g = uint32(g8) * 0x101
	b = uint32(b8) * 0x101
	return r, g, b, 0xFFFF
}

// Sample returns the colour in wire order.
func (c Color) Sample() Sample {
	return Sample{byte(c >> 8), byte(c)}
}

// Sample is a colour split into the two bytes the panel expects, high byte first.
type Sample [2]byte

// Color decodes the sample.
func (s Sample) Color() Color {
	return Color(uint16(s[0])<<8 | uint16(s[1]))
}

// Encode writes src into dst in wire order and returns the number of samples written.
// It stops at whichever of the two runs out first.
func Encode(dst []byte, src []Color) int {
	n := len(dst) / 2
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[2*i] = byte(src[i] >> 8)
		dst[2*i+1] = byte(src[i])
	}
	return n
}

// toColor converts any color.Color to Color.
func toColor(c color.Color) color.Color {
	if v, ok := c.(Color); ok {
		return v
	}
	r, g, b, _ := c.RGBA()
	return RGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// Model converts colors to Color.
var Model = color.ModelFunc(toColor)

// Frame is an RGB565 image stored in wire order.
// Each pixel takes two bytes, rows are laid out top to bottom with no padding,
// which is the order a panel's auto-incrementing write pointer walks its window.
type Frame struct {
	Pix    []byte          // Pixel data (2 bytes per pixel, high byte first)
	Stride int             // Bytes per row
	Rect   image.Rectangle // Image bounds
}

// NewFrame creates a new Frame with the specified bounds.
func NewFrame(r image.Rectangle) *Frame {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return &Frame{Rect: r}
	}
	return &Frame{
		Pix:    make([]byte, 2*w*h),
		Stride: 2 * w,
		Rect:   r,
	}
}

// Samples returns the number of pixels in the frame.
func (f *Frame) Samples() int {
	return len(f.Pix) / 2
}

// ColorModel returns the color model of the image.
func (f *Frame) ColorModel() color.Model {
	return Model
}

// Bounds returns the image bounds.
func (f *Frame) Bounds() image.Rectangle {
	return f.Rect
}

// At returns the color of the pixel at (x, y).
func (f *Frame) At(x, y int) color.Color {
	return f.ColorAt(x, y)
}

// ColorAt returns the Color of the pixel at (x, y).
func (f *Frame) ColorAt(x, y int) Color {
	if !(image.Point{X: x, Y: y}.In(f.Rect)) {
		return 0
	}
	i := f.PixOffset(x, y)
	return Sample{f.Pix[i], f.Pix[i+1]}.Color()
}

// Set sets the color of the pixel at (x, y).
func (f *Frame) Set(x, y int, c color.Color) {
	f.SetColor(x, y, Model.Convert(c).(Color))
}

// SetColor sets the Color of the pixel at (x, y).
// This is faster than Set() as it doesn't require color conversion.
func (f *Frame) SetColor(x, y int, c Color) {
	if !(image.Point{X: x, Y: y}.In(f.Rect)) {
		return
	}
	i := f.PixOffset(x, y)
	f.Pix[i] = byte(c >> 8)
	f.Pix[i+1] = byte(c)
}

// Fill sets every pixel to c.
func (f *Frame) Fill(c Color) {
	s := c.Sample()
	for i := 0; i+1 < len(f.Pix); i += 2 {
		f.Pix[i] = s[0]
		f.Pix[i+1] = s[1]
	}
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (f *Frame) PixOffset(x, y int) int {
	return (y-f.Rect.Min.Y)*f.Stride + (x-f.Rect.Min.X)*2
}
