package fire

import "github.com/flavioheleno/firepanel/rgb565"

// paletteRGB is the Doom PSX fire gradient: near black through dark red, red, orange
// and yellow to white. Index 0 is a very dark grey, not black, so the edge of the flame
// does not cut hard against the background. Repeated entries make a colour linger.
var paletteRGB = [Levels][3]uint8{
	{0x07, 0x07, 0x07}, {0x1F, 0x07, 0x07}, {0x2F, 0x0F, 0x07}, {0x47, 0x0F, 0x07},
	{0x57, 0x17, 0x07}, {0x67, 0x1F, 0x07}, {0x77, 0x1F, 0x07}, {0x8F, 0x27, 0x07},
	{0x9F, 0x2F, 0x07}, {0xAF, 0x3F, 0x07}, {0xBF, 0x47, 0x07}, {0xC7, 0x47, 0x07},
	{0xDF, 0x4F, 0x07}, {0xDF, 0x57, 0x07}, {0xDF, 0x57, 0x07}, {0xD7, 0x5F, 0x07},
	{0xD7, 0x5F, 0x07}, {0xD7, 0x67, 0x0F}, {0xCF, 0x6F, 0x0F}, {0xCF, 0x77, 0x0F},
	{0xCF, 0x7F, 0x0F}, {0xCF, 0x87, 0x17}, {0xC7, 0x87, 0x17}, {0xC7, 0x8F, 0x17},
	{0xC7, 0x97, 0x1F}, {0xBF, 0x9F, 0x1F}, {0xBF, 0x9F, 0x1F}, {0xBF, 0xA7, 0x27},
	{0xBF, 0xA7, 0x27}, {0xBF, 0xAF, 0x2F}, {0xB7, 0xAF, 0x2F}, {0xB7, 0xB7, 0x2F},
	{0xB7, 0xB7, 0x37}, {0xCF, 0xCF, 0x6F}, {0xDF, 0xDF, 0x9F}, {0xEF, 0xEF, 0xC7},
	{0xFF, 0xFF, 0xFF},
}

// palette holds the gradient already in wire order. Built once, read-only afterwards.
var palette = buildPalette()

func buildPalette() [Levels]rgb565.Sample {
	var colors [Levels]rgb565.Color
	for i, c := range paletteRGB {
		colors[i] = rgb565.RGB(c[0], c[1], c[2])
	}
	var wire [2 * Levels]byte
	rgb565.Encode(wire[:], colors[:])

	var p [Levels]rgb565.Sample
	for i := range p {
		p[i] = rgb565.Sample{wire[2*i], wire[2*i+1]}
	}
	return p
}

// PaletteSample returns the wire-ready colour for a heat level.
// Levels above the top of the range map to white.
func PaletteSample(heat uint8) rgb565.Sample {
	return palette[min(heat, maxHeat)]
}
