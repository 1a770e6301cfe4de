// Package rgb565 provides the 16-bit 5/6/5 colour format spoken by ST7789-class panels.
//
// Colours exist in two forms. Color is the packed value in host order, convenient for
// arithmetic and tables. Sample is the same value split into the two bytes the panel
// expects on the wire, high byte first. Converting between the two is an explicit step
// (Color.Sample, Encode) so it can happen once, ahead of time, rather than per pixel
// while a frame is being streamed.
//
// Memory layout example for a 2-pixel row:
//
//	Pixels:  0       1
//	Colour:  0xF800  0x07E0   (red, green)
//	Bytes:   F8 00   07 E0
//
// This package provides:
//
// - Color: a packed RGB565 colour implementing color.Color
// - Model: a color model converting standard Go colours to Color
// - Sample and Encode: the wire byte order
// - Frame: an image.Image whose Pix slice is the wire byte stream
//
// Example usage:
//
//	// Create a 240x280 frame
//	f := rgb565.NewFrame(image.Rect(0, 0, 240, 280))
//
//	// Set a pixel to orange
//	f.SetColor(10, 20, rgb565.RGB(0xCF, 0x7F, 0x0F))
//
//	// f.Pix can now be handed to the panel as-is
package rgb565
