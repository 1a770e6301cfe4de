// Package st7789 controls an ST7789 RGB565 colour LCD via SPI.
//
// The ST7789 is a 262K colour TFT controller with 240×320 pixels of internal RAM.
// This driver runs it in 16-bit RGB565 mode and implements the display.Drawer
// interface from periph.io.
//
// # Display Characteristics
//
// - 16-bit RGB565 colour, two bytes per pixel, high byte first on the wire
// - Panels smaller than the RAM (240×280, 240×240, 135×240) sit at an offset
// - Command/data selected by a dedicated DC line, not by the byte stream
// - Pixels stream into an address window that auto-advances in raster order
//
// # Hardware Connection
//
// Connect the ST7789 display to your system via SPI:
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	SCL/CLK     → SPI Clock (SCLK)
//	SDA/MOSI    → SPI Data (MOSI)
//	DC          → GPIO (any available pin)
//	CS          → SPI Chip Select, or a GPIO passed as Opts.CS
//	RST         → Optional: GPIO for hardware reset
//	BL          → Optional: GPIO for backlight control, or 3.3V
//
// # Asynchronous Frames
//
// A full 240×280 frame is 134,400 bytes, about 45ms at 24MHz: longer than a tick of
// a 60Hz control loop. Start hands a frame to a streaming goroutine and returns at
// once, so the caller can keep working while the bus is busy:
//
//	if !dev.Busy() {
//		render(back)
//		if dev.Start(back.Pix, back.Samples()) {
//			front, back = back, front
//		}
//	}
//
// Start never blocks and never queues: while a frame is in flight it returns false
// and the caller should simply try again on its next tick. The buffer given to Start
// belongs to the driver until Busy reports false.
//
// # Synchronous Drawing
//
// Write and Draw push a full frame and return once it has been sent. They fail with
// ErrBusy if an asynchronous frame is still streaming:
//
//	img := rgb565.NewFrame(dev.Bounds())
//	img.Fill(rgb565.RGB(0x00, 0x00, 0xFF))
//	dev.Draw(dev.Bounds(), img, image.Point{})
//
// # Display Resolution
//
//	Opts{W: 240, H: 280, RowOffset: 20} // 1.69" module (default)
//	Opts{W: 240, H: 240}                // 1.3" and 1.54" modules
//	Opts{W: 240, H: 320}                // 2" module, full RAM
//
// # Datasheet
//
// https://www.rhydolabz.com/documents/33/ST7789.pdf
package st7789
