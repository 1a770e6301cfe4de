// Package firepanel keeps a colour LCD animated with the Doom fire effect without ever
// blocking the loop that drives it.
//
// A Pipeline owns a fire.Grid, a fire.Renderer and a DoubleBuffer. Each call to Tick
// polls the Transport once: while a frame is in flight the tick is dropped, otherwise the
// grid advances one generation, is rendered into the buffer the transport does not own,
// and that buffer is handed over. Frames are never queued.
//
// # Basic Usage
//
//	dev, _ := st7789.NewSPI(spiBus, dcPin, nil)
//	defer dev.Halt()
//
//	p, _ := firepanel.New(dev, dev.Bounds(), nil)
//	ticker := time.NewTicker(time.Second / 30)
//	for range ticker.C {
//		p.Tick(readIntensity())
//	}
//
// Run wraps the same loop and stops when its context is cancelled.
//
// # Transports
//
// Any value with Start and Busy methods can receive frames. *st7789.Dev streams them to
// the panel over SPI; preview.Panel decodes the same bus traffic into a terminal window
// so the animation can be tried without hardware.
//
// # Intensity
//
// The intensity passed to Tick is an externally computed signal in the heat range
// [0, fire.Levels-1]. It is injected as extra heat before the grid steps; 0 leaves the
// plain fire untouched.
package firepanel
