package ppu

// Dimensions of the DMG LCD.
const (
	Width  = 160
	Height = 144
	Size   = Width * Height
)

// Shade is one of the four 2-bit greyscale values a palette register maps
// a color index to.
type Shade uint8

const (
	White Shade = 0
	Light Shade = 1
	Dark  Shade = 2
	Black Shade = 3
)

// FrameBuffer holds one rendered frame as a flat Width*Height grid of
// 2-bit shade indices.
type FrameBuffer struct {
	pixels [Size]Shade
}

// Set stores the shade for pixel (x, y).
func (f *FrameBuffer) Set(x, y int, s Shade) {
	f.pixels[y*Width+x] = s
}

// At returns the shade at pixel (x, y).
func (f *FrameBuffer) At(x, y int) Shade {
	return f.pixels[y*Width+x]
}

// Pixels exposes the backing grid for host renderers; callers must treat
// it as read-only.
func (f *FrameBuffer) Pixels() []Shade {
	return f.pixels[:]
}

// Clear resets every pixel to White.
func (f *FrameBuffer) Clear() {
	for i := range f.pixels {
		f.pixels[i] = White
	}
}
