//go:build !tinygo

package hal

import (
	"image/color"
	"sync"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

// termConsole renders console lines into the framebuffer through a tinyterm
// terminal, the host stand-in for the character LCD.
type termConsole struct {
	mu   sync.Mutex
	fb   *hostFramebuffer
	term *tinyterm.Terminal
}

func newTermConsole(fb *hostFramebuffer) *termConsole {
	term := tinyterm.NewTerminal(&fbDisplayer{fb: fb})
	term.Configure(&tinyterm.Config{
		Font:       &proggy.TinySZ8pt7b,
		FontHeight: 10,
		FontOffset: 6,
	})
	return &termConsole{fb: fb, term: term}
}

func (c *termConsole) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fb.ClearRGB(0, 0, 0)
}

func (c *termConsole) WriteLine(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.term.Write([]byte(s))
	c.term.Write([]byte("\r\n"))
}

// fbDisplayer adapts the host framebuffer to the tinyterm Displayer
// contract: the drivers Displayer surface plus rectangle fill and scroll.
type fbDisplayer struct {
	fb *hostFramebuffer
}

func (d *fbDisplayer) Size() (x, y int16) {
	return int16(d.fb.width), int16(d.fb.height)
}

func (d *fbDisplayer) SetPixel(x, y int16, c color.RGBA) {
	ix := int(x)
	iy := int(y)
	if ix < 0 || ix >= d.fb.width || iy < 0 || iy >= d.fb.height {
		return
	}
	d.fb.mu.Lock()
	defer d.fb.mu.Unlock()

	pixel := rgb565(c.R, c.G, c.B)
	off := iy*d.fb.stride + ix*2
	d.fb.buf[off] = byte(pixel)
	d.fb.buf[off+1] = byte(pixel >> 8)
}

func (d *fbDisplayer) Display() error {
	return d.fb.Present()
}

func (d *fbDisplayer) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	x0, y0 := int(x), int(y)
	x1, y1 := x0+int(width), y0+int(height)
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > d.fb.width {
		x1 = d.fb.width
	}
	if y1 > d.fb.height {
		y1 = d.fb.height
	}
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	pixel := rgb565(c.R, c.G, c.B)
	lo := byte(pixel)
	hi := byte(pixel >> 8)
	d.fb.mu.Lock()
	defer d.fb.mu.Unlock()
	for yy := y0; yy < y1; yy++ {
		off := yy*d.fb.stride + x0*2
		for xx := x0; xx < x1; xx++ {
			d.fb.buf[off] = lo
			d.fb.buf[off+1] = hi
			off += 2
		}
	}
	return nil
}

// SetScroll is a no-op: the simulated panel has no hardware scroll region,
// tinyterm redraws every line it moves.
func (d *fbDisplayer) SetScroll(line int16) {}
