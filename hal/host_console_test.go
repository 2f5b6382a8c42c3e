//go:build !tinygo

package hal

import (
	"image/color"
	"testing"

	"tinygo.org/x/tinyterm"
)

// The console adapter must satisfy the full tinyterm contract, not just the
// drivers Displayer subset.
var _ tinyterm.Displayer = (*fbDisplayer)(nil)

func TestFillRectangleWritesRGB565(t *testing.T) {
	fb := newHostFramebuffer(8, 4)
	d := &fbDisplayer{fb: fb}

	if err := d.FillRectangle(1, 1, 2, 2, color.RGBA{R: 255, A: 255}); err != nil {
		t.Fatalf("FillRectangle: %v", err)
	}

	red := rgb565(255, 0, 0)
	at := func(x, y int) uint16 {
		off := y*fb.stride + x*2
		return uint16(fb.buf[off]) | uint16(fb.buf[off+1])<<8
	}
	if at(1, 1) != red || at(2, 2) != red {
		t.Fatalf("fill did not reach interior: %#x %#x", at(1, 1), at(2, 2))
	}
	if at(0, 0) != 0 || at(3, 1) != 0 || at(1, 3) != 0 {
		t.Fatal("fill leaked outside the rectangle")
	}
}

func TestFillRectangleClipsToPanel(t *testing.T) {
	fb := newHostFramebuffer(8, 4)
	d := &fbDisplayer{fb: fb}

	// Overhanging and fully off-panel fills must not write out of bounds.
	if err := d.FillRectangle(6, 2, 10, 10, color.RGBA{G: 255, A: 255}); err != nil {
		t.Fatalf("FillRectangle: %v", err)
	}
	if err := d.FillRectangle(-5, -5, 3, 3, color.RGBA{B: 255, A: 255}); err != nil {
		t.Fatalf("FillRectangle: %v", err)
	}
	if err := d.FillRectangle(20, 20, 4, 4, color.RGBA{B: 255, A: 255}); err != nil {
		t.Fatalf("FillRectangle: %v", err)
	}

	green := rgb565(0, 255, 0)
	off := 3*fb.stride + 7*2
	if got := uint16(fb.buf[off]) | uint16(fb.buf[off+1])<<8; got != green {
		t.Fatalf("clipped fill missed the corner pixel: %#x", got)
	}
}

func TestConsoleRendersLines(t *testing.T) {
	fb := newHostFramebuffer(240, 160)
	con := newTermConsole(fb)

	con.WriteLine("hello")
	lit := 0
	for _, b := range fb.buf {
		if b != 0 {
			lit++
		}
	}
	if lit == 0 {
		t.Fatal("expected rendered text to light framebuffer pixels")
	}

	con.Clear()
	for i, b := range fb.buf {
		if b != 0 {
			t.Fatalf("pixel byte %d still lit after clear", i)
		}
	}
}
