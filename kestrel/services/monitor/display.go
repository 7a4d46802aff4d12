package monitor

import (
	"image/color"

	"kestrel/hal"

	"tinygo.org/x/drivers"
)

// fbDisplay draws onto an RGB565 framebuffer for tinyterm.
type fbDisplay struct {
	fb hal.Framebuffer
}

func (d *fbDisplay) Size() (x, y int16) {
	if d.fb == nil {
		return 0, 0
	}
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	off, ok := d.offset(int(x), int(y))
	if !ok {
		return
	}
	buf := d.fb.Buffer()
	pixel := rgb565From888(c.R, c.G, c.B)
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (d *fbDisplay) offset(x, y int) (int, bool) {
	if d.fb == nil || d.fb.Format() != hal.PixelFormatRGB565 {
		return 0, false
	}
	if x < 0 || x >= d.fb.Width() || y < 0 || y >= d.fb.Height() {
		return 0, false
	}
	off := y*d.fb.StrideBytes() + x*2
	if off+1 >= len(d.fb.Buffer()) {
		return 0, false
	}
	return off, true
}

func (d *fbDisplay) Display() error {
	if d.fb == nil {
		return nil
	}
	return d.fb.Present()
}

func (d *fbDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	if d.fb == nil {
		return nil
	}
	w, h := d.fb.Width(), d.fb.Height()
	x0 := clampInt(int(x), 0, w)
	y0 := clampInt(int(y), 0, h)
	x1 := clampInt(int(x)+int(width), 0, w)
	y1 := clampInt(int(y)+int(height), 0, h)

	pixel := rgb565From888(c.R, c.G, c.B)
	buf := d.fb.Buffer()
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			off, ok := d.offset(px, py)
			if !ok {
				continue
			}
			buf[off] = byte(pixel)
			buf[off+1] = byte(pixel >> 8)
		}
	}
	return nil
}

// The monitor redraws the whole screen each refresh, so the terminal never
// scrolls.
func (d *fbDisplay) SetScroll(int16) {}

func (d *fbDisplay) SetRotation(drivers.Rotation) error { return nil }

func rgb565From888(r, g, b uint8) uint16 {
	return uint16((uint16(r>>3)&0x1F)<<11 | (uint16(g>>2)&0x3F)<<5 | (uint16(b>>3) & 0x1F))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
