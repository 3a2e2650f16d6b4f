package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/obsidianstack/geiger/pkg/types"
)

var (
	pixelOff = color.Gray{Y: 0}
	pixelOn  = color.Gray{Y: 0xff}
)

// Framebuffer is an in-memory 128x64 display. Drawing goes to a back
// buffer; Flush publishes it as the current frame.
type Framebuffer struct {
	back *image.Gray

	mu    sync.RWMutex
	front *image.Gray
}

// NewFramebuffer returns a blank framebuffer.
func NewFramebuffer() *Framebuffer {
	r := image.Rect(0, 0, types.ScreenWidth, types.ScreenHeight)
	return &Framebuffer{back: image.NewGray(r), front: image.NewGray(r)}
}

func (f *Framebuffer) Clear() {
	draw.Draw(f.back, f.back.Bounds(), image.NewUniform(pixelOff), image.Point{}, draw.Src)
}

func (f *Framebuffer) VLine(x, y0, y1 int) {
	if x < 0 || x >= types.ScreenWidth {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > types.ScreenHeight-1 {
		y1 = types.ScreenHeight - 1
	}
	for y := y0; y <= y1; y++ {
		f.back.SetGray(x, y, pixelOn)
	}
}

// TextCentered puts the baseline on y; descenders reach below it.
func (f *Framebuffer) TextCentered(x, y int, s string) {
	dr := &font.Drawer{Dst: f.back, Src: image.NewUniform(pixelOn), Face: basicfont.Face7x13}
	w := dr.MeasureString(s)
	dr.Dot = fixed.Point26_6{X: fixed.I(x) - w/2, Y: fixed.I(y)}
	dr.DrawString(s)
}

func (f *Framebuffer) Flush() error {
	f.mu.Lock()
	copy(f.front.Pix, f.back.Pix)
	f.mu.Unlock()
	return nil
}

// Frame returns a copy of the last flushed frame.
func (f *Framebuffer) Frame() *image.Gray {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := image.NewGray(f.front.Rect)
	copy(out.Pix, f.front.Pix)
	return out
}

// PNG encodes the last flushed frame.
func (f *Framebuffer) PNG(w io.Writer) error {
	return png.Encode(w, f.Frame())
}
