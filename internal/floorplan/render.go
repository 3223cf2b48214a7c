package floorplan

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Backdrop fills the canvas area not covered by the floor plan.
var Backdrop = color.RGBA{R: 0xf4, G: 0xf4, B: 0xf5, A: 0xff}

// Render rasterises the view at w x h device pixels. pixelScale is device
// pixels per screen unit (the widget's HiDPI factor).
func (v *View) Render(w, h int, pixelScale float64) *image.RGBA {
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	if pixelScale <= 0 {
		pixelScale = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(Backdrop), image.Point{}, xdraw.Src)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.background != nil {
		t := v.vp.Transform()
		s := t.Scale * pixelScale
		b := v.background.Bounds()
		// Image pixel (x, y) relative to its bounds lands at s*(x,y) + t.
		m := f64.Aff3{
			s, 0, t.TranslateX*pixelScale - s*float64(b.Min.X),
			0, s, t.TranslateY*pixelScale - s*float64(b.Min.Y),
		}
		var interp xdraw.Interpolator = xdraw.ApproxBiLinear
		if s >= 2 {
			interp = xdraw.NearestNeighbor
		}
		interp.Transform(dst, m, v.background, b, xdraw.Over, nil)
	}

	v.pins.Render(dst, pixelScale)
	return dst
}
