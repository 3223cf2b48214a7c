// Package viewport maps between world (image pixel) and screen (container
// pixel) coordinates and owns the single transform a canvas view renders with.
package viewport

import (
	"math"

	"siteplan/pkg/geometry"
)

const (
	DefaultMinScale = 0.02
	DefaultMaxScale = 40.0
)

// Transform is a uniform scale followed by a translation.
// Scale is always > 0.
type Transform struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
}

// Identity returns the transform that leaves points unchanged.
func Identity() Transform {
	return Transform{Scale: 1}
}

// Translate returns the translation component as a point.
func (t Transform) Translate() geometry.Point2D {
	return geometry.Point2D{X: t.TranslateX, Y: t.TranslateY}
}

// WorldToScreen converts world coordinates to screen coordinates.
func (t Transform) WorldToScreen(p geometry.Point2D) geometry.Point2D {
	return p.Scale(t.Scale).Add(t.Translate())
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (t Transform) ScreenToWorld(p geometry.Point2D) geometry.Point2D {
	return p.Sub(t.Translate()).Scale(1 / t.Scale)
}

// CounterScale returns the render scale that keeps an element at a constant
// on-screen size under this transform.
func (t Transform) CounterScale() float64 {
	return 1 / t.Scale
}

// ZoomAt returns a transform with the given scale that keeps the world point
// currently under anchor at the same screen position.
func (t Transform) ZoomAt(anchor geometry.Point2D, scale float64) Transform {
	world := t.ScreenToWorld(anchor)
	translate := anchor.Sub(world.Scale(scale))
	return Transform{Scale: scale, TranslateX: translate.X, TranslateY: translate.Y}
}

// Viewport holds the live transform for one mounted canvas and enforces the
// [MinScale, MaxScale] clamp on every zoom.
type Viewport struct {
	t        Transform
	minScale float64
	maxScale float64
}

// New creates a viewport with the identity transform. Non-positive or
// inverted bounds fall back to the defaults.
func New(minScale, maxScale float64) *Viewport {
	if minScale <= 0 {
		minScale = DefaultMinScale
	}
	if maxScale <= 0 {
		maxScale = DefaultMaxScale
	}
	if minScale > maxScale {
		minScale, maxScale = DefaultMinScale, DefaultMaxScale
	}
	return &Viewport{t: Identity(), minScale: minScale, maxScale: maxScale}
}

// Transform returns the current transform.
func (v *Viewport) Transform() Transform {
	return v.t
}

// Bounds returns the scale clamp.
func (v *Viewport) Bounds() (minScale, maxScale float64) {
	return v.minScale, v.maxScale
}

// Set replaces the transform wholesale. A non-positive scale is ignored so
// readers never divide by zero.
func (v *Viewport) Set(t Transform) {
	if t.Scale <= 0 {
		return
	}
	v.t = t
}

// Clamp limits scale to the viewport bounds. A fit transform may sit outside
// the bounds; the band then widens to include the current scale so a zoom
// never snaps.
func (v *Viewport) Clamp(scale float64) float64 {
	lo := math.Min(v.minScale, v.t.Scale)
	hi := math.Max(v.maxScale, v.t.Scale)
	if scale < lo {
		return lo
	}
	if scale > hi {
		return hi
	}
	return scale
}

// ZoomAt rescales around anchor (screen space), clamping the new scale.
// It returns the scale actually applied.
func (v *Viewport) ZoomAt(anchor geometry.Point2D, scale float64) float64 {
	scale = v.Clamp(scale)
	v.t = v.t.ZoomAt(anchor, scale)
	return scale
}

// PanBy shifts the translation by a screen-space delta.
func (v *Viewport) PanBy(delta geometry.Point2D) {
	v.t.TranslateX += delta.X
	v.t.TranslateY += delta.Y
}

// SetTranslate replaces the translation, keeping the scale.
func (v *Viewport) SetTranslate(p geometry.Point2D) {
	v.t.TranslateX = p.X
	v.t.TranslateY = p.Y
}
