package pinlayer

import (
	"image"
	"image/color"
	"math"
	"strings"
	"unicode"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"siteplan/pkg/colorutil"
	"siteplan/pkg/geometry"
)

// Marker footprint in screen pixels. The tip sits at the pin's world
// position, so the shape is offset by (Width/2, Height).
const (
	MarkerWidth  = 30.0
	MarkerHeight = 45.0
	StrokeWidth  = 2.0

	curveSamples = 12
	arcSamples   = 16
)

// Offset is the anchor of the marker shape in marker-local coordinates.
var Offset = geometry.Point2D{X: MarkerWidth / 2, Y: MarkerHeight}

// Outline returns the teardrop in marker-local coordinates: the top half of
// a circle of radius Width/2 followed by two quadratic curves meeting at the
// tip. The polygon is closed implicitly.
func Outline() []geometry.Point2D {
	r := MarkerWidth / 2
	pts := make([]geometry.Point2D, 0, arcSamples+2*curveSamples+1)
	for i := 0; i <= arcSamples; i++ {
		theta := math.Pi + math.Pi*float64(i)/arcSamples
		pts = append(pts, geometry.Point2D{X: r + r*math.Cos(theta), Y: r + r*math.Sin(theta)})
	}
	right := geometry.QuadraticBezier(
		geometry.Point2D{X: MarkerWidth, Y: r},
		geometry.Point2D{X: MarkerWidth, Y: MarkerHeight * 0.65},
		geometry.Point2D{X: r, Y: MarkerHeight},
		curveSamples)
	left := geometry.QuadraticBezier(
		geometry.Point2D{X: r, Y: MarkerHeight},
		geometry.Point2D{X: 0, Y: MarkerHeight * 0.65},
		geometry.Point2D{X: 0, Y: r},
		curveSamples)
	pts = append(pts, right[1:]...)
	pts = append(pts, left[1:len(left)-1]...)
	return pts
}

var outline = Outline()

// inFootprint reports whether a marker-local point is inside the teardrop.
func inFootprint(local geometry.Point2D) bool {
	if local.X < 0 || local.Y < 0 || local.X > MarkerWidth || local.Y > MarkerHeight {
		return false
	}
	return geometry.PointInPolygon(local, outline)
}

// style is how one marker is painted.
type style struct {
	fill    color.RGBA
	label   string
	opacity float64
}

// drawMarker paints a marker whose tip is at the device-pixel point tip,
// scaled by s device pixels per marker unit.
func drawMarker(dst *image.RGBA, tip geometry.Point2D, s float64, st style) {
	if s <= 0 {
		return
	}
	pad := StrokeWidth * s
	origin := geometry.Point2D{X: tip.X - Offset.X*s - pad, Y: tip.Y - Offset.Y*s - pad}
	box := image.Rect(
		int(math.Floor(origin.X)), int(math.Floor(origin.Y)),
		int(math.Ceil(origin.X+MarkerWidth*s+2*pad)), int(math.Ceil(origin.Y+MarkerHeight*s+2*pad)))
	if !box.Overlaps(dst.Bounds()) || box.Empty() {
		return
	}

	// Marker-local to box-local.
	dx := origin.X - float64(box.Min.X) + pad
	dy := origin.Y - float64(box.Min.Y) + pad
	toBox := func(p geometry.Point2D) (float32, float32) {
		return float32(p.X*s + dx), float32(p.Y*s + dy)
	}

	size := box.Size()
	fill := rasterize(size, func(z *vector.Rasterizer) {
		for i, p := range outline {
			x, y := toBox(p)
			if i == 0 {
				z.MoveTo(x, y)
			} else {
				z.LineTo(x, y)
			}
		}
		z.ClosePath()
	})
	stroke := rasterize(size, func(z *vector.Rasterizer) {
		half := StrokeWidth * s / 2
		for i := range outline {
			a, b := outline[i], outline[(i+1)%len(outline)]
			ax, ay := toBox(a)
			bx, by := toBox(b)
			strokeSegment(z, ax, ay, bx, by, float32(half))
		}
	})

	opacity := st.opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}
	xdraw.DrawMask(dst, box, image.NewUniform(colorutil.WithOpacity(st.fill, opacity)), image.Point{}, fill, image.Point{}, xdraw.Over)
	xdraw.DrawMask(dst, box, image.NewUniform(colorutil.WithOpacity(colorutil.Black, opacity)), image.Point{}, stroke, image.Point{}, xdraw.Over)

	if st.label != "" {
		hx, hy := toBox(geometry.Point2D{X: MarkerWidth / 2, Y: MarkerWidth / 2})
		center := geometry.Point2D{X: float64(box.Min.X) + float64(hx), Y: float64(box.Min.Y) + float64(hy)}
		drawLabel(dst, center, s, st.label, colorutil.WithOpacity(colorutil.White, opacity))
	}
}

// rasterize fills a path into an alpha mask the size of the marker box.
func rasterize(size image.Point, build func(z *vector.Rasterizer)) *image.Alpha {
	z := vector.NewRasterizer(size.X, size.Y)
	build(z)
	mask := image.NewAlpha(z.Bounds())
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// strokeSegment adds a quad of half-width hw around a-b, with square caps so
// consecutive segments join without gaps.
func strokeSegment(z *vector.Rasterizer, ax, ay, bx, by, hw float32) {
	ddx, ddy := bx-ax, by-ay
	l := float32(math.Hypot(float64(ddx), float64(ddy)))
	if l == 0 {
		return
	}
	ux, uy := ddx/l*hw, ddy/l*hw
	nx, ny := -uy, ux
	ax, ay = ax-ux, ay-uy
	bx, by = bx+ux, by+uy
	z.MoveTo(ax+nx, ay+ny)
	z.LineTo(bx+nx, by+ny)
	z.LineTo(bx-nx, by-ny)
	z.LineTo(ax-nx, ay-ny)
	z.ClosePath()
}

// asciiLabel folds label to the printable ASCII that basicfont carries:
// combining accents are stripped ("É" becomes "E") and any other rune
// outside the face becomes '?'.
func asciiLabel(label string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))), label)
	if err != nil {
		folded = label
	}
	return strings.Map(func(r rune) rune {
		if r < ' ' || r > '~' {
			return '?'
		}
		return r
	}, folded)
}

// drawLabel centres text on center. basicfont is a fixed 7x13 bitmap face,
// so the label is drawn at 1x and resampled when s != 1. A second pass one
// pixel to the right stands in for a bold weight.
func drawLabel(dst *image.RGBA, center geometry.Point2D, s float64, label string, c color.RGBA) {
	label = asciiLabel(label)
	face := basicfont.Face7x13
	m := face.Metrics()
	width := font.MeasureString(face, label).Ceil() + 1
	height := (m.Ascent + m.Descent).Ceil()

	sprite := image.NewRGBA(image.Rect(0, 0, width, height))
	d := &font.Drawer{Dst: sprite, Src: image.NewUniform(c), Face: face}
	for _, x := range []int{0, 1} {
		d.Dot = fixed.Point26_6{X: fixed.I(x), Y: m.Ascent}
		d.DrawString(label)
	}

	w := float64(width) * s
	h := float64(height) * s
	r := image.Rect(
		int(math.Round(center.X-w/2)), int(math.Round(center.Y-h/2)),
		int(math.Round(center.X+w/2)), int(math.Round(center.Y+h/2)))
	if s == 1 {
		xdraw.Draw(dst, r, sprite, image.Point{}, xdraw.Over)
		return
	}
	xdraw.ApproxBiLinear.Scale(dst, r, sprite, sprite.Bounds(), xdraw.Over, nil)
}
