// Package canvas provides the floor-plan widget: a raster that renders a
// floorplan.View and forwards wheel, mouse and touch input to it.
package canvas

import (
	"context"
	"image"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"siteplan/internal/floorplan"
	"siteplan/internal/gesture"
	"siteplan/pkg/geometry"
)

// FloorPlanCanvas displays one floorplan.View.
type FloorPlanCanvas struct {
	widget.BaseWidget

	view   *floorplan.View
	raster *fynecanvas.Raster

	// mouse is set once the driver delivers a MouseDown. From then on
	// presses go through the view's pointer API and the Tapped and
	// unpressed Dragged callbacks are ignored.
	mouse bool

	// pressed is set between a primary MouseDown and its release.
	pressed bool
	last    fyne.Position

	// dragging is set between the first Dragged event and DragEnd on
	// drivers without mouse events.
	dragging bool
}

var (
	_ desktop.Mouseable      = (*FloorPlanCanvas)(nil)
	_ fyne.Draggable         = (*FloorPlanCanvas)(nil)
	_ fyne.Tappable          = (*FloorPlanCanvas)(nil)
	_ fyne.SecondaryTappable = (*FloorPlanCanvas)(nil)
	_ fyne.Scrollable        = (*FloorPlanCanvas)(nil)
	_ desktop.Cursorable     = (*FloorPlanCanvas)(nil)
)

// New creates a canvas for view. The view may be nil and set later.
func New(view *floorplan.View) *FloorPlanCanvas {
	c := &FloorPlanCanvas{view: view}
	c.raster = fynecanvas.NewRaster(c.draw)
	c.raster.ScaleMode = fynecanvas.ImageScalePixels
	c.ExtendBaseWidget(c)
	return c
}

// SetView swaps the displayed view, e.g. after a different user signs in.
func (c *FloorPlanCanvas) SetView(view *floorplan.View) {
	c.view = view
	c.pressed = false
	c.dragging = false
	if view != nil {
		size := c.Size()
		view.Resize(geometry.NewSize(float64(size.Width), float64(size.Height)))
	}
	c.Refresh()
}

// View returns the displayed view.
func (c *FloorPlanCanvas) View() *floorplan.View {
	return c.view
}

// CreateRenderer implements fyne.Widget.
func (c *FloorPlanCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &canvasRenderer{canvas: c}
}

// MinSize keeps the canvas usable in a small window.
func (c *FloorPlanCanvas) MinSize() fyne.Size {
	return fyne.NewSize(240, 180)
}

// Refresh redraws the raster.
func (c *FloorPlanCanvas) Refresh() {
	c.raster.Refresh()
}

// Cursor implements desktop.Cursorable.
func (c *FloorPlanCanvas) Cursor() desktop.Cursor {
	return desktop.CrosshairCursor
}

func (c *FloorPlanCanvas) draw(w, h int) image.Image {
	if c.view == nil {
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}
	pixelScale := 1.0
	if size := c.Size(); size.Width > 0 {
		pixelScale = float64(w) / float64(size.Width)
	}
	return c.view.Render(w, h, pixelScale)
}

func point(p fyne.Position) geometry.Point2D {
	return geometry.Point2D{X: float64(p.X), Y: float64(p.Y)}
}

// Scrolled zooms around the pointer. Fyne reports wheel-up as positive DY,
// the opposite sign of a DOM wheel delta.
func (c *FloorPlanCanvas) Scrolled(ev *fyne.ScrollEvent) {
	if c.view == nil || ev.Scrolled.DY == 0 {
		return
	}
	p := point(ev.Position)
	c.view.Wheel(gesture.WheelEvent{
		Pointer: &p,
		DeltaY:  -float64(ev.Scrolled.DY),
		Precise: preciseModifier(),
	})
}

// preciseModifier reports whether Ctrl is held. Trackpad pinch arrives as
// Ctrl+wheel on desktop drivers.
func preciseModifier() bool {
	app := fyne.CurrentApp()
	if app == nil {
		return false
	}
	if d, ok := app.Driver().(desktop.Driver); ok {
		return d.CurrentKeyModifiers()&fyne.KeyModifierControl != 0
	}
	return false
}

// MouseDown starts a press. The view decides on release, or once the
// pointer leaves the drag dead zone, whether the press is a tap or a drag.
func (c *FloorPlanCanvas) MouseDown(ev *desktop.MouseEvent) {
	c.mouse = true
	if c.view == nil || ev.Button != desktop.MouseButtonPrimary {
		return
	}
	c.pressed = true
	c.last = ev.Position
	c.view.PointerDown(point(ev.Position))
}

// MouseUp ends a press. A secondary click is a tap so right-click also opens
// the pin menu.
func (c *FloorPlanCanvas) MouseUp(ev *desktop.MouseEvent) {
	if c.view == nil {
		return
	}
	if ev.Button == desktop.MouseButtonSecondary {
		if c.inside(ev.Position) {
			c.view.Tap(point(ev.Position))
		}
		return
	}
	if !c.pressed {
		return
	}
	c.pressed = false
	c.view.PointerUp(context.Background(), point(ev.Position))
}

// Dragged feeds pointer movement during a mouse press. Drivers without
// mouse events pan the view or move the pin under the drag start directly.
func (c *FloorPlanCanvas) Dragged(ev *fyne.DragEvent) {
	if c.view == nil {
		return
	}
	if c.pressed {
		c.last = ev.Position
		c.view.PointerMove(point(ev.Position))
		return
	}
	if c.mouse {
		return
	}
	if !c.dragging {
		c.dragging = true
		start := ev.Position.Subtract(ev.Dragged)
		c.view.DragStart(point(start))
	}
	c.view.DragMove(point(ev.Position))
}

// DragEnd finishes the drag; a dropped pin is saved. Fyne sends DragEnd
// instead of MouseUp when the button is released outside the widget.
func (c *FloorPlanCanvas) DragEnd() {
	if c.view == nil {
		return
	}
	if c.pressed {
		c.pressed = false
		c.view.PointerUp(context.Background(), point(c.last))
		return
	}
	if !c.dragging {
		return
	}
	c.dragging = false
	_ = c.view.DragEnd(context.Background())
}

// Tapped opens a pin's menu or starts pin creation on drivers without mouse
// events.
func (c *FloorPlanCanvas) Tapped(ev *fyne.PointEvent) {
	if c.mouse || c.view == nil || !c.inside(ev.Position) {
		return
	}
	c.view.Tap(point(ev.Position))
}

// TappedSecondary behaves like a tap.
func (c *FloorPlanCanvas) TappedSecondary(ev *fyne.PointEvent) {
	c.Tapped(ev)
}

// inside rejects events Fyne delivers outside the widget bounds.
func (c *FloorPlanCanvas) inside(p fyne.Position) bool {
	size := c.Size()
	return p.X >= 0 && p.Y >= 0 && p.X <= size.Width && p.Y <= size.Height
}

type canvasRenderer struct {
	canvas *FloorPlanCanvas
}

// Layout observes container size changes and feeds the resize reconciler.
func (r *canvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
	if v := r.canvas.view; v != nil {
		v.Resize(geometry.NewSize(float64(size.Width), float64(size.Height)))
	}
}

func (r *canvasRenderer) MinSize() fyne.Size {
	return r.canvas.MinSize()
}

func (r *canvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *canvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *canvasRenderer) Destroy() {}
