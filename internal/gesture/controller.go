// Package gesture turns raw wheel, touch and pointer input into viewport
// changes: wheel zoom, two-finger pinch, drag-to-pan and background taps.
package gesture

import (
	"siteplan/internal/viewport"
	"siteplan/pkg/geometry"
)

const (
	// DefaultWheelFactor is the per-tick zoom factor for wheel events.
	DefaultWheelFactor = 1.02
	// DefaultStepFactor is the zoom factor for toolbar and keyboard zoom.
	DefaultStepFactor = 1.25
)

// WheelEvent is one wheel tick. Pointer is nil when the platform could not
// report a position.
type WheelEvent struct {
	Pointer *geometry.Point2D
	DeltaY  float64
	// Precise is set when the precise-zoom modifier is held. Trackpads send
	// pinch-to-zoom as wheel events with this modifier, so it inverts direction.
	Precise bool
}

// Menu is the contextual menu state a background tap must respect.
type Menu interface {
	MenuOpen() bool
	CloseMenu()
}

// State is the in-flight multi-touch state. It is reset at gesture end.
type State struct {
	LastCenter   *geometry.Point2D
	LastDistance float64
	// PanSuspended is set when a single-pointer pan was stopped because a
	// second finger landed; the pan resumes when one touch remains.
	PanSuspended bool
}

type panState struct {
	active bool
	last   geometry.Point2D
}

type scaleListener struct {
	id uint32
	fn func(scale float64)
}

// Options configures a Controller.
type Options struct {
	WheelFactor float64
	StepFactor  float64
	Menu        Menu
	// OnCreate opens the task creation flow at a world position.
	OnCreate func(world geometry.Point2D)
}

// Controller mutates one shared viewport in response to input events.
// All methods are expected to run on the UI goroutine.
type Controller struct {
	vp          *viewport.Viewport
	wheelFactor float64
	stepFactor  float64
	menu        Menu
	onCreate    func(world geometry.Point2D)

	state State
	pan   panState

	listeners []scaleListener
	nextID    uint32
}

// New creates a controller bound to vp.
func New(vp *viewport.Viewport, opts Options) *Controller {
	c := &Controller{
		vp:          vp,
		wheelFactor: opts.WheelFactor,
		stepFactor:  opts.StepFactor,
		menu:        opts.Menu,
		onCreate:    opts.OnCreate,
	}
	if c.wheelFactor <= 1 {
		c.wheelFactor = DefaultWheelFactor
	}
	if c.stepFactor <= 1 {
		c.stepFactor = DefaultStepFactor
	}
	return c
}

// OnScale registers fn to run synchronously after every zoom or pinch
// mutation, in the same frame as the transform change. The returned func
// unregisters it.
func (c *Controller) OnScale(fn func(scale float64)) (remove func()) {
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, scaleListener{id: id, fn: fn})
	return func() {
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *Controller) notifyScale() {
	scale := c.vp.Transform().Scale
	for _, l := range c.listeners {
		l.fn(scale)
	}
}

// State returns a copy of the current multi-touch state.
func (c *Controller) State() State {
	s := c.state
	if s.LastCenter != nil {
		center := *s.LastCenter
		s.LastCenter = &center
	}
	return s
}

// Wheel zooms around the pointer. It returns false when the event carried
// no pointer position.
func (c *Controller) Wheel(ev WheelEvent) bool {
	if ev.Pointer == nil || ev.DeltaY == 0 {
		return false
	}

	zoomOut := ev.DeltaY > 0
	if ev.Precise {
		zoomOut = !zoomOut
	}

	old := c.vp.Transform().Scale
	next := old * c.wheelFactor
	if zoomOut {
		next = old / c.wheelFactor
	}
	c.vp.ZoomAt(*ev.Pointer, next)
	c.notifyScale()
	return true
}

// ZoomIn zooms one step around anchor.
func (c *Controller) ZoomIn(anchor geometry.Point2D) {
	c.vp.ZoomAt(anchor, c.vp.Transform().Scale*c.stepFactor)
	c.notifyScale()
}

// ZoomOut zooms one step out around anchor.
func (c *Controller) ZoomOut(anchor geometry.Point2D) {
	c.vp.ZoomAt(anchor, c.vp.Transform().Scale/c.stepFactor)
	c.notifyScale()
}

// TouchMove processes one frame of touch positions (screen space).
// Two or more touches drive a combined pinch-zoom and pan; a single touch
// resumes a pan that an earlier pinch suspended. It returns true when the
// transform changed.
func (c *Controller) TouchMove(touches []geometry.Point2D) bool {
	if len(touches) < 2 {
		c.resetPinch()
		if len(touches) == 1 && !c.pan.active && c.state.PanSuspended {
			c.BeginPan(touches[0])
			c.state.PanSuspended = false
		}
		return false
	}

	if c.pan.active {
		c.pan.active = false
		c.state.PanSuspended = true
	}

	center := touches[0].Midpoint(touches[1])
	dist := touches[0].Distance(touches[1])

	if c.state.LastCenter == nil || c.state.LastDistance == 0 {
		c.state.LastCenter = &center
		c.state.LastDistance = dist
		return false
	}
	if dist == 0 {
		return false
	}

	t := c.vp.Transform()
	world := t.ScreenToWorld(center)
	scale := c.vp.Clamp(t.Scale * (dist / c.state.LastDistance))
	shift := center.Sub(*c.state.LastCenter)
	translate := center.Sub(world.Scale(scale)).Add(shift)

	c.vp.Set(viewport.Transform{Scale: scale, TranslateX: translate.X, TranslateY: translate.Y})
	c.notifyScale()

	c.state.LastCenter = &center
	c.state.LastDistance = dist
	return true
}

// TouchEnd is called when a finger lifts; remaining holds the touches still
// down.
func (c *Controller) TouchEnd(remaining []geometry.Point2D) {
	if len(remaining) < 2 {
		c.resetPinch()
	}
	if len(remaining) == 0 {
		c.state.PanSuspended = false
	}
}

func (c *Controller) resetPinch() {
	c.state.LastCenter = nil
	c.state.LastDistance = 0
}

// BeginPan starts a single-pointer pan at p.
func (c *Controller) BeginPan(p geometry.Point2D) {
	c.pan = panState{active: true, last: p}
}

// Pan moves the view with the pointer.
func (c *Controller) Pan(p geometry.Point2D) {
	if !c.pan.active {
		return
	}
	c.vp.PanBy(p.Sub(c.pan.last))
	c.pan.last = p
}

// EndPan finishes a pan and returns the stored transform.
func (c *Controller) EndPan() viewport.Transform {
	c.pan.active = false
	return c.vp.Transform()
}

// Panning reports whether a single-pointer pan is in progress.
func (c *Controller) Panning() bool {
	return c.pan.active
}

// TapBackground handles a tap on the empty canvas or the base image. With
// the context menu open the tap only closes it. Otherwise the creation flow
// opens at the world position under the tap, which is returned.
func (c *Controller) TapBackground(p geometry.Point2D) (geometry.Point2D, bool) {
	if c.menu != nil && c.menu.MenuOpen() {
		c.menu.CloseMenu()
		return geometry.Point2D{}, false
	}
	world := c.vp.Transform().ScreenToWorld(p)
	if c.onCreate != nil {
		c.onCreate(world)
	}
	return world, true
}
