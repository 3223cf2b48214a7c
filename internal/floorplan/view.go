// Package floorplan composes the viewport, gesture controller, pin layer and
// resize reconciler into one interactive floor-plan canvas. It has no UI
// toolkit dependency: a widget feeds it pointer, wheel and touch events and
// blits the raster returned by Render.
package floorplan

import (
	"context"
	"errors"
	"image"
	"sync"

	log "github.com/sirupsen/logrus"

	"siteplan/internal/auth"
	"siteplan/internal/gesture"
	"siteplan/internal/pinlayer"
	"siteplan/internal/task"
	"siteplan/internal/viewport"
	"siteplan/pkg/geometry"
)

// DefaultDragThreshold is the pointer travel (screen px) that turns a press
// into a drag.
const DefaultDragThreshold = 3.0

// ErrNoPendingCreate is returned by ConfirmCreate when the creation flow is
// not open.
var ErrNoPendingCreate = errors.New("no pin placement in progress")

// Store is the task persistence the view reads from and writes to.
type Store interface {
	Subscribe(ctx context.Context, ownerID string, fn func([]task.Task)) (cancel func())
	CreateTask(ctx context.Context, ownerID string, form task.Form, pos *geometry.Point2D) (task.Task, error)
	SetPosition(ctx context.Context, taskID string, p geometry.Point2D) error
}

// Options configures a View. Callbacks run on the goroutine that caused
// them, never while the view is locked.
type Options struct {
	Store Store
	Owner auth.User

	MinScale      float64
	MaxScale      float64
	WheelFactor   float64
	DragThreshold float64
	Pins          pinlayer.Options

	// OnChange asks the widget to redraw.
	OnChange func()
	// OnMenu reports the context menu opening (open=true) or closing.
	OnMenu func(sel pinlayer.Selection, open bool)
	// OnCreate reports that the creation flow opened at a world position.
	OnCreate func(world geometry.Point2D)
	// OnError reports failures from background writes such as a pin drop.
	OnError func(error)
}

type pressTarget int

const (
	targetBackground pressTarget = iota
	targetPin
)

type press struct {
	start    geometry.Point2D
	target   pressTarget
	handle   pinlayer.Handle
	dragging bool
}

// drag is the drag currently routed by DragStart/DragMove/DragEnd.
type drag struct {
	target pressTarget
}

// notes collects what to report once the lock is released.
type notes struct {
	redraw bool
	menu   *menuNote
	create *geometry.Point2D
	err    error
}

type menuNote struct {
	sel  pinlayer.Selection
	open bool
}

// View is one mounted floor-plan canvas. It is safe for concurrent use:
// store pushes and image reloads may arrive from other goroutines.
type View struct {
	mu   sync.Mutex
	opts Options

	vp   *viewport.Viewport
	rec  *viewport.Reconciler
	ctrl *gesture.Controller
	pins *pinlayer.Manager

	background image.Image
	tasks      []task.Task

	mounted bool
	cancel  func()
	pending *geometry.Point2D
	press   *press
	drag    *drag
}

// New creates an unmounted view.
func New(opts Options) *View {
	if opts.DragThreshold <= 0 {
		opts.DragThreshold = DefaultDragThreshold
	}
	opts.Pins.Writer = opts.Store

	v := &View{opts: opts}
	v.vp = viewport.New(opts.MinScale, opts.MaxScale)
	v.rec = viewport.NewReconciler(v.vp)
	v.pins = pinlayer.New(v.vp, opts.Pins)
	v.pins.SetOwner(opts.Owner.Color, opts.Owner.Initials())
	v.ctrl = gesture.New(v.vp, gesture.Options{
		WheelFactor: opts.WheelFactor,
		Menu:        v.pins,
		OnCreate:    v.openCreateLocked,
	})
	v.ctrl.OnScale(v.pins.SetScale)
	return v
}

// Mount subscribes to the owner's tasks. Events are ignored until Mount and
// after Unmount.
func (v *View) Mount(ctx context.Context) {
	v.mu.Lock()
	if v.mounted {
		v.mu.Unlock()
		return
	}
	v.mounted = true
	v.mu.Unlock()

	var cancel func()
	if v.opts.Store != nil {
		cancel = v.opts.Store.Subscribe(ctx, v.opts.Owner.ID, v.setTasks)
	}

	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return
	}
	v.cancel = cancel
	v.mu.Unlock()
	log.Debugf("Canvas: mounted for %s", v.opts.Owner.Username)
}

// Unmount releases the subscription and drops all in-flight interaction.
func (v *View) Unmount() {
	v.mu.Lock()
	cancel := v.cancel
	v.cancel = nil
	v.mounted = false
	v.press = nil
	v.drag = nil
	v.pending = nil
	v.pins.ClearPreview()
	v.pins.CloseMenu()
	v.ctrl.EndPan()
	v.ctrl.TouchEnd(nil)
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	log.Debugf("Canvas: unmounted")
}

// Mounted reports whether the view is live.
func (v *View) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mounted
}

func (v *View) setTasks(tasks []task.Task) {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	v.tasks = tasks
	wasOpen := v.pins.MenuOpen()
	v.pins.Sync(task.Placed(tasks, v.opts.Owner.ID))
	n := notes{redraw: true}
	if wasOpen && !v.pins.MenuOpen() {
		n.menu = &menuNote{open: false}
	}
	v.mu.Unlock()
	v.dispatch(n)
}

// Tasks returns the last pushed task list.
func (v *View) Tasks() []task.Task {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]task.Task(nil), v.tasks...)
}

// Task returns one task from the last pushed list.
func (v *View) Task(id string) (task.Task, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, t := range v.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return task.Task{}, false
}

// update runs fn under the lock when mounted and dispatches its notes.
func (v *View) update(fn func(n *notes)) {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	var n notes
	fn(&n)
	v.mu.Unlock()
	v.dispatch(n)
}

func (v *View) dispatch(n notes) {
	if n.menu != nil && v.opts.OnMenu != nil {
		v.opts.OnMenu(n.menu.sel, n.menu.open)
	}
	if n.create != nil && v.opts.OnCreate != nil {
		v.opts.OnCreate(*n.create)
	}
	if n.err != nil {
		if v.opts.OnError != nil {
			v.opts.OnError(n.err)
		} else {
			log.Errorf("Canvas: %v", n.err)
		}
	}
	if n.redraw && v.opts.OnChange != nil {
		v.opts.OnChange()
	}
}

// --- geometry inputs ---

// Resize reports a new container size from the widget's layout pass.
func (v *View) Resize(size geometry.Size) {
	v.mu.Lock()
	changed := v.rec.SetContainer(size)
	if changed {
		v.pins.SetScale(v.vp.Transform().Scale)
	}
	v.mu.Unlock()
	if changed {
		v.dispatch(notes{redraw: true})
	}
}

// SetImage replaces the background. A nil image renders nothing and fits
// against zero bounds.
func (v *View) SetImage(img image.Image) {
	var size geometry.Size
	if img != nil {
		b := img.Bounds()
		size = geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
	}
	v.mu.Lock()
	v.background = img
	v.rec.SetImage(size)
	v.pins.SetScale(v.vp.Transform().Scale)
	v.mu.Unlock()
	v.dispatch(notes{redraw: true})
}

// Transform returns the current viewport transform.
func (v *View) Transform() viewport.Transform {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.vp.Transform()
}

// CounterScale returns the scale applied to pin markers.
func (v *View) CounterScale() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pins.CounterScale()
}

// Markers returns a snapshot of the pin markers.
func (v *View) Markers() []pinlayer.Marker {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pins.Markers()
}

// GestureState returns the in-flight multi-touch state.
func (v *View) GestureState() gesture.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ctrl.State()
}

// ResetView refits the image to the container, discarding pan and zoom.
func (v *View) ResetView() {
	v.update(func(n *notes) {
		v.rec.Refit()
		v.pins.SetScale(v.vp.Transform().Scale)
		n.redraw = true
	})
}

// --- wheel and touch ---

// Wheel zooms around the event pointer.
func (v *View) Wheel(ev gesture.WheelEvent) {
	v.update(func(n *notes) {
		n.redraw = v.ctrl.Wheel(ev)
	})
}

// ZoomIn zooms one step around the container centre.
func (v *View) ZoomIn() {
	v.update(func(n *notes) {
		v.ctrl.ZoomIn(v.centerLocked())
		n.redraw = true
	})
}

// ZoomOut zooms one step out around the container centre.
func (v *View) ZoomOut() {
	v.update(func(n *notes) {
		v.ctrl.ZoomOut(v.centerLocked())
		n.redraw = true
	})
}

func (v *View) centerLocked() geometry.Point2D {
	c := v.rec.Container()
	return geometry.Point2D{X: c.Width / 2, Y: c.Height / 2}
}

// TouchMove processes one frame of touch positions.
func (v *View) TouchMove(touches []geometry.Point2D) {
	v.update(func(n *notes) {
		n.redraw = v.ctrl.TouchMove(touches)
	})
}

// TouchEnd is called when a finger lifts.
func (v *View) TouchEnd(remaining []geometry.Point2D) {
	v.update(func(n *notes) {
		v.ctrl.TouchEnd(remaining)
	})
}

// --- pointer routing ---

// PointerDown starts a press. Whether it becomes a tap or a drag is decided
// by how far the pointer travels before PointerUp.
func (v *View) PointerDown(p geometry.Point2D) {
	v.update(func(n *notes) {
		pr := &press{start: p}
		if h, ok := v.pins.HitTest(p); ok {
			pr.target = targetPin
			pr.handle = h
		}
		v.press = pr
	})
}

// PointerMove continues a press.
func (v *View) PointerMove(p geometry.Point2D) {
	v.update(func(n *notes) {
		pr := v.press
		if pr == nil {
			return
		}
		if !pr.dragging {
			if p.Distance(pr.start) <= v.opts.DragThreshold {
				return
			}
			pr.dragging = true
			v.beginDragLocked(pr.start, pr.target, pr.handle, n)
		}
		v.dragMoveLocked(p, n)
	})
}

// PointerUp ends a press: a drag is finished (a dropped pin is saved), a
// press that never left the dead zone is a tap.
func (v *View) PointerUp(ctx context.Context, p geometry.Point2D) {
	v.mu.Lock()
	pr := v.press
	v.press = nil
	v.mu.Unlock()
	if pr == nil {
		return
	}
	if pr.dragging {
		v.DragEnd(ctx)
		return
	}
	v.Tap(p)
}

// Tap handles a tap at a screen point: on a pin it opens the context menu,
// on the background it closes an open menu or starts pin creation.
func (v *View) Tap(p geometry.Point2D) {
	v.update(func(n *notes) {
		if h, ok := v.pins.HitTest(p); ok {
			if sel, ok := v.pins.OpenMenu(h, p); ok {
				n.menu = &menuNote{sel: sel, open: true}
			}
			return
		}
		wasOpen := v.pins.MenuOpen()
		if world, ok := v.ctrl.TapBackground(p); ok {
			n.create = &world
			n.redraw = true
			return
		}
		if wasOpen {
			n.menu = &menuNote{open: false}
		}
	})
}

// DragStart begins a drag at p, moving the pin under it or panning the view.
func (v *View) DragStart(p geometry.Point2D) {
	v.update(func(n *notes) {
		target := targetBackground
		h, ok := v.pins.HitTest(p)
		if ok {
			target = targetPin
		}
		v.beginDragLocked(p, target, h, n)
	})
}

// DragMove continues the current drag.
func (v *View) DragMove(p geometry.Point2D) {
	v.update(func(n *notes) {
		v.dragMoveLocked(p, n)
	})
}

// DragEnd finishes the current drag. A dropped pin is written to the store;
// a failed write is reported through OnError and returned.
func (v *View) DragEnd(ctx context.Context) error {
	v.mu.Lock()
	d := v.drag
	v.drag = nil
	if d == nil || !v.mounted {
		v.mu.Unlock()
		return nil
	}
	if d.target == targetBackground {
		v.ctrl.EndPan()
		v.mu.Unlock()
		return nil
	}
	drop, ok := v.pins.FinishDrag()
	v.mu.Unlock()
	if !ok {
		return nil
	}

	if err := drop.Save(ctx); err != nil {
		v.dispatch(notes{err: err, redraw: true})
		return err
	}
	return nil
}

func (v *View) beginDragLocked(p geometry.Point2D, target pressTarget, h pinlayer.Handle, n *notes) {
	if target == targetPin {
		wasOpen := v.pins.MenuOpen()
		if v.pins.DragStart(h, p) {
			v.drag = &drag{target: targetPin}
			if wasOpen {
				n.menu = &menuNote{open: false}
			}
			return
		}
	}
	v.ctrl.BeginPan(p)
	v.drag = &drag{target: targetBackground}
}

func (v *View) dragMoveLocked(p geometry.Point2D, n *notes) {
	if v.drag == nil {
		return
	}
	switch v.drag.target {
	case targetPin:
		n.redraw = v.pins.DragMove(p)
	default:
		if v.ctrl.Panning() {
			v.ctrl.Pan(p)
			n.redraw = true
		}
	}
}

// --- context menu ---

// Selection returns the task the context menu is open for.
func (v *View) Selection() (pinlayer.Selection, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pins.Selection()
}

// CloseMenu closes the context menu.
func (v *View) CloseMenu() {
	v.update(func(n *notes) {
		if v.pins.MenuOpen() {
			v.pins.CloseMenu()
			n.menu = &menuNote{open: false}
		}
	})
}

// --- creation flow ---

// openCreateLocked is the gesture controller's creation callback; it runs
// with the view locked.
func (v *View) openCreateLocked(world geometry.Point2D) {
	p := world
	v.pending = &p
	v.pins.ShowPreview(world)
}

// PendingCreate returns the world position awaiting a new task.
func (v *View) PendingCreate() (geometry.Point2D, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pending == nil {
		return geometry.Point2D{}, false
	}
	return *v.pending, true
}

// ConfirmCreate stores a new task pinned at the pending position. On a
// validation or store error the creation flow stays open.
func (v *View) ConfirmCreate(ctx context.Context, form task.Form) (task.Task, error) {
	v.mu.Lock()
	if v.pending == nil || !v.mounted {
		v.mu.Unlock()
		return task.Task{}, ErrNoPendingCreate
	}
	pos := *v.pending
	v.mu.Unlock()

	if v.opts.Store == nil {
		return task.Task{}, errors.New("no task store")
	}
	t, err := v.opts.Store.CreateTask(ctx, v.opts.Owner.ID, form, &pos)
	if err != nil {
		return task.Task{}, err
	}

	v.mu.Lock()
	if v.pending != nil && *v.pending == pos {
		v.pending = nil
		v.pins.ClearPreview()
	}
	v.mu.Unlock()
	v.dispatch(notes{redraw: true})
	log.Infof("Canvas: created task %q at (%.1f, %.1f)", t.Title, pos.X, pos.Y)
	return t, nil
}

// CancelCreate closes the creation flow and removes the preview.
func (v *View) CancelCreate() {
	v.update(func(n *notes) {
		if v.pending == nil {
			return
		}
		v.pending = nil
		v.pins.ClearPreview()
		n.redraw = true
	})
}
