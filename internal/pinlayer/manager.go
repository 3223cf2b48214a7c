// Package pinlayer keeps one draggable marker per placed task on top of the
// floor plan, at a constant on-screen size regardless of zoom.
package pinlayer

import (
	"context"
	"fmt"
	"image"
	"image/color"

	log "github.com/sirupsen/logrus"

	"siteplan/internal/task"
	"siteplan/internal/viewport"
	"siteplan/pkg/colorutil"
	"siteplan/pkg/geometry"
)

// Default marker colors.
var (
	DefaultFallbackColor  = color.RGBA{R: 0xe5, G: 0x3e, B: 0x3e, A: 0xff} // #E53E3E
	DefaultPreviewColor   = color.RGBA{R: 0xa0, G: 0xae, B: 0xc0, A: 0xff} // #A0AEC0
	DefaultPreviewOpacity = 0.8
)


// PositionWriter persists a task's pin position.
type PositionWriter interface {
	SetPosition(ctx context.Context, taskID string, p geometry.Point2D) error
}

// Handle identifies a marker node. Handles are never reused.
type Handle uint32

// Marker is a snapshot of one rendered pin.
type Marker struct {
	Handle   Handle
	Position geometry.Point2D
	// Scale is the counter-scale applied to the marker, 1/Transform.Scale.
	Scale float64
}

// Selection is the task a context menu was opened for, anchored at the
// pointer's screen position.
type Selection struct {
	TaskID string
	Anchor geometry.Point2D
}

type dragState struct {
	handle Handle
	grab   geometry.Point2D
}

// Options configures a Manager.
type Options struct {
	Writer         PositionWriter
	FallbackColor  color.RGBA
	PreviewColor   color.RGBA
	PreviewOpacity float64
}

// Manager owns the markers. It is not safe for concurrent use; the
// floor-plan view serialises access.
type Manager struct {
	vp     *viewport.Viewport
	writer PositionWriter

	fallback       color.RGBA
	previewColor   color.RGBA
	previewOpacity float64

	ownerColor *color.RGBA
	label      string

	markers []*Marker         // bottom to top
	tasks   map[Handle]string // handle -> task id
	byTask  map[string]Handle
	next    Handle
	scale   float64

	menu    *Selection
	drag    *dragState
	preview *geometry.Point2D
}

// New creates a manager drawing over vp.
func New(vp *viewport.Viewport, opts Options) *Manager {
	m := &Manager{
		vp:             vp,
		writer:         opts.Writer,
		fallback:       opts.FallbackColor,
		previewColor:   opts.PreviewColor,
		previewOpacity: opts.PreviewOpacity,
		tasks:          make(map[Handle]string),
		byTask:         make(map[string]Handle),
		scale:          vp.Transform().CounterScale(),
	}
	if m.fallback.A == 0 {
		m.fallback = DefaultFallbackColor
	}
	if m.previewColor.A == 0 {
		m.previewColor = DefaultPreviewColor
	}
	if m.previewOpacity <= 0 || m.previewOpacity > 1 {
		m.previewOpacity = DefaultPreviewOpacity
	}
	return m
}

// SetOwner sets the fill color (hex) and label drawn on every marker. An
// empty or malformed color uses the fallback.
func (m *Manager) SetOwner(hexColor, label string) {
	if c, err := colorutil.ParseHex(hexColor); err == nil {
		m.ownerColor = &c
	} else {
		m.ownerColor = nil
	}
	m.label = label
}

// Sync reconciles markers with the placed tasks. Markers keep their handle
// across syncs; the marker being dragged keeps its in-flight position.
func (m *Manager) Sync(tasks []task.Task) {
	seen := make(map[string]bool, len(tasks))
	markers := make([]*Marker, 0, len(tasks))
	existing := make(map[Handle]*Marker, len(m.markers))
	for _, mk := range m.markers {
		existing[mk.Handle] = mk
	}

	for _, t := range tasks {
		if t.Position == nil || seen[t.ID] {
			continue
		}
		seen[t.ID] = true

		if h, ok := m.byTask[t.ID]; ok {
			mk := existing[h]
			if m.drag == nil || m.drag.handle != h {
				mk.Position = *t.Position
			}
			markers = append(markers, mk)
			continue
		}

		m.next++
		mk := &Marker{Handle: m.next, Position: *t.Position, Scale: m.scale}
		m.tasks[mk.Handle] = t.ID
		m.byTask[t.ID] = mk.Handle
		markers = append(markers, mk)
	}

	for id, h := range m.byTask {
		if seen[id] {
			continue
		}
		delete(m.byTask, id)
		delete(m.tasks, h)
		if m.drag != nil && m.drag.handle == h {
			log.Debugf("Pins: task %s removed during drag", id)
			m.drag = nil
		}
		if m.menu != nil && m.menu.TaskID == id {
			m.menu = nil
		}
	}
	m.markers = markers
}

// Markers returns a snapshot of the markers, bottom to top.
func (m *Manager) Markers() []Marker {
	out := make([]Marker, len(m.markers))
	for i, mk := range m.markers {
		out[i] = *mk
	}
	return out
}

// TaskID resolves a marker handle to its task.
func (m *Manager) TaskID(h Handle) (string, bool) {
	id, ok := m.tasks[h]
	return id, ok
}

// SetScale applies the counter-scale for a new viewport scale to every
// marker. It is registered as a gesture scale listener.
func (m *Manager) SetScale(scale float64) {
	if scale <= 0 {
		return
	}
	m.scale = 1 / scale
	for _, mk := range m.markers {
		mk.Scale = m.scale
	}
}

// CounterScale returns the render scale currently applied to markers.
func (m *Manager) CounterScale() float64 {
	return m.scale
}

// HitTest returns the topmost marker under the screen point p.
func (m *Manager) HitTest(p geometry.Point2D) (Handle, bool) {
	t := m.vp.Transform()
	for i := len(m.markers) - 1; i >= 0; i-- {
		mk := m.markers[i]
		screenScale := t.Scale * mk.Scale
		if screenScale <= 0 {
			continue
		}
		tip := t.WorldToScreen(mk.Position)
		local := p.Sub(tip).Scale(1 / screenScale).Add(Offset)
		if inFootprint(local) {
			return mk.Handle, true
		}
	}
	return 0, false
}

// --- context menu ---

// OpenMenu opens the context menu for the marker at the screen anchor,
// replacing any menu already open.
func (m *Manager) OpenMenu(h Handle, anchor geometry.Point2D) (Selection, bool) {
	id, ok := m.tasks[h]
	if !ok {
		return Selection{}, false
	}
	m.menu = &Selection{TaskID: id, Anchor: anchor}
	return *m.menu, true
}

// Selection returns the open context menu, if any.
func (m *Manager) Selection() (Selection, bool) {
	if m.menu == nil {
		return Selection{}, false
	}
	return *m.menu, true
}

// MenuOpen reports whether a context menu is open.
func (m *Manager) MenuOpen() bool {
	return m.menu != nil
}

// CloseMenu closes the context menu.
func (m *Manager) CloseMenu() {
	m.menu = nil
}

// --- drag ---

// DragStart begins dragging marker h from the screen point p. Any open menu
// is closed. The offset between the pointer and the pin is kept for the
// whole drag.
func (m *Manager) DragStart(h Handle, p geometry.Point2D) bool {
	mk := m.marker(h)
	if mk == nil {
		return false
	}
	m.menu = nil
	pointer := m.vp.Transform().ScreenToWorld(p)
	m.drag = &dragState{handle: h, grab: mk.Position.Sub(pointer)}
	m.raise(h)
	return true
}

// DragMove moves the dragged marker with the pointer.
func (m *Manager) DragMove(p geometry.Point2D) bool {
	if m.drag == nil {
		return false
	}
	mk := m.marker(m.drag.handle)
	if mk == nil {
		m.drag = nil
		return false
	}
	mk.Position = m.vp.Transform().ScreenToWorld(p).Add(m.drag.grab)
	return true
}

// Dragging reports whether a marker drag is in progress.
func (m *Manager) Dragging() bool {
	return m.drag != nil
}

// Drop is a finished marker drag: the task and the world position it was
// dropped at.
type Drop struct {
	TaskID   string
	Position geometry.Point2D

	writer PositionWriter
}

// Save writes the drop through the manager's PositionWriter. A failed write
// leaves the marker where it was dropped; the next Sync restores the stored
// position. Save touches no manager state, so callers may run it after
// releasing whatever lock guards the manager.
func (d Drop) Save(ctx context.Context) error {
	if d.writer == nil {
		return nil
	}
	if err := d.writer.SetPosition(ctx, d.TaskID, d.Position); err != nil {
		return fmt.Errorf("save pin position for %s: %w", d.TaskID, err)
	}
	log.Debugf("Pins: moved %s to (%.1f, %.1f)", d.TaskID, d.Position.X, d.Position.Y)
	return nil
}

// FinishDrag ends the drag. ok is false when no marker drag was in progress
// or the dragged task vanished.
func (m *Manager) FinishDrag() (drop Drop, ok bool) {
	if m.drag == nil {
		return Drop{}, false
	}
	h := m.drag.handle
	m.drag = nil
	mk := m.marker(h)
	id, found := m.tasks[h]
	if mk == nil || !found {
		return Drop{}, false
	}
	return Drop{TaskID: id, Position: mk.Position, writer: m.writer}, true
}

func (m *Manager) marker(h Handle) *Marker {
	for _, mk := range m.markers {
		if mk.Handle == h {
			return mk
		}
	}
	return nil
}

// raise moves marker h to the top of the stack.
func (m *Manager) raise(h Handle) {
	for i, mk := range m.markers {
		if mk.Handle == h {
			m.markers = append(append(m.markers[:i:i], m.markers[i+1:]...), mk)
			return
		}
	}
}

// --- placement preview ---

// ShowPreview places the non-interactive creation preview at a world point.
func (m *Manager) ShowPreview(world geometry.Point2D) {
	p := world
	m.preview = &p
}

// ClearPreview removes the creation preview.
func (m *Manager) ClearPreview() {
	m.preview = nil
}

// Preview returns the preview position, if shown.
func (m *Manager) Preview() (geometry.Point2D, bool) {
	if m.preview == nil {
		return geometry.Point2D{}, false
	}
	return *m.preview, true
}

// --- rendering ---

// Render draws every marker, then the preview, onto dst. pixelScale is
// device pixels per screen unit.
func (m *Manager) Render(dst *image.RGBA, pixelScale float64) {
	t := m.vp.Transform()
	fill := m.fallback
	if m.ownerColor != nil {
		fill = *m.ownerColor
	}

	for _, mk := range m.markers {
		tip := t.WorldToScreen(mk.Position).Scale(pixelScale)
		drawMarker(dst, tip, t.Scale*mk.Scale*pixelScale, style{fill: fill, label: m.label, opacity: 1})
	}

	if m.preview != nil {
		pfill := m.previewColor
		if m.ownerColor != nil {
			pfill = *m.ownerColor
		}
		tip := t.WorldToScreen(*m.preview).Scale(pixelScale)
		drawMarker(dst, tip, t.Scale*m.scale*pixelScale, style{fill: pfill, label: m.label, opacity: m.previewOpacity})
	}
}
