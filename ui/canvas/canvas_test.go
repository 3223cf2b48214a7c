package canvas

import (
	"context"
	"image"
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"siteplan/internal/floorplan"
	"siteplan/internal/store"
	"siteplan/internal/task"
	"siteplan/pkg/geometry"
)

type fixture struct {
	canvas  *FloorPlanCanvas
	view    *floorplan.View
	store   *store.Store
	taskID  string
	creates int
}

// newFixture mounts a view over a real store holding one pin at world
// (10,10). The canvas is 800x600 over a 400x300 plan, so the fit scale is 2
// and the pin tip sits at screen (20,20).
func newFixture(t *testing.T, threshold float64) *fixture {
	t.Helper()
	test.NewApp()
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "siteplan.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	u, err := st.CreateUser(ctx, "Ada Lovelace", "#3182CE")
	if err != nil {
		t.Fatal(err)
	}
	pos := geometry.Point2D{X: 10, Y: 10}
	tk, err := st.CreateTask(ctx, u.ID, task.Form{
		Title:     "Drywall",
		Checklist: []task.ChecklistItem{{Item: "tape", Status: task.StatusNotStarted}},
	}, &pos)
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{store: st, taskID: tk.ID}
	f.view = floorplan.New(floorplan.Options{
		Store:         st,
		Owner:         u,
		DragThreshold: threshold,
		OnCreate:      func(geometry.Point2D) { f.creates++ },
	})
	f.view.Mount(ctx)
	t.Cleanup(f.view.Unmount)

	f.canvas = New(f.view)
	f.canvas.Resize(fyne.NewSize(800, 600))
	f.view.SetImage(image.NewRGBA(image.Rect(0, 0, 400, 300)))
	if s := f.view.Transform().Scale; s != 2 {
		t.Fatalf("fit scale %v", s)
	}
	return f
}

func (f *fixture) position(t *testing.T) geometry.Point2D {
	t.Helper()
	tk, err := f.store.Task(context.Background(), f.taskID)
	if err != nil || tk.Position == nil {
		t.Fatalf("task %+v %v", tk, err)
	}
	return *tk.Position
}

func mouse(x, y float32, button desktop.MouseButton) *desktop.MouseEvent {
	return &desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
		Button:     button,
	}
}

func drag(x, y, dx, dy float32) *fyne.DragEvent {
	return &fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
		Dragged:    fyne.NewDelta(dx, dy),
	}
}

func TestMouseDragMovesPin(t *testing.T) {
	f := newFixture(t, 3)
	c := f.canvas

	c.MouseDown(mouse(20, 0, desktop.MouseButtonPrimary))
	c.Dragged(drag(21, 1, 1, 1))
	if got := f.view.Markers()[0].Position; got != (geometry.Point2D{X: 10, Y: 10}) {
		t.Fatalf("moved inside the dead zone: %+v", got)
	}
	c.Dragged(drag(40, 20, 19, 19))
	c.Dragged(drag(100, 80, 60, 60))
	c.MouseUp(mouse(100, 80, desktop.MouseButtonPrimary))
	c.DragEnd()

	if got := f.position(t); got != (geometry.Point2D{X: 50, Y: 50}) {
		t.Fatalf("stored position %+v", got)
	}
	if f.view.Transform().TranslateX != 0 || f.creates != 0 {
		t.Fatal("pin drag must not pan or create")
	}
}

func TestDragEndOutsideWidgetSavesPin(t *testing.T) {
	f := newFixture(t, 3)
	c := f.canvas

	c.MouseDown(mouse(20, 0, desktop.MouseButtonPrimary))
	c.Dragged(drag(100, 80, 80, 80))
	c.DragEnd()

	if got := f.position(t); got != (geometry.Point2D{X: 50, Y: 50}) {
		t.Fatalf("stored position %+v", got)
	}
}

func TestClickInsideDeadZoneTaps(t *testing.T) {
	f := newFixture(t, 3)
	c := f.canvas

	c.MouseDown(mouse(300, 300, desktop.MouseButtonPrimary))
	c.Dragged(drag(302, 301, 2, 1))
	c.MouseUp(mouse(302, 301, desktop.MouseButtonPrimary))
	c.Tapped(&fyne.PointEvent{Position: fyne.NewPos(302, 301)})

	if f.creates != 1 {
		t.Fatalf("creates %d", f.creates)
	}
	if _, ok := f.view.PendingCreate(); !ok {
		t.Fatal("click should open the creation flow")
	}
	if f.view.Transform().TranslateX != 0 {
		t.Fatal("click must not pan")
	}
}

func TestConfiguredDragThreshold(t *testing.T) {
	f := newFixture(t, 20)
	c := f.canvas

	c.MouseDown(mouse(300, 300, desktop.MouseButtonPrimary))
	c.Dragged(drag(315, 300, 15, 0))
	if got := f.view.Transform().TranslateX; got != 0 {
		t.Fatalf("panned inside a 20px dead zone: %v", got)
	}
	c.Dragged(drag(330, 300, 15, 0))
	c.MouseUp(mouse(330, 300, desktop.MouseButtonPrimary))

	if got := f.view.Transform().TranslateX; got != 30 {
		t.Fatalf("pan %v", got)
	}
	if f.creates != 0 {
		t.Fatal("a drag must never create a pin")
	}
}

func TestSecondaryClickOpensPinMenu(t *testing.T) {
	f := newFixture(t, 3)
	c := f.canvas

	c.MouseDown(mouse(20, 0, desktop.MouseButtonSecondary))
	c.MouseUp(mouse(20, 0, desktop.MouseButtonSecondary))

	sel, ok := f.view.Selection()
	if !ok || sel.TaskID != f.taskID {
		t.Fatalf("selection %+v %v", sel, ok)
	}
}

func TestTouchDriverUsesDragAndTap(t *testing.T) {
	f := newFixture(t, 3)
	c := f.canvas

	c.Dragged(drag(310, 300, 10, 0))
	c.Dragged(drag(330, 310, 20, 10))
	c.DragEnd()
	if got := f.view.Transform(); got.TranslateX != 30 || got.TranslateY != 10 {
		t.Fatalf("pan %+v", got)
	}

	c.Tapped(&fyne.PointEvent{Position: fyne.NewPos(400, 400)})
	if f.creates != 1 {
		t.Fatalf("creates %d", f.creates)
	}
}
