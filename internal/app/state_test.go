package app

import (
	"context"
	"errors"
	goimage "image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"siteplan/internal/auth"
	"siteplan/internal/config"
	"siteplan/internal/image"
	"siteplan/internal/store"
	"siteplan/internal/task"
	"siteplan/pkg/geometry"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "siteplan.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	cfg := config.Default()
	cfg.Database = st.Path()
	s := NewState(cfg, st)
	t.Cleanup(func() {
		s.Close()
		st.Close()
	})
	return s
}

func checklist(statuses ...task.Status) []task.ChecklistItem {
	var items []task.ChecklistItem
	for _, st := range statuses {
		items = append(items, task.ChecklistItem{Item: "step", Status: st})
	}
	return items
}

func TestSignInSubscribesToTasks(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t)

	var users []*auth.User
	var pushes int
	s.On(EventUserChanged, func(data interface{}) { users = append(users, data.(*auth.User)) })
	s.On(EventTasksChanged, func(interface{}) { pushes++ })

	if _, err := s.CreateTask(ctx, task.Form{Title: "x", Checklist: checklist(task.StatusDone)}); !errors.Is(err, ErrSignedOut) {
		t.Fatalf("signed-out create: %v", err)
	}

	if _, err := s.Auth.Enroll(ctx, "Ada", auth.Palette[0]); err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0] == nil || pushes != 1 {
		t.Fatalf("after enroll: users=%v pushes=%d", users, pushes)
	}

	if _, err := s.CreateTask(ctx, task.Form{Title: "Tile floor", Checklist: checklist(task.StatusBlocked)}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateTask(ctx, task.Form{Title: "Paint", Checklist: checklist(task.StatusDone)}); err != nil {
		t.Fatal(err)
	}
	if got := s.Tasks(); len(got) != 2 || got[0].Title != "Tile floor" {
		t.Fatalf("tasks %+v", got)
	}

	blocked := task.StatusBlocked
	s.SetFilter(&blocked)
	if got := s.FilteredTasks(); len(got) != 1 || got[0].Title != "Tile floor" {
		t.Fatalf("filtered %+v", got)
	}
	s.SetFilter(nil)
	if len(s.FilteredTasks()) != 2 {
		t.Fatal("nil filter should show all")
	}

	id := s.Tasks()[1].ID
	if err := s.UpdateTask(ctx, id, task.Form{Title: "Paint trim", Checklist: checklist(task.StatusInProgress)}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTask(ctx, s.Tasks()[0].ID); err != nil {
		t.Fatal(err)
	}
	if got := s.Tasks(); len(got) != 1 || got[0].Title != "Paint trim" {
		t.Fatalf("after edits %+v", got)
	}

	if err := s.Auth.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[1] != nil || len(s.Tasks()) != 0 {
		t.Fatalf("after logout: users=%v tasks=%v", users, s.Tasks())
	}
}

func TestStartRestoresSessionAndFloorPlan(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t)
	u, err := s.Store.CreateUser(ctx, "Grace", auth.Palette[1])
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Store.SetSessionUser(ctx, u.ID); err != nil {
		t.Fatal(err)
	}

	plan := filepath.Join(t.TempDir(), "plan.png")
	f, err := os.Create(plan)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, goimage.NewGray(goimage.Rect(0, 0, 12, 9))); err != nil {
		t.Fatal(err)
	}
	f.Close()
	s.Config.FloorPlan = plan

	var loaded []*image.Layer
	s.On(EventFloorPlanLoaded, func(data interface{}) { loaded = append(loaded, data.(*image.Layer)) })
	s.Start(ctx)

	if cur, ok := s.CurrentUser(); !ok || cur.ID != u.ID {
		t.Fatalf("session not restored: %+v", cur)
	}
	layer, err := s.FloorPlan()
	if err != nil || layer == nil || layer.Size().Width != 12 {
		t.Fatalf("floor plan %+v %v", layer, err)
	}
	if len(loaded) != 1 {
		t.Fatalf("load events %d", len(loaded))
	}
}

func TestLoadFloorPlanFailureClearsImage(t *testing.T) {
	s := newTestState(t)
	var errs []error
	s.On(EventError, func(data interface{}) { errs = append(errs, data.(error)) })

	err := s.LoadFloorPlan(filepath.Join(t.TempDir(), "missing.png"))
	var le *image.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if layer, lerr := s.FloorPlan(); layer != nil || lerr == nil {
		t.Fatal("failed load should leave no image")
	}
	if len(errs) != 1 {
		t.Fatalf("error events %v", errs)
	}
}

func TestRemovePinKeepsTask(t *testing.T) {
	ctx := context.Background()
	s := newTestState(t)
	u, err := s.Auth.Enroll(ctx, "Linus", auth.Palette[2])
	if err != nil {
		t.Fatal(err)
	}
	created, err := s.Store.CreateTask(ctx, u.ID, task.Form{Title: "Vent", Checklist: checklist(task.StatusNotStarted)}, &geometry.Point2D{X: 3, Y: 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RemovePin(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	got := s.Tasks()
	if len(got) != 1 || got[0].Placed() {
		t.Fatalf("tasks after remove pin %+v", got)
	}
	if err := s.RemovePin(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing task: %v", err)
	}
}

func TestSetFloorPlanSavesConfig(t *testing.T) {
	s := newTestState(t)
	dir := t.TempDir()
	s.ConfigPath = filepath.Join(dir, "config.yaml")

	plan := filepath.Join(dir, "plan.png")
	f, err := os.Create(plan)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, goimage.NewGray(goimage.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := s.SetFloorPlan(plan); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(s.ConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FloorPlan != plan {
		t.Fatalf("saved floor plan %q", cfg.FloorPlan)
	}
}
