package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"siteplan/internal/auth"
	"siteplan/internal/task"
	"siteplan/pkg/geometry"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "siteplan.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func form(title string, statuses ...task.Status) task.Form {
	f := task.Form{Title: title}
	for _, st := range statuses {
		f.Checklist = append(f.Checklist, task.ChecklistItem{Item: "step", Status: st})
	}
	return f
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	u, err := s.CreateUser(ctx, "Ada Lovelace", "#3182CE")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	got, err := s.FindUserByName(ctx, "ada lovelace")
	if err != nil || got == nil || got.ID != u.ID {
		t.Fatalf("find by name: %+v %v", got, err)
	}
	if got, err := s.FindUserByName(ctx, "nobody"); err != nil || got != nil {
		t.Fatalf("missing user: %+v %v", got, err)
	}
	if _, err := s.CreateUser(ctx, "ADA LOVELACE", "#E53E3E"); !errors.Is(err, auth.ErrUsernameTaken) {
		t.Fatalf("duplicate: %v", err)
	}
	if byID, err := s.UserByID(ctx, u.ID); err != nil || byID.Username != "Ada Lovelace" {
		t.Fatalf("by id: %+v %v", byID, err)
	}
	if _, err := s.CreateUser(ctx, "Bob", "#38A169"); err != nil {
		t.Fatal(err)
	}
	users, err := s.ListUsers(ctx)
	if err != nil || len(users) != 2 || users[0].Username != "Ada Lovelace" {
		t.Fatalf("list users: %+v %v", users, err)
	}
}

func TestSession(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	if id, err := s.SessionUserID(ctx); err != nil || id != "" {
		t.Fatalf("empty session: %q %v", id, err)
	}
	for _, want := range []string{"u1", "u2"} {
		if err := s.SetSessionUser(ctx, want); err != nil {
			t.Fatal(err)
		}
		if id, _ := s.SessionUserID(ctx); id != want {
			t.Fatalf("session = %q, want %q", id, want)
		}
	}
	if err := s.SetSessionUser(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if id, _ := s.SessionUserID(ctx); id != "" {
		t.Fatalf("cleared session = %q", id)
	}
}

func TestTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	u, _ := s.CreateUser(ctx, "ada", "#3182CE")

	pos := &geometry.Point2D{X: 10, Y: 20}
	first, err := s.CreateTask(ctx, u.ID, task.Form{
		Title: "  Hang door ",
		Checklist: []task.ChecklistItem{
			{Item: "frame", Status: task.StatusDone},
			{Item: "  ", Status: task.StatusBlocked},
		},
	}, pos)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Title != "Hang door" || len(first.Checklist) != 1 {
		t.Fatalf("form not normalised: %+v", first)
	}
	second, err := s.CreateTask(ctx, u.ID, form("Paint", task.StatusInProgress), nil)
	if err != nil {
		t.Fatal(err)
	}

	tasks, err := s.ListTasks(ctx, u.ID)
	if err != nil || len(tasks) != 2 {
		t.Fatalf("list: %+v %v", tasks, err)
	}
	if tasks[0].ID != first.ID || tasks[1].ID != second.ID {
		t.Fatal("tasks should be ordered by creation time")
	}
	if tasks[0].Position == nil || *tasks[0].Position != *pos || tasks[1].Position != nil {
		t.Fatalf("positions: %+v %+v", tasks[0].Position, tasks[1].Position)
	}
	if tasks[0].Status() != task.StatusDone {
		t.Fatalf("status: %v", tasks[0].Status())
	}

	if err := s.UpdateTask(ctx, second.ID, form("Paint walls", task.StatusDone, task.StatusFinalCheckAwaiting)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPosition(ctx, second.ID, geometry.Point2D{X: 50, Y: 50}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Task(ctx, second.ID)
	if err != nil || got.Title != "Paint walls" || got.Status() != task.StatusFinalCheckAwaiting {
		t.Fatalf("updated: %+v %v", got, err)
	}
	if got.Position == nil || *got.Position != (geometry.Point2D{X: 50, Y: 50}) {
		t.Fatalf("position: %+v", got.Position)
	}

	if err := s.ClearPosition(ctx, second.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTask(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPosition(ctx, first.ID, geometry.Point2D{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("write to deleted task: %v", err)
	}
	if _, err := s.Task(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("read deleted task: %v", err)
	}
}

func TestCreateTaskRejectsInvalidForm(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	u, _ := s.CreateUser(ctx, "ada", "#3182CE")

	_, err := s.CreateTask(ctx, u.ID, task.Form{Title: " "}, nil)
	if !errors.Is(err, task.ErrTitleRequired) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	ada, _ := s.CreateUser(ctx, "ada", "#3182CE")
	bob, _ := s.CreateUser(ctx, "bob", "#38A169")

	var pushes [][]task.Task
	cancel := s.Subscribe(ctx, ada.ID, func(tasks []task.Task) { pushes = append(pushes, tasks) })

	if len(pushes) != 1 || len(pushes[0]) != 0 {
		t.Fatalf("initial push: %+v", pushes)
	}

	created, err := s.CreateTask(ctx, ada.ID, form("Wire lights", task.StatusNotStarted), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateTask(ctx, bob.ID, form("Other owner", task.StatusNotStarted), nil); err != nil {
		t.Fatal(err)
	}
	if len(pushes) != 2 || len(pushes[1]) != 1 || pushes[1][0].ID != created.ID {
		t.Fatalf("pushes after create: %+v", pushes)
	}

	if err := s.SetPosition(ctx, created.ID, geometry.Point2D{X: 1, Y: 2}); err != nil {
		t.Fatal(err)
	}
	if len(pushes) != 3 || pushes[2][0].Position == nil {
		t.Fatalf("pushes after move: %+v", pushes)
	}

	cancel()
	cancel()
	if err := s.DeleteTask(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if len(pushes) != 3 {
		t.Fatalf("cancelled subscriber still notified: %d pushes", len(pushes))
	}
}

func TestConcurrentWritesPushInOrder(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	ada, _ := s.CreateUser(ctx, "ada", "#3182CE")
	created, err := s.CreateTask(ctx, ada.ID, form("Hang doors", task.StatusNotStarted), nil)
	if err != nil {
		t.Fatal(err)
	}

	var (
		inFlight atomic.Int32
		overlaps atomic.Int32
		lastMu   sync.Mutex
		last     []task.Task
	)
	cancel := s.Subscribe(ctx, ada.ID, func(tasks []task.Task) {
		if inFlight.Add(1) > 1 {
			overlaps.Add(1)
		}
		lastMu.Lock()
		last = tasks
		lastMu.Unlock()
		inFlight.Add(-1)
	})
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				p := geometry.Point2D{X: float64(w), Y: float64(i)}
				if err := s.SetPosition(ctx, created.ID, p); err != nil {
					t.Error(err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if n := overlaps.Load(); n != 0 {
		t.Fatalf("%d pushes overlapped", n)
	}
	stored, err := s.Task(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	lastMu.Lock()
	defer lastMu.Unlock()
	if len(last) != 1 || last[0].Position == nil || *last[0].Position != *stored.Position {
		t.Fatalf("last push %+v, stored %+v", last, stored.Position)
	}
}
