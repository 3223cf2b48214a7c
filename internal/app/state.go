// Package app holds the application state shared by the windows: the
// signed-in user, their live task list, the floor-plan image and the task
// filter, plus a small event bus the UI listens on.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"siteplan/internal/auth"
	"siteplan/internal/config"
	"siteplan/internal/image"
	"siteplan/internal/store"
	"siteplan/internal/task"
)

// EventType identifies different application events.
type EventType int

const (
	EventUserChanged     EventType = iota // data: *auth.User (nil on sign-out)
	EventTasksChanged                     // data: []task.Task
	EventFloorPlanLoaded                  // data: *image.Layer (nil when unavailable)
	EventFilterChanged                    // data: *task.Status
	EventError                            // data: error
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// State is the application state. Listeners run on the goroutine that
// emitted the event, which is not always the UI goroutine.
type State struct {
	mu sync.RWMutex

	Config     config.Config
	ConfigPath string // where SaveConfig writes; empty disables saving
	Store      *store.Store
	Auth       *auth.Service

	floorPlan    *image.Layer
	floorPlanErr error
	watcher      *image.Watcher

	tasks       []task.Task
	filter      *task.Status
	cancelTasks func()

	listeners map[EventType][]EventListener
}

// NewState creates the state over an open store.
func NewState(cfg config.Config, st *store.Store) *State {
	s := &State{
		Config:    cfg,
		Store:     st,
		Auth:      auth.NewService(st),
		listeners: make(map[EventType][]EventListener),
	}
	s.Auth.OnChange(s.userChanged)
	return s
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Start restores the previous session and loads the configured floor plan.
// Neither failure is fatal.
func (s *State) Start(ctx context.Context) {
	if _, ok, err := s.Auth.Restore(ctx); err != nil {
		log.Warnf("App: restore session: %v", err)
	} else if ok {
		log.Infof("App: session restored")
	}
	if s.Config.FloorPlan != "" {
		if err := s.LoadFloorPlan(s.Config.FloorPlan); err != nil {
			log.Warnf("App: %v", err)
		}
	}
}

// Close stops background work. The store is closed by its owner.
func (s *State) Close() {
	s.mu.Lock()
	cancel := s.cancelTasks
	s.cancelTasks = nil
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if w != nil {
		w.Stop()
	}
}

// SetFloorPlan loads path and records it in the config file so the next
// start opens it again.
func (s *State) SetFloorPlan(path string) error {
	if err := s.LoadFloorPlan(path); err != nil {
		return err
	}
	s.mu.Lock()
	s.Config.FloorPlan = path
	cfg, cfgPath := s.Config, s.ConfigPath
	s.mu.Unlock()
	if cfgPath == "" {
		return nil
	}
	if err := cfg.Save(cfgPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// --- user and tasks ---

// CurrentUser returns the signed-in user.
func (s *State) CurrentUser() (auth.User, bool) {
	return s.Auth.Current()
}

func (s *State) userChanged(u *auth.User) {
	s.mu.Lock()
	cancel := s.cancelTasks
	s.cancelTasks = nil
	s.tasks = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	s.Emit(EventUserChanged, u)
	if u == nil {
		s.Emit(EventTasksChanged, []task.Task(nil))
		return
	}

	cancel = s.Store.Subscribe(context.Background(), u.ID, s.setTasks)
	s.mu.Lock()
	s.cancelTasks = cancel
	s.mu.Unlock()
}

func (s *State) setTasks(tasks []task.Task) {
	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()
	s.Emit(EventTasksChanged, tasks)
}

// Tasks returns the signed-in user's tasks, oldest first.
func (s *State) Tasks() []task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]task.Task(nil), s.tasks...)
}

// Filter returns the task list filter; nil means all statuses.
func (s *State) Filter() *task.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.filter == nil {
		return nil
	}
	f := *s.filter
	return &f
}

// SetFilter changes the task list filter.
func (s *State) SetFilter(status *task.Status) {
	s.mu.Lock()
	if status == nil {
		s.filter = nil
	} else {
		f := *status
		s.filter = &f
	}
	s.mu.Unlock()
	s.Emit(EventFilterChanged, status)
}

// FilteredTasks returns the tasks matching the current filter.
func (s *State) FilteredTasks() []task.Task {
	return task.Filter(s.Tasks(), s.Filter())
}

// ErrSignedOut is returned by task writes without a signed-in user.
var ErrSignedOut = errors.New("not signed in")

// CreateTask stores a task without a pin for the signed-in user.
func (s *State) CreateTask(ctx context.Context, form task.Form) (task.Task, error) {
	u, ok := s.CurrentUser()
	if !ok {
		return task.Task{}, ErrSignedOut
	}
	return s.Store.CreateTask(ctx, u.ID, form, nil)
}

// UpdateTask saves an edited task.
func (s *State) UpdateTask(ctx context.Context, id string, form task.Form) error {
	if err := s.Store.UpdateTask(ctx, id, form); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// RemovePin clears a task's floor-plan position; the task stays in the list.
func (s *State) RemovePin(ctx context.Context, id string) error {
	if err := s.Store.ClearPosition(ctx, id); err != nil {
		return fmt.Errorf("remove pin: %w", err)
	}
	return nil
}

// DeleteTask removes a task.
func (s *State) DeleteTask(ctx context.Context, id string) error {
	if err := s.Store.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// --- floor plan ---

// FloorPlan returns the loaded image and the last load error.
func (s *State) FloorPlan() (*image.Layer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.floorPlan, s.floorPlanErr
}

// LoadFloorPlan loads the background image and watches it for changes. On
// failure the previous image is dropped so the canvas renders nothing.
func (s *State) LoadFloorPlan(path string) error {
	layer, err := image.Load(path)

	s.mu.Lock()
	s.floorPlan = layer
	s.floorPlanErr = err
	old := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if old != nil {
		old.Stop()
	}

	s.Emit(EventFloorPlanLoaded, layer)
	if err != nil {
		s.Emit(EventError, err)
		return err
	}
	log.Infof("App: floor plan %s (%vx%v)", path, layer.Size().Width, layer.Size().Height)

	w := image.NewWatcher(path)
	w.OnReload(func(l *image.Layer) {
		s.mu.Lock()
		s.floorPlan = l
		s.floorPlanErr = nil
		s.mu.Unlock()
		s.Emit(EventFloorPlanLoaded, l)
	})
	w.OnError(func(err error) { s.Emit(EventError, err) })
	if err := w.Start(); err != nil {
		log.Warnf("App: not watching floor plan: %v", err)
		return nil
	}
	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()
	return nil
}
