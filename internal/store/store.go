// Package store persists users, tasks and the signed-in session in a local
// SQLite database and pushes live task lists to subscribers.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"siteplan/internal/auth"
	"siteplan/internal/task"
	"siteplan/pkg/geometry"
)

// ErrNotFound is returned when a write targets a task that no longer exists.
var ErrNotFound = errors.New("task not found")

var migrations = []string{
	`PRAGMA journal_mode=WAL;`,
	`PRAGMA foreign_keys=ON;`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE COLLATE NOCASE,
		color TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		checklist TEXT NOT NULL DEFAULT '[]',
		pos_x REAL,
		pos_y REAL,
		created_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS tasks_owner ON tasks(owner_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS auth_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,
}

type subscriber struct {
	id      uint64
	ownerID string
	fn      func([]task.Task)
}

// Store is a SQLite-backed repository. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time

	mu     sync.Mutex
	subs   []subscriber
	nextID uint64
	// pushMu orders list pushes per owner. Each push reads the list while
	// holding it, so the last push an owner sees matches the last write.
	pushMu map[string]*sync.Mutex
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps PRAGMAs and writes on one handle.
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debugf("Store: opened %s", path)
	return &Store{db: db, path: path, now: time.Now}, nil
}

func migrate(db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database. Subscribers are dropped.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	s.subs = nil
	s.mu.Unlock()
	return s.db.Close()
}

// --- users ---

// FindUserByName returns the user with that username (case-insensitive), or
// nil when there is none.
func (s *Store) FindUserByName(ctx context.Context, username string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, color FROM users WHERE username = ?`, strings.TrimSpace(username))
	return scanUser(row)
}

// UserByID returns the user with that id, or nil.
func (s *Store) UserByID(ctx context.Context, id string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, username, color FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*auth.User, error) {
	var u auth.User
	if err := row.Scan(&u.ID, &u.Username, &u.Color); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user. A clash on username returns
// auth.ErrUsernameTaken.
func (s *Store) CreateUser(ctx context.Context, username, color string) (auth.User, error) {
	u := auth.User{ID: uuid.NewString(), Username: strings.TrimSpace(username), Color: color}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, color) VALUES (?, ?, ?)`, u.ID, u.Username, u.Color)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return auth.User{}, auth.ErrUsernameTaken
		}
		return auth.User{}, err
	}
	log.Infof("Store: created user %s (%s)", u.Username, u.ID)
	return u, nil
}

// ListUsers returns every user ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]auth.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username, color FROM users ORDER BY username COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		var u auth.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Color); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// --- session ---

const sessionKey = "current_user"

// SetSessionUser records the signed-in user; an empty id clears it.
func (s *Store) SetSessionUser(ctx context.Context, userID string) error {
	if userID == "" {
		_, err := s.db.ExecContext(ctx, `DELETE FROM auth_state WHERE key = ?`, sessionKey)
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO auth_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, sessionKey, userID)
	return err
}

// SessionUserID returns the recorded user id, or "" when signed out.
func (s *Store) SessionUserID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM auth_state WHERE key = ?`, sessionKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// --- tasks ---

const taskColumns = `id, owner_id, title, checklist, pos_x, pos_y, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (task.Task, error) {
	var (
		t         task.Task
		checklist string
		x, y      sql.NullFloat64
		created   int64
	)
	if err := r.Scan(&t.ID, &t.OwnerID, &t.Title, &checklist, &x, &y, &created); err != nil {
		return task.Task{}, err
	}
	if err := json.Unmarshal([]byte(checklist), &t.Checklist); err != nil {
		return task.Task{}, fmt.Errorf("decode checklist of %s: %w", t.ID, err)
	}
	if x.Valid && y.Valid {
		t.Position = &geometry.Point2D{X: x.Float64, Y: y.Float64}
	}
	t.CreatedAt = time.UnixMilli(created)
	return t, nil
}

func encodeChecklist(items []task.ChecklistItem) (string, error) {
	if items == nil {
		items = []task.ChecklistItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode checklist: %w", err)
	}
	return string(data), nil
}

func nullPos(p *geometry.Point2D) (x, y sql.NullFloat64) {
	if p == nil {
		return
	}
	return sql.NullFloat64{Float64: p.X, Valid: true}, sql.NullFloat64{Float64: p.Y, Valid: true}
}

// ListTasks returns the owner's tasks, oldest first.
func (s *Store) ListTasks(ctx context.Context, ownerID string) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? ORDER BY created_at ASC, rowid ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Task returns one task by id.
func (s *Store) Task(ctx context.Context, id string) (task.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, ErrNotFound
	}
	return t, err
}

// CreateTask validates and stores a new task for ownerID. pos may be nil for
// a task that is not on the floor plan.
func (s *Store) CreateTask(ctx context.Context, ownerID string, form task.Form, pos *geometry.Point2D) (task.Task, error) {
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return task.Task{}, err
	}
	checklist, err := encodeChecklist(form.Checklist)
	if err != nil {
		return task.Task{}, err
	}

	t := task.Task{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     form.Title,
		Checklist: form.Checklist,
		CreatedAt: time.UnixMilli(s.now().UnixMilli()),
	}
	if pos != nil {
		p := *pos
		t.Position = &p
	}
	x, y := nullPos(t.Position)

	_, err = s.db.ExecContext(ctx, `INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Title, checklist, x, y, t.CreatedAt.UnixMilli())
	if err != nil {
		return task.Task{}, fmt.Errorf("insert task: %w", err)
	}
	log.Infof("Store: created task %s %q", t.ID, t.Title)
	s.publish(ctx, ownerID)
	return t, nil
}

// UpdateTask replaces the title and checklist of a task.
func (s *Store) UpdateTask(ctx context.Context, id string, form task.Form) error {
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return err
	}
	checklist, err := encodeChecklist(form.Checklist)
	if err != nil {
		return err
	}
	return s.write(ctx, id, `UPDATE tasks SET title = ?, checklist = ? WHERE id = ?`, form.Title, checklist, id)
}

// SetPosition moves a task's pin to a world position.
func (s *Store) SetPosition(ctx context.Context, id string, p geometry.Point2D) error {
	return s.write(ctx, id, `UPDATE tasks SET pos_x = ?, pos_y = ? WHERE id = ?`, p.X, p.Y, id)
}

// ClearPosition removes a task's pin from the floor plan.
func (s *Store) ClearPosition(ctx context.Context, id string) error {
	return s.write(ctx, id, `UPDATE tasks SET pos_x = NULL, pos_y = NULL WHERE id = ?`, id)
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.write(ctx, id, `DELETE FROM tasks WHERE id = ?`, id)
}

// ownerLock returns the mutex that serialises list pushes for ownerID.
func (s *Store) ownerLock(ownerID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pushMu == nil {
		s.pushMu = make(map[string]*sync.Mutex)
	}
	l, ok := s.pushMu[ownerID]
	if !ok {
		l = &sync.Mutex{}
		s.pushMu[ownerID] = l
	}
	return l
}

// write runs a single-row statement against task id and notifies the owner's
// subscribers.
func (s *Store) write(ctx context.Context, id, query string, args ...any) error {
	var ownerID string
	err := s.db.QueryRowContext(ctx, `SELECT owner_id FROM tasks WHERE id = ?`, id).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("write task %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	log.Debugf("Store: wrote task %s", id)
	s.publish(ctx, ownerID)
	return nil
}

// --- live queries ---

// Subscribe calls fn with the owner's current task list now and after every
// write that touches the owner's tasks. Pushes for one owner never overlap
// and arrive in write order. fn runs on the writer's goroutine and must not
// write to the Store or subscribe synchronously. The returned func cancels
// the subscription.
func (s *Store) Subscribe(ctx context.Context, ownerID string, fn func([]task.Task)) (cancel func()) {
	l := s.ownerLock(ownerID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, ownerID: ownerID, fn: fn})
	s.mu.Unlock()

	if tasks, err := s.ListTasks(ctx, ownerID); err != nil {
		log.Errorf("Store: initial list for %s: %v", ownerID, err)
	} else {
		fn(tasks)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) publish(ctx context.Context, ownerID string) {
	l := s.ownerLock(ownerID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	var fns []func([]task.Task)
	for _, sub := range s.subs {
		if sub.ownerID == ownerID {
			fns = append(fns, sub.fn)
		}
	}
	s.mu.Unlock()
	if len(fns) == 0 {
		return
	}

	tasks, err := s.ListTasks(ctx, ownerID)
	if err != nil {
		log.Errorf("Store: refresh list for %s: %v", ownerID, err)
		return
	}
	for _, fn := range fns {
		fn(tasks)
	}
}
