// Package task defines tasks, their checklists and the derived task status.
package task

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"siteplan/pkg/geometry"
)

// Status is the state of one checklist item, and the derived state of a task.
type Status int

const (
	StatusNotStarted Status = iota
	StatusInProgress
	StatusBlocked
	StatusFinalCheckAwaiting
	StatusDone
)

// Statuses lists every status in display order.
var Statuses = []Status{
	StatusNotStarted,
	StatusInProgress,
	StatusBlocked,
	StatusFinalCheckAwaiting,
	StatusDone,
}

var statusKeys = map[Status]string{
	StatusNotStarted:         "NOT_STARTED",
	StatusInProgress:         "IN_PROGRESS",
	StatusBlocked:            "BLOCKED",
	StatusFinalCheckAwaiting: "FINAL_CHECK_AWAITING",
	StatusDone:               "DONE",
}

var statusLabels = map[Status]string{
	StatusNotStarted:         "Not Started",
	StatusInProgress:         "In Progress",
	StatusBlocked:            "Blocked",
	StatusFinalCheckAwaiting: "Final Check Awaiting",
	StatusDone:               "Done",
}

// Key returns the stored identifier, e.g. "IN_PROGRESS".
func (s Status) Key() string {
	if k, ok := statusKeys[s]; ok {
		return k
	}
	return "UNKNOWN"
}

// String returns the display label, e.g. "In Progress".
func (s Status) String() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return "Unknown"
}

// ErrUnknownStatus is returned when a status key or label is not recognised.
var ErrUnknownStatus = errors.New("unknown checklist status")

// ParseStatus accepts either a key ("FINAL_CHECK_AWAITING") or a label
// ("Final Check Awaiting"), case-insensitively.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	for _, st := range Statuses {
		if strings.EqualFold(s, statusKeys[st]) || strings.EqualFold(s, statusLabels[st]) {
			return st, nil
		}
	}
	return StatusNotStarted, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// MarshalText stores statuses by key.
func (s Status) MarshalText() ([]byte, error) {
	if _, ok := statusKeys[s]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, int(s))
	}
	return []byte(s.Key()), nil
}

// UnmarshalText parses a stored key.
func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ChecklistItem is one line of a task checklist.
type ChecklistItem struct {
	Item   string `json:"item"`
	Status Status `json:"status"`
}

// Task is a unit of work, optionally pinned to a floor-plan position.
type Task struct {
	ID        string            `json:"id"`
	OwnerID   string            `json:"owner_id"`
	Title     string            `json:"title"`
	Checklist []ChecklistItem   `json:"checklist"`
	Position  *geometry.Point2D `json:"position,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Status derives the aggregate status from the checklist.
func (t Task) Status() Status {
	return DeriveStatus(t.Checklist)
}

// Placed reports whether the task has a pin on the floor plan.
func (t Task) Placed() bool {
	return t.Position != nil
}

// DeriveStatus applies these rules in order:
//   - empty checklist: not started
//   - any item blocked: blocked
//   - all items done: done
//   - any item awaiting final check: final check awaiting
//   - any item in progress, or a mix that includes done: in progress
//   - otherwise (all not started): not started
func DeriveStatus(items []ChecklistItem) Status {
	if len(items) == 0 {
		return StatusNotStarted
	}

	counts := make(map[Status]int, len(Statuses))
	for _, it := range items {
		counts[it.Status]++
	}

	switch {
	case counts[StatusBlocked] > 0:
		return StatusBlocked
	case counts[StatusDone] == len(items):
		return StatusDone
	case counts[StatusFinalCheckAwaiting] > 0:
		return StatusFinalCheckAwaiting
	case counts[StatusInProgress] > 0, counts[StatusDone] > 0:
		return StatusInProgress
	}
	return StatusNotStarted
}

// Filter returns the tasks whose derived status equals status. A nil status
// keeps every task.
func Filter(tasks []Task, status *Status) []Task {
	if status == nil {
		return tasks
	}
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status() == *status {
			out = append(out, t)
		}
	}
	return out
}

// Placed returns the tasks owned by ownerID that carry a position.
func Placed(tasks []Task, ownerID string) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.OwnerID == ownerID && t.Placed() {
			out = append(out, t)
		}
	}
	return out
}
