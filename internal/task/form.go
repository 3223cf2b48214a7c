package task

import (
	"errors"
	"fmt"
	"strings"
)

// Form validation errors.
var (
	ErrTitleRequired     = errors.New("title is required")
	ErrChecklistRequired = errors.New("at least one checklist item is required")
	ErrEmptyItem         = errors.New("checklist item cannot be empty")
)

// Form holds the user-editable fields of a task.
type Form struct {
	Title     string
	Checklist []ChecklistItem
}

// FormFor returns a form pre-filled from an existing task.
func FormFor(t Task) Form {
	items := make([]ChecklistItem, len(t.Checklist))
	copy(items, t.Checklist)
	return Form{Title: t.Title, Checklist: items}
}

// Validate checks the form as entered. The returned error joins every
// problem found; item problems are prefixed with their 1-based row.
func (f Form) Validate() error {
	var errs []error
	if strings.TrimSpace(f.Title) == "" {
		errs = append(errs, ErrTitleRequired)
	}
	if len(f.Checklist) == 0 {
		errs = append(errs, ErrChecklistRequired)
	}
	for i, it := range f.Checklist {
		if strings.TrimSpace(it.Item) == "" {
			errs = append(errs, fmt.Errorf("item %d: %w", i+1, ErrEmptyItem))
		}
		if _, ok := statusKeys[it.Status]; !ok {
			errs = append(errs, fmt.Errorf("item %d: %w", i+1, ErrUnknownStatus))
		}
	}
	return errors.Join(errs...)
}

// Normalize trims the title and drops blank checklist items.
func (f Form) Normalize() Form {
	out := Form{Title: strings.TrimSpace(f.Title)}
	for _, it := range f.Checklist {
		if strings.TrimSpace(it.Item) == "" {
			continue
		}
		out.Checklist = append(out.Checklist, ChecklistItem{Item: strings.TrimSpace(it.Item), Status: it.Status})
	}
	return out
}
