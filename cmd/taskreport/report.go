package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"siteplan/internal/auth"
	"siteplan/internal/task"
	"siteplan/pkg/colorutil"
)

type styles struct {
	user, title, faint, status lipgloss.Style
	summary                    lipgloss.Style
}

func newStyles() styles {
	base := lipgloss.NewStyle()
	return styles{
		user:    base.Copy().Bold(true).Padding(0, 1),
		title:   base.Copy().Width(32),
		faint:   base.Copy().Faint(true),
		status:  base.Copy().Width(22),
		summary: base.Copy().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

// userReport is one user's section of the report.
type userReport struct {
	User  auth.User
	Tasks []task.Task
}

// progress counts checklist items that are done.
func progress(t task.Task) (done, total int) {
	for _, it := range t.Checklist {
		if it.Status == task.StatusDone {
			done++
		}
	}
	return done, len(t.Checklist)
}

func render(w io.Writer, users []userReport, filter *task.Status) error {
	s := newStyles()
	counts := make(map[task.Status]int, len(task.Statuses))
	var b strings.Builder

	for _, ur := range users {
		tasks := task.Filter(ur.Tasks, filter)
		if filter != nil && len(tasks) == 0 {
			continue
		}
		header := s.user.Copy().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color(ur.User.Color)).
			Render(ur.User.Initials())
		fmt.Fprintf(&b, "%s %s %s\n", header, ur.User.Username, s.faint.Render(fmt.Sprintf("(%d tasks)", len(tasks))))

		if len(tasks) == 0 {
			fmt.Fprintf(&b, "  %s\n", s.faint.Render("no tasks"))
		}
		for _, t := range tasks {
			st := t.Status()
			counts[st]++
			status := s.status.Copy().Foreground(lipgloss.Color(colorutil.Hex(st.Color()))).Render("● " + st.String())
			done, total := progress(t)
			pin := s.faint.Render("unpinned")
			if t.Placed() {
				pin = fmt.Sprintf("pin (%.0f, %.0f)", t.Position.X, t.Position.Y)
			}
			fmt.Fprintf(&b, "  %s %s %d/%d  %s\n", s.title.Render(t.Title), status, done, total, pin)
		}
		b.WriteString("\n")
	}

	var parts []string
	for _, st := range task.Statuses {
		parts = append(parts, fmt.Sprintf("%s: %d", st.String(), counts[st]))
	}
	b.WriteString(s.summary.Render(strings.Join(parts, "  ")))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
