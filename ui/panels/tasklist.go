// Package panels provides UI panels for the application.
package panels

import (
	"fmt"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"siteplan/internal/app"
	"siteplan/internal/task"
)

const filterAll = "All"

// TaskListPanel lists the signed-in user's tasks with a status filter.
type TaskListPanel struct {
	state     *app.State
	container fyne.CanvasObject

	list   *widget.List
	filter *widget.Select
	count  *widget.Label
	shown  []task.Task

	// OnNew, OnEdit and OnDelete are set by the window.
	OnNew    func()
	OnEdit   func(task.Task)
	OnDelete func(task.Task)
}

// NewTaskListPanel creates the panel and subscribes it to state changes.
func NewTaskListPanel(state *app.State) *TaskListPanel {
	p := &TaskListPanel{state: state}

	p.list = widget.NewList(
		func() int { return len(p.shown) },
		p.newRow,
		p.updateRow,
	)
	p.list.OnSelected = func(id widget.ListItemID) {
		p.list.Unselect(id)
		if id < len(p.shown) && p.OnEdit != nil {
			p.OnEdit(p.shown[id])
		}
	}

	p.count = widget.NewLabel("")

	options := []string{filterAll}
	for _, st := range task.Statuses {
		options = append(options, st.String())
	}
	p.filter = widget.NewSelect(options, func(sel string) {
		if sel == filterAll {
			state.SetFilter(nil)
			return
		}
		if st, err := task.ParseStatus(sel); err == nil {
			state.SetFilter(&st)
		}
	})
	p.filter.Selected = filterAll

	newBtn := widget.NewButtonWithIcon("New Task", theme.ContentAddIcon(), func() {
		if p.OnNew != nil {
			p.OnNew()
		}
	})

	header := container.NewHBox(widget.NewLabel("Status:"), p.filter, layout.NewSpacer(), p.count, newBtn)
	p.container = container.NewBorder(header, nil, nil, nil, p.list)

	state.On(app.EventTasksChanged, func(interface{}) { p.Reload() })
	state.On(app.EventFilterChanged, func(interface{}) { p.Reload() })
	return p
}

// Container returns the panel container.
func (p *TaskListPanel) Container() fyne.CanvasObject {
	return p.container
}

// SetFilter selects status in the filter box; nil selects all.
func (p *TaskListPanel) SetFilter(status *task.Status) {
	if status == nil {
		p.filter.SetSelected(filterAll)
		return
	}
	p.filter.SetSelected(status.String())
}

// Reload re-reads the filtered tasks from state.
func (p *TaskListPanel) Reload() {
	p.shown = p.state.FilteredTasks()
	p.count.SetText(fmt.Sprintf("%d of %d", len(p.shown), len(p.state.Tasks())))
	p.list.Refresh()
}

func (p *TaskListPanel) newRow() fyne.CanvasObject {
	swatch := fynecanvas.NewCircle(theme.DisabledColor())
	swatch.StrokeWidth = 2
	swatchBox := container.NewGridWrap(fyne.NewSize(16, 16), swatch)

	title := widget.NewLabel("Task title")
	title.Truncation = fyne.TextTruncateEllipsis
	status := widget.NewLabel("Final Check Awaiting")
	pinned := widget.NewIcon(theme.RadioButtonCheckedIcon())

	edit := widget.NewButtonWithIcon("", theme.DocumentCreateIcon(), nil)
	del := widget.NewButtonWithIcon("", theme.DeleteIcon(), nil)

	left := container.NewHBox(container.NewCenter(swatchBox), pinned)
	right := container.NewHBox(status, edit, del)
	return container.NewBorder(nil, nil, left, right, title)
}

// updateRow fills a row built by newRow. The object layout is:
// Border{title, left{center{grid{circle}}, icon}, right{status, edit, delete}}.
func (p *TaskListPanel) updateRow(id widget.ListItemID, obj fyne.CanvasObject) {
	if id >= len(p.shown) {
		return
	}
	t := p.shown[id]
	row := obj.(*fyne.Container)

	title := row.Objects[0].(*widget.Label)
	left := row.Objects[1].(*fyne.Container)
	right := row.Objects[2].(*fyne.Container)

	title.SetText(t.Title)

	st := t.Status()
	swatch := left.Objects[0].(*fyne.Container).Objects[0].(*fyne.Container).Objects[0].(*fynecanvas.Circle)
	swatch.FillColor = st.Color()
	swatch.StrokeColor = st.StrokeColor()
	swatch.Refresh()

	pinned := left.Objects[1].(*widget.Icon)
	if t.Placed() {
		pinned.Show()
	} else {
		pinned.Hide()
	}

	right.Objects[0].(*widget.Label).SetText(st.String())
	right.Objects[1].(*widget.Button).OnTapped = func() {
		if p.OnEdit != nil {
			p.OnEdit(t)
		}
	}
	right.Objects[2].(*widget.Button).OnTapped = func() {
		if p.OnDelete != nil {
			p.OnDelete(t)
		}
	}
}
