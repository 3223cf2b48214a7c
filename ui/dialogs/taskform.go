// Package dialogs provides application dialogs.
package dialogs

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"siteplan/internal/task"
)

// TaskFormDialog edits a task title and its checklist. OnSave receives the
// form once it validates; returning an error keeps the dialog open and shows
// the message.
type TaskFormDialog struct {
	title  string
	form   task.Form
	window fyne.Window

	titleEntry *widget.Entry
	rows       *fyne.Container
	items      []*checklistRow
	errLabel   *widget.Label
	dlg        *dialog.CustomDialog

	onSave   func(task.Form) error
	onCancel func()
}

type checklistRow struct {
	entry  *widget.Entry
	status *widget.Select
}

// NewTaskFormDialog creates a dialog pre-filled from form. An empty form
// starts with one blank checklist row.
func NewTaskFormDialog(title string, form task.Form, window fyne.Window, onSave func(task.Form) error) *TaskFormDialog {
	if len(form.Checklist) == 0 {
		form.Checklist = []task.ChecklistItem{{Status: task.StatusNotStarted}}
	}
	return &TaskFormDialog{
		title:  title,
		form:   form,
		window: window,
		onSave: onSave,
	}
}

// SetOnCancel sets the callback run when the dialog is dismissed unsaved.
func (d *TaskFormDialog) SetOnCancel(fn func()) {
	d.onCancel = fn
}

// Show displays the dialog.
func (d *TaskFormDialog) Show() {
	d.titleEntry = widget.NewEntry()
	d.titleEntry.SetPlaceHolder("Task title")
	d.titleEntry.SetText(d.form.Title)

	d.rows = container.NewVBox()
	for _, it := range d.form.Checklist {
		d.addRow(it)
	}

	addBtn := widget.NewButtonWithIcon("Add item", theme.ContentAddIcon(), func() {
		d.addRow(task.ChecklistItem{Status: task.StatusNotStarted})
	})

	d.errLabel = widget.NewLabel("")
	d.errLabel.Wrapping = fyne.TextWrapWord
	d.errLabel.Importance = widget.DangerImportance
	d.errLabel.Hide()

	content := container.NewVBox(
		widget.NewForm(widget.NewFormItem("Title", d.titleEntry)),
		widget.NewLabelWithStyle("Checklist", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewVScroll(d.rows),
		addBtn,
		d.errLabel,
	)

	save := widget.NewButtonWithIcon("Save", theme.ConfirmIcon(), d.save)
	save.Importance = widget.HighImportance
	cancel := widget.NewButtonWithIcon("Cancel", theme.CancelIcon(), func() {
		d.dlg.Hide()
		if d.onCancel != nil {
			d.onCancel()
		}
	})

	d.dlg = dialog.NewCustomWithoutButtons(d.title, content, d.window)
	d.dlg.SetButtons([]fyne.CanvasObject{cancel, save})
	d.dlg.Resize(fyne.NewSize(520, 480))
	d.dlg.Show()
}

func (d *TaskFormDialog) addRow(it task.ChecklistItem) {
	row := &checklistRow{entry: widget.NewEntry()}
	row.entry.SetPlaceHolder("Checklist item")
	row.entry.SetText(it.Item)

	labels := make([]string, len(task.Statuses))
	for i, st := range task.Statuses {
		labels[i] = st.String()
	}
	row.status = widget.NewSelect(labels, nil)
	row.status.SetSelected(it.Status.String())

	var line *fyne.Container
	remove := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {
		d.removeRow(row, line)
	})
	line = container.NewBorder(nil, nil, nil, container.NewHBox(row.status, remove), row.entry)

	d.items = append(d.items, row)
	d.rows.Add(line)
}

func (d *TaskFormDialog) removeRow(row *checklistRow, line fyne.CanvasObject) {
	for i, r := range d.items {
		if r == row {
			d.items = append(d.items[:i], d.items[i+1:]...)
			break
		}
	}
	d.rows.Remove(line)
}

// Form returns the values currently entered.
func (d *TaskFormDialog) Form() task.Form {
	f := task.Form{Title: d.titleEntry.Text}
	for _, r := range d.items {
		st, err := task.ParseStatus(r.status.Selected)
		if err != nil {
			st = task.StatusNotStarted
		}
		f.Checklist = append(f.Checklist, task.ChecklistItem{Item: r.entry.Text, Status: st})
	}
	return f
}

func (d *TaskFormDialog) save() {
	f := d.Form()
	if err := f.Validate(); err != nil {
		d.showError(err)
		return
	}
	if d.onSave != nil {
		if err := d.onSave(f); err != nil {
			d.showError(err)
			return
		}
	}
	d.dlg.Hide()
}

func (d *TaskFormDialog) showError(err error) {
	d.errLabel.SetText(err.Error())
	d.errLabel.Show()
}
