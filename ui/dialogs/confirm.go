package dialogs

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"siteplan/internal/task"
)

// ConfirmDelete asks before deleting t and runs onDelete on confirmation.
func ConfirmDelete(t task.Task, window fyne.Window, onDelete func()) {
	msg := fmt.Sprintf("Delete %q? Its pin is removed from the floor plan.", t.Title)
	dialog.ShowConfirm("Delete Task", msg, func(ok bool) {
		if ok && onDelete != nil {
			onDelete()
		}
	}, window)
}
