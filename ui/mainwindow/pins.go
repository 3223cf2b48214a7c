package mainwindow

import (
	"context"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"siteplan/internal/auth"
	"siteplan/internal/floorplan"
	"siteplan/internal/pinlayer"
	"siteplan/internal/task"
	"siteplan/pkg/colorutil"
	"siteplan/pkg/geometry"
	"siteplan/ui/dialogs"
)

// newView builds a floor-plan view for owner from the configured tuning.
func (mw *MainWindow) newView(owner auth.User) *floorplan.View {
	cfg := mw.state.Config
	return floorplan.New(floorplan.Options{
		Store:         mw.state.Store,
		Owner:         owner,
		MinScale:      cfg.Viewport.MinScale,
		MaxScale:      cfg.Viewport.MaxScale,
		WheelFactor:   cfg.Viewport.WheelFactor,
		DragThreshold: cfg.Viewport.DragThreshold,
		Pins: pinlayer.Options{
			FallbackColor:  colorutil.ParseHexOr(cfg.Pins.FallbackColor, pinlayer.DefaultFallbackColor),
			PreviewColor:   colorutil.ParseHexOr(cfg.Pins.PreviewColor, pinlayer.DefaultPreviewColor),
			PreviewOpacity: cfg.Pins.PreviewOpacity,
		},
		OnChange: mw.canvas.Refresh,
		OnMenu:   mw.onPinMenu,
		OnCreate: mw.onPinCreate,
		OnError: func(err error) {
			mw.updateStatus("Error: " + err.Error())
		},
	})
}

// onPinMenu shows or hides the popup for a tapped pin. The anchor is in
// canvas coordinates.
func (mw *MainWindow) onPinMenu(sel pinlayer.Selection, open bool) {
	if !open {
		mw.closeMenu()
		return
	}
	view := mw.view
	if view == nil {
		return
	}
	t, ok := view.Task(sel.TaskID)
	if !ok {
		return
	}

	title := fyne.NewMenuItem(t.Title+" ("+t.Status().String()+")", nil)
	title.Disabled = true
	menu := fyne.NewMenu("",
		title,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Edit...", func() { mw.onEditTask(t) }),
		fyne.NewMenuItem("Remove Pin", func() {
			if err := mw.state.RemovePin(context.Background(), t.ID); err != nil {
				dialog.ShowError(err, mw.Window)
			}
		}),
		fyne.NewMenuItem("Delete...", func() { mw.onDeleteTask(t) }),
	)

	mw.closeMenu()
	pm := widget.NewPopUpMenu(menu, mw.Canvas())
	hide := pm.OnDismiss
	pm.OnDismiss = func() {
		if hide != nil {
			hide()
		}
		if mw.menu == pm {
			mw.menu = nil
		}
		view.CloseMenu()
	}
	mw.menu = pm

	origin := fyne.CurrentApp().Driver().AbsolutePositionForObject(mw.canvas)
	pm.ShowAtPosition(origin.Add(fyne.NewPos(float32(sel.Anchor.X), float32(sel.Anchor.Y))))
}

func (mw *MainWindow) closeMenu() {
	if pm := mw.menu; pm != nil {
		mw.menu = nil
		pm.Hide()
	}
}

// onPinCreate opens the task form for a tap on empty floor. The preview pin
// stays until the form is saved or cancelled.
func (mw *MainWindow) onPinCreate(world geometry.Point2D) {
	view := mw.view
	if view == nil {
		return
	}
	d := dialogs.NewTaskFormDialog("New Task", task.Form{}, mw.Window, func(f task.Form) error {
		_, err := view.ConfirmCreate(context.Background(), f)
		return err
	})
	d.SetOnCancel(view.CancelCreate)
	d.Show()
	mw.updateStatus(fmt.Sprintf("New pin at (%.0f, %.0f)", world.X, world.Y))
}
