// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"fmt"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	log "github.com/sirupsen/logrus"

	"siteplan/internal/app"
	"siteplan/internal/auth"
	"siteplan/internal/floorplan"
	"siteplan/internal/image"
	"siteplan/internal/task"
	"siteplan/internal/version"
	"siteplan/ui/canvas"
	"siteplan/ui/dialogs"
	"siteplan/ui/panels"
	"siteplan/ui/prefs"
)

const (
	tabFloorPlan = 0
	tabTasks     = 1
)

// MainWindow is the primary application window. It shows the login panel
// while signed out and the floor plan and task list otherwise.
type MainWindow struct {
	fyne.Window
	app   fyne.App
	state *app.State
	prefs *prefs.Prefs

	canvas    *canvas.FloorPlanCanvas
	view      *floorplan.View
	taskList  *panels.TaskListPanel
	tabs      *container.AppTabs
	statusBar *widget.Label
	userLabel *widget.Label
	main      fyne.CanvasObject

	menu *widget.PopUpMenu
}

// New creates the main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow("Site Plan")

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()

	mw.Resize(fyne.NewSize(
		float32(p.FloatWithFallback(prefs.KeyWindowWidth, 1100)),
		float32(p.FloatWithFallback(prefs.KeyWindowHeight, 760)),
	))
	mw.SetOnClosed(mw.savePrefs)

	mw.showUser(nil)
	if u, ok := state.CurrentUser(); ok {
		mw.showUser(&u)
	}
	return mw
}

// setupUI creates the signed-in layout. The login panel is built on demand.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.New(nil)
	mw.statusBar = widget.NewLabel("Ready")
	mw.userLabel = widget.NewLabel("")

	mw.taskList = panels.NewTaskListPanel(mw.state)
	mw.taskList.OnNew = mw.onNewTask
	mw.taskList.OnEdit = mw.onEditTask
	mw.taskList.OnDelete = mw.onDeleteTask

	canvasArea := container.NewBorder(
		mw.createToolbar(), // top
		nil,                // bottom
		nil,                // left
		nil,                // right
		mw.canvas,          // center
	)

	mw.tabs = container.NewAppTabs(
		container.NewTabItemWithIcon("Floor Plan", theme.HomeIcon(), canvasArea),
		container.NewTabItemWithIcon("Tasks", theme.ListIcon(), mw.taskList.Container()),
	)
	if st, err := task.ParseStatus(mw.prefs.String(prefs.KeyFilter)); err == nil {
		mw.taskList.SetFilter(&st)
	}
	if mw.prefs.String(prefs.KeyActiveTab) == "tasks" {
		mw.tabs.SelectIndex(tabTasks)
	}

	mw.main = container.NewBorder(
		nil, // top
		container.NewPadded(container.NewBorder(nil, nil, nil, mw.userLabel, mw.statusBar)), // bottom
		nil,     // left
		nil,     // right
		mw.tabs, // center
	)
}

// createToolbar creates the toolbar with zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	return widget.NewToolbar(
		widget.NewToolbarAction(theme.ZoomOutIcon(), mw.onZoomOut),
		widget.NewToolbarAction(theme.ZoomInIcon(), mw.onZoomIn),
		widget.NewToolbarAction(theme.ZoomFitIcon(), mw.onResetView),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.FolderOpenIcon(), mw.onOpenFloorPlan),
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Floor Plan...", mw.onOpenFloorPlan),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Sign Out", mw.onSignOut),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		fyne.NewMenuItem("Fit to Window", mw.onResetView),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Floor Plan", func() { mw.tabs.SelectIndex(tabFloorPlan) }),
		fyne.NewMenuItem("Tasks", func() { mw.tabs.SelectIndex(tabTasks) }),
	)

	taskMenu := fyne.NewMenu("Task",
		fyne.NewMenuItem("New Task...", mw.onNewTask),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, taskMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventUserChanged, func(data interface{}) {
		u, _ := data.(*auth.User)
		mw.showUser(u)
	})

	mw.state.On(app.EventFloorPlanLoaded, func(data interface{}) {
		layer, _ := data.(*image.Layer)
		mw.applyFloorPlan(layer)
		if layer != nil {
			mw.updateStatus("Floor plan: " + filepath.Base(layer.Path))
		}
	})

	mw.state.On(app.EventTasksChanged, func(data interface{}) {
		tasks, _ := data.([]task.Task)
		placed := 0
		for _, t := range tasks {
			if t.Placed() {
				placed++
			}
		}
		mw.updateStatus(fmt.Sprintf("%d tasks, %d pinned", len(tasks), placed))
	})

	mw.state.On(app.EventError, func(data interface{}) {
		if err, ok := data.(error); ok {
			mw.updateStatus("Error: " + err.Error())
		}
	})
}

// showUser switches between the login panel and the signed-in layout, and
// replaces the floor-plan view so its pins belong to u.
func (mw *MainWindow) showUser(u *auth.User) {
	mw.closeMenu()
	if mw.view != nil {
		mw.view.Unmount()
		mw.view = nil
	}

	if u == nil {
		mw.canvas.SetView(nil)
		mw.SetTitle("Site Plan")
		login := panels.NewLoginPanel(mw.state.Auth, mw.prefs.String(prefs.KeyLastUsername))
		mw.SetContent(login.Container())
		return
	}

	mw.prefs.SetString(prefs.KeyLastUsername, u.Username)
	mw.view = mw.newView(*u)
	mw.view.Mount(context.Background())
	mw.canvas.SetView(mw.view)
	if layer, _ := mw.state.FloorPlan(); layer != nil {
		mw.applyFloorPlan(layer)
	}

	mw.SetTitle("Site Plan - " + u.Username)
	mw.userLabel.SetText(fmt.Sprintf("%s (%s)", u.Username, u.Initials()))
	mw.SetContent(mw.main)
	mw.taskList.Reload()
}

func (mw *MainWindow) applyFloorPlan(layer *image.Layer) {
	if mw.view == nil {
		return
	}
	if layer == nil {
		mw.view.SetImage(nil)
		return
	}
	mw.view.SetImage(layer.Image)
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) savePrefs() {
	size := mw.Canvas().Size()
	mw.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
	mw.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
	tab := "floorplan"
	if mw.tabs.SelectedIndex() == tabTasks {
		tab = "tasks"
	}
	mw.prefs.SetString(prefs.KeyActiveTab, tab)
	filter := ""
	if st := mw.state.Filter(); st != nil {
		filter = st.Key()
	}
	mw.prefs.SetString(prefs.KeyFilter, filter)
	if err := mw.prefs.Save(); err != nil {
		log.Warnf("UI: save preferences: %v", err)
	}
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// Menu action handlers

func (mw *MainWindow) onOpenFloorPlan() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(path))
		if err := mw.state.SetFloorPlan(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(image.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSignOut() {
	if err := mw.state.Auth.Logout(context.Background()); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onZoomIn() {
	if mw.view != nil {
		mw.view.ZoomIn()
	}
}

func (mw *MainWindow) onZoomOut() {
	if mw.view != nil {
		mw.view.ZoomOut()
	}
}

func (mw *MainWindow) onResetView() {
	if mw.view != nil {
		mw.view.ResetView()
	}
}

func (mw *MainWindow) onNewTask() {
	if _, ok := mw.state.CurrentUser(); !ok {
		return
	}
	dialogs.NewTaskFormDialog("New Task", task.Form{}, mw.Window, func(f task.Form) error {
		_, err := mw.state.CreateTask(context.Background(), f)
		return err
	}).Show()
}

func (mw *MainWindow) onEditTask(t task.Task) {
	dialogs.NewTaskFormDialog("Edit Task", task.FormFor(t), mw.Window, func(f task.Form) error {
		return mw.state.UpdateTask(context.Background(), t.ID, f)
	}).Show()
}

func (mw *MainWindow) onDeleteTask(t task.Task) {
	dialogs.ConfirmDelete(t, mw.Window, func() {
		if err := mw.state.DeleteTask(context.Background(), t.ID); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	})
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Site Plan",
		"Site Plan "+version.String()+"\n\n"+
			"Pin tasks to a floor plan and track their checklists.\n\n"+
			"Tap the plan to place a task, drag a pin to move it,\n"+
			"and tap a pin for its menu.",
		mw.Window)
}
