// Package main provides the entry point for the Site Plan application.
package main

import (
	"context"
	"flag"
	"os"

	fyneapp "fyne.io/fyne/v2/app"
	log "github.com/sirupsen/logrus"

	"siteplan/internal/app"
	"siteplan/internal/config"
	"siteplan/internal/store"
	"siteplan/internal/version"
	"siteplan/ui/mainwindow"
	"siteplan/ui/prefs"
)

const appID = "io.siteplan.desktop"

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to config.yaml")
	floorPlan := flag.String("plan", "", "Floor-plan image to open (overrides the config)")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}
	log.SetLevel(cfg.Level(os.Getenv("SITEPLAN_DEBUG")))
	if *floorPlan != "" {
		cfg.FloorPlan = *floorPlan
	}
	log.Infof("Starting Site Plan %s", version.String())

	st, err := store.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Store: %v", err)
	}
	defer st.Close()

	state := app.NewState(cfg, st)
	state.ConfigPath = *configPath
	defer state.Close()

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.SiteplanTheme{})

	state.Start(context.Background())

	win := mainwindow.New(fyneApp, state, prefs.Load())
	win.SetMaster()
	win.CenterOnScreen()
	win.ShowAndRun()
}
