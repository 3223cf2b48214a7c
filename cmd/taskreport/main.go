// Command taskreport prints every user's tasks with their derived status.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"siteplan/internal/config"
	"siteplan/internal/store"
	"siteplan/internal/task"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to config.yaml")
	dbPath := flag.String("db", "", "Database path (overrides the config)")
	status := flag.String("status", "", "Only show tasks with this status, e.g. BLOCKED")
	user := flag.String("user", "", "Only show this username")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log.SetLevel(cfg.Level(os.Getenv("SITEPLAN_DEBUG")))
	if *dbPath != "" {
		cfg.Database = *dbPath
	}

	var filter *task.Status
	if *status != "" {
		st, err := task.ParseStatus(*status)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(2)
		}
		filter = &st
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	users, err := st.ListUsers(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list users: %v\n", err)
		os.Exit(1)
	}

	var reports []userReport
	for _, u := range users {
		if *user != "" && u.Username != *user {
			continue
		}
		tasks, err := st.ListTasks(ctx, u.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list tasks for %s: %v\n", u.Username, err)
			os.Exit(1)
		}
		reports = append(reports, userReport{User: u, Tasks: tasks})
	}

	if err := render(os.Stdout, reports, filter); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
