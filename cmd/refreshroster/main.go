package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"roster-sync/internal/config"
	"roster-sync/internal/orchestrate"
	"roster-sync/internal/roster"
	"roster-sync/internal/store/sqlite"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := config.NewLogger(cfg)

	repo, err := sqlite.New(cfg.StorePath)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer repo.Close()

	refresher := &orchestrate.RosterRefresher{
		Repo:   repo,
		Roster: roster.New(cfg.RosterBaseURL, cfg.RosterToken, cfg.CallTimeout),
		Log:    logger,
	}

	if err := refresher.RefreshRosters(ctx); err != nil {
		log.Fatalf("roster refresh error: %v", err)
	}
	fmt.Println("OK: roster mirrors refreshed")
}
