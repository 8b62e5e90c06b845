package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"roster-sync/internal/config"
	"roster-sync/internal/directory/chatdir"
	"roster-sync/internal/directory/groupdir"
	"roster-sync/internal/orchestrate"
	"roster-sync/internal/roster"
	"roster-sync/internal/store/sqlite"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
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

	refresher := &orchestrate.ListRefresher{
		Repo:   repo,
		Roster: roster.New(cfg.RosterBaseURL, cfg.RosterToken, cfg.CallTimeout),
		Groups: groupdir.New(cfg.GroupBaseURL, cfg.GroupToken, cfg.CallTimeout),
		Chats:  chatdir.New(cfg.ChatBaseURL, cfg.ChatUsersBaseURL, cfg.ChatToken, cfg.CallTimeout),
		Log:    logger,
	}

	if err := refresher.RefreshAll(ctx); err != nil {
		log.Fatalf("list refresh error: %v", err)
	}
	fmt.Println("OK: list mirrors refreshed")
}
