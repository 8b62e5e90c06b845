package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"roster-sync/internal/config"
	"roster-sync/internal/directory/chatdir"
	"roster-sync/internal/directory/groupdir"
	"roster-sync/internal/domain"
	"roster-sync/internal/orchestrate"
	"roster-sync/internal/reconcile"
	"roster-sync/internal/store/sqlite"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := config.NewLogger(cfg)

	if cfg.ProtectedEmail == "" {
		log.Fatal("missing env var: SYNC_PROTECTED_EMAIL")
	}
	policy, err := reconcile.ParsePolicy(cfg.OnOpError)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	repo, err := sqlite.New(cfg.StorePath)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer repo.Close()

	orch := &orchestrate.Orchestrator{
		Repo:       repo,
		GroupDir:   groupdir.New(cfg.GroupBaseURL, cfg.GroupToken, cfg.CallTimeout),
		ChatDir:    chatdir.New(cfg.ChatBaseURL, cfg.ChatUsersBaseURL, cfg.ChatToken, cfg.CallTimeout),
		Protected:  domain.NewPrincipal(cfg.ProtectedEmail),
		OnOpError:  policy,
		MaxWorkers: cfg.MaxWorkers,
		Log:        logger,
	}

	results, err := orch.SyncAllActiveCourses(ctx)
	if err != nil {
		log.Fatalf("sync error: %v", err)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("FAIL %s: %v\n", r.Course.Name, r.Err)
			continue
		}
		for _, s := range r.Summaries {
			fmt.Printf("OK   %s: %s\n", r.Course.Name, s.Line())
			for _, w := range s.Warnings {
				fmt.Printf("     warning: %s\n", w)
			}
		}
	}
	fmt.Printf("courses: %d, failed: %d\n", len(results), failed)

	if failed > 0 {
		os.Exit(1)
	}
}
