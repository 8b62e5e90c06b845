package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"roster-sync/internal/config"
	"roster-sync/internal/export"
	"roster-sync/internal/sftpclient"
	"roster-sync/internal/store/sqlite"
)

func main() {
	var (
		courseName = flag.String("course", "", "export a single course by name (default: all active)")
		upload     = flag.Bool("upload", false, "upload artifacts to the configured SFTP share")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	repo, err := sqlite.New(cfg.StorePath)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer repo.Close()

	courses, err := repo.ListActiveCourses(ctx)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}

	exported := 0
	for _, c := range courses {
		if *courseName != "" && c.CleanName() != *courseName {
			continue
		}

		staff, err := repo.StaffEntries(ctx, c.CleanName())
		if err != nil {
			log.Fatalf("staff for %q: %v", c.CleanName(), err)
		}
		members, err := repo.MemberEntries(ctx, c.CleanName())
		if err != nil {
			log.Fatalf("members for %q: %v", c.CleanName(), err)
		}

		name := fmt.Sprintf("roster-%s-%s.csv", slug(c.CleanName()), time.Now().Format("20060102-150405"))
		path, err := export.WriteArtifact(cfg.ExportDir, name, cfg.ExportBrotli, func(w io.Writer) error {
			return export.WriteRosterCSV(w, c, staff, members)
		})
		if err != nil {
			log.Fatalf("export %q: %v", c.CleanName(), err)
		}
		fmt.Printf("OK: wrote %s (%d members)\n", path, len(members))
		exported++

		if *upload {
			sftpCfg := sftpclient.Config{
				Host:      cfg.SFTPHost,
				Port:      cfg.SFTPPort,
				User:      cfg.SFTPUser,
				Pass:      cfg.SFTPPass,
				RemoteDir: cfg.SFTPRemoteDir,
			}
			if err := sftpclient.UploadFile(ctx, sftpCfg, path, filepath.Base(path)); err != nil {
				log.Fatalf("upload %s: %v", path, err)
			}
			fmt.Printf("OK: uploaded %s\n", filepath.Base(path))
		}
	}

	if exported == 0 {
		log.Fatal("no matching active course to export")
	}
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
