package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"roster-sync/internal/directory/chatdir"
	"roster-sync/internal/directory/groupdir"
	"roster-sync/internal/domain"
	"roster-sync/internal/roster"
	"roster-sync/internal/store"
)

// ListRefresher overwrites the three configuration mirrors (courses,
// available groups, available chats) from the backends. This is plain
// fetch-and-overwrite; only the course mirror carries merge logic, so a
// configured course keeps its group/chat association across refreshes.
type ListRefresher struct {
	Repo   store.Repository
	Roster *roster.Client
	Groups *groupdir.Adapter
	Chats  *chatdir.Adapter
	Log    *slog.Logger
}

// RefreshAll fetches the three lists concurrently, then applies them to
// the store sequentially (the store is a single local file; the backends
// are the slow part).
func (l *ListRefresher) RefreshAll(ctx context.Context) error {
	var (
		courses []roster.Course
		groups  []groupdir.Group
		spaces  []chatdir.Space
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		courses, err = l.Roster.ListActiveCourses(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = l.Groups.ListGroups(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		spaces, err = l.Chats.ListSpaces(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("list refresh: %w", err)
	}

	if err := l.mergeCourses(ctx, courses); err != nil {
		return err
	}
	if err := l.replaceGroupList(ctx, groups); err != nil {
		return err
	}
	if err := l.replaceChatList(ctx, spaces); err != nil {
		return err
	}

	l.logger().Info("list mirrors refreshed",
		"courses", len(courses), "groups", len(groups), "chats", len(spaces))
	return nil
}

// mergeCourses reconciles the course mirror with the upstream list:
// known courses keep their row (name refreshed), new ones are inserted
// inactive, vanished ones are soft-removed with the DEL prefix.
func (l *ListRefresher) mergeCourses(ctx context.Context, upstream []roster.Course) error {
	existing, err := l.Repo.ListCourses(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]domain.Course, len(existing))
	for _, c := range existing {
		byID[c.ID] = c
	}

	seen := make(map[string]bool, len(upstream))
	for _, up := range upstream {
		seen[up.ID] = true
		cur, ok := byID[up.ID]
		if !ok {
			err := l.Repo.InsertCourse(ctx, domain.Course{
				ID:   up.ID,
				Name: up.Name,
				URL:  up.AlternateLink,
			})
			if err != nil {
				return err
			}
			continue
		}
		if cur.Name != up.Name {
			if err := l.Repo.UpdateCourseName(ctx, up.ID, up.Name); err != nil {
				return err
			}
		}
	}

	for _, cur := range existing {
		if seen[cur.ID] || strings.HasPrefix(cur.Name, domain.RemovedPrefix) {
			continue
		}
		if err := l.Repo.UpdateCourseName(ctx, cur.ID, domain.RemovedPrefix+cur.Name); err != nil {
			return err
		}
	}
	return nil
}

func (l *ListRefresher) replaceGroupList(ctx context.Context, groups []groupdir.Group) error {
	rows := make([]store.GroupRow, 0, len(groups))
	for _, g := range groups {
		email := strings.ToLower(g.Email)
		rows = append(rows, store.GroupRow{
			Email: email,
			URL:   groupURL(email),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Email < rows[j].Email })
	return l.Repo.ReplaceGroupList(ctx, rows)
}

func (l *ListRefresher) replaceChatList(ctx context.Context, spaces []chatdir.Space) error {
	rows := make([]store.ChatRow, 0, len(spaces))
	for _, s := range spaces {
		rows = append(rows, store.ChatRow{
			Name:     s.DisplayName,
			URL:      chatURL(s.Name),
			SpaceRef: s.Name,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return l.Repo.ReplaceChatList(ctx, rows)
}

func groupURL(email string) string {
	local, dom, ok := strings.Cut(email, "@")
	if !ok {
		return ""
	}
	return fmt.Sprintf("https://groups.google.com/a/%s/g/%s", dom, local)
}

func chatURL(spaceRef string) string {
	id := spaceRef
	if i := strings.LastIndexByte(spaceRef, '/'); i >= 0 {
		id = spaceRef[i+1:]
	}
	return "https://chat.google.com/room/" + id
}

func (l *ListRefresher) logger() *slog.Logger {
	if l.Log != nil {
		return l.Log
	}
	return slog.Default()
}
