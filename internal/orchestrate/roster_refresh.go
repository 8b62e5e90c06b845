package orchestrate

import (
	"context"
	"fmt"
	"log/slog"

	"roster-sync/internal/domain"
	"roster-sync/internal/roster"
	"roster-sync/internal/store"
)

// RosterRefresher overwrites the staff and enrolled-member mirrors for
// every active course. The member sync only ever reads these mirrors; a
// refresh immediately before the sync gives it a consistent snapshot.
type RosterRefresher struct {
	Repo   store.Repository
	Roster *roster.Client
	Log    *slog.Logger
}

// RefreshRosters fails fast with ErrNoActiveCourses when nothing is
// active: refreshing an empty selection would silently wipe the mirrors.
func (r *RosterRefresher) RefreshRosters(ctx context.Context) error {
	courses, err := r.Repo.ListActiveCourses(ctx)
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		return ErrNoActiveCourses
	}

	var staff, members []domain.RosterEntry
	for _, c := range courses {
		clean := c.CleanName()

		teachers, err := r.Roster.ListTeachers(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("staff for course %q: %w", clean, err)
		}
		staff = append(staff, r.toEntries(clean, teachers)...)

		students, err := r.Roster.ListStudents(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("members for course %q: %w", clean, err)
		}
		members = append(members, r.toEntries(clean, students)...)
	}

	if err := r.Repo.ReplaceStaff(ctx, staff); err != nil {
		return err
	}
	if err := r.Repo.ReplaceMembers(ctx, members); err != nil {
		return err
	}

	r.logger().Info("roster mirrors refreshed",
		"courses", len(courses), "staff", len(staff), "members", len(members))
	return nil
}

// toEntries drops rows without an email address: nothing downstream can
// act on them, and keeping them would poison the desired sets.
func (r *RosterRefresher) toEntries(courseName string, people []roster.Person) []domain.RosterEntry {
	out := make([]domain.RosterEntry, 0, len(people))
	for _, p := range people {
		if p.Email == "" {
			r.logger().Warn("roster entry without email, skipped",
				"course", courseName, "name", p.FullName, "user_id", p.UserID)
			continue
		}
		out = append(out, domain.RosterEntry{
			CourseName: courseName,
			FullName:   p.FullName,
			Email:      p.Email,
		})
	}
	return out
}

func (r *RosterRefresher) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
