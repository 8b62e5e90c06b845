package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"roster-sync/internal/concurrency"
	"roster-sync/internal/directory"
	"roster-sync/internal/domain"
	"roster-sync/internal/reconcile"
	"roster-sync/internal/store"
)

// ErrNoActiveCourses is a configuration error: there is nothing to sync.
var ErrNoActiveCourses = errors.New("no course is marked active in the configuration")

// CourseResult is the outcome of one course's sync: one summary per
// directory kind that ran, or the error that stopped the course.
type CourseResult struct {
	Course    domain.Course
	Summaries []reconcile.Summary
	Err       error
}

// Orchestrator runs the member-sync batch: for every active course it
// builds the desired set from the roster mirrors and reconciles the
// associated group and chat entities. Courses are isolated from each
// other; by default they run strictly sequentially.
type Orchestrator struct {
	Repo      store.Repository
	GroupDir  directory.Adapter
	ChatDir   directory.Adapter
	Protected domain.Principal
	OnOpError reconcile.Policy

	// MaxWorkers > 1 reconciles different courses concurrently. Entities
	// belong to exactly one course, so there is no cross-course write
	// overlap; within a course execution stays strictly ordered.
	MaxWorkers int

	Log *slog.Logger

	// Now is the status timestamp source; tests pin it.
	Now func() time.Time
}

// SyncAllActiveCourses is the sole entry point of the reconciliation
// batch. A course's failure lands in its result (and status field) and
// never aborts the rest of the batch.
func (o *Orchestrator) SyncAllActiveCourses(ctx context.Context) ([]CourseResult, error) {
	courses, err := o.Repo.ListActiveCourses(ctx)
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, ErrNoActiveCourses
	}

	runID := uuid.NewString()
	log := o.logger().With("run_id", runID)
	log.Info("starting member sync", "courses", len(courses), "workers", o.workers())

	results, _ := concurrency.Map(ctx, courses, o.workers(),
		func(ctx context.Context, _ int, c domain.Course) (CourseResult, error) {
			return o.syncCourse(ctx, log, c), nil
		})

	for _, r := range results {
		if r.Err != nil {
			log.Error("course sync failed", "course", r.Course.Name, "err", r.Err)
		}
	}
	log.Info("member sync finished")
	return results, nil
}

func (o *Orchestrator) syncCourse(ctx context.Context, log *slog.Logger, c domain.Course) CourseResult {
	res := CourseResult{Course: c}

	o.writeStatus(ctx, log, c.ID, "Syncing...")

	clean := c.CleanName()
	staff, err := o.Repo.Staff(ctx, clean)
	if err == nil {
		var members domain.PrincipalSet
		members, err = o.Repo.Members(ctx, clean)
		if err == nil {
			desired := reconcile.BuildDesiredSet(staff, members, o.Protected)
			res.Summaries, err = o.reconcileCourse(ctx, c, desired)
		}
	}

	if err != nil {
		res.Err = err
		o.writeStatus(ctx, log, c.ID, "Error: "+err.Error())
		return res
	}

	o.writeStatus(ctx, log, c.ID, o.statusLine(res.Summaries))
	return res
}

// reconcileCourse runs the group kind then the chat kind, skipping the
// ones the course has no reference for. The first failing kind stops the
// course.
func (o *Orchestrator) reconcileCourse(ctx context.Context, c domain.Course, desired reconcile.DesiredSet) ([]reconcile.Summary, error) {
	var summaries []reconcile.Summary

	if c.GroupRef != "" {
		groupKey := domain.TrimRemoved(c.GroupRef)
		ok, err := o.Repo.GroupExists(ctx, groupKey)
		if err != nil {
			return summaries, err
		}
		if !ok {
			return summaries, fmt.Errorf("group %q not found in the directory catalog", groupKey)
		}
		s, err := o.reconciler(o.GroupDir).Reconcile(ctx, groupKey, desired)
		if err != nil {
			return summaries, fmt.Errorf("group sync: %w", err)
		}
		summaries = append(summaries, s)
	}

	if c.ChatRef != "" {
		spaceRef, err := o.Repo.ChatSpaceRef(ctx, domain.TrimRemoved(c.ChatRef))
		if err != nil {
			return summaries, err
		}
		if spaceRef == "" {
			return summaries, fmt.Errorf("chat %q not found in the directory catalog", domain.TrimRemoved(c.ChatRef))
		}
		s, err := o.reconciler(o.ChatDir).Reconcile(ctx, spaceRef, desired)
		if err != nil {
			return summaries, fmt.Errorf("chat sync: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, nil
}

func (o *Orchestrator) reconciler(a directory.Adapter) *reconcile.Reconciler {
	return &reconcile.Reconciler{
		Adapter:   a,
		Protected: o.Protected,
		OnOpError: o.OnOpError,
		Log:       o.Log,
	}
}

func (o *Orchestrator) statusLine(summaries []reconcile.Summary) string {
	parts := make([]string, 0, len(summaries))
	warnings := 0
	for _, s := range summaries {
		parts = append(parts, s.Line())
		warnings += len(s.Warnings)
	}
	line := fmt.Sprintf("Synced: %s. %s", o.now().Format("2006-01-02 15:04:05"), strings.Join(parts, " | "))
	if warnings > 0 {
		line += fmt.Sprintf(" Warnings: %d.", warnings)
	}
	return line
}

// writeStatus is best effort: a status write must never fail the sync.
func (o *Orchestrator) writeStatus(ctx context.Context, log *slog.Logger, courseID, text string) {
	if err := o.Repo.SetCourseStatus(ctx, courseID, text); err != nil {
		log.Warn("status write failed", "course_id", courseID, "err", err)
	}
}

func (o *Orchestrator) workers() int {
	if o.MaxWorkers > 1 {
		return o.MaxWorkers
	}
	return 1
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Log != nil {
		return o.Log
	}
	return slog.Default()
}
