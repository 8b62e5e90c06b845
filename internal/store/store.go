package store

import (
	"context"

	"roster-sync/internal/domain"
)

// GroupRow is one entry of the available-groups mirror.
type GroupRow struct {
	Email string
	URL   string
}

// ChatRow is one entry of the available-chats mirror. SpaceRef is the
// backend resource name (spaces/{id}); Name is what course config
// references.
type ChatRow struct {
	Name     string
	URL      string
	SpaceRef string
}

// Repository is the local mirror of course configuration, roster
// snapshots, and the directory catalogs. It replaces the spreadsheet of
// the earlier deployment; the reconciliation core only ever sees these
// methods, never the storage.
type Repository interface {
	// Course configuration.
	ListCourses(ctx context.Context) ([]domain.Course, error)
	ListActiveCourses(ctx context.Context) ([]domain.Course, error)
	InsertCourse(ctx context.Context, c domain.Course) error
	UpdateCourseName(ctx context.Context, id, name string) error
	SetCourseStatus(ctx context.Context, id, status string) error

	// Roster mirrors, replaced wholesale on refresh.
	ReplaceStaff(ctx context.Context, entries []domain.RosterEntry) error
	ReplaceMembers(ctx context.Context, entries []domain.RosterEntry) error
	Staff(ctx context.Context, courseName string) (domain.PrincipalSet, error)
	Members(ctx context.Context, courseName string) (domain.PrincipalSet, error)
	StaffEntries(ctx context.Context, courseName string) ([]domain.RosterEntry, error)
	MemberEntries(ctx context.Context, courseName string) ([]domain.RosterEntry, error)

	// Directory catalogs.
	ReplaceGroupList(ctx context.Context, rows []GroupRow) error
	ReplaceChatList(ctx context.Context, rows []ChatRow) error
	GroupExists(ctx context.Context, email string) (bool, error)
	ChatSpaceRef(ctx context.Context, name string) (string, error)

	Close() error
}
