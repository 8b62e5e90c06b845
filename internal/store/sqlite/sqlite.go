package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"roster-sync/internal/domain"
	"roster-sync/internal/store"
)

// Repo implements store.Repository on a local SQLite file.
type Repo struct{ db *sql.DB }

var _ store.Repository = (*Repo)(nil)

func New(path string) (*Repo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS courses (
	  id TEXT PRIMARY KEY,
	  name TEXT NOT NULL,
	  group_ref TEXT NOT NULL DEFAULT '',
	  chat_ref TEXT NOT NULL DEFAULT '',
	  active INTEGER NOT NULL DEFAULT 0,
	  status TEXT NOT NULL DEFAULT '',
	  url TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS staff (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  course_name TEXT NOT NULL,
	  full_name TEXT,
	  email TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS members (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  course_name TEXT NOT NULL,
	  full_name TEXT,
	  email TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS group_list (
	  email TEXT PRIMARY KEY,
	  url TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS chat_list (
	  space_ref TEXT PRIMARY KEY,
	  name TEXT NOT NULL,
	  url TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_staff_course ON staff(course_name);
	CREATE INDEX IF NOT EXISTS idx_members_course ON members(course_name);
	`)
	return err
}

/* -------- courses -------- */

const courseCols = `id, name, group_ref, chat_ref, active, status, url`

func (r *Repo) ListCourses(ctx context.Context) ([]domain.Course, error) {
	return r.queryCourses(ctx, `SELECT `+courseCols+` FROM courses ORDER BY name ASC`)
}

func (r *Repo) ListActiveCourses(ctx context.Context) ([]domain.Course, error) {
	return r.queryCourses(ctx, `SELECT `+courseCols+` FROM courses WHERE active = 1 ORDER BY name ASC`)
}

func (r *Repo) queryCourses(ctx context.Context, q string, args ...any) ([]domain.Course, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Course
	for rows.Next() {
		var c domain.Course
		var active int
		if err := rows.Scan(&c.ID, &c.Name, &c.GroupRef, &c.ChatRef, &active, &c.Status, &c.URL); err != nil {
			return nil, err
		}
		c.Active = active != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) InsertCourse(ctx context.Context, c domain.Course) error {
	active := 0
	if c.Active {
		active = 1
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO courses (`+courseCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.GroupRef, c.ChatRef, active, c.Status, c.URL)
	return err
}

func (r *Repo) UpdateCourseName(ctx context.Context, id, name string) error {
	return r.execOne(ctx, `UPDATE courses SET name = ? WHERE id = ?`, name, id)
}

func (r *Repo) SetCourseStatus(ctx context.Context, id, status string) error {
	return r.execOne(ctx, `UPDATE courses SET status = ? WHERE id = ?`, status, id)
}

func (r *Repo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no course row matched")
	}
	return nil
}

/* -------- roster mirrors -------- */

func (r *Repo) ReplaceStaff(ctx context.Context, entries []domain.RosterEntry) error {
	return r.replaceRoster(ctx, "staff", entries)
}

func (r *Repo) ReplaceMembers(ctx context.Context, entries []domain.RosterEntry) error {
	return r.replaceRoster(ctx, "members", entries)
}

func (r *Repo) replaceRoster(ctx context.Context, table string, entries []domain.RosterEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (course_name, full_name, email) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.CourseName, e.FullName, e.Email); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) Staff(ctx context.Context, courseName string) (domain.PrincipalSet, error) {
	return r.emailSet(ctx, "staff", courseName)
}

func (r *Repo) Members(ctx context.Context, courseName string) (domain.PrincipalSet, error) {
	return r.emailSet(ctx, "members", courseName)
}

func (r *Repo) emailSet(ctx context.Context, table, courseName string) (domain.PrincipalSet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT email FROM `+table+` WHERE course_name = ?`, courseName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := domain.PrincipalSet{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		set.Add(domain.NewPrincipal(email))
	}
	return set, rows.Err()
}

func (r *Repo) StaffEntries(ctx context.Context, courseName string) ([]domain.RosterEntry, error) {
	return r.rosterEntries(ctx, "staff", courseName)
}

func (r *Repo) MemberEntries(ctx context.Context, courseName string) ([]domain.RosterEntry, error) {
	return r.rosterEntries(ctx, "members", courseName)
}

func (r *Repo) rosterEntries(ctx context.Context, table, courseName string) ([]domain.RosterEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT course_name, COALESCE(full_name, ''), email FROM `+table+` WHERE course_name = ? ORDER BY full_name ASC, email ASC`, courseName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RosterEntry
	for rows.Next() {
		var e domain.RosterEntry
		if err := rows.Scan(&e.CourseName, &e.FullName, &e.Email); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

/* -------- directory catalogs -------- */

func (r *Repo) ReplaceGroupList(ctx context.Context, list []store.GroupRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM group_list`); err != nil {
		return err
	}
	for _, g := range list {
		if _, err := tx.ExecContext(ctx, `INSERT INTO group_list (email, url) VALUES (?, ?)`, g.Email, g.URL); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) ReplaceChatList(ctx context.Context, list []store.ChatRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_list`); err != nil {
		return err
	}
	for _, c := range list {
		if _, err := tx.ExecContext(ctx, `INSERT INTO chat_list (space_ref, name, url) VALUES (?, ?, ?)`, c.SpaceRef, c.Name, c.URL); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) GroupExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM group_list WHERE email = ?`, email).Scan(&n)
	return n > 0, err
}

// ChatSpaceRef returns the space resource name for a configured chat
// name, or "" when the chat is not in the catalog.
func (r *Repo) ChatSpaceRef(ctx context.Context, name string) (string, error) {
	var ref string
	err := r.db.QueryRowContext(ctx, `SELECT space_ref FROM chat_list WHERE name = ?`, name).Scan(&ref)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return ref, err
}
