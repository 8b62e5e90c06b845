package export

import (
	"encoding/csv"
	"io"
	"strings"

	"roster-sync/internal/domain"
)

// WriteRosterCSV writes one course's roster sheet: a metadata block
// (course, associated group, staff names), then one row per enrolled
// member. The layout mirrors the sheet handed to teaching staff.
func WriteRosterCSV(w io.Writer, course domain.Course, staff, members []domain.RosterEntry) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	meta := [][]string{
		{"Course:", course.CleanName()},
		{"Group:", course.GroupRef},
		{"Staff:", joinNames(staff)},
		{},
		{"Full Name", "Email"},
	}
	for _, row := range meta {
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	for _, m := range members {
		if err := cw.Write([]string{m.FullName, m.Email}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func joinNames(entries []domain.RosterEntry) string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.FullName != "" {
			names = append(names, e.FullName)
		} else {
			names = append(names, e.Email)
		}
	}
	return strings.Join(names, ", ")
}
