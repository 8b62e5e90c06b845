package domain

// Course is the canonical representation of a configured course inside
// this service. The list-mirror refresh creates and updates rows; the
// member sync only reads them and writes Status back.
type Course struct {
	ID       string // enrollment backend course id
	Name     string
	GroupRef string // group email, empty when no group is associated
	ChatRef  string // chat space resource name, empty when none
	Active   bool
	Status   string // last sync outcome, human readable
	URL      string
}

// RemovedPrefix marks a configured course (or mirror row) that no longer
// exists upstream. Rows are renamed, never deleted, so the association
// with its group/chat survives a temporary disappearance.
const RemovedPrefix = "DEL - "

// CleanName strips the soft-removal prefix for roster matching.
func (c Course) CleanName() string {
	return TrimRemoved(c.Name)
}

func TrimRemoved(name string) string {
	if len(name) >= len(RemovedPrefix) && name[:len(RemovedPrefix)] == RemovedPrefix {
		return name[len(RemovedPrefix):]
	}
	return name
}

// RosterEntry is one staff or enrolled-member row of a course mirror.
type RosterEntry struct {
	CourseName string
	FullName   string
	Email      string
}
