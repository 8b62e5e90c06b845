package reconcile

import "roster-sync/internal/domain"

// DesiredSet is the role-partitioned target membership of one directory
// entity. Managers and Members are disjoint by construction; a principal
// present in both inputs ends up Manager only.
type DesiredSet struct {
	Managers domain.PrincipalSet
	Members  domain.PrincipalSet
}

// BuildDesiredSet merges the two roster populations under the manager
// precedence rule. Pure and total: same snapshot in, same set out.
func BuildDesiredSet(staff, members domain.PrincipalSet, protected domain.Principal) DesiredSet {
	managers := staff.Union()
	managers.Add(protected)
	return DesiredSet{
		Managers: managers,
		Members:  members.Diff(managers),
	}
}
