package reconcile

import (
	"sort"

	"roster-sync/internal/directory"
)

// plan is the ordered operation set that converges live onto desired.
// Execution order is removes, then adds, then updates: removing first
// avoids duplicate-identity transients, and adding before updating keeps
// role changes from racing inserts of the same principal.
type plan struct {
	removes []string
	adds    []roleOp
	updates []roleOp
}

type roleOp struct {
	ref  string
	role directory.Role
}

// buildPlan diffs resolved desired refs against the live snapshot.
// The protected ref is enforced at the highest role independently of the
// roster-derived sets and is excluded from the classification below.
func buildPlan(live []directory.Member, managers, members map[string]bool, protectedRef string, highest directory.Role) plan {
	var p plan

	liveByRef := make(map[string]directory.Role, len(live))
	for _, m := range live {
		liveByRef[m.Ref] = m.Role
	}

	if protectedRef != "" {
		if role, ok := liveByRef[protectedRef]; !ok {
			p.adds = append(p.adds, roleOp{ref: protectedRef, role: highest})
		} else if role != highest {
			p.updates = append(p.updates, roleOp{ref: protectedRef, role: highest})
		}
	}

	for _, m := range live {
		if m.Ref == protectedRef {
			continue
		}
		switch {
		case managers[m.Ref]:
			if m.Role != directory.RoleManager {
				p.updates = append(p.updates, roleOp{ref: m.Ref, role: directory.RoleManager})
			}
		case members[m.Ref]:
			if m.Role != directory.RoleMember {
				p.updates = append(p.updates, roleOp{ref: m.Ref, role: directory.RoleMember})
			}
		default:
			p.removes = append(p.removes, m.Ref)
		}
	}

	// Managers before Members: a principal desired in both is added once,
	// at the manager role.
	for _, ref := range sortedKeys(managers) {
		if _, ok := liveByRef[ref]; !ok && ref != protectedRef {
			p.adds = append(p.adds, roleOp{ref: ref, role: directory.RoleManager})
		}
	}
	for _, ref := range sortedKeys(members) {
		if _, ok := liveByRef[ref]; !ok && ref != protectedRef && !managers[ref] {
			p.adds = append(p.adds, roleOp{ref: ref, role: directory.RoleMember})
		}
	}

	return p
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
