package directory

import (
	"context"

	"roster-sync/internal/domain"
)

// Role is the backend-agnostic membership role. Adapters translate it to
// their own vocabulary (OWNER/MANAGER/MEMBER for groups, ROLE_MANAGER/
// ROLE_MEMBER for chat spaces).
type Role int

const (
	RoleMember Role = iota
	RoleManager
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleManager:
		return "manager"
	default:
		return "member"
	}
}

// Member is one live membership entry as reported by a backend.
// Ref is the backend-native principal reference (the email itself for
// group backends, users/{id} for chat backends).
type Member struct {
	Ref  string
	Role Role
}

// Adapter is the uniform capability over one membership backend.
//
// ListMembers follows pagination until the backend is exhausted.
// Resolve maps an email to the backend-native reference; for backends
// where identity is the email it never fails.
type Adapter interface {
	// Kind names the backend for status lines and logs ("Group", "Chat").
	Kind() string

	// HighestRole is the role the protected principal is pinned to.
	HighestRole() Role

	ListMembers(ctx context.Context, entityRef string) ([]Member, error)
	Resolve(ctx context.Context, p domain.Principal) (string, error)
	AddMember(ctx context.Context, entityRef, ref string, role Role) error
	RemoveMember(ctx context.Context, entityRef, ref string) error
	UpdateRole(ctx context.Context, entityRef, ref string, role Role) error
}
