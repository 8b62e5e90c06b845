package domain

import "strings"

// Principal is an email-addressed person handled by the sync engine.
// The value is always stored normalized (trimmed, lower-cased) so that
// equality and set membership are case-insensitive everywhere without
// re-normalizing at each comparison site.
type Principal string

func NewPrincipal(email string) Principal {
	return Principal(strings.ToLower(strings.TrimSpace(email)))
}

func (p Principal) String() string { return string(p) }

func (p Principal) IsZero() bool { return p == "" }

// PrincipalSet is a set of principals keyed by normalized email.
type PrincipalSet map[Principal]struct{}

func NewPrincipalSet(emails ...string) PrincipalSet {
	s := make(PrincipalSet, len(emails))
	for _, e := range emails {
		s.Add(NewPrincipal(e))
	}
	return s
}

func (s PrincipalSet) Add(p Principal) {
	if !p.IsZero() {
		s[p] = struct{}{}
	}
}

func (s PrincipalSet) Has(p Principal) bool {
	_, ok := s[p]
	return ok
}

func (s PrincipalSet) Len() int { return len(s) }

// Union returns a new set with the members of s and others.
func (s PrincipalSet) Union(others ...PrincipalSet) PrincipalSet {
	out := make(PrincipalSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	for _, o := range others {
		for p := range o {
			out[p] = struct{}{}
		}
	}
	return out
}

// Diff returns the members of s that are not in other.
func (s PrincipalSet) Diff(other PrincipalSet) PrincipalSet {
	out := make(PrincipalSet)
	for p := range s {
		if !other.Has(p) {
			out[p] = struct{}{}
		}
	}
	return out
}
