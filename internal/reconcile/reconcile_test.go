package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster-sync/internal/directory"
	"roster-sync/internal/domain"
)

// fakeAdapter is an in-memory directory backend. By default identity is
// the email itself (group-style); setting ids switches to resolved
// references (chat-style), with unresolvable emails absent from the map.
type fakeAdapter struct {
	kind    string
	highest directory.Role
	live    map[string]directory.Role
	ids     map[domain.Principal]string

	ops    []string
	addErr error
	failOn string // ref whose add/remove/update fails with addErr
}

func newGroupFake(live map[string]directory.Role) *fakeAdapter {
	if live == nil {
		live = map[string]directory.Role{}
	}
	return &fakeAdapter{kind: "Group", highest: directory.RoleOwner, live: live}
}

func newChatFake(live map[string]directory.Role, ids map[domain.Principal]string) *fakeAdapter {
	if live == nil {
		live = map[string]directory.Role{}
	}
	return &fakeAdapter{kind: "Chat", highest: directory.RoleManager, live: live, ids: ids}
}

func (f *fakeAdapter) Kind() string                { return f.kind }
func (f *fakeAdapter) HighestRole() directory.Role { return f.highest }

func (f *fakeAdapter) Resolve(_ context.Context, p domain.Principal) (string, error) {
	if f.ids == nil {
		return p.String(), nil
	}
	ref, ok := f.ids[p]
	if !ok {
		return "", fmt.Errorf("%w: %s", directory.ErrUnresolvable, p)
	}
	return ref, nil
}

func (f *fakeAdapter) ListMembers(_ context.Context, _ string) ([]directory.Member, error) {
	out := make([]directory.Member, 0, len(f.live))
	for _, ref := range sortedLiveRefs(f.live) {
		out = append(out, directory.Member{Ref: ref, Role: f.live[ref]})
	}
	return out, nil
}

func (f *fakeAdapter) AddMember(_ context.Context, _ string, ref string, role directory.Role) error {
	f.ops = append(f.ops, fmt.Sprintf("add %s %s", ref, role))
	if f.failOn == ref && f.addErr != nil {
		return f.addErr
	}
	if _, ok := f.live[ref]; ok {
		return directory.ErrDuplicateMember
	}
	f.live[ref] = role
	return nil
}

func (f *fakeAdapter) RemoveMember(_ context.Context, _ string, ref string) error {
	f.ops = append(f.ops, "remove "+ref)
	if f.failOn == ref && f.addErr != nil {
		return f.addErr
	}
	if _, ok := f.live[ref]; !ok {
		return directory.ErrNotFound
	}
	delete(f.live, ref)
	return nil
}

func (f *fakeAdapter) UpdateRole(_ context.Context, _ string, ref string, role directory.Role) error {
	f.ops = append(f.ops, fmt.Sprintf("update %s %s", ref, role))
	if f.failOn == ref && f.addErr != nil {
		return f.addErr
	}
	if _, ok := f.live[ref]; !ok {
		return directory.ErrNotFound
	}
	f.live[ref] = role
	return nil
}

func sortedLiveRefs(live map[string]directory.Role) []string {
	m := make(map[string]bool, len(live))
	for ref := range live {
		m[ref] = true
	}
	return sortedKeys(m)
}

func run(t *testing.T, adapter directory.Adapter, desired DesiredSet, protected string) (Summary, error) {
	t.Helper()
	r := &Reconciler{
		Adapter:   adapter,
		Protected: domain.NewPrincipal(protected),
	}
	return r.Reconcile(context.Background(), "entity-1", desired)
}

func TestReconcileMixedDrift(t *testing.T) {
	// teacher@x demoted, c@x is a stranger, protected@x holds the wrong
	// role, a@x and b@x are missing entirely.
	fake := newGroupFake(map[string]directory.Role{
		"teacher@x":   directory.RoleMember,
		"c@x":         directory.RoleManager,
		"protected@x": directory.RoleMember,
	})
	desired := DesiredSet{
		Managers: domain.NewPrincipalSet("teacher@x"),
		Members:  domain.NewPrincipalSet("a@x", "b@x"),
	}

	s, err := run(t, fake, desired, "protected@x")
	require.NoError(t, err)

	assert.Equal(t, 2, s.Added)
	assert.Equal(t, 1, s.Removed)
	assert.Equal(t, 2, s.Updated)
	assert.Empty(t, s.Warnings)

	assert.Equal(t, []string{
		"remove c@x",
		"add a@x member",
		"add b@x member",
		"update protected@x owner",
		"update teacher@x manager",
	}, fake.ops)
}

func TestReconcileEmptyDesiredKeepsProtectedOnly(t *testing.T) {
	fake := newGroupFake(map[string]directory.Role{
		"protected@x": directory.RoleMember,
		"old@x":       directory.RoleMember,
	})

	s, err := run(t, fake, DesiredSet{
		Managers: domain.PrincipalSet{},
		Members:  domain.PrincipalSet{},
	}, "protected@x")
	require.NoError(t, err)

	assert.Equal(t, 0, s.Added)
	assert.Equal(t, 1, s.Removed)
	assert.Equal(t, 1, s.Updated)
	assert.Equal(t, map[string]directory.Role{"protected@x": directory.RoleOwner}, fake.live)
}

func TestReconcileProtectedOnlyUpdate(t *testing.T) {
	fake := newGroupFake(map[string]directory.Role{
		"protected@x": directory.RoleMember,
	})

	s, err := run(t, fake, DesiredSet{
		Managers: domain.PrincipalSet{},
		Members:  domain.PrincipalSet{},
	}, "protected@x")
	require.NoError(t, err)
	assert.Equal(t, Summary{Kind: "Group", Updated: 1}, s)
}

func TestReconcileEmptyLiveInsertsEverything(t *testing.T) {
	fake := newGroupFake(nil)
	desired := DesiredSet{
		Managers: domain.NewPrincipalSet("teacher@x"),
		Members:  domain.NewPrincipalSet("a@x"),
	}

	s, err := run(t, fake, desired, "protected@x")
	require.NoError(t, err)

	assert.Equal(t, 3, s.Added) // protected + teacher + a
	assert.Equal(t, 0, s.Removed)
	assert.Equal(t, 0, s.Updated)
	assert.Equal(t, directory.RoleOwner, fake.live["protected@x"])
	assert.Equal(t, directory.RoleManager, fake.live["teacher@x"])
	assert.Equal(t, directory.RoleMember, fake.live["a@x"])
}

func TestReconcileIdempotent(t *testing.T) {
	fake := newGroupFake(map[string]directory.Role{
		"teacher@x": directory.RoleMember,
		"gone@x":    directory.RoleMember,
	})
	desired := DesiredSet{
		Managers: domain.NewPrincipalSet("teacher@x"),
		Members:  domain.NewPrincipalSet("a@x", "b@x"),
	}

	first, err := run(t, fake, desired, "protected@x")
	require.NoError(t, err)
	require.NotZero(t, first.Added+first.Removed+first.Updated)

	fake.ops = nil
	second, err := run(t, fake, desired, "protected@x")
	require.NoError(t, err)

	assert.Zero(t, second.Added, "second run must add nothing")
	assert.Zero(t, second.Removed, "second run must remove nothing")
	assert.Zero(t, second.Updated, "second run must update nothing")
	assert.Empty(t, fake.ops)
}

func TestReconcileManagerPrecedence(t *testing.T) {
	// both@x is staff and enrolled; it must end up manager, added once.
	fake := newGroupFake(nil)
	desired := BuildDesiredSet(
		domain.NewPrincipalSet("both@x"),
		domain.NewPrincipalSet("both@x", "a@x"),
		domain.NewPrincipal("protected@x"),
	)

	s, err := run(t, fake, desired, "protected@x")
	require.NoError(t, err)

	assert.Equal(t, 3, s.Added)
	assert.Equal(t, directory.RoleManager, fake.live["both@x"])
}

func TestReconcileUnresolvableSkippedWithWarning(t *testing.T) {
	ids := map[domain.Principal]string{
		"teacher@x":   "users/1",
		"protected@x": "users/9",
		// unknown@x deliberately absent
	}
	fake := newChatFake(nil, ids)
	desired := DesiredSet{
		Managers: domain.NewPrincipalSet("teacher@x"),
		Members:  domain.NewPrincipalSet("unknown@x"),
	}

	s, err := run(t, fake, desired, "protected@x")
	require.NoError(t, err)

	require.Len(t, s.Warnings, 1)
	assert.Equal(t, domain.NewPrincipal("unknown@x"), s.Warnings[0].Principal)
	assert.NotContains(t, fake.live, "unknown@x")
	assert.Equal(t, directory.RoleManager, fake.live["users/1"])
	assert.Equal(t, directory.RoleManager, fake.live["users/9"]) // chat highest
}

func TestReconcileProtectedUnresolvable(t *testing.T) {
	ids := map[domain.Principal]string{"teacher@x": "users/1"}
	fake := newChatFake(nil, ids)
	desired := DesiredSet{
		Managers: domain.NewPrincipalSet("teacher@x"),
		Members:  domain.PrincipalSet{},
	}

	s, err := run(t, fake, desired, "protected@x")
	require.NoError(t, err)

	require.Len(t, s.Warnings, 1)
	assert.Equal(t, domain.NewPrincipal("protected@x"), s.Warnings[0].Principal)
	assert.Equal(t, 1, s.Added) // teacher still synced
}

func TestReconcileDuplicateAddCountsAsAdded(t *testing.T) {
	fake := newGroupFake(nil)
	fake.failOn = "a@x"
	fake.addErr = directory.ErrDuplicateMember

	desired := DesiredSet{
		Managers: domain.PrincipalSet{},
		Members:  domain.NewPrincipalSet("a@x"),
	}

	s, err := run(t, fake, desired, "protected@x")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Added) // protected + the swallowed duplicate
}

func TestReconcileOpErrorPolicies(t *testing.T) {
	boom := errors.New("backend exploded")

	mkFake := func() *fakeAdapter {
		f := newGroupFake(map[string]directory.Role{"gone@x": directory.RoleMember})
		f.failOn = "gone@x"
		f.addErr = boom
		return f
	}
	desired := DesiredSet{
		Managers: domain.PrincipalSet{},
		Members:  domain.NewPrincipalSet("a@x"),
	}

	t.Run("abort", func(t *testing.T) {
		r := &Reconciler{Adapter: mkFake(), Protected: domain.NewPrincipal("protected@x"), OnOpError: PolicyAbort}
		_, err := r.Reconcile(context.Background(), "entity-1", desired)
		require.ErrorIs(t, err, boom)
	})

	t.Run("continue", func(t *testing.T) {
		fake := mkFake()
		r := &Reconciler{Adapter: fake, Protected: domain.NewPrincipal("protected@x"), OnOpError: PolicyContinue}
		s, err := r.Reconcile(context.Background(), "entity-1", desired)
		require.NoError(t, err)
		require.Len(t, s.Warnings, 1)
		assert.Equal(t, 2, s.Added) // protected + a@x still applied
	})
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAbort, p)

	p, err = ParsePolicy("continue")
	require.NoError(t, err)
	assert.Equal(t, PolicyContinue, p)

	_, err = ParsePolicy("shrug")
	require.Error(t, err)
}
