package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPrincipalNormalizes(t *testing.T) {
	assert.Equal(t, Principal("ada@school.test"), NewPrincipal("  Ada@School.Test "))
	assert.True(t, NewPrincipal("   ").IsZero())
}

func TestPrincipalSetIgnoresEmpty(t *testing.T) {
	s := NewPrincipalSet("a@x.test", "", "A@X.Test")
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Has(NewPrincipal("a@x.test")))
}

func TestPrincipalSetUnionAndDiff(t *testing.T) {
	a := NewPrincipalSet("a@x.test", "b@x.test")
	b := NewPrincipalSet("b@x.test", "c@x.test")

	u := a.Union(b)
	assert.Equal(t, 3, u.Len())

	d := b.Diff(a)
	assert.Equal(t, 1, d.Len())
	assert.True(t, d.Has(NewPrincipal("c@x.test")))

	// inputs untouched
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, b.Len())
}

func TestTrimRemoved(t *testing.T) {
	assert.Equal(t, "Algebra", TrimRemoved("DEL - Algebra"))
	assert.Equal(t, "Algebra", TrimRemoved("Algebra"))
	assert.Equal(t, "DEL-Algebra", TrimRemoved("DEL-Algebra"), "prefix must match exactly")
	assert.Equal(t, "DEL - Algebra", Course{Name: "DEL - DEL - Algebra"}.CleanName(), "only one prefix stripped")
}
