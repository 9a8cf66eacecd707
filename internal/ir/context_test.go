package ir

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func v(name, value string) Variable {
	return Variable{Name: name, Value: value, Enabled: true}
}

func TestNewResolutionContext_FiltersDisabled(t *testing.T) {
	ctx, err := NewResolutionContext(ContextSpec{
		Global: []Variable{
			v("A", "1"),
			{Name: "B", Value: "2", Enabled: false},
		},
	})
	require.NoError(t, err)

	_, ok := ctx.Find(ScopeGlobal, "B")
	assert.False(t, ok, "disabled variables are not part of the context")

	a, ok := ctx.Find(ScopeGlobal, "A")
	require.True(t, ok)
	assert.Equal(t, ScopeGlobal, a.Scope, "scope inherited from list")
	assert.Equal(t, 1, ctx.Len())
}

func TestNewResolutionContext_InheritsOwner(t *testing.T) {
	ctx, err := NewResolutionContext(ContextSpec{
		Profile:   []Variable{v("P", "x")},
		Rule:      []Variable{v("R", "y")},
		ProfileID: "prof-1",
		RuleID:    "rule-1",
	})
	require.NoError(t, err)

	p, _ := ctx.Find(ScopeProfile, "P")
	r, _ := ctx.Find(ScopeRule, "R")
	assert.Equal(t, "prof-1", p.OwnerID)
	assert.Equal(t, "rule-1", r.OwnerID)
	assert.Equal(t, "prof-1", ctx.ProfileID())
	assert.Equal(t, "rule-1", ctx.RuleID())
}

func TestNewResolutionContext_ContractViolations(t *testing.T) {
	tests := []struct {
		name string
		spec ContextSpec
	}{
		{"duplicate in scope", ContextSpec{Global: []Variable{v("A", "1"), v("A", "2")}}},
		{"wrong scope", ContextSpec{Global: []Variable{{Name: "A", Scope: ScopeRule, Enabled: true}}}},
		{"owner mismatch", ContextSpec{ProfileID: "p1", Profile: []Variable{{Name: "A", OwnerID: "p2", Enabled: true}}}},
		{"empty name", ContextSpec{System: []Variable{v("", "1")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolutionContext(tt.spec)
			var ce *ContextError
			require.ErrorAs(t, err, &ce)
		})
	}
}

func TestNewResolutionContext_DuplicateDisabledIgnored(t *testing.T) {
	_, err := NewResolutionContext(ContextSpec{Global: []Variable{
		v("A", "1"),
		{Name: "A", Value: "2", Enabled: false},
	}})
	assert.NoError(t, err)
}

func TestVariables_ReturnsCopy(t *testing.T) {
	ctx := MustResolutionContext(ContextSpec{Global: []Variable{v("A", "1")}})

	vars := ctx.Variables(ScopeGlobal)
	vars[0].Value = "mutated"

	a, _ := ctx.Find(ScopeGlobal, "A")
	assert.Equal(t, "1", a.Value)
}

func TestFingerprint_EqualMappings(t *testing.T) {
	a := MustResolutionContext(ContextSpec{
		Global: []Variable{v("A", "1"), v("B", "2")},
		Rule:   []Variable{v("A", "r")},
		RuleID: "r1",
	})
	b := MustResolutionContext(ContextSpec{
		Global: []Variable{v("B", "2"), v("A", "1"), {Name: "C", Value: "off"}},
		Rule:   []Variable{{Name: "A", Value: "r", Enabled: true, IsSecret: true}},
		RuleID: "r2",
	})

	assert.Equal(t, a.Fingerprint(), b.Fingerprint(),
		"order, owners, flags, and disabled variables do not affect fingerprint")
	assert.Len(t, a.Fingerprint(), 64)
}

func TestFingerprint_DiffersByValueAndScope(t *testing.T) {
	base := MustResolutionContext(ContextSpec{Global: []Variable{v("A", "1")}})
	otherValue := MustResolutionContext(ContextSpec{Global: []Variable{v("A", "2")}})
	otherScope := MustResolutionContext(ContextSpec{System: []Variable{v("A", "1")}})

	assert.NotEqual(t, base.Fingerprint(), otherValue.Fingerprint())
	assert.NotEqual(t, base.Fingerprint(), otherScope.Fingerprint())
}

func TestFingerprint_DiffersByUnicodeNormalForm(t *testing.T) {
	// Same rendered text, different bytes: "e" + combining acute vs U+00E9.
	decomposed := MustResolutionContext(ContextSpec{Global: []Variable{v("X", "e\u0301")}})
	composed := MustResolutionContext(ContextSpec{Global: []Variable{v("X", "\u00e9")}})
	assert.NotEqual(t, decomposed.Fingerprint(), composed.Fingerprint())

	decomposedName := MustResolutionContext(ContextSpec{Global: []Variable{v("e\u0301", "1")}})
	composedName := MustResolutionContext(ContextSpec{Global: []Variable{v("\u00e9", "1")}})
	assert.NotEqual(t, decomposedName.Fingerprint(), composedName.Fingerprint())
}

func TestFingerprint_Concurrent(t *testing.T) {
	ctx := MustResolutionContext(ContextSpec{Global: []Variable{v("A", "1")}})

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ctx.Fingerprint()
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestSummary(t *testing.T) {
	ctx := MustResolutionContext(ContextSpec{
		System:    []Variable{v("S", "1")},
		Profile:   []Variable{v("P", "1"), v("Q", "2")},
		ProfileID: "p1",
	})

	s := ctx.Summary()
	assert.Equal(t, "p1", s.ProfileID)
	assert.Equal(t, ctx.Fingerprint(), s.Fingerprint)
	assert.Equal(t, 1, s.VariableCounts[ScopeSystem])
	assert.Equal(t, 2, s.VariableCounts[ScopeProfile])
	assert.Equal(t, 0, s.VariableCounts[ScopeRule])
}
