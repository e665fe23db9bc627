package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetgraph/internal/apperror"
	"assetgraph/internal/domain"
)

// testTree builds:
//
//	RootObject (abstract)
//	├── InventoryObject (abstract)
//	│   ├── GenericCommunicationsElement (abstract)
//	│   │   ├── Router
//	│   │   └── Switch
//	│   ├── GenericBoard (abstract)
//	│   │   ├── Card
//	│   │   ├── Module
//	│   │   └── GenericSubBoard (abstract)
//	│   │       └── SubCard
//	│   └── Rack
//	└── GenericObjectList (abstract)
//	    └── Vendor
func testTree(t *testing.T) *Snapshot {
	t.Helper()
	s := New()
	add := func(id, name, parentID string, abstract bool) {
		s.AddClass(&domain.Class{ID: id, Name: name, ParentID: parentID, Abstract: abstract, Custom: true})
	}
	add("root", domain.RootClassName, "", true)
	add("inv", domain.InventoryObjectClass, "root", true)
	add("gce", "GenericCommunicationsElement", "inv", true)
	add("router", "Router", "gce", false)
	add("switch", "Switch", "gce", false)
	add("board", "GenericBoard", "inv", true)
	add("card", "Card", "board", false)
	add("module", "Module", "board", false)
	add("subboard", "GenericSubBoard", "board", true)
	add("subcard", "SubCard", "subboard", false)
	add("rack", "Rack", "inv", false)
	add("list", domain.ListTypeRootClass, "root", true)
	add("vendor", "Vendor", "list", false)
	return s
}

func names(classes []*domain.Class) []string {
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = c.Name
	}
	return out
}

func mustClass(t *testing.T, s *Snapshot, name string) *domain.Class {
	t.Helper()
	c, err := s.Class(name)
	require.NoError(t, err)
	return c
}

func TestClassLookup(t *testing.T) {
	s := testTree(t)

	byName, err := s.Class("Router")
	require.NoError(t, err)
	byID, err := s.Class("router")
	require.NoError(t, err)
	assert.Same(t, byName, byID)
	assert.Equal(t, "GenericCommunicationsElement", byName.ParentName)

	_, err = s.Class("Firewall")
	assert.True(t, apperror.IsMetadataNotFound(err))
	assert.Equal(t, "Firewall", apperror.SubjectOf(err))

	assert.Equal(t, domain.RootClassName, s.Root().Name)
	assert.Equal(t, 13, s.Len())
}

func TestTreeInvariant(t *testing.T) {
	s := testTree(t)

	roots := 0
	for _, c := range s.Classes() {
		if c.ParentID == "" {
			roots++
			continue
		}
		// walking up always terminates at the root without revisiting a class
		seen := map[string]bool{c.ID: true}
		for _, anc := range s.Ancestors(c) {
			require.False(t, seen[anc.ID], "cycle through %s", anc.Name)
			seen[anc.ID] = true
		}
		ancestors := s.Ancestors(c)
		assert.Equal(t, domain.RootClassName, ancestors[len(ancestors)-1].Name)
	}
	assert.Equal(t, 1, roots)
	assert.Len(t, s.Classes(), s.Len(), "every class is reachable from the root")

	gce := mustClass(t, s, "GenericCommunicationsElement")
	assert.True(t, s.WouldCycle(gce, "router"), "a class can not move under its own subclass")
	assert.True(t, s.WouldCycle(gce, "gce"))
	assert.False(t, s.WouldCycle(gce, "board"))
}

func TestSubClasses(t *testing.T) {
	s := testTree(t)
	board := mustClass(t, s, "GenericBoard")

	assert.Equal(t, []string{"GenericBoard", "Card", "Module", "GenericSubBoard", "SubCard"},
		names(s.SubClasses(board, true, true)))
	assert.Equal(t, []string{"Card", "Module", "GenericSubBoard", "SubCard"},
		names(s.SubClasses(board, true, false)))
	assert.Equal(t, []string{"Card", "Module", "SubCard"},
		names(s.SubClasses(board, false, false)),
		"abstract classes are filtered but traversed")
	assert.Empty(t, s.SubClasses(mustClass(t, s, "Router"), true, false))
}

func TestSubClassAncestryDuality(t *testing.T) {
	s := testTree(t)

	for _, a := range s.Classes() {
		subs := make(map[string]bool)
		for _, c := range s.SubClasses(a, true, false) {
			subs[c.ID] = true
		}
		for _, c := range s.Classes() {
			assert.Equal(t, subs[c.ID], s.IsSubClass(a.Name, c.Name),
				"IsSubClass(%s, %s)", a.Name, c.Name)
		}
	}

	assert.False(t, s.IsSubClass("Router", "Router"))
	assert.False(t, s.IsSubClass("Nope", "Router"))
	assert.False(t, s.IsSubClass("Router", "Nope"))
}

func TestReplaceClassMovesSubtree(t *testing.T) {
	s := testTree(t)
	before := s.Version()

	sub := mustClass(t, s, "GenericSubBoard").Clone()
	sub.ParentID = "inv"
	s.ReplaceClass(sub)

	assert.Greater(t, s.Version(), before)
	assert.Equal(t, domain.InventoryObjectClass, sub.ParentName)
	assert.False(t, s.IsSubClass("GenericBoard", "SubCard"))
	assert.True(t, s.IsSubClass(domain.InventoryObjectClass, "SubCard"))
	assert.NotContains(t, names(s.SubClasses(mustClass(t, s, "GenericBoard"), true, false)), "GenericSubBoard")
}

func TestRemoveClass(t *testing.T) {
	s := testTree(t)
	rack := mustClass(t, s, "Rack")
	card := mustClass(t, s, "Card")
	s.AddRules([]domain.ContainmentRule{{ParentID: rack.ID, ChildID: card.ID}})

	s.RemoveClass(card.ID)

	_, ok := s.Lookup("Card")
	assert.False(t, ok)
	assert.Empty(t, s.DirectChildren(rack, false))
	assert.NotContains(t, names(s.SubClasses(mustClass(t, s, "GenericBoard"), true, false)), "Card")
}

func TestIsListType(t *testing.T) {
	s := testTree(t)
	assert.True(t, s.IsListType(mustClass(t, s, "Vendor")))
	assert.True(t, s.IsListType(mustClass(t, s, domain.ListTypeRootClass)))
	assert.False(t, s.IsListType(mustClass(t, s, "Router")))
}

func TestBuildFromUnorderedClasses(t *testing.T) {
	classes := []*domain.Class{
		{ID: "c", Name: "Card", ParentID: "b"},
		{ID: "b", Name: "Board", ParentID: "r", Abstract: true},
		{ID: "r", Name: domain.RootClassName},
	}
	attrs := []*domain.Attribute{{ID: "a1", ClassID: "r", Name: "name"}}
	rules := []domain.ContainmentRule{{ParentID: "r", ChildID: "b"}}

	s := Build(classes, attrs, rules)

	assert.Equal(t, "r", s.Root().ID)
	assert.Equal(t, "Board", mustClass(t, s, "Card").ParentName)
	assert.Equal(t, []string{domain.RootClassName, "Board", "Card"}, names(s.Classes()))
	assert.Equal(t, []string{"Card"}, names(s.PossibleChildren(s.Root(), false)))
	assert.Len(t, s.Attributes(mustClass(t, s, "Card")), 1)
}
