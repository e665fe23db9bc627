package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"assetgraph/internal/domain"
)

func TestAbstractExpansion(t *testing.T) {
	s := testTree(t)
	rack := mustClass(t, s, "Rack")
	board := mustClass(t, s, "GenericBoard")

	s.AddRules([]domain.ContainmentRule{{ParentID: rack.ID, ChildID: board.ID}})

	got := names(s.PossibleChildren(rack, false))
	assert.ElementsMatch(t, []string{"Card", "Module", "SubCard"}, got)
	assert.NotContains(t, got, "GenericBoard")
	assert.NotContains(t, got, "GenericSubBoard")

	assert.Equal(t, []string{"GenericBoard"}, names(s.DirectChildren(rack, false)))
}

func TestRackGenericBoardScenario(t *testing.T) {
	s := New()
	s.AddClass(&domain.Class{ID: "root", Name: domain.RootClassName, Abstract: true})
	s.AddClass(&domain.Class{ID: "rack", Name: "Rack", ParentID: "root"})
	s.AddClass(&domain.Class{ID: "board", Name: "GenericBoard", ParentID: "root", Abstract: true})
	s.AddClass(&domain.Class{ID: "card", Name: "Card", ParentID: "board"})
	s.AddClass(&domain.Class{ID: "module", Name: "Module", ParentID: "board"})

	s.AddRules([]domain.ContainmentRule{{ParentID: "rack", ChildID: "board"}})

	assert.ElementsMatch(t, []string{"Card", "Module"}, names(s.PossibleChildren(mustClass(t, s, "Rack"), false)))
}

func TestPossibleChildrenDeduplicates(t *testing.T) {
	s := testTree(t)
	rack := mustClass(t, s, "Rack")

	// Card is reachable both directly and through GenericBoard
	s.AddRules([]domain.ContainmentRule{
		{ParentID: rack.ID, ChildID: "card"},
		{ParentID: rack.ID, ChildID: "board"},
	})

	assert.Equal(t, []string{"Card", "Module", "SubCard"}, names(s.PossibleChildren(rack, false)))
	assert.True(t, s.CanContain(rack, mustClass(t, s, "SubCard"), false))
	assert.False(t, s.CanContain(rack, mustClass(t, s, "Router"), false))
	assert.False(t, s.CanContain(rack, mustClass(t, s, "Card"), true), "special rules are separate")
}

func TestSpecialRulesAreIndependent(t *testing.T) {
	s := testTree(t)
	router := mustClass(t, s, "Router")
	rule := domain.ContainmentRule{ParentID: router.ID, ChildID: "card", Special: true}

	s.AddRules([]domain.ContainmentRule{rule})

	assert.True(t, s.HasRule(rule))
	assert.False(t, s.HasRule(domain.ContainmentRule{ParentID: router.ID, ChildID: "card"}))
	assert.Empty(t, s.PossibleChildren(router, false))
	assert.Equal(t, []string{"Card"}, names(s.PossibleChildren(router, true)))
	assert.True(t, s.HasIncomingRules(mustClass(t, s, "Card")))

	s.RemoveRules([]domain.ContainmentRule{rule, {ParentID: router.ID, ChildID: "switch", Special: true}})
	assert.Empty(t, s.PossibleChildren(router, true))
	assert.False(t, s.HasIncomingRules(mustClass(t, s, "Card")))
}

func TestUpstreamContainment(t *testing.T) {
	s := testTree(t)
	// Rack may hold any board; Router may hold sub boards; root may hold racks
	s.AddRules([]domain.ContainmentRule{
		{ParentID: "rack", ChildID: "board"},
		{ParentID: "router", ChildID: "subboard"},
		{ParentID: "root", ChildID: "rack"},
		{ParentID: "rack", ChildID: "router"},
	})
	subcard := mustClass(t, s, "SubCard")

	t.Run("direct parents include rules on ancestors", func(t *testing.T) {
		got := names(s.UpstreamContainment(subcard, false, false))
		assert.Equal(t, []string{"Router", "Rack"}, got)
	})

	t.Run("recursive walk deduplicates", func(t *testing.T) {
		got := names(s.UpstreamContainment(subcard, false, true))
		assert.Equal(t, []string{"Router", "Rack", domain.RootClassName}, got)
	})

	t.Run("no parents", func(t *testing.T) {
		assert.Empty(t, s.UpstreamContainment(mustClass(t, s, "Vendor"), false, true))
	})
}

func TestUpstreamIgnoresRulesOnConcreteAncestors(t *testing.T) {
	s := testTree(t)
	s.AddClass(&domain.Class{ID: "corerouter", Name: "CoreRouter", ParentID: "router", Custom: true})
	s.AddRules([]domain.ContainmentRule{
		{ParentID: "rack", ChildID: "router"},
		{ParentID: "root", ChildID: "gce"},
	})
	rack := mustClass(t, s, "Rack")
	coreRouter := mustClass(t, s, "CoreRouter")

	assert.Equal(t, []string{"Router"}, names(s.PossibleChildren(rack, false)))
	assert.False(t, s.CanContain(rack, coreRouter, false))

	// only the rule on the abstract GenericCommunicationsElement applies
	assert.Equal(t, []string{domain.RootClassName}, names(s.UpstreamContainment(coreRouter, false, false)))
	assert.ElementsMatch(t, []string{"Rack", domain.RootClassName},
		names(s.UpstreamContainment(mustClass(t, s, "Router"), false, false)))

	// every upstream class can contain the class it was asked for
	for _, c := range []*domain.Class{coreRouter, mustClass(t, s, "Router"), mustClass(t, s, "SubCard")} {
		for _, p := range s.UpstreamContainment(c, false, false) {
			assert.True(t, s.CanContain(p, c, false), "%s upstream of %s", p.Name, c.Name)
		}
	}
}
