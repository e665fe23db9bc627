package schema

import "assetgraph/internal/domain"

// ruleSet stores containment rules in both directions, keeping the order in
// which rules were added
type ruleSet struct {
	children map[string][]string // parent id -> child ids
	parents  map[string][]string // child id -> parent ids
}

func newRuleSet() *ruleSet {
	return &ruleSet{
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

func (r *ruleSet) has(parentID, childID string) bool {
	for _, id := range r.children[parentID] {
		if id == childID {
			return true
		}
	}
	return false
}

func (r *ruleSet) add(parentID, childID string) {
	if r.has(parentID, childID) {
		return
	}
	r.children[parentID] = append(r.children[parentID], childID)
	r.parents[childID] = append(r.parents[childID], parentID)
}

func (r *ruleSet) remove(parentID, childID string) {
	r.children[parentID] = without(r.children[parentID], childID)
	r.parents[childID] = without(r.parents[childID], parentID)
}

// removeClass drops every rule naming id on either side
func (r *ruleSet) removeClass(id string) {
	for _, childID := range r.children[id] {
		r.parents[childID] = without(r.parents[childID], id)
	}
	for _, parentID := range r.parents[id] {
		r.children[parentID] = without(r.children[parentID], id)
	}
	delete(r.children, id)
	delete(r.parents, id)
}

func (s *Snapshot) ruleSetFor(special bool) *ruleSet {
	if special {
		return s.special
	}
	return s.rules
}

// HasRule reports whether the exact rule exists
func (s *Snapshot) HasRule(rule domain.ContainmentRule) bool {
	return s.ruleSetFor(rule.Special).has(rule.ParentID, rule.ChildID)
}

// AddRules indexes new containment rules
func (s *Snapshot) AddRules(rules []domain.ContainmentRule) {
	for _, r := range rules {
		s.ruleSetFor(r.Special).add(r.ParentID, r.ChildID)
	}
	s.version++
}

// RemoveRules drops containment rules; missing ones are ignored
func (s *Snapshot) RemoveRules(rules []domain.ContainmentRule) {
	for _, r := range rules {
		s.ruleSetFor(r.Special).remove(r.ParentID, r.ChildID)
	}
	s.version++
}

// HasIncomingRules reports whether any rule, primary or special, names c as
// a possible child
func (s *Snapshot) HasIncomingRules(c *domain.Class) bool {
	return len(s.rules.parents[c.ID]) > 0 || len(s.special.parents[c.ID]) > 0
}

// DirectChildren returns the classes ruled directly under parent, unexpanded
func (s *Snapshot) DirectChildren(parent *domain.Class, special bool) []*domain.Class {
	ids := s.ruleSetFor(special).children[parent.ID]
	out := make([]*domain.Class, 0, len(ids))
	for _, id := range ids {
		if c := s.classes[id]; c != nil {
			out = append(out, c)
		}
	}
	return out
}

// PossibleChildren returns the concrete classes instances of parent may
// contain. Each abstract child named by a rule is replaced by its concrete
// descendants, found breadth-first. Every class appears once.
func (s *Snapshot) PossibleChildren(parent *domain.Class, special bool) []*domain.Class {
	seen := make(map[string]bool)
	var out []*domain.Class
	for _, child := range s.DirectChildren(parent, special) {
		candidates := []*domain.Class{child}
		if child.Abstract {
			candidates = s.collect(child.ID, false, false)
		}
		for _, c := range candidates {
			if !seen[c.ID] {
				seen[c.ID] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// CanContain reports whether instances of child may be placed under
// instances of parent
func (s *Snapshot) CanContain(parent, child *domain.Class, special bool) bool {
	for _, c := range s.PossibleChildren(parent, special) {
		if c.ID == child.ID {
			return true
		}
	}
	return false
}

// directParents returns the classes that have a rule naming c, or one of
// its abstract ancestors, as a child. A rule naming a concrete ancestor does
// not expand to its subclasses.
func (s *Snapshot) directParents(c *domain.Class, special bool, seen map[string]bool) []*domain.Class {
	rs := s.ruleSetFor(special)
	var out []*domain.Class
	for cur := c; cur != nil; cur = s.classes[cur.ParentID] {
		if cur != c && !cur.Abstract {
			continue
		}
		for _, parentID := range rs.parents[cur.ID] {
			if seen[parentID] {
				continue
			}
			seen[parentID] = true
			if p := s.classes[parentID]; p != nil {
				out = append(out, p)
			}
		}
	}
	return out
}

// UpstreamContainment returns the classes whose instances may contain
// instances of c. A rule (P, X) makes P a possible parent of X and, when X
// is abstract, of every concrete descendant of X. With recursive set the walk continues upward from each
// parent found, breadth-first; every class appears once.
func (s *Snapshot) UpstreamContainment(c *domain.Class, special, recursive bool) []*domain.Class {
	seen := map[string]bool{}
	out := s.directParents(c, special, seen)
	if !recursive {
		return out
	}
	for i := 0; i < len(out); i++ {
		out = append(out, s.directParents(out[i], special, seen)...)
	}
	return out
}
