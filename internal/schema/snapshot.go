// Package schema holds the in-memory index of classes, attributes and
// containment rules that every metadata read is answered from.
//
// A Snapshot is not safe for concurrent use; the metadata service guards it
// with a read/write lock and bumps its version on every mutation.
package schema

import (
	"assetgraph/internal/apperror"
	"assetgraph/internal/domain"
)

// Snapshot indexes the class tree, attributes and containment rules
type Snapshot struct {
	version uint64

	classes  map[string]*domain.Class // by id
	byName   map[string]string        // name -> id
	children map[string][]string      // parent id -> child ids, insertion order
	rootID   string

	attributes map[string][]*domain.Attribute // class id -> own attributes

	rules   *ruleSet
	special *ruleSet
}

// New creates an empty snapshot
func New() *Snapshot {
	return &Snapshot{
		classes:    make(map[string]*domain.Class),
		byName:     make(map[string]string),
		children:   make(map[string][]string),
		attributes: make(map[string][]*domain.Attribute),
		rules:      newRuleSet(),
		special:    newRuleSet(),
	}
}

// Build creates a snapshot from persisted metadata. Classes may arrive in any
// order; parent names are derived once every class is indexed.
func Build(classes []*domain.Class, attrs []*domain.Attribute, rules []domain.ContainmentRule) *Snapshot {
	s := New()
	for _, c := range classes {
		s.classes[c.ID] = c
		s.byName[c.Name] = c.ID
	}
	for _, c := range classes {
		if c.ParentID == "" {
			s.rootID = c.ID
			continue
		}
		s.children[c.ParentID] = append(s.children[c.ParentID], c.ID)
		if parent, ok := s.classes[c.ParentID]; ok {
			c.ParentName = parent.Name
		}
	}
	for _, a := range attrs {
		s.attributes[a.ClassID] = append(s.attributes[a.ClassID], a)
	}
	for _, r := range rules {
		s.ruleSetFor(r.Special).add(r.ParentID, r.ChildID)
	}
	return s
}

// Version returns a counter that changes on every mutation
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Len returns the number of classes
func (s *Snapshot) Len() int {
	return len(s.classes)
}

// ============================================================================
// Classes
// ============================================================================

// Lookup resolves a class by id, then by name
func (s *Snapshot) Lookup(nameOrID string) (*domain.Class, bool) {
	if c, ok := s.classes[nameOrID]; ok {
		return c, true
	}
	if id, ok := s.byName[nameOrID]; ok {
		return s.classes[id], true
	}
	return nil, false
}

// Class resolves a class by id or name
func (s *Snapshot) Class(nameOrID string) (*domain.Class, error) {
	if c, ok := s.Lookup(nameOrID); ok {
		return c, nil
	}
	return nil, apperror.NewMetadataNotFound("class", nameOrID)
}

// Root returns the root class, nil for an empty snapshot
func (s *Snapshot) Root() *domain.Class {
	return s.classes[s.rootID]
}

// Classes returns every class in breadth-first order from the root
func (s *Snapshot) Classes() []*domain.Class {
	if s.rootID == "" {
		return nil
	}
	return s.collect(s.rootID, true, true)
}

// AddClass indexes a new class. The parent must already be indexed.
func (s *Snapshot) AddClass(c *domain.Class) {
	s.classes[c.ID] = c
	s.byName[c.Name] = c.ID
	if c.ParentID == "" {
		s.rootID = c.ID
	} else {
		s.children[c.ParentID] = append(s.children[c.ParentID], c.ID)
		c.ParentName = s.classes[c.ParentID].Name
	}
	s.version++
}

// ReplaceClass swaps the stored definition of an indexed class, moving it in
// the tree when its parent changed
func (s *Snapshot) ReplaceClass(c *domain.Class) {
	old := s.classes[c.ID]
	if old != nil && old.Name != c.Name {
		delete(s.byName, old.Name)
	}
	if old != nil && old.ParentID != c.ParentID {
		s.children[old.ParentID] = without(s.children[old.ParentID], c.ID)
		if c.ParentID != "" {
			s.children[c.ParentID] = append(s.children[c.ParentID], c.ID)
		}
	}
	if parent, ok := s.classes[c.ParentID]; ok {
		c.ParentName = parent.Name
	}
	s.classes[c.ID] = c
	s.byName[c.Name] = c.ID
	for _, childID := range s.children[c.ID] {
		s.classes[childID].ParentName = c.Name
	}
	s.version++
}

// RemoveClass drops a leaf class with its attributes and every rule that
// names it
func (s *Snapshot) RemoveClass(id string) {
	c, ok := s.classes[id]
	if !ok {
		return
	}
	delete(s.classes, id)
	delete(s.byName, c.Name)
	delete(s.children, id)
	delete(s.attributes, id)
	if c.ParentID != "" {
		s.children[c.ParentID] = without(s.children[c.ParentID], id)
	}
	s.rules.removeClass(id)
	s.special.removeClass(id)
	s.version++
}

// Parent returns the superclass, nil for the root
func (s *Snapshot) Parent(c *domain.Class) *domain.Class {
	return s.classes[c.ParentID]
}

// Ancestors returns the superclasses of c, nearest first
func (s *Snapshot) Ancestors(c *domain.Class) []*domain.Class {
	var out []*domain.Class
	for p := s.classes[c.ParentID]; p != nil; p = s.classes[p.ParentID] {
		out = append(out, p)
	}
	return out
}

// HasSubClasses reports whether any class extends c
func (s *Snapshot) HasSubClasses(c *domain.Class) bool {
	return len(s.children[c.ID]) > 0
}

// SubClasses returns the descendants of c in breadth-first order. Abstract
// classes are traversed even when they are filtered out of the result.
func (s *Snapshot) SubClasses(c *domain.Class, includeAbstract, includeSelf bool) []*domain.Class {
	return s.collect(c.ID, includeAbstract, includeSelf)
}

// SubTreeIDs returns the ids of c and all of its descendants
func (s *Snapshot) SubTreeIDs(c *domain.Class) []string {
	classes := s.collect(c.ID, true, true)
	ids := make([]string, len(classes))
	for i, sub := range classes {
		ids[i] = sub.ID
	}
	return ids
}

// collect walks the tree below id breadth-first with an explicit queue
func (s *Snapshot) collect(id string, includeAbstract, includeSelf bool) []*domain.Class {
	var out []*domain.Class
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		c := s.classes[current]
		if c == nil {
			continue
		}
		if (current != id || includeSelf) && (includeAbstract || !c.Abstract) {
			out = append(out, c)
		}
		queue = append(queue, s.children[current]...)
	}
	return out
}

// IsSubClass reports whether candidate is a strict descendant of allegedParent.
// Both are resolved by name or id.
func (s *Snapshot) IsSubClass(allegedParent, candidate string) bool {
	parent, ok := s.Lookup(allegedParent)
	if !ok {
		return false
	}
	c, ok := s.Lookup(candidate)
	if !ok {
		return false
	}
	for p := s.classes[c.ParentID]; p != nil; p = s.classes[p.ParentID] {
		if p.ID == parent.ID {
			return true
		}
	}
	return false
}

// IsListType reports whether c descends from the list type root
func (s *Snapshot) IsListType(c *domain.Class) bool {
	return c.Name == domain.ListTypeRootClass || s.IsSubClass(domain.ListTypeRootClass, c.ID)
}

// WouldCycle reports whether making newParentID the parent of c puts c
// among its own ancestors
func (s *Snapshot) WouldCycle(c *domain.Class, newParentID string) bool {
	for p := s.classes[newParentID]; p != nil; p = s.classes[p.ParentID] {
		if p.ID == c.ID {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
