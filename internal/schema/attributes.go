package schema

import (
	"assetgraph/internal/apperror"
	"assetgraph/internal/domain"
)

// OwnAttributes returns the attributes declared by c itself
func (s *Snapshot) OwnAttributes(c *domain.Class) []*domain.Attribute {
	return s.attributes[c.ID]
}

// Attributes returns every attribute of c: inherited ones root-first, then
// its own
func (s *Snapshot) Attributes(c *domain.Class) []*domain.Attribute {
	ancestors := s.Ancestors(c)
	var out []*domain.Attribute
	for i := len(ancestors) - 1; i >= 0; i-- {
		out = append(out, s.attributes[ancestors[i].ID]...)
	}
	return append(out, s.attributes[c.ID]...)
}

// Attribute resolves an attribute of c by name or id, looking at the class's
// own attributes first and then at each ancestor in turn
func (s *Snapshot) Attribute(c *domain.Class, nameOrID string) (*domain.Attribute, error) {
	for cur := c; cur != nil; cur = s.classes[cur.ParentID] {
		for _, a := range s.attributes[cur.ID] {
			if a.ID == nameOrID || a.Name == nameOrID {
				return a, nil
			}
		}
	}
	return nil, apperror.NewMetadataNotFound("attribute", nameOrID)
}

// NameTaken reports whether name is used by an attribute anywhere in the
// inheritance chain of c: its ancestors, itself or its descendants.
// exceptID is ignored, so an attribute does not collide with itself.
func (s *Snapshot) NameTaken(c *domain.Class, name, exceptID string) bool {
	taken := func(classID string) bool {
		for _, a := range s.attributes[classID] {
			if a.Name == name && a.ID != exceptID {
				return true
			}
		}
		return false
	}
	for _, anc := range s.Ancestors(c) {
		if taken(anc.ID) {
			return true
		}
	}
	for _, id := range s.SubTreeIDs(c) {
		if taken(id) {
			return true
		}
	}
	return false
}

// Collisions returns the attribute names of the subtree rooted at c that
// would clash with attributes inherited from newParent
func (s *Snapshot) Collisions(c, newParent *domain.Class) []string {
	inherited := make(map[string]bool)
	for _, a := range s.Attributes(newParent) {
		inherited[a.Name] = true
	}
	var clashes []string
	for _, id := range s.SubTreeIDs(c) {
		for _, a := range s.attributes[id] {
			if inherited[a.Name] {
				clashes = append(clashes, a.Name)
			}
		}
	}
	return clashes
}

// ReferencedBy returns the relationship attributes whose list type is c
func (s *Snapshot) ReferencedBy(c *domain.Class) []*domain.Attribute {
	var out []*domain.Attribute
	for _, attrs := range s.attributes {
		for _, a := range attrs {
			if a.Mapping.IsRelationship() && a.Type == c.Name {
				out = append(out, a)
			}
		}
	}
	return out
}

// AddAttribute indexes a new attribute on its class
func (s *Snapshot) AddAttribute(a *domain.Attribute) {
	s.attributes[a.ClassID] = append(s.attributes[a.ClassID], a)
	s.version++
}

// ReplaceAttribute swaps the stored definition of an indexed attribute
func (s *Snapshot) ReplaceAttribute(a *domain.Attribute) {
	for i, existing := range s.attributes[a.ClassID] {
		if existing.ID == a.ID {
			s.attributes[a.ClassID][i] = a
			break
		}
	}
	s.version++
}

// RemoveAttribute drops an attribute from its class
func (s *Snapshot) RemoveAttribute(a *domain.Attribute) {
	attrs := s.attributes[a.ClassID]
	for i, existing := range attrs {
		if existing.ID == a.ID {
			s.attributes[a.ClassID] = append(attrs[:i:i], attrs[i+1:]...)
			break
		}
	}
	s.version++
}
