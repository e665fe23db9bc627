package domain

import (
	"strconv"
	"time"
)

// Instance is a stored inventory object or list item
type Instance struct {
	ID         string            `json:"id"`
	Kind       NodeKind          `json:"kind"`
	ClassID    string            `json:"class_id"`
	ClassName  string            `json:"class_name"`
	ParentID   string            `json:"parent_id,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`

	// Outgoing RELATED_TO edges in enumeration order
	Relationships []Relationship `json:"relationships,omitempty"`
}

// NewInstance creates an instance of the given class with initialized properties
func NewInstance(id string, class *Class) *Instance {
	now := time.Now()
	inst := &Instance{
		ID:         id,
		Kind:       NodeInstance,
		Properties: make(map[string]string),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if class != nil {
		inst.ClassID = class.ID
		inst.ClassName = class.Name
	}
	inst.Properties[AttributeCreationDate] = strconv.FormatInt(now.UnixMilli(), 10)
	return inst
}

// Name returns the value of the name property
func (i *Instance) Name() string {
	return i.Properties[AttributeName]
}

// SetProperty sets a property value
func (i *Instance) SetProperty(key, value string) {
	if i.Properties == nil {
		i.Properties = make(map[string]string)
	}
	i.Properties[key] = value
}

// GetProperty gets a property value
func (i *Instance) GetProperty(key string) (string, bool) {
	if i.Properties == nil {
		return "", false
	}
	val, ok := i.Properties[key]
	return val, ok
}

// RemoveProperty deletes a property
func (i *Instance) RemoveProperty(key string) {
	delete(i.Properties, key)
}

// Relate appends a tagged relationship edge, ignoring exact duplicates
func (i *Instance) Relate(toID, tag string) {
	rel := NewRelationship(i.ID, toID, tag)
	for _, existing := range i.Relationships {
		if existing.ID == rel.ID {
			return
		}
	}
	i.Relationships = append(i.Relationships, *rel)
}

// Unrelate removes every relationship edge carrying the given tag
func (i *Instance) Unrelate(tag string) {
	kept := i.Relationships[:0]
	for _, rel := range i.Relationships {
		if rel.Tag != tag {
			kept = append(kept, rel)
		}
	}
	i.Relationships = kept
}

// RelatedTo returns the targets of relationship edges tagged with tag
func (i *Instance) RelatedTo(tag string) []string {
	var targets []string
	for _, rel := range i.Relationships {
		if rel.Tag == tag {
			targets = append(targets, rel.ToID)
		}
	}
	return targets
}

// HasValue reports whether the instance carries a value for the attribute
func (i *Instance) HasValue(attr *Attribute) bool {
	switch {
	case attr.Mapping.IsRelationship():
		return len(i.RelatedTo(attr.Name)) > 0
	default:
		v, ok := i.GetProperty(attr.Name)
		return ok && v != ""
	}
}
