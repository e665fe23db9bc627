package domain

import (
	"fmt"
	"strings"
)

// ChangeDescriptor records what a metadata update changed
type ChangeDescriptor struct {
	AffectedProperties []string `json:"affected_properties"`
	OldValues          []string `json:"old_values"`
	NewValues          []string `json:"new_values"`
	Notes              string   `json:"notes,omitempty"`
}

// Record appends one changed property
func (c *ChangeDescriptor) Record(property string, oldValue, newValue any) {
	c.AffectedProperties = append(c.AffectedProperties, property)
	c.OldValues = append(c.OldValues, fmt.Sprint(oldValue))
	c.NewValues = append(c.NewValues, fmt.Sprint(newValue))
}

// Empty reports whether nothing changed
func (c *ChangeDescriptor) Empty() bool {
	return len(c.AffectedProperties) == 0
}

// String renders the descriptor as "prop: old -> new" pairs
func (c *ChangeDescriptor) String() string {
	parts := make([]string, 0, len(c.AffectedProperties))
	for i, p := range c.AffectedProperties {
		parts = append(parts, fmt.Sprintf("%s: %s -> %s", p, c.OldValues[i], c.NewValues[i]))
	}
	return strings.Join(parts, ", ")
}

// PropertyWrite sets or removes a single node property
type PropertyWrite struct {
	Key    string `json:"key"`
	Value  string `json:"value,omitempty"`
	Remove bool   `json:"remove,omitempty"`
}

// EdgeWrite creates one RELATED_TO edge tagged with the attribute name
type EdgeWrite struct {
	Tag      string `json:"tag"`
	TargetID string `json:"target_id"`
}

// WritePlan describes how to store one attribute value on an instance.
// Scalar attributes produce a Property write; relationship attributes
// produce edge writes, optionally replacing every edge carrying the tag.
type WritePlan struct {
	Attribute    string         `json:"attribute"`
	Mapping      MappingKind    `json:"mapping"`
	Property     *PropertyWrite `json:"property,omitempty"`
	ReplaceEdges bool           `json:"replace_edges,omitempty"`
	Edges        []EdgeWrite    `json:"edges,omitempty"`
}

// IsEdgePlan reports whether the plan writes edges rather than a property
func (p *WritePlan) IsEdgePlan() bool {
	return p.Property == nil
}

// Apply applies the plan to an in-memory instance
func (p *WritePlan) Apply(inst *Instance) {
	if p.Property != nil {
		if p.Property.Remove {
			inst.RemoveProperty(p.Property.Key)
		} else {
			inst.SetProperty(p.Property.Key, p.Property.Value)
		}
		return
	}
	if p.ReplaceEdges {
		inst.Unrelate(p.Attribute)
	}
	for _, e := range p.Edges {
		inst.Relate(e.TargetID, e.Tag)
	}
}
