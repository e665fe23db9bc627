// Package materializer turns stored instances into attribute value maps and
// attribute values back into write plans.
//
// Scalar attributes (Primitive, Date, Timestamp) live in the instance's
// property bag. Relationship attributes (ManyToOne, ManyToMany) live in
// outgoing relationship edges tagged with the attribute name. Binary values
// never appear in the textual representation.
package materializer

import (
	"assetgraph/internal/apperror"
	"assetgraph/internal/domain"
)

// Materialize returns the values of attrs carried by inst. Scalars become a
// one-element list; relationships list their targets in edge order.
// An untagged relationship edge fails the whole call.
func Materialize(inst *domain.Instance, attrs []*domain.Attribute) (map[string][]string, error) {
	for _, rel := range inst.Relationships {
		if rel.Tag == "" {
			return nil, apperror.NewInvalidArgument(inst.ID,
				"malformed instance %s: relationship edge to %s has no attribute tag", inst.ID, rel.ToID)
		}
	}

	values := make(map[string][]string, len(attrs))
	for _, attr := range attrs {
		switch attr.Mapping {
		case domain.MappingPrimitive, domain.MappingDate, domain.MappingTimestamp:
			if v, ok := inst.GetProperty(attr.Name); ok {
				values[attr.Name] = []string{v}
			}
		case domain.MappingManyToOne, domain.MappingManyToMany:
			if targets := inst.RelatedTo(attr.Name); len(targets) > 0 {
				values[attr.Name] = targets
			}
		case domain.MappingBinary:
		default:
			return nil, apperror.NewInvalidArgument(attr.Name, "attribute %s has unknown mapping kind %s", attr.Name, attr.Mapping)
		}
	}
	return values, nil
}

// MaterializeTyped is Materialize with scalar values converted by
// ConvertScalar. Relationship values stay lists of target ids.
func MaterializeTyped(inst *domain.Instance, attrs []*domain.Attribute) (map[string]any, error) {
	raw, err := Materialize(inst, attrs)
	if err != nil {
		return nil, err
	}
	typed := make(map[string]any, len(raw))
	for _, attr := range attrs {
		values, ok := raw[attr.Name]
		if !ok {
			continue
		}
		if attr.Mapping.IsRelationship() {
			typed[attr.Name] = values
			continue
		}
		v, err := ConvertScalar(values[0], attr.Mapping, attr.Type)
		if err != nil {
			return nil, err
		}
		typed[attr.Name] = v
	}
	return typed, nil
}

// Decompose builds the write plan that stores values for the named
// attribute. An empty value list clears the attribute.
func Decompose(attributeName string, values []string, mapping domain.MappingKind) (*domain.WritePlan, error) {
	plan := &domain.WritePlan{Attribute: attributeName, Mapping: mapping}

	switch mapping {
	case domain.MappingPrimitive, domain.MappingDate, domain.MappingTimestamp:
		switch len(values) {
		case 0:
			plan.Property = &domain.PropertyWrite{Key: attributeName, Remove: true}
		case 1:
			plan.Property = &domain.PropertyWrite{Key: attributeName, Value: values[0]}
		default:
			return nil, apperror.NewInvalidArgument(attributeName,
				"attribute %s takes a single value, got %d", attributeName, len(values))
		}
	case domain.MappingManyToOne:
		if len(values) > 1 {
			return nil, apperror.NewInvalidArgument(attributeName,
				"attribute %s relates to at most one object, got %d", attributeName, len(values))
		}
		plan.ReplaceEdges = true
		plan.Edges = edgeWrites(attributeName, values)
	case domain.MappingManyToMany:
		plan.ReplaceEdges = true
		plan.Edges = edgeWrites(attributeName, values)
	case domain.MappingBinary:
		return nil, apperror.NewInvalidArgument(attributeName, "binary attribute %s can not be written as text", attributeName)
	default:
		return nil, apperror.NewInvalidArgument(attributeName, "unknown mapping kind %s", mapping)
	}
	return plan, nil
}

// DecomposeAttribute validates scalar values against the attribute's type
// before decomposing them
func DecomposeAttribute(attr *domain.Attribute, values []string) (*domain.WritePlan, error) {
	if attr.Mapping.IsScalar() {
		for _, v := range values {
			if _, err := ConvertScalar(v, attr.Mapping, attr.Type); err != nil {
				return nil, err
			}
		}
	}
	return Decompose(attr.Name, values, attr.Mapping)
}

func edgeWrites(tag string, targets []string) []domain.EdgeWrite {
	seen := make(map[string]bool, len(targets))
	edges := make([]domain.EdgeWrite, 0, len(targets))
	for _, id := range targets {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		edges = append(edges, domain.EdgeWrite{Tag: tag, TargetID: id})
	}
	return edges
}
