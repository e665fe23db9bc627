package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"assetgraph/internal/apperror"
	"assetgraph/internal/domain"
)

// ImportResult counts what an import created and what it found already present
type ImportResult struct {
	ClassesCreated    int `json:"classes_created"`
	ClassesSkipped    int `json:"classes_skipped"`
	AttributesCreated int `json:"attributes_created"`
	AttributesSkipped int `json:"attributes_skipped"`
	RulesCreated      int `json:"rules_created"`
	RulesSkipped      int `json:"rules_skipped"`
}

// ImportSchema merges a schema fragment into the schema. Existing classes,
// attributes and rules are kept as they are; missing ones are created with
// parents before children. An import that fails part way keeps what it
// created, so re-running a corrected fragment completes it.
func (s *MetadataService) ImportSchema(ctx context.Context, fragment *domain.SchemaFragment) (*ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &ImportResult{}

	ordered, err := s.orderClassSpecs(fragment.Classes)
	if err != nil {
		return result, err
	}

	classes := make([]*domain.Class, len(ordered))
	for i, spec := range ordered {
		class, exists := s.snapshot.Lookup(spec.Name)
		if exists {
			result.ClassesSkipped++
		} else {
			class, err = s.createClassFromDef(ctx, classFromSpec(spec))
			if err != nil {
				return result, err
			}
			result.ClassesCreated++
		}
		classes[i] = class
	}

	// attributes follow every class so relationship types may name list
	// types declared later in the fragment
	for i, spec := range ordered {
		class := classes[i]
		for _, attrSpec := range spec.Attributes {
			if existing, err := s.snapshot.Attribute(class, attrSpec.Name); err == nil {
				if existing.Mapping != attrSpec.Mapping {
					return result, apperror.NewInvalidArgument(attrSpec.Name,
						"attribute %s of %s exists with mapping %s", attrSpec.Name, class.Name, existing.Mapping)
				}
				result.AttributesSkipped++
				continue
			}
			if _, err := s.createAttributeLocked(ctx, class, attrSpec.ToAttribute()); err != nil {
				return result, err
			}
			result.AttributesCreated++
		}
	}

	for _, spec := range fragment.Containment {
		parent, err := s.snapshot.Class(spec.Parent)
		if err != nil {
			return result, err
		}
		var missing []string
		for _, childName := range spec.Children {
			child, err := s.snapshot.Class(childName)
			if err != nil {
				return result, err
			}
			rule := domain.ContainmentRule{ParentID: parent.ID, ChildID: child.ID, Special: spec.Special}
			if s.snapshot.HasRule(rule) || contains(missing, child.ID) {
				result.RulesSkipped++
				continue
			}
			missing = append(missing, child.ID)
		}
		if len(missing) == 0 {
			continue
		}
		if err := s.addRulesLocked(ctx, parent.ID, missing, spec.Special); err != nil {
			return result, err
		}
		result.RulesCreated += len(missing)
	}

	s.logger.Info("schema imported",
		zap.Int("classes_created", result.ClassesCreated),
		zap.Int("attributes_created", result.AttributesCreated),
		zap.Int("rules_created", result.RulesCreated))
	s.eventBus.Publish(Event{Type: EventSchemaImported, Payload: result})
	return result, nil
}

// orderClassSpecs sorts specs so every class follows its parent. Parents
// may already exist in the schema or appear anywhere in the fragment.
func (s *MetadataService) orderClassSpecs(specs []domain.ClassSpec) ([]domain.ClassSpec, error) {
	pending := make([]domain.ClassSpec, 0, len(specs))
	for _, spec := range specs {
		spec.Name = strings.TrimSpace(spec.Name)
		if spec.Name == "" {
			return nil, apperror.NewInvalidArgument("", "class name is required")
		}
		pending = append(pending, spec)
	}

	placed := make(map[string]bool, len(pending))
	ordered := make([]domain.ClassSpec, 0, len(pending))
	for len(pending) > 0 {
		var next []domain.ClassSpec
		for _, spec := range pending {
			_, known := s.snapshot.Lookup(spec.Parent)
			_, exists := s.snapshot.Lookup(spec.Name)
			switch {
			case exists:
				ordered = append(ordered, spec)
			case spec.Parent == "":
				return nil, apperror.NewInvalidArgument(spec.Name, "class %s needs a parent class", spec.Name)
			case known || placed[spec.Parent]:
				ordered = append(ordered, spec)
			default:
				next = append(next, spec)
				continue
			}
			placed[spec.Name] = true
		}
		if len(next) == len(pending) {
			return nil, apperror.NewMetadataNotFound("class", next[0].Parent)
		}
		pending = next
	}
	return ordered, nil
}

func classFromSpec(spec domain.ClassSpec) *domain.Class {
	class := domain.NewClass(spec.Name, spec.Parent)
	class.DisplayName = spec.DisplayName
	class.Description = spec.Description
	class.Abstract = spec.Abstract
	class.Color = spec.Color
	if spec.Countable != nil {
		class.Countable = *spec.Countable
	}
	if spec.Custom != nil {
		class.Custom = *spec.Custom
	}
	return class
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// ExportSchema returns the whole schema as a fragment: classes breadth-first
// from the root with their own attributes, then the containment rules
// grouped by parent
func (s *MetadataService) ExportSchema(ctx context.Context) *domain.SchemaFragment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fragment := domain.NewSchemaFragment()
	classes := s.snapshot.Classes()
	for _, c := range classes {
		countable := c.Countable
		custom := c.Custom
		spec := domain.ClassSpec{
			Name:        c.Name,
			Parent:      c.ParentName,
			DisplayName: c.DisplayName,
			Description: c.Description,
			Abstract:    c.Abstract,
			Countable:   &countable,
			Custom:      &custom,
			Color:       c.Color,
		}
		for _, a := range s.snapshot.OwnAttributes(c) {
			spec.Attributes = append(spec.Attributes, domain.AttributeSpecOf(a))
		}
		fragment.AddClass(spec)
	}

	for _, special := range []bool{false, true} {
		for _, c := range classes {
			children := s.snapshot.DirectChildren(c, special)
			if len(children) == 0 {
				continue
			}
			names := make([]string, len(children))
			for i, child := range children {
				names[i] = child.Name
			}
			fragment.AddContainment(domain.ContainmentSpec{Parent: c.Name, Children: names, Special: special})
		}
	}
	return fragment
}
