package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"assetgraph/internal/apperror"
	"assetgraph/internal/domain"
)

// AddPossibleChildren allows instances of childIDs to be placed inside
// instances of parentID. Nothing is added when any pair is invalid.
func (s *MetadataService) AddPossibleChildren(ctx context.Context, parentID string, childIDs []string) error {
	return s.addRules(ctx, parentID, childIDs, false)
}

// AddPossibleSpecialChildren is AddPossibleChildren on the special rule set
func (s *MetadataService) AddPossibleSpecialChildren(ctx context.Context, parentID string, childIDs []string) error {
	return s.addRules(ctx, parentID, childIDs, true)
}

func (s *MetadataService) addRules(ctx context.Context, parentID string, childIDs []string, special bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addRulesLocked(ctx, parentID, childIDs, special)
}

// addRulesLocked validates and stores containment rules. Caller holds the
// write lock.
func (s *MetadataService) addRulesLocked(ctx context.Context, parentID string, childIDs []string, special bool) error {
	parent, err := s.snapshot.Class(parentID)
	if err != nil {
		return err
	}
	if s.snapshot.IsListType(parent) {
		return apperror.NewInvalidArgument(parent.Name, "list type %s can not contain objects", parent.Name)
	}

	rules := make([]domain.ContainmentRule, 0, len(childIDs))
	requested := make(map[string]bool, len(childIDs))
	for _, childID := range childIDs {
		child, err := s.snapshot.Class(childID)
		if err != nil {
			return err
		}
		if child.IsRoot() {
			return apperror.NewInvalidArgument(child.Name, "%s can not be a possible child", child.Name)
		}
		if s.snapshot.IsListType(child) {
			return apperror.NewInvalidArgument(child.Name, "list type %s can not be a possible child", child.Name)
		}
		rule := domain.ContainmentRule{ParentID: parent.ID, ChildID: child.ID, Special: special}
		if requested[child.ID] || s.snapshot.HasRule(rule) {
			return apperror.NewInvalidArgument(child.Name,
				"%s is already a possible child of %s", child.Name, parent.Name)
		}
		requested[child.ID] = true
		rules = append(rules, rule)
	}
	if len(rules) == 0 {
		return nil
	}

	if err := s.store.AddContainmentRules(ctx, rules); err != nil {
		return fmt.Errorf("failed to add possible children to %s: %w", parent.Name, err)
	}
	s.snapshot.AddRules(rules)

	s.logContainment("possible children added", parent, rules, special)
	return nil
}

// RemovePossibleChildren removes the rules placing childIDs inside parentID.
// Missing rules and unknown children are ignored.
func (s *MetadataService) RemovePossibleChildren(ctx context.Context, parentID string, childIDs []string) error {
	return s.removeRules(ctx, parentID, childIDs, false)
}

// RemovePossibleSpecialChildren is RemovePossibleChildren on the special rule set
func (s *MetadataService) RemovePossibleSpecialChildren(ctx context.Context, parentID string, childIDs []string) error {
	return s.removeRules(ctx, parentID, childIDs, true)
}

func (s *MetadataService) removeRules(ctx context.Context, parentID string, childIDs []string, special bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, err := s.snapshot.Class(parentID)
	if err != nil {
		return err
	}

	var rules []domain.ContainmentRule
	for _, childID := range childIDs {
		child, ok := s.snapshot.Lookup(childID)
		if !ok {
			continue
		}
		rule := domain.ContainmentRule{ParentID: parent.ID, ChildID: child.ID, Special: special}
		if s.snapshot.HasRule(rule) {
			rules = append(rules, rule)
		}
	}
	if len(rules) == 0 {
		return nil
	}

	if err := s.store.RemoveContainmentRules(ctx, rules); err != nil {
		return fmt.Errorf("failed to remove possible children of %s: %w", parent.Name, err)
	}
	s.snapshot.RemoveRules(rules)

	s.logContainment("possible children removed", parent, rules, special)
	return nil
}

func (s *MetadataService) logContainment(msg string, parent *domain.Class, rules []domain.ContainmentRule, special bool) {
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		if c, ok := s.snapshot.Lookup(r.ChildID); ok {
			names = append(names, c.Name)
		}
	}
	s.logger.Info(msg,
		zap.String("class", parent.Name),
		zap.String("children", strings.Join(names, ",")),
		zap.Bool("special", special))
	s.eventBus.Publish(Event{
		Type:    EventContainmentUpdated,
		Payload: map[string]string{"class_id": parent.ID, "name": parent.Name},
	})
}

// GetPossibleChildren returns the concrete classes whose instances can be
// placed inside instances of parent. Abstract children are expanded.
func (s *MetadataService) GetPossibleChildren(ctx context.Context, parentNameOrID string) ([]*domain.Class, error) {
	return s.possibleChildren(parentNameOrID, false, true)
}

// GetPossibleChildrenNoRecursive returns the classes named directly by
// containment rules of parent
func (s *MetadataService) GetPossibleChildrenNoRecursive(ctx context.Context, parentNameOrID string) ([]*domain.Class, error) {
	return s.possibleChildren(parentNameOrID, false, false)
}

// GetPossibleSpecialChildren is GetPossibleChildren on the special rule set
func (s *MetadataService) GetPossibleSpecialChildren(ctx context.Context, parentNameOrID string) ([]*domain.Class, error) {
	return s.possibleChildren(parentNameOrID, true, true)
}

// GetPossibleSpecialChildrenNoRecursive is GetPossibleChildrenNoRecursive on
// the special rule set
func (s *MetadataService) GetPossibleSpecialChildrenNoRecursive(ctx context.Context, parentNameOrID string) ([]*domain.Class, error) {
	return s.possibleChildren(parentNameOrID, true, false)
}

func (s *MetadataService) possibleChildren(parentNameOrID string, special, expand bool) ([]*domain.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parent, err := s.snapshot.Class(parentNameOrID)
	if err != nil {
		return nil, err
	}
	if expand {
		return cloneClasses(s.snapshot.PossibleChildren(parent, special)), nil
	}
	return cloneClasses(s.snapshot.DirectChildren(parent, special)), nil
}

// GetUpstreamContainmentHierarchy returns the classes whose instances may
// contain instances of the class. Without recursive only direct parents are
// returned.
func (s *MetadataService) GetUpstreamContainmentHierarchy(ctx context.Context, nameOrID string, recursive bool) ([]*domain.Class, error) {
	return s.upstream(nameOrID, false, recursive)
}

// GetUpstreamSpecialContainmentHierarchy is GetUpstreamContainmentHierarchy
// on the special rule set
func (s *MetadataService) GetUpstreamSpecialContainmentHierarchy(ctx context.Context, nameOrID string, recursive bool) ([]*domain.Class, error) {
	return s.upstream(nameOrID, true, recursive)
}

func (s *MetadataService) upstream(nameOrID string, special, recursive bool) ([]*domain.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	class, err := s.snapshot.Class(nameOrID)
	if err != nil {
		return nil, err
	}
	return cloneClasses(s.snapshot.UpstreamContainment(class, special, recursive)), nil
}

// CanContain reports whether instances of child may be placed inside
// instances of parent under the primary rules
func (s *MetadataService) CanContain(ctx context.Context, parentNameOrID, childNameOrID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parent, err := s.snapshot.Class(parentNameOrID)
	if err != nil {
		return false, err
	}
	child, err := s.snapshot.Class(childNameOrID)
	if err != nil {
		return false, err
	}
	return s.snapshot.CanContain(parent, child, false), nil
}
