package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"assetgraph/internal/apperror"
	"assetgraph/internal/domain"
)

// CreateClass creates a class under def.ParentName (or def.ParentID) and
// returns its id
func (s *MetadataService) CreateClass(ctx context.Context, def *domain.Class) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	class, err := s.createClassFromDef(ctx, def)
	if err != nil {
		return "", err
	}
	return class.ID, nil
}

// createClassFromDef validates and creates a class. Caller holds the write
// lock.
func (s *MetadataService) createClassFromDef(ctx context.Context, def *domain.Class) (*domain.Class, error) {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return nil, apperror.NewInvalidArgument(def.Name, "class name is required")
	}
	if _, exists := s.snapshot.Lookup(name); exists {
		return nil, apperror.NewInvalidArgument(name, "class %s already exists", name)
	}

	parentRef := def.ParentName
	if parentRef == "" {
		parentRef = def.ParentID
	}
	if parentRef == "" {
		return nil, apperror.NewInvalidArgument(name, "class %s needs a parent class", name)
	}
	parent, err := s.snapshot.Class(parentRef)
	if err != nil {
		return nil, err
	}

	class := def.Clone()
	class.ID = uuid.NewString()
	class.Name = name
	class.ParentID = parent.ID
	class.ParentName = parent.Name
	if err := s.createClassLocked(ctx, class); err != nil {
		return nil, err
	}

	s.logger.Info("class created", zap.String("class", name), zap.String("parent", parent.Name))
	s.eventBus.Publish(Event{
		Type:    EventClassCreated,
		Payload: map[string]string{"class_id": class.ID, "name": name},
	})
	return class, nil
}

// GetClass retrieves a class by name or id
func (s *MetadataService) GetClass(ctx context.Context, nameOrID string) (*domain.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	class, err := s.snapshot.Class(nameOrID)
	if err != nil {
		return nil, err
	}
	return class.Clone(), nil
}

// ListClasses returns every class breadth-first from the root. List types
// are left out unless includeListTypes is set.
func (s *MetadataService) ListClasses(ctx context.Context, includeListTypes bool) []*domain.Class {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Class
	for _, c := range s.snapshot.Classes() {
		if !includeListTypes && s.snapshot.IsListType(c) {
			continue
		}
		out = append(out, c.Clone())
	}
	return out
}

// GetSubClasses returns the descendants of a class breadth-first
func (s *MetadataService) GetSubClasses(ctx context.Context, nameOrID string, includeAbstract, includeSelf bool) ([]*domain.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	class, err := s.snapshot.Class(nameOrID)
	if err != nil {
		return nil, err
	}
	return cloneClasses(s.snapshot.SubClasses(class, includeAbstract, includeSelf)), nil
}

// IsSubClass reports whether candidate is a strict descendant of
// allegedParent. Unknown classes are never subclasses.
func (s *MetadataService) IsSubClass(ctx context.Context, allegedParent, candidate string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.IsSubClass(allegedParent, candidate)
}

// SetClassProperties applies a partial update to a class
func (s *MetadataService) SetClassProperties(ctx context.Context, nameOrID string, update domain.ClassUpdate) (*domain.ChangeDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.snapshot.Class(nameOrID)
	if err != nil {
		return nil, err
	}
	updated := current.Clone()
	changes := &domain.ChangeDescriptor{}

	if update.Name != nil && *update.Name != current.Name {
		return nil, apperror.NewInvalidArgument(current.Name, "class names are immutable")
	}
	if update.DisplayName != nil && *update.DisplayName != current.DisplayName {
		changes.Record("displayName", current.DisplayName, *update.DisplayName)
		updated.DisplayName = *update.DisplayName
	}
	if update.Description != nil && *update.Description != current.Description {
		changes.Record("description", current.Description, *update.Description)
		updated.Description = *update.Description
	}
	if update.Countable != nil && *update.Countable != current.Countable {
		changes.Record("countable", current.Countable, *update.Countable)
		updated.Countable = *update.Countable
	}
	if update.Color != nil && *update.Color != current.Color {
		changes.Record("color", current.Color, *update.Color)
		updated.Color = *update.Color
	}
	if update.Icon != nil {
		changes.Record("icon", len(current.Icon), len(update.Icon))
		updated.Icon = append([]byte(nil), update.Icon...)
	}
	if update.SmallIcon != nil {
		changes.Record("smallIcon", len(current.SmallIcon), len(update.SmallIcon))
		updated.SmallIcon = append([]byte(nil), update.SmallIcon...)
	}

	if update.Abstract != nil && *update.Abstract != current.Abstract {
		if *update.Abstract {
			n, err := s.store.CountInstances(ctx, []string{current.ID})
			if err != nil {
				return nil, fmt.Errorf("failed to count instances of %s: %w", current.Name, err)
			}
			if n > 0 {
				return nil, apperror.NewNotPermitted(current.Name,
					"class %s has %d instances and can not become abstract", current.Name, n)
			}
		}
		changes.Record("abstract", current.Abstract, *update.Abstract)
		updated.Abstract = *update.Abstract
	}

	if update.ParentName != nil {
		parent, err := s.snapshot.Class(*update.ParentName)
		if err != nil {
			return nil, err
		}
		if parent.ID != current.ParentID {
			if err := s.checkReparent(current, parent); err != nil {
				return nil, err
			}
			changes.Record("parent", current.ParentName, parent.Name)
			updated.ParentID = parent.ID
			updated.ParentName = parent.Name
		}
	}

	if changes.Empty() {
		return changes, nil
	}

	if err := s.store.UpdateClass(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to update class %s: %w", current.Name, err)
	}
	s.snapshot.ReplaceClass(updated)

	s.logger.Info("class updated", zap.String("class", current.Name), zap.String("changes", changes.String()))
	s.eventBus.Publish(Event{
		Type:    EventClassUpdated,
		Payload: map[string]string{"class_id": current.ID, "name": current.Name},
	})
	return changes, nil
}

// checkReparent validates moving class under parent
func (s *MetadataService) checkReparent(class, parent *domain.Class) error {
	if class.Protected() {
		return apperror.NewNotPermitted(class.Name, "core class %s can not be moved", class.Name)
	}
	if s.snapshot.WouldCycle(class, parent.ID) {
		return apperror.NewNotPermitted(class.Name,
			"class %s can not inherit from its own subclass %s", class.Name, parent.Name)
	}
	if s.snapshot.IsListType(class) != s.snapshot.IsListType(parent) {
		return apperror.NewNotPermitted(class.Name,
			"class %s can not move between list types and inventory classes", class.Name)
	}
	if clashes := s.snapshot.Collisions(class, parent); len(clashes) > 0 {
		return apperror.NewInvalidArgument(class.Name,
			"moving %s under %s duplicates attributes: %s", class.Name, parent.Name, strings.Join(clashes, ", "))
	}
	return nil
}

// DeleteClass deletes a class with no subclasses, instances or incoming
// references
func (s *MetadataService) DeleteClass(ctx context.Context, nameOrID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	class, err := s.snapshot.Class(nameOrID)
	if err != nil {
		return err
	}
	if class.Protected() {
		return apperror.NewNotPermitted(class.Name, "core class %s can not be deleted", class.Name)
	}
	if s.snapshot.HasSubClasses(class) {
		return apperror.NewNotPermitted(class.Name, "class %s has subclasses", class.Name)
	}
	if s.snapshot.HasIncomingRules(class) {
		return apperror.NewNotPermitted(class.Name, "class %s is a possible child of other classes", class.Name)
	}
	if refs := s.snapshot.ReferencedBy(class); len(refs) > 0 {
		return apperror.NewNotPermitted(class.Name,
			"list type %s is used by attribute %s", class.Name, refs[0].Name)
	}
	n, err := s.store.CountInstances(ctx, []string{class.ID})
	if err != nil {
		return fmt.Errorf("failed to count instances of %s: %w", class.Name, err)
	}
	if n > 0 {
		return apperror.NewNotPermitted(class.Name, "class %s has %d instances", class.Name, n)
	}

	if err := s.store.DeleteClass(ctx, class.ID); err != nil {
		return fmt.Errorf("failed to delete class %s: %w", class.Name, err)
	}
	s.snapshot.RemoveClass(class.ID)

	s.logger.Info("class deleted", zap.String("class", class.Name))
	s.eventBus.Publish(Event{
		Type:    EventClassDeleted,
		Payload: map[string]string{"class_id": class.ID, "name": class.Name},
	})
	return nil
}
