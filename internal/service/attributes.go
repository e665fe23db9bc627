package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"assetgraph/internal/apperror"
	"assetgraph/internal/domain"
)

// defaultTypes is the semantic type given to an attribute created without one
var defaultTypes = map[domain.MappingKind]string{
	domain.MappingPrimitive: domain.TypeString,
	domain.MappingDate:      domain.TypeDate,
	domain.MappingTimestamp: domain.TypeTime,
	domain.MappingBinary:    domain.TypeBinary,
}

// CreateAttribute adds an attribute to a class and returns its id
func (s *MetadataService) CreateAttribute(ctx context.Context, classNameOrID string, def *domain.Attribute) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	class, err := s.snapshot.Class(classNameOrID)
	if err != nil {
		return "", err
	}
	attr, err := s.createAttributeLocked(ctx, class, def)
	if err != nil {
		return "", err
	}
	return attr.ID, nil
}

// createAttributeLocked validates and creates an attribute of class. Caller
// holds the write lock.
func (s *MetadataService) createAttributeLocked(ctx context.Context, class *domain.Class, def *domain.Attribute) (*domain.Attribute, error) {
	attr := def.Clone()
	attr.Name = strings.TrimSpace(attr.Name)
	if err := s.validateAttributeName(class, attr.Name, ""); err != nil {
		return nil, err
	}
	if !attr.Mapping.Valid() {
		return nil, apperror.NewInvalidArgument(attr.Name, "attribute %s has unknown mapping kind %s", attr.Name, attr.Mapping)
	}
	if attr.Type == "" {
		attr.Type = defaultTypes[attr.Mapping]
	}
	if err := s.validateAttributeType(attr); err != nil {
		return nil, err
	}

	attr.ID = uuid.NewString()
	attr.ClassID = class.ID

	if attr.Mandatory {
		// existing instances can not have a value for an attribute that did not exist
		if err := s.scanMandatory(ctx, s.snapshot.SubTreeIDs(class), attr); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateAttribute(ctx, attr); err != nil {
		return nil, fmt.Errorf("failed to create attribute %s: %w", attr.Name, err)
	}
	s.snapshot.AddAttribute(attr)

	s.logger.Info("attribute created",
		zap.String("class", class.Name),
		zap.String("attribute", attr.Name),
		zap.Stringer("mapping", attr.Mapping))
	s.eventBus.Publish(Event{
		Type:    EventAttributeCreated,
		Payload: map[string]string{"class_id": class.ID, "attribute_id": attr.ID, "name": attr.Name},
	})
	return attr, nil
}

// validateAttributeName checks a new or renamed attribute name against the
// reserved names and the class's inheritance chain
func (s *MetadataService) validateAttributeName(class *domain.Class, name, exceptID string) error {
	if name == "" {
		return apperror.NewInvalidArgument(name, "attribute name is required")
	}
	if domain.ReservedAttributes[name] {
		return apperror.NewInvalidArgument(name, "%s is a reserved name", name)
	}
	if s.snapshot.NameTaken(class, name, exceptID) {
		return apperror.NewInvalidArgument(name,
			"attribute %s already exists in the hierarchy of %s", name, class.Name)
	}
	return nil
}

// validateAttributeType checks that relationship attributes point at a
// list type
func (s *MetadataService) validateAttributeType(attr *domain.Attribute) error {
	if !attr.Mapping.IsRelationship() {
		return nil
	}
	if attr.Type == "" {
		return apperror.NewInvalidArgument(attr.Name, "relationship attribute %s needs a list type", attr.Name)
	}
	target, err := s.snapshot.Class(attr.Type)
	if err != nil {
		return err
	}
	if !s.snapshot.IsListType(target) {
		return apperror.NewInvalidArgument(attr.Type, "%s is not a list type", target.Name)
	}
	attr.Type = target.Name
	return nil
}

// GetAttribute resolves an attribute of a class by name or id, searching
// the class first and then its ancestors
func (s *MetadataService) GetAttribute(ctx context.Context, classNameOrID, nameOrID string) (*domain.Attribute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	class, err := s.snapshot.Class(classNameOrID)
	if err != nil {
		return nil, err
	}
	attr, err := s.snapshot.Attribute(class, nameOrID)
	if err != nil {
		return nil, err
	}
	return attr.Clone(), nil
}

// ListAttributes returns the attributes of a class, inherited ones first
func (s *MetadataService) ListAttributes(ctx context.Context, classNameOrID string) ([]*domain.Attribute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	class, err := s.snapshot.Class(classNameOrID)
	if err != nil {
		return nil, err
	}
	return cloneAttributes(s.snapshot.Attributes(class)), nil
}

// attributeChange is a validated attribute update ready to commit
type attributeChange struct {
	owner    *domain.Class
	current  *domain.Attribute
	updated  *domain.Attribute
	changes  *domain.ChangeDescriptor
	classIDs []string // owner and its subclasses
	needScan bool
	retype   bool
}

// SetAttributeProperties applies a partial update to an attribute.
// Turning Mandatory on fails with ObjectNotFound naming the first instance
// of the owning class subtree that has no value.
func (s *MetadataService) SetAttributeProperties(ctx context.Context, classNameOrID string, update domain.AttributeUpdate) (*domain.ChangeDescriptor, error) {
	for attempt := 0; ; attempt++ {
		locked := attempt >= s.opts.MaxScanRetries
		if locked {
			s.mu.Lock()
		} else {
			s.mu.RLock()
		}

		change, err := s.planAttributeChange(classNameOrID, update)
		version := s.snapshot.Version()
		dataVersion := s.dataVersion.Load()
		if !locked {
			s.mu.RUnlock()
		}
		if err == nil && change.needScan {
			err = s.scanMandatory(ctx, change.classIDs, change.updated)
		}
		if err != nil {
			if locked {
				s.mu.Unlock()
			}
			return nil, err
		}
		if change.changes.Empty() {
			if locked {
				s.mu.Unlock()
			}
			return change.changes, nil
		}

		if !locked {
			s.mu.Lock()
			if s.snapshot.Version() != version || s.dataVersion.Load() != dataVersion {
				s.mu.Unlock()
				s.logger.Warn("schema or data changed during attribute validation, retrying",
					zap.String("attribute", update.Name),
					zap.Int("attempt", attempt+1))
				continue
			}
		}

		result, err := s.commitAttributeChange(ctx, change)
		s.mu.Unlock()
		return result, err
	}
}

// planAttributeChange validates an update against the snapshot. Caller
// holds either side of the lock.
func (s *MetadataService) planAttributeChange(classNameOrID string, update domain.AttributeUpdate) (*attributeChange, error) {
	class, err := s.snapshot.Class(classNameOrID)
	if err != nil {
		return nil, err
	}
	current, err := s.snapshot.Attribute(class, update.Name)
	if err != nil {
		return nil, err
	}
	owner, err := s.snapshot.Class(current.ClassID)
	if err != nil {
		return nil, err
	}

	updated := current.Clone()
	changes := &domain.ChangeDescriptor{}
	change := &attributeChange{
		owner:    owner,
		current:  current,
		updated:  updated,
		changes:  changes,
		classIDs: s.snapshot.SubTreeIDs(owner),
	}

	if update.NewName != nil && *update.NewName != current.Name {
		if current.Protected() {
			return nil, apperror.NewNotPermitted(current.Name, "attribute %s can not be renamed", current.Name)
		}
		newName := strings.TrimSpace(*update.NewName)
		if err := s.validateAttributeName(owner, newName, current.ID); err != nil {
			return nil, err
		}
		changes.Record("name", current.Name, newName)
		updated.Name = newName
	}
	if update.Mapping != nil && *update.Mapping != current.Mapping {
		if current.Protected() {
			return nil, apperror.NewNotPermitted(current.Name, "attribute %s can not be re-mapped", current.Name)
		}
		if !update.Mapping.Valid() {
			return nil, apperror.NewInvalidArgument(current.Name, "unknown mapping kind %s", *update.Mapping)
		}
		changes.Record("mapping", current.Mapping, *update.Mapping)
		updated.Mapping = *update.Mapping
		if update.Type == nil && !updated.Mapping.IsRelationship() {
			updated.Type = defaultTypes[updated.Mapping]
		}
		change.retype = true
	}
	if update.Type != nil && *update.Type != current.Type {
		if current.Protected() {
			return nil, apperror.NewNotPermitted(current.Name, "attribute %s can not be re-typed", current.Name)
		}
		updated.Type = *update.Type
		change.retype = true
	}
	if change.retype {
		if err := s.validateAttributeType(updated); err != nil {
			return nil, err
		}
		if updated.Type != current.Type {
			changes.Record("type", current.Type, updated.Type)
		}
	}

	setFlag := func(property string, target *bool, value *bool) {
		if value != nil && *value != *target {
			changes.Record(property, *target, *value)
			*target = *value
		}
	}
	if update.DisplayName != nil && *update.DisplayName != current.DisplayName {
		changes.Record("displayName", current.DisplayName, *update.DisplayName)
		updated.DisplayName = *update.DisplayName
	}
	if update.Description != nil && *update.Description != current.Description {
		changes.Record("description", current.Description, *update.Description)
		updated.Description = *update.Description
	}
	setFlag("visible", &updated.Visible, update.Visible)
	setFlag("mandatory", &updated.Mandatory, update.Mandatory)
	setFlag("unique", &updated.Unique, update.Unique)
	setFlag("readOnly", &updated.ReadOnly, update.ReadOnly)
	setFlag("administrative", &updated.Administrative, update.Administrative)
	setFlag("noCopy", &updated.NoCopy, update.NoCopy)
	setFlag("locked", &updated.Locked, update.Locked)
	if update.Order != nil && *update.Order != current.Order {
		changes.Record("order", current.Order, *update.Order)
		updated.Order = *update.Order
	}

	change.needScan = updated.Mandatory && !current.Mandatory
	return change, nil
}

// commitAttributeChange persists a planned change. Caller holds the write
// lock.
func (s *MetadataService) commitAttributeChange(ctx context.Context, change *attributeChange) (*domain.ChangeDescriptor, error) {
	if change.retype {
		n, err := s.store.CountInstances(ctx, change.classIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to count instances of %s: %w", change.owner.Name, err)
		}
		if n > 0 {
			return nil, apperror.NewNotPermitted(change.current.Name,
				"attribute %s can not change type while %s has %d instances", change.current.Name, change.owner.Name, n)
		}
	}

	if err := s.store.UpdateAttribute(ctx, change.updated, change.current.Name, change.classIDs); err != nil {
		return nil, fmt.Errorf("failed to update attribute %s: %w", change.current.Name, err)
	}
	s.snapshot.ReplaceAttribute(change.updated)

	s.logger.Info("attribute updated",
		zap.String("class", change.owner.Name),
		zap.String("attribute", change.updated.Name),
		zap.String("changes", change.changes.String()))
	s.eventBus.Publish(Event{
		Type: EventAttributeUpdated,
		Payload: map[string]string{
			"class_id":     change.owner.ID,
			"attribute_id": change.updated.ID,
			"name":         change.updated.Name,
		},
	})
	return change.changes, nil
}

// scanMandatory fails with ObjectNotFound when an instance of classIDs has
// no value for attr. classIDs are scanned concurrently and the first miss
// cancels the scans still running or queued. Of the misses found, the one in
// the earliest class of classIDs is reported.
func (s *MetadataService) scanMandatory(ctx context.Context, classIDs []string, attr *domain.Attribute) error {
	missing := make([]string, len(classIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ScanConcurrency)
	for i, classID := range classIDs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			return s.store.ForEachInstance(gctx, classID, func(inst *domain.Instance) error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if !inst.HasValue(attr) {
					missing[i] = inst.ID
					return errStopScan
				}
				return nil
			})
		})
	}
	err := g.Wait()

	for _, id := range missing {
		if id != "" {
			return apperror.NewObjectNotFound(id, "instance %s has no value for mandatory attribute %s", id, attr.Name)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to scan instances for %s: %w", attr.Name, err)
	}
	return ctx.Err()
}

// errStopScan ends a per-class scan early
var errStopScan = errors.New("stop scan")

// DeleteAttribute deletes an attribute and every stored value of it
func (s *MetadataService) DeleteAttribute(ctx context.Context, classNameOrID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	class, err := s.snapshot.Class(classNameOrID)
	if err != nil {
		return err
	}
	attr, err := s.snapshot.Attribute(class, name)
	if err != nil {
		return err
	}
	if attr.Protected() {
		return apperror.NewInvalidArgument(attr.Name, "attribute %s can not be deleted", attr.Name)
	}
	owner, err := s.snapshot.Class(attr.ClassID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteAttribute(ctx, attr, s.snapshot.SubTreeIDs(owner)); err != nil {
		return fmt.Errorf("failed to delete attribute %s: %w", attr.Name, err)
	}
	s.snapshot.RemoveAttribute(attr)

	s.logger.Info("attribute deleted", zap.String("class", owner.Name), zap.String("attribute", attr.Name))
	s.eventBus.Publish(Event{
		Type:    EventAttributeDeleted,
		Payload: map[string]string{"class_id": owner.ID, "attribute_id": attr.ID, "name": attr.Name},
	})
	return nil
}
