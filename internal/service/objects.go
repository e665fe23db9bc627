package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"assetgraph/internal/apperror"
	"assetgraph/internal/domain"
	"assetgraph/internal/materializer"
	"assetgraph/internal/repository"
	"assetgraph/internal/validator"
)

// ObjectView is an instance with its class and materialized attribute values
type ObjectView struct {
	Instance   *domain.Instance    `json:"instance"`
	Class      *domain.Class       `json:"class"`
	Attributes map[string][]string `json:"attributes"`
}

// ObjectService creates, reads, updates, moves and deletes instances
type ObjectService struct {
	meta       *MetadataService
	store      repository.ObjectStore
	validators *validator.Registry
	eventBus   *EventBus
	logger     *zap.Logger

	// serializes moves and deletes so subtree walks see a stable tree
	structure sync.Mutex
}

// NewObjectService creates an object service on top of meta. validators may
// be nil, in which case Evaluate returns no results.
func NewObjectService(meta *MetadataService, validators *validator.Registry, eventBus *EventBus, logger *zap.Logger) *ObjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validators == nil {
		validators = validator.NewRegistry()
	}
	return &ObjectService{
		meta:       meta,
		store:      meta.store,
		validators: validators,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// CreateObject creates an instance of className inside parentID. An empty
// parentID places the object at the top level, which needs a containment
// rule from the root class.
func (o *ObjectService) CreateObject(ctx context.Context, className, parentID string, attrs map[string][]string) (string, error) {
	o.meta.mu.RLock()
	defer o.meta.mu.RUnlock()
	snap := o.meta.snapshot

	class, err := snap.Class(className)
	if err != nil {
		return "", err
	}
	if class.Abstract {
		return "", apperror.NewInvalidArgument(class.Name, "can not create objects of abstract class %s", class.Name)
	}
	if snap.IsListType(class) {
		return "", apperror.NewInvalidArgument(class.Name, "%s is a list type, create list items instead", class.Name)
	}
	if err := o.checkPlacement(ctx, class, parentID); err != nil {
		return "", err
	}

	inst := domain.NewInstance(uuid.NewString(), class)
	inst.ParentID = parentID
	if err := o.applyValues(ctx, inst, class, attrs, true); err != nil {
		return "", err
	}
	if err := o.checkMandatory(inst, class); err != nil {
		return "", err
	}

	if err := o.store.CreateInstance(ctx, inst); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", class.Name, err)
	}
	o.meta.touchData()

	o.logger.Info("object created",
		zap.String("class", class.Name),
		zap.String("id", inst.ID),
		zap.String("parent", parentID))
	o.eventBus.Publish(Event{
		Type:    EventObjectCreated,
		Payload: map[string]string{"id": inst.ID, "class": class.Name},
	})
	return inst.ID, nil
}

// CreateListItem creates an item of a list type
func (o *ObjectService) CreateListItem(ctx context.Context, listTypeName, name string) (string, error) {
	o.meta.mu.RLock()
	defer o.meta.mu.RUnlock()
	snap := o.meta.snapshot

	class, err := snap.Class(listTypeName)
	if err != nil {
		return "", err
	}
	if !snap.IsListType(class) {
		return "", apperror.NewInvalidArgument(class.Name, "%s is not a list type", class.Name)
	}
	if class.Abstract {
		return "", apperror.NewInvalidArgument(class.Name, "can not create items of abstract list type %s", class.Name)
	}
	if name == "" {
		return "", apperror.NewInvalidArgument(class.Name, "list item name is required")
	}

	inst := domain.NewInstance(uuid.NewString(), class)
	inst.Kind = domain.NodeListItem
	inst.SetProperty(domain.AttributeName, name)
	if err := o.checkMandatory(inst, class); err != nil {
		return "", err
	}

	if err := o.store.CreateInstance(ctx, inst); err != nil {
		return "", fmt.Errorf("failed to create %s item: %w", class.Name, err)
	}
	o.meta.touchData()

	o.logger.Info("list item created", zap.String("class", class.Name), zap.String("id", inst.ID), zap.String("name", name))
	o.eventBus.Publish(Event{
		Type:    EventObjectCreated,
		Payload: map[string]string{"id": inst.ID, "class": class.Name},
	})
	return inst.ID, nil
}

// GetObject returns an instance with its materialized attribute values
func (o *ObjectService) GetObject(ctx context.Context, id string) (*ObjectView, error) {
	o.meta.mu.RLock()
	defer o.meta.mu.RUnlock()
	return o.view(ctx, id)
}

// TypedValue is an attribute value converted to its Go type. Relationship
// values are lists of target ids.
type TypedValue struct {
	Mapping domain.MappingKind
	Value   any
}

// String renders the value in its stored form
func (v TypedValue) String() string {
	if ids, ok := v.Value.([]string); ok {
		return strings.Join(ids, ", ")
	}
	return materializer.FormatScalar(v.Value, v.Mapping)
}

// GetObjectTyped returns the attribute values of an instance converted to
// time.Time, int, int64, float64, bool or string according to their mapping
func (o *ObjectService) GetObjectTyped(ctx context.Context, id string) (map[string]TypedValue, error) {
	o.meta.mu.RLock()
	defer o.meta.mu.RUnlock()

	inst, err := o.load(ctx, id)
	if err != nil {
		return nil, err
	}
	class, err := o.meta.snapshot.Class(inst.ClassID)
	if err != nil {
		return nil, err
	}
	attrs := o.meta.snapshot.Attributes(class)
	values, err := materializer.MaterializeTyped(inst, attrs)
	if err != nil {
		return nil, err
	}
	typed := make(map[string]TypedValue, len(values))
	for _, attr := range attrs {
		if v, ok := values[attr.Name]; ok {
			typed[attr.Name] = TypedValue{Mapping: attr.Mapping, Value: v}
		}
	}
	return typed, nil
}

// view loads and materializes an instance. Caller holds the schema read lock.
func (o *ObjectService) view(ctx context.Context, id string) (*ObjectView, error) {
	inst, err := o.load(ctx, id)
	if err != nil {
		return nil, err
	}
	class, err := o.meta.snapshot.Class(inst.ClassID)
	if err != nil {
		return nil, err
	}
	values, err := materializer.Materialize(inst, o.meta.snapshot.Attributes(class))
	if err != nil {
		return nil, err
	}
	return &ObjectView{Instance: inst, Class: class.Clone(), Attributes: values}, nil
}

// ListObjects returns the objects contained directly by parentID, or the
// top-level objects when parentID is empty
func (o *ObjectService) ListObjects(ctx context.Context, parentID string) ([]*ObjectView, error) {
	o.meta.mu.RLock()
	defer o.meta.mu.RUnlock()

	ids, err := o.store.ListChildren(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", parentID, err)
	}
	views := make([]*ObjectView, 0, len(ids))
	for _, id := range ids {
		v, err := o.view(ctx, id)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// UpdateObject writes attribute values. An empty value list clears the
// attribute. Every value is validated before anything is stored. The stored
// instance is re-read and written in one transaction, so concurrent updates
// of different attributes all persist.
func (o *ObjectService) UpdateObject(ctx context.Context, id string, attrs map[string][]string) error {
	o.meta.mu.RLock()
	defer o.meta.mu.RUnlock()

	inst, err := o.load(ctx, id)
	if err != nil {
		return err
	}
	class, err := o.meta.snapshot.Class(inst.ClassID)
	if err != nil {
		return err
	}
	plans, err := o.planValues(ctx, class, attrs, false)
	if err != nil {
		return err
	}

	// fn must not query the store: the transaction may hold its only connection
	err = o.store.UpdateInstanceFunc(ctx, id, func(current *domain.Instance) error {
		for _, plan := range plans {
			plan.Apply(current)
		}
		return o.checkMandatory(current, class)
	})
	switch {
	case errors.Is(err, repository.ErrInstanceNotFound):
		return apperror.NewObjectNotFound(id, "object %s not found", id)
	case apperror.KindOf(err) != "":
		return err
	case err != nil:
		return fmt.Errorf("failed to update %s: %w", id, err)
	}
	o.meta.touchData()

	o.logger.Info("object updated", zap.String("class", class.Name), zap.String("id", id), zap.Int("attributes", len(attrs)))
	o.eventBus.Publish(Event{
		Type:    EventObjectUpdated,
		Payload: map[string]string{"id": id, "class": class.Name},
	})
	return nil
}

// MoveObject places an instance inside newParentID, or at the top level when
// newParentID is empty. An object can not move into its own subtree.
func (o *ObjectService) MoveObject(ctx context.Context, id, newParentID string) error {
	o.meta.mu.RLock()
	defer o.meta.mu.RUnlock()
	o.structure.Lock()
	defer o.structure.Unlock()

	inst, err := o.load(ctx, id)
	if err != nil {
		return err
	}
	if inst.Kind == domain.NodeListItem {
		return apperror.NewNotPermitted(id, "list items can not be moved")
	}
	if newParentID == inst.ParentID {
		return nil
	}
	class, err := o.meta.snapshot.Class(inst.ClassID)
	if err != nil {
		return err
	}

	// walk up from the new parent: meeting id means a cycle
	for cur := newParentID; cur != ""; {
		if cur == id {
			return apperror.NewNotPermitted(id, "object %s can not be moved inside itself", id)
		}
		ancestor, err := o.load(ctx, cur)
		if err != nil {
			return err
		}
		cur = ancestor.ParentID
	}
	if err := o.checkPlacement(ctx, class, newParentID); err != nil {
		return err
	}

	if err := o.store.MoveInstance(ctx, id, newParentID); err != nil {
		return fmt.Errorf("failed to move %s: %w", id, err)
	}
	o.meta.touchData()

	o.logger.Info("object moved", zap.String("id", id), zap.String("from", inst.ParentID), zap.String("to", newParentID))
	o.eventBus.Publish(Event{
		Type:    EventObjectMoved,
		Payload: map[string]string{"id": id, "parent_id": newParentID},
	})
	return nil
}

// DeleteObject deletes an instance and everything it contains. The subtree
// is collected first and then removed in one transaction.
func (o *ObjectService) DeleteObject(ctx context.Context, id string) (int, error) {
	o.meta.mu.RLock()
	defer o.meta.mu.RUnlock()
	o.structure.Lock()
	defer o.structure.Unlock()

	if _, err := o.load(ctx, id); err != nil {
		return 0, err
	}

	ids := []string{id}
	for i := 0; i < len(ids); i++ {
		children, err := o.store.ListChildren(ctx, ids[i])
		if err != nil {
			return 0, fmt.Errorf("failed to list children of %s: %w", ids[i], err)
		}
		ids = append(ids, children...)
	}

	if err := o.store.DeleteInstances(ctx, ids); err != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", id, err)
	}
	o.meta.touchData()

	o.logger.Info("object deleted", zap.String("id", id), zap.Int("deleted", len(ids)))
	o.eventBus.Publish(Event{
		Type:    EventObjectDeleted,
		Payload: map[string]string{"id": id},
	})
	return len(ids), nil
}

// Evaluate runs the validators registered for the object's class and its
// ancestors
func (o *ObjectService) Evaluate(ctx context.Context, id string) (map[string]domain.TriState, error) {
	o.meta.mu.RLock()
	defer o.meta.mu.RUnlock()

	v, err := o.view(ctx, id)
	if err != nil {
		return nil, err
	}
	class, err := o.meta.snapshot.Class(v.Class.ID)
	if err != nil {
		return nil, err
	}
	return o.validators.Evaluate(validator.Subject{
		Class:      class,
		Ancestors:  o.meta.snapshot.Ancestors(class),
		Instance:   v.Instance,
		Attributes: o.meta.snapshot.Attributes(class),
		Values:     v.Attributes,
	}), nil
}

// EvaluateClass runs the validators registered for a class with no instance
func (o *ObjectService) EvaluateClass(ctx context.Context, className string) (map[string]domain.TriState, error) {
	o.meta.mu.RLock()
	defer o.meta.mu.RUnlock()

	class, err := o.meta.snapshot.Class(className)
	if err != nil {
		return nil, err
	}
	return o.validators.Evaluate(validator.Subject{
		Class:      class,
		Ancestors:  o.meta.snapshot.Ancestors(class),
		Attributes: o.meta.snapshot.Attributes(class),
	}), nil
}

// load fetches an instance, mapping absence to ObjectNotFound
func (o *ObjectService) load(ctx context.Context, id string) (*domain.Instance, error) {
	inst, err := o.store.GetInstance(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get instance %s: %w", id, err)
	}
	if inst == nil {
		return nil, apperror.NewObjectNotFound(id, "object %s not found", id)
	}
	return inst, nil
}

// checkPlacement verifies that class may be placed inside parentID. Caller
// holds the schema read lock.
func (o *ObjectService) checkPlacement(ctx context.Context, class *domain.Class, parentID string) error {
	snap := o.meta.snapshot
	parentClass := snap.Root()
	if parentID != "" {
		parent, err := o.load(ctx, parentID)
		if err != nil {
			return err
		}
		if parent.Kind == domain.NodeListItem {
			return apperror.NewNotPermitted(parentID, "list items can not contain objects")
		}
		parentClass, err = snap.Class(parent.ClassID)
		if err != nil {
			return err
		}
	}
	if !snap.CanContain(parentClass, class, false) {
		return apperror.NewNotPermitted(class.Name,
			"%s can not be placed inside %s", class.Name, parentClass.Name)
	}
	return nil
}

// applyValues validates attrs and applies their write plans to inst. On
// creation read-only attributes are writable once.
func (o *ObjectService) applyValues(ctx context.Context, inst *domain.Instance, class *domain.Class, attrs map[string][]string, creating bool) error {
	plans, err := o.planValues(ctx, class, attrs, creating)
	if err != nil {
		return err
	}
	for _, plan := range plans {
		plan.Apply(inst)
	}
	return nil
}

// planValues validates attrs against class and returns one write plan per
// attribute in name order
func (o *ObjectService) planValues(ctx context.Context, class *domain.Class, attrs map[string][]string, creating bool) ([]*domain.WritePlan, error) {
	snap := o.meta.snapshot
	plans := make([]*domain.WritePlan, 0, len(attrs))
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		values := attrs[name]
		attr, err := snap.Attribute(class, name)
		if err != nil {
			return nil, err
		}
		if attr.Name == domain.AttributeCreationDate || (attr.ReadOnly && !creating) {
			return nil, apperror.NewNotPermitted(attr.Name, "attribute %s is read only", attr.Name)
		}
		plan, err := materializer.DecomposeAttribute(attr, values)
		if err != nil {
			return nil, err
		}
		if plan.IsEdgePlan() {
			if err := o.checkTargets(ctx, attr, plan.Edges); err != nil {
				return nil, err
			}
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// checkTargets verifies that relationship targets are items of the
// attribute's list type or one of its subclasses
func (o *ObjectService) checkTargets(ctx context.Context, attr *domain.Attribute, edges []domain.EdgeWrite) error {
	snap := o.meta.snapshot
	listType, err := snap.Class(attr.Type)
	if err != nil {
		return err
	}
	for _, e := range edges {
		target, err := o.load(ctx, e.TargetID)
		if err != nil {
			return err
		}
		if target.ClassID != listType.ID && !snap.IsSubClass(listType.ID, target.ClassID) {
			return apperror.NewInvalidArgument(e.TargetID,
				"%s is a %s, attribute %s needs a %s", e.TargetID, target.ClassName, attr.Name, listType.Name)
		}
	}
	return nil
}

// checkMandatory fails when a mandatory attribute of class has no value
func (o *ObjectService) checkMandatory(inst *domain.Instance, class *domain.Class) error {
	for _, attr := range o.meta.snapshot.Attributes(class) {
		if attr.Mandatory && !inst.HasValue(attr) {
			return apperror.NewInvalidArgument(attr.Name, "mandatory attribute %s has no value", attr.Name)
		}
	}
	return nil
}
