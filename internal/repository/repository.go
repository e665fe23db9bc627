package repository

import (
	"context"
	"errors"

	"assetgraph/internal/domain"
)

// ErrInstanceNotFound is returned by writes addressing a missing instance
var ErrInstanceNotFound = errors.New("instance not found")

// Schema is the persisted metadata loaded at startup
type Schema struct {
	Classes    []*domain.Class
	Attributes []*domain.Attribute
	Rules      []domain.ContainmentRule
}

// SchemaStore persists classes, attributes and containment rules.
// Every write runs in a single transaction.
type SchemaStore interface {
	LoadSchema(ctx context.Context) (*Schema, error)

	CreateClass(ctx context.Context, class *domain.Class) error
	UpdateClass(ctx context.Context, class *domain.Class) error
	DeleteClass(ctx context.Context, id string) error

	CreateAttribute(ctx context.Context, attr *domain.Attribute) error
	// UpdateAttribute stores attr. When oldName differs from attr.Name the
	// stored property keys and edge tags of instances of classIDs are renamed
	// in the same transaction.
	UpdateAttribute(ctx context.Context, attr *domain.Attribute, oldName string, classIDs []string) error
	// DeleteAttribute removes attr and its stored values from instances of classIDs
	DeleteAttribute(ctx context.Context, attr *domain.Attribute, classIDs []string) error

	AddContainmentRules(ctx context.Context, rules []domain.ContainmentRule) error
	RemoveContainmentRules(ctx context.Context, rules []domain.ContainmentRule) error
}

// ObjectStore persists instances and list items
type ObjectStore interface {
	CreateInstance(ctx context.Context, inst *domain.Instance) error
	// GetInstance returns nil, nil when the instance does not exist
	GetInstance(ctx context.Context, id string) (*domain.Instance, error)
	// UpdateInstanceFunc loads id, applies fn and stores the result in one
	// transaction. It returns ErrInstanceNotFound when id does not exist and
	// fn's error unchanged when fn fails.
	UpdateInstanceFunc(ctx context.Context, id string, fn func(*domain.Instance) error) error
	MoveInstance(ctx context.Context, id, parentID string) error
	DeleteInstances(ctx context.Context, ids []string) error

	ListChildren(ctx context.Context, parentID string) ([]string, error)
	CountInstances(ctx context.Context, classIDs []string) (int, error)
	// ForEachInstance calls fn for every instance of classID, relationships
	// included. Iteration stops at the first error fn returns.
	ForEachInstance(ctx context.Context, classID string, fn func(*domain.Instance) error) error
}

// Store combines schema and object persistence
type Store interface {
	SchemaStore
	ObjectStore
	Close() error
}
