package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
	"assetgraph/internal/schema"
)

// Options tunes the metadata service
type Options struct {
	// ScanConcurrency bounds the classes scanned in parallel during
	// mandatory-attribute validation
	ScanConcurrency int
	// MaxScanRetries is the number of optimistic scans attempted before the
	// scan runs under the write lock
	MaxScanRetries int
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		ScanConcurrency: 4,
		MaxScanRetries:  3,
	}
}

// MetadataService provides the class hierarchy, attribute registry and
// containment rule operations
type MetadataService struct {
	store    repository.Store
	eventBus *EventBus
	logger   *zap.Logger
	opts     Options

	mu       sync.RWMutex
	snapshot *schema.Snapshot

	// bumped by every instance write; object writes hold mu's read side
	dataVersion atomic.Uint64
}

// NewMetadataService loads the persisted schema and seeds the root classes
// when the store is empty
func NewMetadataService(ctx context.Context, store repository.Store, eventBus *EventBus, logger *zap.Logger, opts Options) (*MetadataService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultOptions()
	if opts.ScanConcurrency <= 0 {
		opts.ScanConcurrency = defaults.ScanConcurrency
	}
	if opts.MaxScanRetries < 0 {
		opts.MaxScanRetries = defaults.MaxScanRetries
	}

	s := &MetadataService{
		store:    store,
		eventBus: eventBus,
		logger:   logger,
		opts:     opts,
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	if err := s.ensureRoot(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory snapshot with the persisted schema
func (s *MetadataService) Reload(ctx context.Context) error {
	persisted, err := s.store.LoadSchema(ctx)
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}

	snap := schema.Build(persisted.Classes, persisted.Attributes, persisted.Rules)

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	s.logger.Info("schema loaded",
		zap.Int("classes", len(persisted.Classes)),
		zap.Int("attributes", len(persisted.Attributes)),
		zap.Int("rules", len(persisted.Rules)))
	return nil
}

// Version returns the current snapshot version
func (s *MetadataService) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Version()
}

// ensureRoot creates the root class with its protected attributes and the
// two top-level abstract classes
func (s *MetadataService) ensureRoot(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot.Root() != nil {
		return nil
	}

	root := &domain.Class{
		ID:          uuid.NewString(),
		Name:        domain.RootClassName,
		DisplayName: "Root Object",
		Abstract:    true,
	}
	if err := s.createClassLocked(ctx, root); err != nil {
		return err
	}

	name := domain.NewAttribute(domain.AttributeName, domain.MappingPrimitive, domain.TypeString)
	name.DisplayName = "Name"
	created := domain.NewAttribute(domain.AttributeCreationDate, domain.MappingDate, domain.TypeDate)
	created.DisplayName = "Creation Date"
	created.ReadOnly = true
	created.NoCopy = true
	for _, attr := range []*domain.Attribute{name, created} {
		attr.ID = uuid.NewString()
		attr.ClassID = root.ID
		if err := s.store.CreateAttribute(ctx, attr); err != nil {
			return fmt.Errorf("failed to create root attribute %s: %w", attr.Name, err)
		}
		s.snapshot.AddAttribute(attr)
	}

	for _, c := range []*domain.Class{
		{Name: domain.InventoryObjectClass, DisplayName: "Inventory Object", Abstract: true},
		{Name: domain.ListTypeRootClass, DisplayName: "Generic Object List", Abstract: true},
	} {
		c.ID = uuid.NewString()
		c.ParentID = root.ID
		if err := s.createClassLocked(ctx, c); err != nil {
			return err
		}
	}

	s.logger.Info("root classes created", zap.String("root", root.ID))
	return nil
}

// createClassLocked persists and indexes a class. Caller holds the write lock.
func (s *MetadataService) createClassLocked(ctx context.Context, class *domain.Class) error {
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now()
	}
	if err := s.store.CreateClass(ctx, class); err != nil {
		return fmt.Errorf("failed to create class %s: %w", class.Name, err)
	}
	s.snapshot.AddClass(class)
	return nil
}

// touchData records an instance write
func (s *MetadataService) touchData() {
	s.dataVersion.Add(1)
}

func cloneClasses(classes []*domain.Class) []*domain.Class {
	out := make([]*domain.Class, len(classes))
	for i, c := range classes {
		out[i] = c.Clone()
	}
	return out
}

func cloneAttributes(attrs []*domain.Attribute) []*domain.Attribute {
	out := make([]*domain.Attribute, len(attrs))
	for i, a := range attrs {
		out[i] = a.Clone()
	}
	return out
}
