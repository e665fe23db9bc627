// Package loader reads schema files from disk and merges them into the
// metadata service.
package loader

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"assetgraph/internal/codec"
	"assetgraph/internal/domain"
	"assetgraph/internal/service"
)

// SchemaImporter merges a fragment into the schema
type SchemaImporter interface {
	ImportSchema(ctx context.Context, fragment *domain.SchemaFragment) (*service.ImportResult, error)
}

// LoadFile parses the schema file at path, picking the codec by extension
func LoadFile(path string) (*domain.SchemaFragment, error) {
	c, err := codec.ForPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()

	fragment, err := c.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fragment, nil
}

// Loader applies schema files to an importer
type Loader struct {
	importer SchemaImporter
	logger   *zap.Logger
}

// New creates a loader. A nil logger discards output.
func New(importer SchemaImporter, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{importer: importer, logger: logger}
}

// Apply loads the file at path and imports it
func (l *Loader) Apply(ctx context.Context, path string) (*service.ImportResult, error) {
	fragment, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	result, err := l.importer.ImportSchema(ctx, fragment)
	if err != nil {
		return result, fmt.Errorf("failed to import %s: %w", path, err)
	}

	l.logger.Info("schema file applied",
		zap.String("path", path),
		zap.Int("classes_created", result.ClassesCreated),
		zap.Int("classes_skipped", result.ClassesSkipped),
		zap.Int("attributes_created", result.AttributesCreated),
		zap.Int("rules_created", result.RulesCreated))
	return result, nil
}

// Reload is Apply for callers that only need the outcome logged, such as
// the file watcher
func (l *Loader) Reload(ctx context.Context, path string) {
	if _, err := l.Apply(ctx, path); err != nil {
		l.logger.Error("schema reload failed", zap.String("path", path), zap.Error(err))
	}
}
