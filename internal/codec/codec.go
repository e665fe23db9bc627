// Package codec reads and writes schema fragments in YAML and JSON.
package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"assetgraph/internal/domain"
)

// Importer parses a schema fragment from a serialized form
type Importer interface {
	Parse(r io.Reader) (*domain.SchemaFragment, error)
	Format() string
}

// Exporter writes a schema fragment in a serialized form
type Exporter interface {
	Export(fragment *domain.SchemaFragment, w io.Writer) error
	Format() string
}

// Codec both parses and exports one format
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec for a format name ("yaml", "yml" or "json")
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported schema format: %q", format)
	}
}

// ForPath picks a codec from a file extension
func ForPath(path string) (Codec, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("can not infer schema format of %s", path)
	}
	return ForFormat(ext)
}

// validate rejects fragments that can not be imported regardless of the
// target schema
func validate(fragment *domain.SchemaFragment) error {
	seen := make(map[string]bool, len(fragment.Classes))
	for i, c := range fragment.Classes {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("class %d has no name", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("class %s is declared twice", c.Name)
		}
		seen[c.Name] = true
		for j, a := range c.Attributes {
			if strings.TrimSpace(a.Name) == "" {
				return fmt.Errorf("attribute %d of class %s has no name", j, c.Name)
			}
		}
	}
	for i, r := range fragment.Containment {
		if r.Parent == "" {
			return fmt.Errorf("containment entry %d has no parent", i)
		}
	}
	return nil
}
