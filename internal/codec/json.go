package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"assetgraph/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports a schema fragment from JSON
func (c *JSONCodec) Parse(r io.Reader) (*domain.SchemaFragment, error) {
	fragment := domain.NewSchemaFragment()
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(fragment); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if err := validate(fragment); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return fragment, nil
}

// Export exports a schema fragment to JSON
func (c *JSONCodec) Export(fragment *domain.SchemaFragment, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(fragment); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
