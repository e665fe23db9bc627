package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetgraph/internal/domain"
)

const sampleYAML = `
classes:
  - name: GenericBoard
    parent: InventoryObject
    abstract: true
  - name: Card
    parent: GenericBoard
    countable: false
    attributes:
      - name: serial
        mapping: Primitive
        type: String
        mandatory: true
      - name: vendor
        mapping: manytoone
        type: Vendor
        locked: true
        order: 2
  - name: Vendor
    parent: GenericObjectList
containment:
  - parent: Rack
    children: [GenericBoard]
  - parent: Card
    children: [Card]
    special: true
`

func TestYAMLParse(t *testing.T) {
	fragment, err := NewYAMLCodec().Parse(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	require.Len(t, fragment.Classes, 3)
	board := fragment.Classes[0]
	assert.Equal(t, "GenericBoard", board.Name)
	assert.True(t, board.Abstract)
	assert.Nil(t, board.Countable)

	card := fragment.Classes[1]
	require.NotNil(t, card.Countable)
	assert.False(t, *card.Countable)
	require.Len(t, card.Attributes, 2)
	assert.Equal(t, domain.MappingPrimitive, card.Attributes[0].Mapping)
	assert.True(t, card.Attributes[0].Mandatory)
	assert.Equal(t, domain.MappingManyToOne, card.Attributes[1].Mapping)
	assert.True(t, card.Attributes[1].Locked)
	assert.Equal(t, 2, card.Attributes[1].Order)
	assert.False(t, card.Attributes[0].Locked)

	require.Len(t, fragment.Containment, 2)
	assert.Equal(t, []string{"GenericBoard"}, fragment.Containment[0].Children)
	assert.True(t, fragment.Containment[1].Special)
}

func TestYAMLParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "unknown mapping",
			input: "classes:\n  - name: Card\n    parent: X\n    attributes:\n      - name: a\n        mapping: Blob\n",
			want:  "attribute a of class Card",
		},
		{
			name:  "duplicate class",
			input: "classes:\n  - name: Card\n    parent: X\n  - name: Card\n    parent: Y\n",
			want:  "declared twice",
		},
		{
			name:  "unnamed class",
			input: "classes:\n  - parent: X\n",
			want:  "has no name",
		},
		{
			name:  "unknown field",
			input: "classes:\n  - name: Card\n    colour: 3\n",
			want:  "failed to parse YAML",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewYAMLCodec().Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestYAMLParseEmpty(t *testing.T) {
	fragment, err := NewYAMLCodec().Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, fragment.Classes)
}

func TestExportParseRoundTrip(t *testing.T) {
	original, err := NewYAMLCodec().Parse(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	for _, format := range []string{"yaml", "json"} {
		t.Run(format, func(t *testing.T) {
			c, err := ForFormat(format)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, c.Export(original, &buf))

			parsed, err := c.Parse(&buf)
			require.NoError(t, err)
			assert.Equal(t, original, parsed)
		})
	}
}

func TestJSONMappingNames(t *testing.T) {
	fragment := domain.NewSchemaFragment()
	fragment.AddClass(domain.ClassSpec{
		Name:       "Card",
		Parent:     "InventoryObject",
		Attributes: []domain.AttributeSpec{{Name: "installed", Mapping: domain.MappingDate, Type: domain.TypeDate}},
	})

	var buf bytes.Buffer
	require.NoError(t, NewJSONCodec().Export(fragment, &buf))
	assert.Contains(t, buf.String(), `"mapping": "Date"`)
}

func TestForPath(t *testing.T) {
	tests := []struct {
		path    string
		format  string
		wantErr bool
	}{
		{"schema.yaml", "yaml", false},
		{"schema.YML", "yaml", false},
		{"/etc/assetgraph/core.json", "json", false},
		{"schema.toml", "", true},
		{"schema", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			c, err := ForPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.format, c.Format())
		})
	}
}
