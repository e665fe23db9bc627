package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMappingKind(t *testing.T) {
	tests := []struct {
		input   string
		want    MappingKind
		wantErr bool
	}{
		{"Primitive", MappingPrimitive, false},
		{"date", MappingDate, false},
		{"TIMESTAMP", MappingTimestamp, false},
		{"ManyToOne", MappingManyToOne, false},
		{"manytomany", MappingManyToMany, false},
		{"Binary", MappingBinary, false},
		{"OneToMany", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMappingKind(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMappingKindFamilies(t *testing.T) {
	for _, m := range MappingKinds {
		assert.True(t, m.Valid(), m.String())
		// Binary is neither a property value nor an edge
		if m == MappingBinary {
			assert.False(t, m.IsScalar())
			assert.False(t, m.IsRelationship())
			continue
		}
		assert.NotEqual(t, m.IsScalar(), m.IsRelationship(), m.String())
	}
	assert.False(t, MappingKind(0).Valid())
	assert.Equal(t, "MappingKind(42)", MappingKind(42).String())
}

func TestMappingKindJSON(t *testing.T) {
	attr := NewAttribute("vendor", MappingManyToMany, "Vendor")
	data, err := json.Marshal(attr)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mapping":"ManyToMany"`)

	var decoded Attribute
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, MappingManyToMany, decoded.Mapping)

	_, err = json.Marshal(&Attribute{Name: "broken"})
	assert.Error(t, err, "zero mapping kind is not marshalable")
}

func TestAttributeProtected(t *testing.T) {
	assert.True(t, NewAttribute(AttributeName, MappingPrimitive, TypeString).Protected())
	assert.True(t, NewAttribute(AttributeCreationDate, MappingDate, TypeDate).Protected())
	assert.False(t, NewAttribute("serial", MappingPrimitive, TypeString).Protected())
}

func TestClassProtected(t *testing.T) {
	root := &Class{ID: "r", Name: RootClassName}
	core := &Class{ID: "c", Name: "GenericBoard", ParentID: "r"}
	custom := NewClass("Router", "GenericCommunicationsElement")
	custom.ParentID = "c"

	assert.True(t, root.Protected())
	assert.True(t, core.Protected())
	assert.False(t, custom.Protected())
	assert.Equal(t, "Router", custom.Label())
}

func TestChangeDescriptor(t *testing.T) {
	var cd ChangeDescriptor
	assert.True(t, cd.Empty())

	cd.Record("mandatory", false, true)
	cd.Record("displayName", "", "Serial Number")
	assert.False(t, cd.Empty())
	assert.Equal(t, "mandatory: false -> true, displayName:  -> Serial Number", cd.String())
}
