package domain

import (
	"fmt"
	"strings"
)

// MappingKind is the storage category of an attribute
type MappingKind int

const (
	MappingPrimitive MappingKind = iota + 1
	MappingDate
	MappingTimestamp
	MappingManyToOne
	MappingManyToMany
	MappingBinary
)

// MappingKinds lists every mapping kind in declaration order
var MappingKinds = []MappingKind{
	MappingPrimitive,
	MappingDate,
	MappingTimestamp,
	MappingManyToOne,
	MappingManyToMany,
	MappingBinary,
}

// String returns the canonical name of the mapping kind
func (m MappingKind) String() string {
	switch m {
	case MappingPrimitive:
		return "Primitive"
	case MappingDate:
		return "Date"
	case MappingTimestamp:
		return "Timestamp"
	case MappingManyToOne:
		return "ManyToOne"
	case MappingManyToMany:
		return "ManyToMany"
	case MappingBinary:
		return "Binary"
	default:
		return fmt.Sprintf("MappingKind(%d)", int(m))
	}
}

// Valid reports whether m is one of the declared mapping kinds
func (m MappingKind) Valid() bool {
	return m >= MappingPrimitive && m <= MappingBinary
}

// IsScalar reports whether values of this kind are stored as node properties
func (m MappingKind) IsScalar() bool {
	return m == MappingPrimitive || m == MappingDate || m == MappingTimestamp
}

// IsRelationship reports whether values of this kind are stored as tagged edges
func (m MappingKind) IsRelationship() bool {
	return m == MappingManyToOne || m == MappingManyToMany
}

// ParseMappingKind converts a name to a MappingKind (case-insensitive)
func ParseMappingKind(s string) (MappingKind, error) {
	for _, m := range MappingKinds {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mapping kind: %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (m MappingKind) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mapping kind %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *MappingKind) UnmarshalText(text []byte) error {
	parsed, err := ParseMappingKind(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Semantic types understood by scalar conversion
const (
	TypeString  = "String"
	TypeInteger = "Integer"
	TypeFloat   = "Float"
	TypeBoolean = "Boolean"
	TypeLong    = "Long"
	TypeDate    = "Date"
	TypeTime    = "Timestamp"
	TypeBinary  = "Binary"
)

// Attribute names every class inherits from the root
const (
	AttributeName         = "name"
	AttributeCreationDate = "creationDate"
)

// ProtectedAttributes can not be deleted, renamed or re-mapped
var ProtectedAttributes = map[string]bool{
	AttributeName:         true,
	AttributeCreationDate: true,
}

// ReservedAttributes name intrinsic instance fields and can not be used as
// attribute names
var ReservedAttributes = map[string]bool{
	"id":        true,
	"className": true,
	"parentId":  true,
}

// Attribute is an attribute definition owned by one class
type Attribute struct {
	ID             string      `json:"id"`
	ClassID        string      `json:"class_id"`
	Name           string      `json:"name"`
	DisplayName    string      `json:"display_name,omitempty"`
	Description    string      `json:"description,omitempty"`
	Mapping        MappingKind `json:"mapping"`
	Type           string      `json:"type"`
	Visible        bool        `json:"visible"`
	Mandatory      bool        `json:"mandatory"`
	Unique         bool        `json:"unique"`
	ReadOnly       bool        `json:"read_only"`
	Administrative bool        `json:"administrative"`
	NoCopy         bool        `json:"no_copy"`
	Locked         bool        `json:"locked"`
	Order          int         `json:"order,omitempty"`
}

// NewAttribute creates a visible attribute with the given mapping and type
func NewAttribute(name string, mapping MappingKind, semanticType string) *Attribute {
	return &Attribute{
		Name:    name,
		Mapping: mapping,
		Type:    semanticType,
		Visible: true,
	}
}

// Protected reports whether the attribute is one of the protected root attributes
func (a *Attribute) Protected() bool {
	return ProtectedAttributes[a.Name]
}

// Clone returns a copy of the attribute
func (a *Attribute) Clone() *Attribute {
	cp := *a
	return &cp
}

// AttributeUpdate carries a partial attribute update. Nil fields are left
// untouched.
type AttributeUpdate struct {
	// Name selects the attribute to update (by name or id)
	Name string `json:"name"`

	NewName        *string      `json:"new_name,omitempty"`
	DisplayName    *string      `json:"display_name,omitempty"`
	Description    *string      `json:"description,omitempty"`
	Mapping        *MappingKind `json:"mapping,omitempty"`
	Type           *string      `json:"type,omitempty"`
	Visible        *bool        `json:"visible,omitempty"`
	Mandatory      *bool        `json:"mandatory,omitempty"`
	Unique         *bool        `json:"unique,omitempty"`
	ReadOnly       *bool        `json:"read_only,omitempty"`
	Administrative *bool        `json:"administrative,omitempty"`
	NoCopy         *bool        `json:"no_copy,omitempty"`
	Locked         *bool        `json:"locked,omitempty"`
	Order          *int         `json:"order,omitempty"`
}
