package domain

// SchemaFragment represents a partial schema for import/export operations.
// Classes refer to their parent and containment targets by name.
type SchemaFragment struct {
	Classes     []ClassSpec       `json:"classes" yaml:"classes"`
	Containment []ContainmentSpec `json:"containment,omitempty" yaml:"containment,omitempty"`
}

// ClassSpec is a class definition inside a fragment
type ClassSpec struct {
	Name        string          `json:"name" yaml:"name"`
	Parent      string          `json:"parent,omitempty" yaml:"parent,omitempty"`
	DisplayName string          `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Abstract    bool            `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Countable   *bool           `json:"countable,omitempty" yaml:"countable,omitempty"`
	Custom      *bool           `json:"custom,omitempty" yaml:"custom,omitempty"`
	Color       int             `json:"color,omitempty" yaml:"color,omitempty"`
	Attributes  []AttributeSpec `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// AttributeSpec is an attribute definition inside a fragment
type AttributeSpec struct {
	Name           string      `json:"name" yaml:"name"`
	DisplayName    string      `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Description    string      `json:"description,omitempty" yaml:"description,omitempty"`
	Mapping        MappingKind `json:"mapping" yaml:"mapping"`
	Type           string      `json:"type" yaml:"type"`
	Mandatory      bool        `json:"mandatory,omitempty" yaml:"mandatory,omitempty"`
	Unique         bool        `json:"unique,omitempty" yaml:"unique,omitempty"`
	ReadOnly       bool        `json:"read_only,omitempty" yaml:"read_only,omitempty"`
	Administrative bool        `json:"administrative,omitempty" yaml:"administrative,omitempty"`
	NoCopy         bool        `json:"no_copy,omitempty" yaml:"no_copy,omitempty"`
	Hidden         bool        `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Locked         bool        `json:"locked,omitempty" yaml:"locked,omitempty"`
	Order          int         `json:"order,omitempty" yaml:"order,omitempty"`
}

// ContainmentSpec lists the classes a parent class may contain
type ContainmentSpec struct {
	Parent   string   `json:"parent" yaml:"parent"`
	Children []string `json:"children" yaml:"children"`
	Special  bool     `json:"special,omitempty" yaml:"special,omitempty"`
}

// NewSchemaFragment creates an empty schema fragment
func NewSchemaFragment() *SchemaFragment {
	return &SchemaFragment{
		Classes:     make([]ClassSpec, 0),
		Containment: make([]ContainmentSpec, 0),
	}
}

// AddClass adds a class to the fragment
func (f *SchemaFragment) AddClass(spec ClassSpec) {
	f.Classes = append(f.Classes, spec)
}

// AddContainment adds a containment entry to the fragment
func (f *SchemaFragment) AddContainment(spec ContainmentSpec) {
	f.Containment = append(f.Containment, spec)
}

// ToAttribute converts the spec into an attribute definition
func (s AttributeSpec) ToAttribute() *Attribute {
	attr := NewAttribute(s.Name, s.Mapping, s.Type)
	attr.DisplayName = s.DisplayName
	attr.Description = s.Description
	attr.Mandatory = s.Mandatory
	attr.Unique = s.Unique
	attr.ReadOnly = s.ReadOnly
	attr.Administrative = s.Administrative
	attr.NoCopy = s.NoCopy
	attr.Visible = !s.Hidden
	attr.Locked = s.Locked
	attr.Order = s.Order
	return attr
}

// AttributeSpecOf converts an attribute definition into a fragment spec
func AttributeSpecOf(a *Attribute) AttributeSpec {
	return AttributeSpec{
		Name:           a.Name,
		DisplayName:    a.DisplayName,
		Description:    a.Description,
		Mapping:        a.Mapping,
		Type:           a.Type,
		Mandatory:      a.Mandatory,
		Unique:         a.Unique,
		ReadOnly:       a.ReadOnly,
		Administrative: a.Administrative,
		NoCopy:         a.NoCopy,
		Hidden:         !a.Visible,
		Locked:         a.Locked,
		Order:          a.Order,
	}
}
