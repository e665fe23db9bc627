package codec

import (
	"fmt"
	"io"

	"assetgraph/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlFragment is the document layout of a schema file. Mapping kinds are
// kept as strings so a bad kind reports the class it belongs to.
type yamlFragment struct {
	Classes     []yamlClass       `yaml:"classes"`
	Containment []yamlContainment `yaml:"containment,omitempty"`
}

type yamlClass struct {
	Name        string          `yaml:"name"`
	Parent      string          `yaml:"parent,omitempty"`
	DisplayName string          `yaml:"display_name,omitempty"`
	Description string          `yaml:"description,omitempty"`
	Abstract    bool            `yaml:"abstract,omitempty"`
	Countable   *bool           `yaml:"countable,omitempty"`
	Custom      *bool           `yaml:"custom,omitempty"`
	Color       int             `yaml:"color,omitempty"`
	Attributes  []yamlAttribute `yaml:"attributes,omitempty"`
}

type yamlAttribute struct {
	Name           string `yaml:"name"`
	DisplayName    string `yaml:"display_name,omitempty"`
	Description    string `yaml:"description,omitempty"`
	Mapping        string `yaml:"mapping"`
	Type           string `yaml:"type,omitempty"`
	Mandatory      bool   `yaml:"mandatory,omitempty"`
	Unique         bool   `yaml:"unique,omitempty"`
	ReadOnly       bool   `yaml:"read_only,omitempty"`
	Administrative bool   `yaml:"administrative,omitempty"`
	NoCopy         bool   `yaml:"no_copy,omitempty"`
	Hidden         bool   `yaml:"hidden,omitempty"`
	Locked         bool   `yaml:"locked,omitempty"`
	Order          int    `yaml:"order,omitempty"`
}

type yamlContainment struct {
	Parent   string   `yaml:"parent"`
	Children []string `yaml:"children"`
	Special  bool     `yaml:"special,omitempty"`
}

// Parse imports a schema fragment from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.SchemaFragment, error) {
	var yf yamlFragment
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&yf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	fragment := domain.NewSchemaFragment()

	for _, yc := range yf.Classes {
		spec := domain.ClassSpec{
			Name:        yc.Name,
			Parent:      yc.Parent,
			DisplayName: yc.DisplayName,
			Description: yc.Description,
			Abstract:    yc.Abstract,
			Countable:   yc.Countable,
			Custom:      yc.Custom,
			Color:       yc.Color,
		}
		for _, ya := range yc.Attributes {
			mapping, err := domain.ParseMappingKind(ya.Mapping)
			if err != nil {
				return nil, fmt.Errorf("attribute %s of class %s: %w", ya.Name, yc.Name, err)
			}
			spec.Attributes = append(spec.Attributes, domain.AttributeSpec{
				Name:           ya.Name,
				DisplayName:    ya.DisplayName,
				Description:    ya.Description,
				Mapping:        mapping,
				Type:           ya.Type,
				Mandatory:      ya.Mandatory,
				Unique:         ya.Unique,
				ReadOnly:       ya.ReadOnly,
				Administrative: ya.Administrative,
				NoCopy:         ya.NoCopy,
				Hidden:         ya.Hidden,
				Locked:         ya.Locked,
				Order:          ya.Order,
			})
		}
		fragment.AddClass(spec)
	}

	for _, yr := range yf.Containment {
		fragment.AddContainment(domain.ContainmentSpec{
			Parent:   yr.Parent,
			Children: yr.Children,
			Special:  yr.Special,
		})
	}

	if err := validate(fragment); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return fragment, nil
}

// Export exports a schema fragment to YAML
func (c *YAMLCodec) Export(fragment *domain.SchemaFragment, w io.Writer) error {
	yf := yamlFragment{
		Classes:     make([]yamlClass, 0, len(fragment.Classes)),
		Containment: make([]yamlContainment, 0, len(fragment.Containment)),
	}

	for _, spec := range fragment.Classes {
		yc := yamlClass{
			Name:        spec.Name,
			Parent:      spec.Parent,
			DisplayName: spec.DisplayName,
			Description: spec.Description,
			Abstract:    spec.Abstract,
			Countable:   spec.Countable,
			Custom:      spec.Custom,
			Color:       spec.Color,
		}
		for _, a := range spec.Attributes {
			yc.Attributes = append(yc.Attributes, yamlAttribute{
				Name:           a.Name,
				DisplayName:    a.DisplayName,
				Description:    a.Description,
				Mapping:        a.Mapping.String(),
				Type:           a.Type,
				Mandatory:      a.Mandatory,
				Unique:         a.Unique,
				ReadOnly:       a.ReadOnly,
				Administrative: a.Administrative,
				NoCopy:         a.NoCopy,
				Hidden:         a.Hidden,
				Locked:         a.Locked,
				Order:          a.Order,
			})
		}
		yf.Classes = append(yf.Classes, yc)
	}

	for _, r := range fragment.Containment {
		yf.Containment = append(yf.Containment, yamlContainment{
			Parent:   r.Parent,
			Children: r.Children,
			Special:  r.Special,
		})
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(&yf); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}
