package domain

import "time"

// Names of the classes every schema starts with
const (
	RootClassName        = "RootObject"
	InventoryObjectClass = "InventoryObject"
	ListTypeRootClass    = "GenericObjectList"
)

// Class represents a class of inventory object in the inheritance tree
type Class struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name,omitempty"`
	Description string    `json:"description,omitempty"`
	Abstract    bool      `json:"abstract"`
	Countable   bool      `json:"countable"`
	Custom      bool      `json:"custom"`
	ParentID    string    `json:"parent_id,omitempty"`
	ParentName  string    `json:"parent_name,omitempty"`
	Color       int       `json:"color,omitempty"`
	Icon        []byte    `json:"icon,omitempty"`
	SmallIcon   []byte    `json:"small_icon,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewClass creates a custom, countable class under the given parent
func NewClass(name, parentName string) *Class {
	return &Class{
		Name:       name,
		ParentName: parentName,
		Countable:  true,
		Custom:     true,
		CreatedAt:  time.Now(),
	}
}

// IsRoot reports whether the class is the root of the inheritance tree
func (c *Class) IsRoot() bool {
	return c.ParentID == ""
}

// Protected reports whether the class belongs to the core model and can not
// be deleted
func (c *Class) Protected() bool {
	return c.IsRoot() || !c.Custom
}

// Label returns the display name, falling back to the class name
func (c *Class) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// Clone returns a deep copy of the class
func (c *Class) Clone() *Class {
	cp := *c
	if c.Icon != nil {
		cp.Icon = append([]byte(nil), c.Icon...)
	}
	if c.SmallIcon != nil {
		cp.SmallIcon = append([]byte(nil), c.SmallIcon...)
	}
	return &cp
}

// ClassUpdate carries a partial class update. Nil fields are left untouched.
type ClassUpdate struct {
	Name        *string `json:"name,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	Description *string `json:"description,omitempty"`
	Abstract    *bool   `json:"abstract,omitempty"`
	Countable   *bool   `json:"countable,omitempty"`
	ParentName  *string `json:"parent_name,omitempty"`
	Color       *int    `json:"color,omitempty"`
	Icon        []byte  `json:"icon,omitempty"`
	SmallIcon   []byte  `json:"small_icon,omitempty"`
}
