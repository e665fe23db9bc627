package sqlite

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"assetgraph/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// millisToTime converts a stored epoch-millisecond value to UTC time
func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// timeToMillis converts a time to epoch milliseconds, zero for the zero time
func timeToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals interface to nullable JSON string
// Returns empty NullString for nil or empty maps
func marshalToNull(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}

	// Handle empty maps - don't store "{}"
	if m, ok := v.(map[string]string); ok && len(m) == 0 {
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Query Helpers
// ============================================================================

// inClause returns "?, ?, ?" for n placeholders and the ids as query args
func inClause(ids []string) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}

// chunk splits ids into slices of at most size elements
func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

// structuralEdgeID derives a deterministic ID for an untagged edge
func structuralEdgeID(kind domain.EdgeKind, fromID, toID string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%s", fromID, toID, kind)))
	return fmt.Sprintf("%x", hash[:8])
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to nodes table:
// 1. Add field to nodeRow struct (below)
// 2. Update scanArgs() - APPEND to end to match column order
// 3. Update nodeSelect - APPEND to end of the column list
// 4. Update the toX() converters
// 5. Add migration in sqlite.go migrate()
//
// CRITICAL: Column order must match between nodeSelect and scanArgs().
//
// Class and attribute definitions live in the properties column as JSON
// records; only fields that are queried get their own column.

// ============================================================================
// Node Row Scanner
// ============================================================================

// nodeRow holds all columns from a node query for scanning
type nodeRow struct {
	ID             string
	Kind           string
	ClassID        sql.NullString
	Name           string
	ParentID       sql.NullString
	PropertiesJSON sql.NullString
	CreatedAt      int64
	UpdatedAt      int64
	ClassName      string
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match nodeSelect order exactly:
// id, kind, class_id, name, parent_id, properties, created_at, updated_at, class name
func (r *nodeRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,             // 1
		&r.Kind,           // 2
		&r.ClassID,        // 3
		&r.Name,           // 4
		&r.ParentID,       // 5
		&r.PropertiesJSON, // 6
		&r.CreatedAt,      // 7
		&r.UpdatedAt,      // 8
		&r.ClassName,      // 9
	}
}

// nodeSelect selects every node column plus the name of the node's class
const nodeSelect = `SELECT n.id, n.kind, n.class_id, n.name, n.parent_id, n.properties,
	n.created_at, n.updated_at, COALESCE(c.name, '')
	FROM nodes n LEFT JOIN nodes c ON c.id = n.class_id`

// classRecord is the JSON form of a class stored in the properties column
type classRecord struct {
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
	Abstract    bool   `json:"abstract"`
	Countable   bool   `json:"countable"`
	Custom      bool   `json:"custom"`
	Color       int    `json:"color,omitempty"`
	Icon        []byte `json:"icon,omitempty"`
	SmallIcon   []byte `json:"small_icon,omitempty"`
}

// attributeRecord is the JSON form of an attribute stored in the properties column
type attributeRecord struct {
	DisplayName    string             `json:"display_name,omitempty"`
	Description    string             `json:"description,omitempty"`
	Mapping        domain.MappingKind `json:"mapping"`
	Type           string             `json:"type"`
	Visible        bool               `json:"visible"`
	Mandatory      bool               `json:"mandatory"`
	Unique         bool               `json:"unique"`
	ReadOnly       bool               `json:"read_only"`
	Administrative bool               `json:"administrative"`
	NoCopy         bool               `json:"no_copy"`
	Locked         bool               `json:"locked"`
	Order          int                `json:"order,omitempty"`
}

// toClass converts a scanned class row to a domain.Class
func (r *nodeRow) toClass() (*domain.Class, error) {
	var rec classRecord
	if err := unmarshalJSONField(r.PropertiesJSON, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal class %s: %w", r.Name, err)
	}
	return &domain.Class{
		ID:          r.ID,
		Name:        r.Name,
		DisplayName: rec.DisplayName,
		Description: rec.Description,
		Abstract:    rec.Abstract,
		Countable:   rec.Countable,
		Custom:      rec.Custom,
		ParentID:    nullToString(r.ParentID),
		Color:       rec.Color,
		Icon:        rec.Icon,
		SmallIcon:   rec.SmallIcon,
		CreatedAt:   millisToTime(r.CreatedAt),
	}, nil
}

// toAttribute converts a scanned attribute row to a domain.Attribute
func (r *nodeRow) toAttribute() (*domain.Attribute, error) {
	var rec attributeRecord
	if err := unmarshalJSONField(r.PropertiesJSON, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal attribute %s: %w", r.Name, err)
	}
	return &domain.Attribute{
		ID:             r.ID,
		ClassID:        nullToString(r.ClassID),
		Name:           r.Name,
		DisplayName:    rec.DisplayName,
		Description:    rec.Description,
		Mapping:        rec.Mapping,
		Type:           rec.Type,
		Visible:        rec.Visible,
		Mandatory:      rec.Mandatory,
		Unique:         rec.Unique,
		ReadOnly:       rec.ReadOnly,
		Administrative: rec.Administrative,
		NoCopy:         rec.NoCopy,
		Locked:         rec.Locked,
		Order:          rec.Order,
	}, nil
}

// toInstance converts a scanned instance row to a domain.Instance.
// Relationships are loaded separately.
func (r *nodeRow) toInstance() (*domain.Instance, error) {
	inst := &domain.Instance{
		ID:        r.ID,
		Kind:      domain.NodeKind(r.Kind),
		ClassID:   nullToString(r.ClassID),
		ClassName: r.ClassName,
		ParentID:  nullToString(r.ParentID),
		CreatedAt: millisToTime(r.CreatedAt),
		UpdatedAt: millisToTime(r.UpdatedAt),
	}
	if err := unmarshalJSONField(r.PropertiesJSON, &inst.Properties); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	if inst.Properties == nil {
		inst.Properties = make(map[string]string)
	}
	return inst, nil
}

// ============================================================================
// Edge Row Scanner
// ============================================================================

// edgeRow holds all columns from an edge query for scanning
type edgeRow struct {
	ID      string
	Kind    string
	FromID  string
	ToID    string
	Tag     sql.NullString
	Ordinal int
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match edgeColumns order exactly:
// id, kind, from_id, to_id, tag, ordinal
func (r *edgeRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,      // 1
		&r.Kind,    // 2
		&r.FromID,  // 3
		&r.ToID,    // 4
		&r.Tag,     // 5
		&r.Ordinal, // 6
	}
}

// toRelationship converts a scanned RELATED_TO row to a domain.Relationship
func (r *edgeRow) toRelationship() domain.Relationship {
	return domain.Relationship{
		ID:     r.ID,
		FromID: r.FromID,
		ToID:   r.ToID,
		Tag:    nullToString(r.Tag),
	}
}

// edgeColumns returns the SELECT column list for edge queries
const edgeColumns = `id, kind, from_id, to_id, tag, ordinal`

// ============================================================================
// Node Write Helpers
// ============================================================================

// classInsertArgs prepares arguments for a class node INSERT
// Returns: id, kind, class_id, name, parent_id, properties, created_at, updated_at
func classInsertArgs(c *domain.Class) ([]interface{}, error) {
	props, err := marshalToNull(classRecord{
		DisplayName: c.DisplayName,
		Description: c.Description,
		Abstract:    c.Abstract,
		Countable:   c.Countable,
		Custom:      c.Custom,
		Color:       c.Color,
		Icon:        c.Icon,
		SmallIcon:   c.SmallIcon,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal class: %w", err)
	}
	created := timeToMillis(c.CreatedAt)
	return []interface{}{
		c.ID,
		string(domain.NodeClass),
		sql.NullString{},
		c.Name,
		stringToNull(c.ParentID),
		props,
		created,
		created,
	}, nil
}

// attributeInsertArgs prepares arguments for an attribute node INSERT
func attributeInsertArgs(a *domain.Attribute, now int64) ([]interface{}, error) {
	props, err := marshalToNull(attributeRecord{
		DisplayName:    a.DisplayName,
		Description:    a.Description,
		Mapping:        a.Mapping,
		Type:           a.Type,
		Visible:        a.Visible,
		Mandatory:      a.Mandatory,
		Unique:         a.Unique,
		ReadOnly:       a.ReadOnly,
		Administrative: a.Administrative,
		NoCopy:         a.NoCopy,
		Locked:         a.Locked,
		Order:          a.Order,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal attribute: %w", err)
	}
	return []interface{}{
		a.ID,
		string(domain.NodeAttribute),
		stringToNull(a.ClassID),
		a.Name,
		sql.NullString{},
		props,
		now,
		now,
	}, nil
}

// instanceInsertArgs prepares arguments for an instance node INSERT
func instanceInsertArgs(inst *domain.Instance) ([]interface{}, error) {
	props, err := marshalToNull(inst.Properties)
	if err != nil {
		return nil, fmt.Errorf("marshal properties: %w", err)
	}
	kind := inst.Kind
	if kind == "" {
		kind = domain.NodeInstance
	}
	return []interface{}{
		inst.ID,
		string(kind),
		stringToNull(inst.ClassID),
		inst.Name(),
		stringToNull(inst.ParentID),
		props,
		timeToMillis(inst.CreatedAt),
		timeToMillis(inst.UpdatedAt),
	}, nil
}
