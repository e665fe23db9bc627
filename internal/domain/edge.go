package domain

import (
	"crypto/sha256"
	"fmt"
)

// NodeKind is the kind of a node in the persisted graph
type NodeKind string

const (
	NodeClass     NodeKind = "class"
	NodeAttribute NodeKind = "attribute"
	NodeInstance  NodeKind = "instance"
	NodeListItem  NodeKind = "list_item"
)

// EdgeKind is the kind of an edge in the persisted graph
type EdgeKind string

const (
	EdgeInherits             EdgeKind = "INHERITS"
	EdgeHasAttribute         EdgeKind = "HAS_ATTRIBUTE"
	EdgePossibleChild        EdgeKind = "POSSIBLE_CHILD"
	EdgePossibleChildSpecial EdgeKind = "POSSIBLE_CHILD_SPECIAL"
	EdgeInstanceOf           EdgeKind = "INSTANCE_OF"
	EdgeRelatedTo            EdgeKind = "RELATED_TO"
	EdgeContainedBy          EdgeKind = "CONTAINED_BY"
)

// Relationship is an outgoing RELATED_TO edge of an instance. Tag carries the
// name of the attribute the edge realises.
type Relationship struct {
	ID     string `json:"id"`
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Tag    string `json:"tag"`
}

// NewRelationship creates a tagged relationship edge
func NewRelationship(fromID, toID, tag string) *Relationship {
	rel := &Relationship{
		FromID: fromID,
		ToID:   toID,
		Tag:    tag,
	}
	rel.ID = rel.GenerateID()
	return rel
}

// GenerateID creates a deterministic ID for the edge based on endpoints and tag.
// Relationship edges are directed, so endpoints are not normalized.
func (r *Relationship) GenerateID() string {
	key := fmt.Sprintf("%s-%s-%s-%s", r.FromID, r.ToID, EdgeRelatedTo, r.Tag)
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", hash[:8])
}
