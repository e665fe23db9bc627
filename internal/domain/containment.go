package domain

// ContainmentRule allows instances of ChildID to be placed inside instances
// of ParentID. Special rules form the overlay hierarchy.
type ContainmentRule struct {
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
	Special  bool   `json:"special,omitempty"`
}

// EdgeKind returns the graph edge kind the rule is stored as
func (r ContainmentRule) EdgeKind() EdgeKind {
	if r.Special {
		return EdgePossibleChildSpecial
	}
	return EdgePossibleChild
}
