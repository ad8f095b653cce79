package types

import "time"

// DepType classifies a directed edge between two issues.
type DepType string

const (
	DepBlocks         DepType = "blocks"
	DepParentChild    DepType = "parent-child"
	DepDiscoveredFrom DepType = "discovered-from"
	DepRelated        DepType = "related"
)

// ValidDepTypes lists every recognized DepType value.
var ValidDepTypes = []DepType{DepBlocks, DepParentChild, DepDiscoveredFrom, DepRelated}

// Valid reports whether t is a recognized dependency type.
func (t DepType) Valid() bool {
	for _, v := range ValidDepTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Blocking reports whether edges of this type contribute to reachability
// for blocked/ready computation. discovered-from and related are
// informational only.
func (t DepType) Blocking() bool {
	return t == DepBlocks || t == DepParentChild
}

// Dependency is a directed edge issue_id -> depends_on_id.
type Dependency struct {
	IssueID     string  `json:"-"`
	DependsOnID string  `json:"depends_on_id"`
	DepType     DepType `json:"dep_type"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

// Direction selects which end of an edge GetDependencies walks from.
type Direction string

const (
	// DirectionOutgoing walks issue_id -> depends_on_id (what this issue depends on).
	DirectionOutgoing Direction = "outgoing"
	// DirectionIncoming walks depends_on_id -> issue_id (what depends on this issue).
	DirectionIncoming Direction = "incoming"
)
