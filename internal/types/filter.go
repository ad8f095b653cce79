package types

import "time"

// IssueFilter composes the predicates Validation & Query exposes over
// SearchIssues/ListIssues. Categories AND together; within a category the
// specified logic applies (see Label/LabelAny below).
type IssueFilter struct {
	Status    *Status
	IssueType *IssueType

	// Label requires every listed label to be present (AND).
	Label []string
	// LabelAny requires at least one listed label to be present (OR).
	LabelAny []string

	PriorityMin *int
	PriorityMax *int

	Assignee *string
	Owner    *string

	TitleContains string
	DescContains  string

	ParentID *string

	// All includes closed issues; by default closed issues are excluded.
	All bool

	// IncludeDeferred includes issues whose defer_until is in the future.
	IncludeDeferred bool

	// IncludeDeleted includes tombstoned issues. Almost never set by callers;
	// Mirror Sync and integrity audits are the only legitimate users.
	IncludeDeleted bool

	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	UpdatedAfter  *time.Time
	UpdatedBefore *time.Time

	Limit int
}
