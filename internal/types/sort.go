package types

import "strings"

// SortField names a column list_issues can order by.
type SortField string

const (
	SortFieldPriority SortField = "priority"
	SortFieldCreated  SortField = "created"
	SortFieldUpdated  SortField = "updated"
	SortFieldTitle    SortField = "title"
	SortFieldID       SortField = "id"
)

var validSortFields = map[SortField]bool{
	SortFieldPriority: true,
	SortFieldCreated:  true,
	SortFieldUpdated:  true,
	SortFieldTitle:    true,
	SortFieldID:       true,
}

// SortDirection is ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// IssueSortOption is one field/direction pair in a compound sort order.
type IssueSortOption struct {
	Field     SortField
	Direction SortDirection
}

// DefaultIssueSortOptions returns the engine's default list_issues order:
// priority ascending (most urgent first), falling back to most-recently
// updated first.
func DefaultIssueSortOptions() []IssueSortOption {
	return []IssueSortOption{
		{Field: SortFieldPriority, Direction: SortAsc},
		{Field: SortFieldUpdated, Direction: SortDesc},
	}
}

// ParseIssueSortOrder parses a comma-separated "field-direction" list, e.g.
// "updated-desc,title-asc". Unknown fields or malformed entries are skipped
// rather than rejected outright, matching list_issues' permissive CLI
// surface; an empty or all-invalid input yields an empty slice.
func ParseIssueSortOrder(s string) []IssueSortOption {
	var opts []IssueSortOption
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.LastIndex(part, "-")
		if idx <= 0 || idx == len(part)-1 {
			continue
		}
		field := SortField(part[:idx])
		dir := part[idx+1:]

		if !validSortFields[field] {
			continue
		}

		var direction SortDirection
		switch {
		case strings.HasPrefix(dir, "asc"):
			direction = SortAsc
		case strings.HasPrefix(dir, "desc"):
			direction = SortDesc
		default:
			continue
		}

		opts = append(opts, IssueSortOption{Field: field, Direction: direction})
	}
	return opts
}

// EncodeIssueSortOrder is the inverse of ParseIssueSortOrder.
func EncodeIssueSortOrder(opts []IssueSortOption) string {
	parts := make([]string, 0, len(opts))
	for _, o := range opts {
		parts = append(parts, string(o.Field)+"-"+string(o.Direction))
	}
	return strings.Join(parts, ",")
}
