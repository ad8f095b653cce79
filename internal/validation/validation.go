// Package validation implements field-level parsing and checks shared by
// the CLI and the mutation layer: priority shorthand, issue type names,
// ID format, and prefix agreement between a workspace and its store.
package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/steveyegge/beads/internal/types"
)

// ParsePriority accepts "0".."4" or "P0".."P4" (case-insensitive), trims
// surrounding whitespace, and returns the integer priority. It returns -1
// for anything it cannot parse or that falls outside the valid range.
func ParsePriority(input string) int {
	s := strings.TrimSpace(input)
	if s == "" {
		return -1
	}
	if len(s) > 1 && (s[0] == 'P' || s[0] == 'p') {
		s = s[1:]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	if n < types.MinPriority || n > types.MaxPriority {
		return -1
	}
	return n
}

// ValidatePriority parses input via ParsePriority and turns a -1 result
// into a descriptive error.
func ValidatePriority(input string) (int, error) {
	n := ParsePriority(input)
	if n < 0 {
		return -1, fmt.Errorf("invalid priority %q: expected 0-%d or P0-P%d", input, types.MaxPriority, types.MaxPriority)
	}
	return n, nil
}

// ParseIssueType normalizes and validates an issue type name.
func ParseIssueType(input string) (types.IssueType, error) {
	s := types.IssueType(strings.TrimSpace(input))
	if !s.Valid() {
		return "", fmt.Errorf("invalid issue type %q: expected one of %v", input, types.ValidIssueTypes)
	}
	return s, nil
}

// ValidateIDFormat reports the prefix portion of id, or an empty prefix
// and no error if id is itself empty (callers treat that as "unset").
// A non-empty id lacking the "<prefix>-<hash>" separator is an error.
func ValidateIDFormat(id string) (string, error) {
	if id == "" {
		return "", nil
	}
	idx := strings.Index(id, "-")
	if idx <= 0 {
		return "", fmt.Errorf("invalid id %q: expected \"<prefix>-<hash>\"", id)
	}
	return id[:idx], nil
}

// ValidatePrefix checks that requestedPrefix agrees with a store's
// existing dbPrefix. An empty dbPrefix (a fresh store) always agrees.
// Mismatches are allowed only when force is set.
func ValidatePrefix(requestedPrefix, dbPrefix string, force bool) error {
	if dbPrefix == "" || requestedPrefix == dbPrefix {
		return nil
	}
	if force {
		return nil
	}
	return fmt.Errorf("prefix mismatch: workspace uses %q but requested %q (pass force to override)", dbPrefix, requestedPrefix)
}
