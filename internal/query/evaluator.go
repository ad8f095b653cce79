package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/steveyegge/beads/internal/types"
)

// Evaluator compiles a parsed query AST into a predicate over types.Issue.
type Evaluator struct {
	now time.Time
}

// NewEvaluator returns an Evaluator that resolves relative dates against now.
func NewEvaluator(now time.Time) *Evaluator {
	return &Evaluator{now: now}
}

// Matches reports whether issue satisfies the query rooted at node.
func (e *Evaluator) Matches(node Node, issue *types.Issue) (bool, error) {
	switch n := node.(type) {
	case *AndNode:
		left, err := e.Matches(n.Left, issue)
		if err != nil || !left {
			return false, err
		}
		return e.Matches(n.Right, issue)
	case *OrNode:
		left, err := e.Matches(n.Left, issue)
		if err != nil {
			return false, err
		}
		if left {
			return true, nil
		}
		return e.Matches(n.Right, issue)
	case *NotNode:
		inner, err := e.Matches(n.Operand, issue)
		if err != nil {
			return false, err
		}
		return !inner, nil
	case *ComparisonNode:
		return e.matchComparison(n, issue)
	default:
		return false, fmt.Errorf("query: unknown node type %T", node)
	}
}

func (e *Evaluator) matchComparison(n *ComparisonNode, issue *types.Issue) (bool, error) {
	switch canonicalField(n.Field) {
	case "id":
		return compareStrings(issue.ID, n.Op, n.Value)
	case "title":
		return compareStrings(issue.Title, n.Op, n.Value)
	case "description":
		return compareStrings(issue.Description, n.Op, n.Value)
	case "notes":
		return compareStrings(issue.Notes, n.Op, n.Value)
	case "status":
		return compareStrings(string(issue.Status), n.Op, n.Value)
	case "type":
		return compareStrings(string(issue.IssueType), n.Op, n.Value)
	case "assignee":
		return compareStrings(issue.Assignee, n.Op, n.Value)
	case "owner":
		return compareStrings(issue.Owner, n.Op, n.Value)
	case "parent":
		return compareStrings(issue.ParentID, n.Op, n.Value)
	case "priority":
		return comparePriority(issue.Priority, n.Op, n.Value)
	case "ephemeral":
		return compareBool(issue.Ephemeral, n.Op, n.Value)
	case "label":
		return matchLabel(issue.Labels, n.Op, n.Value), nil
	case "created", "created_at":
		return compareTime(issue.CreatedAt, n.Op, n.Value, e.now)
	case "updated", "updated_at":
		return compareTime(issue.UpdatedAt, n.Op, n.Value, e.now)
	default:
		return false, fmt.Errorf("query: unknown field %q", n.Field)
	}
}

func canonicalField(field string) string {
	switch field {
	case "desc":
		return "description"
	case "labels":
		return "label"
	case "closed_at":
		return "closed"
	default:
		return field
	}
}

func compareStrings(actual string, op ComparisonOp, want string) (bool, error) {
	switch op {
	case OpEquals:
		return strings.EqualFold(actual, want), nil
	case OpNotEquals:
		return !strings.EqualFold(actual, want), nil
	default:
		return false, fmt.Errorf("operator %s is not valid for a text field", op)
	}
}

func comparePriority(actual int, op ComparisonOp, want string) (bool, error) {
	n, err := strconv.Atoi(want)
	if err != nil {
		return false, fmt.Errorf("priority value %q is not numeric", want)
	}
	switch op {
	case OpEquals:
		return actual == n, nil
	case OpNotEquals:
		return actual != n, nil
	case OpLess:
		return actual < n, nil
	case OpLessEq:
		return actual <= n, nil
	case OpGreater:
		return actual > n, nil
	case OpGreaterEq:
		return actual >= n, nil
	default:
		return false, fmt.Errorf("unsupported priority operator %s", op)
	}
}

func compareBool(actual bool, op ComparisonOp, want string) (bool, error) {
	b, err := strconv.ParseBool(want)
	if err != nil {
		return false, fmt.Errorf("boolean value %q is not valid", want)
	}
	switch op {
	case OpEquals:
		return actual == b, nil
	case OpNotEquals:
		return actual != b, nil
	default:
		return false, fmt.Errorf("operator %s is not valid for a boolean field", op)
	}
}

func matchLabel(labels []string, op ComparisonOp, want string) bool {
	has := false
	for _, l := range labels {
		if strings.EqualFold(l, want) {
			has = true
			break
		}
	}
	if op == OpNotEquals {
		return !has
	}
	return has
}

// compareTime resolves want as either a compact duration ("7d") relative to
// now, or an RFC3339 timestamp, then compares against actual.
func compareTime(actual time.Time, op ComparisonOp, want string, now time.Time) (bool, error) {
	threshold, err := resolveTimeValue(want, now)
	if err != nil {
		return false, err
	}
	switch op {
	case OpEquals:
		return actual.Equal(threshold), nil
	case OpNotEquals:
		return !actual.Equal(threshold), nil
	case OpLess:
		return actual.Before(threshold), nil
	case OpLessEq:
		return actual.Before(threshold) || actual.Equal(threshold), nil
	case OpGreater:
		return actual.After(threshold), nil
	case OpGreaterEq:
		return actual.After(threshold) || actual.Equal(threshold), nil
	default:
		return false, fmt.Errorf("unsupported time operator %s", op)
	}
}

// resolveTimeValue interprets a duration like "7d" as now minus that
// duration, matching the query convention that `updated>7d` means "more
// recently than 7 days ago".
func resolveTimeValue(want string, now time.Time) (time.Time, error) {
	if d, ok := parseSimpleDuration(want); ok {
		return now.Add(-d), nil
	}
	if t, err := time.Parse(time.RFC3339, want); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", want); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("could not parse time value %q", want)
}

func parseSimpleDuration(s string) (time.Duration, bool) {
	if len(s) < 2 {
		return 0, false
	}
	unit := s[len(s)-1]
	numPart := s[:len(s)-1]
	n, err := strconv.Atoi(numPart)
	if err != nil {
		return 0, false
	}
	var unitDur time.Duration
	switch unit {
	case 'h', 'H':
		unitDur = time.Hour
	case 'd', 'D':
		unitDur = 24 * time.Hour
	case 'w', 'W':
		unitDur = 7 * 24 * time.Hour
	case 'm', 'M':
		unitDur = 30 * 24 * time.Hour
	case 'y', 'Y':
		unitDur = 365 * 24 * time.Hour
	default:
		return 0, false
	}
	return time.Duration(n) * unitDur, true
}

// Filter evaluates query against every issue in issues and returns the
// matching subset, preserving order.
func Filter(query string, issues []*types.Issue, now time.Time) ([]*types.Issue, error) {
	node, err := Parse(query)
	if err != nil {
		return nil, err
	}
	ev := NewEvaluator(now)
	var out []*types.Issue
	for _, issue := range issues {
		ok, err := ev.Matches(node, issue)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, issue)
		}
	}
	return out, nil
}
