// Package timeparsing resolves the date and duration expressions accepted
// throughout the CLI (due dates, defer-until, query filters) into absolute
// times, trying increasingly general grammars until one accepts the input.
package timeparsing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var compactDurationPattern = regexp.MustCompile(`^([+-]?)(\d+)([hdwmy])$`)

// IsCompactDuration reports whether input matches the compact duration
// grammar (e.g. "+6h", "-1d", "3w") without attempting to resolve it.
func IsCompactDuration(input string) bool {
	return compactDurationPattern.MatchString(input)
}

// ParseCompactDuration resolves a compact duration expression of the form
// [+-]?<digits><unit> relative to now. Unit is one of h (hour), d (day),
// w (week), m (month), y (year). Absence of a sign means positive. Month
// and year arithmetic uses time.AddDate, which carries Go's calendar
// overflow semantics (e.g. Jan 31 + 1 month rolls into March).
func ParseCompactDuration(input string, now time.Time) (time.Time, error) {
	m := compactDurationPattern.FindStringSubmatch(input)
	if m == nil {
		return time.Time{}, fmt.Errorf("timeparsing: %q is not a compact duration", input)
	}

	sign := 1
	if m[1] == "-" {
		sign = -1
	}

	n, err := strconv.Atoi(m[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("timeparsing: invalid amount in %q: %w", input, err)
	}
	n *= sign

	switch m[3] {
	case "h":
		return now.Add(time.Duration(n) * time.Hour), nil
	case "d":
		return now.AddDate(0, 0, n), nil
	case "w":
		return now.AddDate(0, 0, n*7), nil
	case "m":
		return now.AddDate(0, n, 0), nil
	case "y":
		return now.AddDate(n, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("timeparsing: unknown duration unit %q", m[3])
	}
}
