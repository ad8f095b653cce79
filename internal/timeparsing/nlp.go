package timeparsing

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var nlpParser = newNLPParser()

func newNLPParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseNaturalLanguage resolves an English natural-language expression
// ("tomorrow", "next monday at 2pm", "in 3 days") relative to now.
func ParseNaturalLanguage(input string, now time.Time) (time.Time, error) {
	if input == "" {
		return time.Time{}, fmt.Errorf("timeparsing: empty natural language expression")
	}
	res, err := nlpParser.Parse(input, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeparsing: parsing %q: %w", input, err)
	}
	if res == nil {
		return time.Time{}, fmt.Errorf("timeparsing: could not resolve %q as a date expression", input)
	}
	return res.Time, nil
}

// ParseRelativeTime resolves input through four layered grammars, in
// strict precedence order: compact duration, natural language, date-only
// (YYYY-MM-DD), then RFC3339. The first grammar that accepts the input
// wins; later layers never override an earlier match.
func ParseRelativeTime(input string, now time.Time) (time.Time, error) {
	if IsCompactDuration(input) {
		return ParseCompactDuration(input, now)
	}
	if t, err := ParseNaturalLanguage(input, now); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", input, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("timeparsing: could not parse %q as a compact duration, natural language expression, date, or RFC3339 timestamp", input)
}
