package validation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/steveyegge/beads/internal/types"
)

func TestParsePriority(t *testing.T) {
	cases := map[string]int{
		"0": 0, "1": 1, "4": 4,
		"P0": 0, "p2": 2, " P1 ": 1, " 3 ": 3,
		"5": -1, "-1": -1, "abc": -1, "P": -1, "PP1": -1, "": -1,
	}
	for input, want := range cases {
		require.Equal(t, want, ParsePriority(input), "input=%q", input)
	}
}

func TestValidatePriority(t *testing.T) {
	n, err := ValidatePriority("P2")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = ValidatePriority("9")
	require.Error(t, err)
}

func TestParseIssueType(t *testing.T) {
	ty, err := ParseIssueType("bug")
	require.NoError(t, err)
	require.Equal(t, types.TypeBug, ty)

	_, err = ParseIssueType("BUG")
	require.Error(t, err)

	_, err = ParseIssueType("")
	require.Error(t, err)
}

func TestValidateIDFormat(t *testing.T) {
	prefix, err := ValidateIDFormat("")
	require.NoError(t, err)
	require.Equal(t, "", prefix)

	prefix, err = ValidateIDFormat("bd-a3f8e9")
	require.NoError(t, err)
	require.Equal(t, "bd", prefix)

	_, err = ValidateIDFormat("nohyphen")
	require.Error(t, err)
}

func TestValidatePrefix(t *testing.T) {
	require.NoError(t, ValidatePrefix("bd", "bd", false))
	require.NoError(t, ValidatePrefix("bd", "", false))
	require.Error(t, ValidatePrefix("foo", "bd", false))
	require.NoError(t, ValidatePrefix("foo", "bd", true))
}
