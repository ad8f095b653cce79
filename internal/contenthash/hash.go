// Package contenthash implements the Content Hasher: a deterministic
// 256-bit digest over an issue's content-bearing fields, used to detect
// no-op writes and mirror-content drift.
package contenthash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/steveyegge/beads/internal/types"
)

// Digest is the hex-encoded 256-bit content hash of an issue.
type Digest string

// Of computes the content hash over the fields listed in spec.md §4.B, in
// the exact order given there. Each field is length-prefixed (4-byte
// big-endian length followed by the UTF-8 bytes) so that no concatenation
// of adjacent fields can collide across different field boundaries.
//
// Excluded: id, timestamps (except due_at/defer_until, which are content),
// relations (labels/dependencies/comments).
func Of(issue *types.Issue) Digest {
	h := sha256.New()

	writeField(h, issue.Title)
	writeField(h, issue.Description)
	writeField(h, issue.Design)
	writeField(h, issue.AcceptanceCriteria)
	writeField(h, issue.Notes)
	writeField(h, string(issue.Status))
	writeField(h, strconv.Itoa(issue.Priority))
	writeField(h, string(issue.IssueType))
	writeField(h, issue.Assignee)
	writeField(h, issue.Owner)
	writeField(h, issue.ParentID)
	writeField(h, issue.ExternalRef)
	writeField(h, boolStr(issue.Ephemeral))
	writeField(h, timeStr(issue.DueAt))
	writeField(h, timeStr(issue.DeferUntil))
	writeField(h, intPtrStr(issue.EstimatedMinutes))

	return Digest(hex.EncodeToString(h.Sum(nil)))
}

func writeField(h interface{ Write([]byte) (int, error) }, s string) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	_, _ = h.Write(lenBuf[:])
	_, _ = h.Write([]byte(s))
}

func boolStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func timeStr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func intPtrStr(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}
