package types

import "time"

// Comment is an append-only thread entry on an issue.
type Comment struct {
	ID        int64     `json:"-"`
	IssueID   string    `json:"-"`
	Body      string    `json:"body"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
