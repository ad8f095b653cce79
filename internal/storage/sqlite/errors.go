package sqlite

import (
	"database/sql"
	"errors"

	"github.com/steveyegge/beads/internal/beadserr"
)

// wrapDBError turns a raw driver error into a *beadserr.Error, converting
// sql.ErrNoRows to KindNotFound. Other errors are wrapped as KindInternal;
// callers that can attribute a more specific kind should do so themselves
// instead of calling this helper.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return beadserr.New(beadserr.KindNotFound, "%s: not found", op)
	}
	return beadserr.Wrap(beadserr.KindInternal, err, "%s", op)
}
