package syncer

import (
	"fmt"
	"strings"

	"db-sync/internal/object"
)

// NotOnboardedError reports a database that is known to the registry but
// excluded from sync enrollment.
type NotOnboardedError struct {
	Database string
}

func (e *NotOnboardedError) Error() string {
	return fmt.Sprintf("database %s is not enrolled for synchronization", e.Database)
}

// OutOfSyncError is the safety gate raised when a repo-to-db apply would
// clobber database-side drift. It is never auto-resolved; the caller must
// re-run after reconciling the listed identities manually.
type OutOfSyncError struct {
	Database  string
	Conflicts []object.Identity
}

func (e *OutOfSyncError) Error() string {
	names := make([]string, len(e.Conflicts))
	for i, id := range e.Conflicts {
		names[i] = id.String()
	}
	return fmt.Sprintf("database %s is out of sync with the repository: %s",
		e.Database, strings.Join(names, ", "))
}

// SyncError wraps any other reconciliation, apply, or commit failure.
type SyncError struct {
	Op       string
	Database string
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Database, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
