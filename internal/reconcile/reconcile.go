// Package reconcile classifies the difference between a database's live
// objects and the repository's recorded objects and turns it into a sync plan.
package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"db-sync/internal/object"
)

// Mode declares the sync direction a reconciliation serves.
type Mode string

const (
	// ModeExport treats the database as the single source of truth; the plan
	// makes the repository match it. There is no conflict concept.
	ModeExport Mode = "export"
	// ModeApply overwrites database definitions from the repository. Any
	// database-side drift on a shared identity is a conflict.
	ModeApply Mode = "apply"
)

// Status classifies one identity in the union of both sides.
// Added/Removed are relative to the declared direction: in export mode the
// repository lags the database, in apply mode the database lags the
// repository.
type Status string

const (
	InSync        Status = "in_sync"
	AddedInDB     Status = "added_in_db"
	AddedInRepo   Status = "added_in_repo"
	RemovedInDB   Status = "removed_in_db"
	RemovedInRepo Status = "removed_in_repo"
	Conflicting   Status = "conflicting"
)

// Action is the mutation a plan entry asks for.
type Action string

const (
	ActionNone       Action = "none"
	ActionWriteFile  Action = "write_file"
	ActionDeleteFile Action = "delete_file"
	ActionApplyToDB  Action = "apply_to_db"
)

// Entry is one (identity, action, payload) element of a plan.
type Entry struct {
	Identity   object.Identity
	Status     Status
	Action     Action
	Definition string

	// RepoPath is the file's path as actually stored in the repository,
	// relative to the per-database prefix; empty when the identity has no
	// repo-side file. Stored paths may be non-canonical (an uppercase type
	// segment, extra leading segments), so mutations of an existing file
	// must target RepoPath, not a re-derived canonical path.
	RepoPath string
}

// Plan is the ordered outcome of one reconciliation.
type Plan struct {
	Mode      Mode
	Entries   []Entry
	Conflicts []object.Identity
}

// Actionable reports whether the plan contains any mutation.
func (p *Plan) Actionable() bool {
	for _, e := range p.Entries {
		if e.Action != ActionNone {
			return true
		}
	}
	return false
}

// owned reports whether name starts with any of the owned prefixes. An empty
// prefix set owns every object.
func owned(name string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Reconcile compares db-side and repo-side object sets for the owned subset
// and produces the sync plan for the given mode. Objects outside the owned
// prefixes are excluded entirely: neither reported nor touched.
func Reconcile(mode Mode, dbObjs []object.DBObject, repoObjs []object.RepoObject, prefixes []string) (*Plan, error) {
	dbSide := make(map[object.Identity]object.DBObject)
	for _, o := range dbObjs {
		if !owned(o.Name, prefixes) {
			continue
		}
		id := o.Identity()
		if _, dup := dbSide[id]; dup {
			return nil, fmt.Errorf("duplicate database object identity %s", id)
		}
		dbSide[id] = o
	}

	repoSide := make(map[object.Identity]object.DBObject)
	repoPaths := make(map[object.Identity]string)
	for _, ro := range repoObjs {
		o, err := object.FromPath(ro.Path, ro.Definition)
		if err != nil {
			return nil, err
		}
		if !owned(o.Name, prefixes) {
			continue
		}
		id := o.Identity()
		if _, dup := repoSide[id]; dup {
			return nil, fmt.Errorf("duplicate repository object identity %s", id)
		}
		repoSide[id] = o
		repoPaths[id] = ro.Path
	}

	ids := make([]object.Identity, 0, len(dbSide)+len(repoSide))
	for id := range dbSide {
		ids = append(ids, id)
	}
	for id := range repoSide {
		if _, ok := dbSide[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if a.Type.Rank() != b.Type.Rank() {
			return a.Type.Rank() < b.Type.Rank()
		}
		if a.Schema != b.Schema {
			return a.Schema < b.Schema
		}
		return a.Name < b.Name
	})

	plan := &Plan{Mode: mode}
	for _, id := range ids {
		e := classify(mode, id, dbSide, repoSide)
		e.RepoPath = repoPaths[id]
		plan.append(e)
	}
	return plan, nil
}

func classify(mode Mode, id object.Identity, dbSide, repoSide map[object.Identity]object.DBObject) Entry {
	dbObj, inDB := dbSide[id]
	repoObj, inRepo := repoSide[id]

	switch {
	case inDB && !inRepo:
		if mode == ModeExport {
			return Entry{Identity: id, Status: AddedInDB, Action: ActionWriteFile, Definition: dbObj.Definition}
		}
		// The object exists only in the database: dropping it on apply would
		// silently lose an uncommitted database-side change, so it is only
		// reported. An export run is the way to capture it.
		return Entry{Identity: id, Status: RemovedInRepo, Action: ActionNone, Definition: dbObj.Definition}

	case !inDB && inRepo:
		if mode == ModeExport {
			return Entry{Identity: id, Status: RemovedInDB, Action: ActionDeleteFile}
		}
		return Entry{Identity: id, Status: AddedInRepo, Action: ActionApplyToDB, Definition: repoObj.Definition}

	case definitionsEqual(dbObj.Definition, repoObj.Definition):
		return Entry{Identity: id, Status: InSync, Action: ActionNone}

	default:
		if mode == ModeExport {
			// Database is authoritative; the repo side is simply marked for
			// update.
			return Entry{Identity: id, Status: AddedInDB, Action: ActionWriteFile, Definition: dbObj.Definition}
		}
		return Entry{Identity: id, Status: Conflicting, Action: ActionNone}
	}
}

func (p *Plan) append(e Entry) {
	p.Entries = append(p.Entries, e)
	if e.Status == Conflicting {
		p.Conflicts = append(p.Conflicts, e.Identity)
	}
}
