// Package syncer drives the two top-level sync operations: exporting a
// database's schema objects to the repository and applying the repository's
// recorded objects back to a database.
package syncer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"db-sync/internal/object"
	"db-sync/internal/reconcile"
	"db-sync/internal/registry"
)

// Introspector reads and writes schema objects on a live database.
type Introspector interface {
	// ListObjects returns one snapshot of the database's schema objects with
	// their definition texts.
	ListObjects(ctx context.Context, dbName string) ([]object.DBObject, error)

	// ApplyObjects executes each object's definition against the database in
	// the given order, within one transaction. Engines with transactional
	// DDL make the batch all-or-nothing; for the rest a failure reports how
	// far the batch got through the returned outcomes. onProgress, when
	// non-nil, is called once per attempted object.
	ApplyObjects(ctx context.Context, dbName string, objs []object.DBObject, onProgress func()) ([]Outcome, error)
}

// Store reads and writes the version-controlled object tree.
type Store interface {
	// ListObjects returns the .sql files under subtree prefix, paths relative
	// to the prefix.
	ListObjects(ctx context.Context, prefix string) ([]object.RepoObject, error)

	// Commit applies all writes and deletes as a single atomic commit and
	// returns its id. No partial commit may remain on failure.
	Commit(ctx context.Context, req CommitRequest) (string, error)
}

// CommitRequest is one atomic repository mutation.
type CommitRequest struct {
	Writes  map[string]string
	Deletes []string
	Message string
	Author  Signature
	Branch  string
}

// Signature identifies the commit author.
type Signature struct {
	Name  string
	Email string
}

// Outcome is the per-object result of an apply.
type Outcome struct {
	Identity object.Identity
	Applied  bool
	Err      string
}

// Summary is the result shape both sync operations return.
type Summary struct {
	Database string
	DryRun   bool
	Result   string
	Message  string
	Plan     *reconcile.Plan
	Outcomes []Outcome
	CommitID string
}

// Syncer orchestrates sync invocations. Each invocation constructs its object
// sets fresh and owns them exclusively; the registry is the only state shared
// across invocations.
type Syncer struct {
	registry *registry.Registry
	router   *registry.Router
	db       Introspector
	store    Store
	author   Signature
	branch   string
	logger   *zap.Logger
}

func New(reg *registry.Registry, router *registry.Router, db Introspector, store Store, author Signature, branch string, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		registry: reg,
		router:   router,
		db:       db,
		store:    store,
		author:   author,
		branch:   branch,
		logger:   logger,
	}
}

// SyncDBToRepo exports the owned subset of dbName's schema objects into the
// repository. With dryRun the plan is returned and nothing is mutated;
// otherwise all file writes and deletes land in exactly one commit.
func (s *Syncer) SyncDBToRepo(ctx context.Context, dbName string, dryRun bool) (*Summary, error) {
	cfg, err := s.enrolled(dbName)
	if err != nil {
		return nil, err
	}

	var summary *Summary
	err = s.router.RunWithDatabase(ctx, dbName, func(ctx context.Context) error {
		dbObjs, err := s.db.ListObjects(ctx, dbName)
		if err != nil {
			return &SyncError{Op: "introspect", Database: dbName, Err: err}
		}
		repoObjs, err := s.store.ListObjects(ctx, dbName+"/")
		if err != nil {
			return &SyncError{Op: "read repository", Database: dbName, Err: err}
		}

		plan, err := reconcile.Reconcile(reconcile.ModeExport, dbObjs, repoObjs, cfg.Prefixes)
		if err != nil {
			return &SyncError{Op: "reconcile", Database: dbName, Err: err}
		}

		s.logger.Info("export reconciled",
			zap.String("database", dbName),
			zap.Int("db_objects", len(dbObjs)),
			zap.Int("repo_objects", len(repoObjs)),
			zap.Int("plan_entries", len(plan.Entries)),
			zap.Bool("dry_run", dryRun))

		if dryRun {
			summary = &Summary{
				Database: dbName,
				DryRun:   true,
				Result:   "planned",
				Message:  fmt.Sprintf("export would change %d object(s)", countActions(plan)),
				Plan:     plan,
			}
			return nil
		}

		if !plan.Actionable() {
			summary = &Summary{Database: dbName, Result: "up-to-date", Message: "repository already matches database", Plan: plan}
			return nil
		}

		req := CommitRequest{
			Writes:  map[string]string{},
			Message: fmt.Sprintf("sync %s: export %d object(s)", dbName, countActions(plan)),
			Author:  s.author,
			Branch:  s.branch,
		}
		for _, e := range plan.Entries {
			switch e.Action {
			case reconcile.ActionWriteFile:
				canonical := objectPath(e.Identity)
				req.Writes[dbName+"/"+canonical] = e.Definition
				// A file stored under a non-canonical path is renamed: the
				// write lands at the canonical path and the old file goes
				// away in the same commit.
				if e.RepoPath != "" && e.RepoPath != canonical {
					req.Deletes = append(req.Deletes, dbName+"/"+e.RepoPath)
				}
			case reconcile.ActionDeleteFile:
				// Delete what is actually stored, not a re-derived path.
				req.Deletes = append(req.Deletes, dbName+"/"+e.RepoPath)
			}
		}

		commitID, err := s.store.Commit(ctx, req)
		if err != nil {
			return &SyncError{Op: "commit", Database: dbName, Err: err}
		}

		s.logger.Info("export committed",
			zap.String("database", dbName),
			zap.String("commit", commitID),
			zap.Int("writes", len(req.Writes)),
			zap.Int("deletes", len(req.Deletes)))

		summary = &Summary{
			Database: dbName,
			Result:   "exported",
			Message:  fmt.Sprintf("committed %d write(s), %d delete(s)", len(req.Writes), len(req.Deletes)),
			Plan:     plan,
			CommitID: commitID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// SyncRepoToDB applies the repository's recorded definitions to dbName. A
// non-empty conflict list aborts the whole operation with zero database
// mutation. With dryRun the plan is returned; otherwise definitions are
// applied in the fixed dependency-safe order as one batch, rolled back as a
// whole on engines whose DDL is transactional.
func (s *Syncer) SyncRepoToDB(ctx context.Context, dbName string, dryRun bool, onProgress func()) (*Summary, error) {
	cfg, err := s.enrolled(dbName)
	if err != nil {
		return nil, err
	}

	var summary *Summary
	err = s.router.RunWithDatabase(ctx, dbName, func(ctx context.Context) error {
		repoObjs, err := s.store.ListObjects(ctx, dbName+"/")
		if err != nil {
			return &SyncError{Op: "read repository", Database: dbName, Err: err}
		}
		dbObjs, err := s.db.ListObjects(ctx, dbName)
		if err != nil {
			return &SyncError{Op: "introspect", Database: dbName, Err: err}
		}

		plan, err := reconcile.Reconcile(reconcile.ModeApply, dbObjs, repoObjs, cfg.Prefixes)
		if err != nil {
			return &SyncError{Op: "reconcile", Database: dbName, Err: err}
		}

		if len(plan.Conflicts) > 0 {
			s.logger.Warn("apply blocked by database-side drift",
				zap.String("database", dbName),
				zap.Int("conflicts", len(plan.Conflicts)))
			return &OutOfSyncError{Database: dbName, Conflicts: plan.Conflicts}
		}

		if dryRun {
			summary = &Summary{
				Database: dbName,
				DryRun:   true,
				Result:   "planned",
				Message:  fmt.Sprintf("apply would create %d object(s)", countActions(plan)),
				Plan:     plan,
			}
			return nil
		}

		// Plan entries are already ordered Table, Type, Synonym, Sequence,
		// View, Function, Procedure, Trigger.
		var pending []object.DBObject
		for _, e := range plan.Entries {
			if e.Action != reconcile.ActionApplyToDB {
				continue
			}
			pending = append(pending, object.DBObject{
				Schema:     e.Identity.Schema,
				Name:       e.Identity.Name,
				Type:       e.Identity.Type,
				Definition: e.Definition,
			})
		}

		if len(pending) == 0 {
			summary = &Summary{Database: dbName, Result: "up-to-date", Message: "database already matches repository", Plan: plan}
			return nil
		}

		outcomes, err := s.db.ApplyObjects(ctx, dbName, pending, onProgress)
		if err != nil {
			return &SyncError{Op: "apply", Database: dbName, Err: err}
		}

		s.logger.Info("apply completed",
			zap.String("database", dbName),
			zap.Int("objects", len(outcomes)))

		summary = &Summary{
			Database: dbName,
			Result:   "applied",
			Message:  fmt.Sprintf("applied %d object(s)", len(outcomes)),
			Plan:     plan,
			Outcomes: outcomes,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// enrolled resolves dbName to its config and gates on sync enrollment.
func (s *Syncer) enrolled(dbName string) (registry.Database, error) {
	cfg, ok := s.registry.Lookup(dbName)
	if !ok {
		return registry.Database{}, &registry.UnknownDatabaseError{Database: dbName}
	}
	if !cfg.Sync {
		return registry.Database{}, &NotOnboardedError{Database: dbName}
	}
	return cfg, nil
}

func countActions(plan *reconcile.Plan) int {
	n := 0
	for _, e := range plan.Entries {
		if e.Action != reconcile.ActionNone {
			n++
		}
	}
	return n
}

func objectPath(id object.Identity) string {
	return object.DBObject{Schema: id.Schema, Name: id.Name, Type: id.Type}.Path()
}
