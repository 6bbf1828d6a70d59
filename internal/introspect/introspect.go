// Package introspect implements the database introspector over database/sql,
// with engine differences delegated to the dialect layer.
package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"db-sync/internal/dialect"
	"db-sync/internal/object"
	"db-sync/internal/registry"
	"db-sync/internal/syncer"
)

// SQL reads and writes schema objects through database/sql connections built
// fresh per invocation; nothing is cached across syncs.
type SQL struct {
	registry *registry.Registry
	logger   *zap.Logger
}

var _ syncer.Introspector = (*SQL)(nil)

func New(reg *registry.Registry, logger *zap.Logger) *SQL {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQL{registry: reg, logger: logger}
}

func (s *SQL) open(ctx context.Context, dbName string) (*sql.DB, dialect.Dialect, registry.Database, error) {
	// Introspection only runs inside a routed call, so the per-database
	// serialization guarantee cannot be bypassed.
	if active, ok := registry.ActiveDatabase(ctx); !ok || active != dbName {
		return nil, nil, registry.Database{}, fmt.Errorf("database %s is not the active database for this call", dbName)
	}

	cfg, ok := s.registry.Lookup(dbName)
	if !ok {
		return nil, nil, registry.Database{}, &registry.UnknownDatabaseError{Database: dbName}
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, registry.Database{}, fmt.Errorf("failed to open %s: %w", dbName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, registry.Database{}, fmt.Errorf("failed to connect to %s: %w", dbName, err)
	}

	return db, dialect.ForDriver(cfg.Driver), cfg, nil
}

// ListObjects returns one snapshot of the database's owned schema surface.
// Definitions come back as the engine stores or synthesizes them; the
// reconciliation layer owns normalization.
func (s *SQL) ListObjects(ctx context.Context, dbName string) ([]object.DBObject, error) {
	db, d, cfg, err := s.open(ctx, dbName)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	target := d.DefaultSchema(cfg.Schema)

	var objs []object.DBObject
	for _, query := range d.ObjectQueries() {
		rows, err := db.QueryContext(ctx, query, target)
		if err != nil {
			return nil, fmt.Errorf("failed to query objects in %s: %w", dbName, err)
		}

		for rows.Next() {
			var schema, name, token, definition sql.NullString
			if err := rows.Scan(&schema, &name, &token, &definition); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan object row (db: %s): %w", dbName, err)
			}
			if !schema.Valid || !name.Valid || !token.Valid {
				continue
			}

			typ, ok := object.ParseType(token.String)
			if !ok {
				s.logger.Warn("skipping object of unknown type",
					zap.String("database", dbName),
					zap.String("name", name.String),
					zap.String("type", token.String))
				continue
			}

			objs = append(objs, object.DBObject{
				Schema:     schema.String,
				Name:       name.String,
				Type:       typ,
				Definition: definition.String,
			})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error iterating objects in %s: %w", dbName, err)
		}
		rows.Close()
	}

	s.logger.Debug("introspected database",
		zap.String("database", dbName),
		zap.String("schema", target),
		zap.Int("objects", len(objs)))

	return objs, nil
}

// ApplyObjects executes each object's drop guard and definition inside one
// transaction. On engines whose DDL is transactional (mssql, postgres) the
// batch is all-or-nothing; mysql and oracle commit every DDL statement
// implicitly, so a mid-batch failure there leaves the earlier objects
// applied, which the returned outcomes and error record. The caller supplies
// objects already in the declared dependency-safe order.
func (s *SQL) ApplyObjects(ctx context.Context, dbName string, objs []object.DBObject, onProgress func()) ([]syncer.Outcome, error) {
	db, d, _, err := s.open(ctx, dbName)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction on %s: %w", dbName, err)
	}

	if err := d.BeforeApply(tx); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("before-apply hook failed on %s: %w", dbName, err)
	}

	outcomes := make([]syncer.Outcome, 0, len(objs))
	for _, obj := range objs {
		if onProgress != nil {
			onProgress()
		}

		if err := s.applyOne(ctx, tx, d, obj); err != nil {
			outcomes = append(outcomes, syncer.Outcome{Identity: obj.Identity(), Err: err.Error()})
			tx.Rollback()
			if !d.Transactional() {
				return outcomes, fmt.Errorf("failed to apply %s on %s, earlier objects stay applied because the engine commits DDL implicitly: %w", obj.Identity(), dbName, err)
			}
			return outcomes, fmt.Errorf("failed to apply %s on %s: %w", obj.Identity(), dbName, err)
		}
		outcomes = append(outcomes, syncer.Outcome{Identity: obj.Identity(), Applied: true})
	}

	if err := d.AfterApply(tx); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("after-apply hook failed on %s: %w", dbName, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit apply batch on %s: %w", dbName, err)
	}

	s.logger.Info("applied objects",
		zap.String("database", dbName),
		zap.Int("count", len(outcomes)))

	return outcomes, nil
}

func (s *SQL) applyOne(ctx context.Context, tx *sql.Tx, d dialect.Dialect, obj object.DBObject) error {
	if drop := d.DropStatement(obj); drop != "" {
		if _, err := tx.ExecContext(ctx, drop); err != nil {
			return fmt.Errorf("drop guard failed: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, obj.Definition); err != nil {
		return fmt.Errorf("definition failed: %w", err)
	}
	return nil
}
