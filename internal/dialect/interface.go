package dialect

import (
	"database/sql"

	"db-sync/internal/object"
)

// Dialect abstracts database-specific introspection and DDL application.
type Dialect interface {
	Name() string

	// DefaultSchema resolves the schema to introspect when the configuration
	// leaves it empty.
	DefaultSchema(input string) string

	// ObjectQueries returns the introspection queries for this engine. Every
	// query takes the schema name as its single bind parameter and yields rows
	// of (schema_name, object_name, type_token, definition); engines that
	// cannot hand back stored source text synthesize the definition in SQL.
	ObjectQueries() []string

	// DropStatement returns a guard that removes obj if it already exists, so
	// the object's definition executes on a clean slate.
	DropStatement(obj object.DBObject) string

	// Transactional reports whether DDL on this engine participates in the
	// surrounding transaction. Engines that commit every DDL statement
	// implicitly cannot roll back a partially applied batch.
	Transactional() bool

	// Batch hooks around an apply transaction, for engines that need
	// constraint toggling while objects are created in the declared order.
	BeforeApply(tx *sql.Tx) error
	AfterApply(tx *sql.Tx) error
}
