package dialect

import (
	"database/sql"
	"fmt"

	"db-sync/internal/object"
)

type PostgresDialect struct{}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) DefaultSchema(input string) string {
	if input == "" {
		return "public"
	}
	return input
}

// ObjectQueries leans on the pg_get_*def helpers for source text and
// synthesizes table and sequence DDL from the information schema. Postgres
// has no synonyms; domains stand in for user types.
func (d *PostgresDialect) ObjectQueries() []string {
	return []string{
		// Functions and procedures.
		`SELECT n.nspname, p.proname,
			CASE p.prokind WHEN 'p' THEN 'procedure' ELSE 'function' END,
			pg_get_functiondef(p.oid)
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname = $1 AND p.prokind IN ('f', 'p')`,

		// Views.
		`SELECT schemaname, viewname, 'view',
			'CREATE OR REPLACE VIEW ' || schemaname || '.' || viewname || ' AS ' || definition
		FROM pg_views
		WHERE schemaname = $1`,

		// Triggers (user-defined only).
		`SELECT n.nspname, t.tgname, 'trigger', pg_get_triggerdef(t.oid)
		FROM pg_trigger t
		JOIN pg_class c ON c.oid = t.tgrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE NOT t.tgisinternal AND n.nspname = $1`,

		// Tables.
		`SELECT c.table_schema, c.table_name, 'table',
			'CREATE TABLE ' || c.table_schema || '.' || c.table_name || E' (\n' ||
			string_agg(
				'    ' || c.column_name || ' ' || c.data_type ||
				CASE WHEN c.character_maximum_length IS NOT NULL
					THEN '(' || c.character_maximum_length || ')' ELSE '' END ||
				CASE WHEN c.is_nullable = 'NO' THEN ' NOT NULL' ELSE '' END,
				E',\n' ORDER BY c.ordinal_position) ||
			E'\n)'
		FROM information_schema.columns c
		JOIN information_schema.tables t
			ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE c.table_schema = $1 AND t.table_type = 'BASE TABLE'
		GROUP BY c.table_schema, c.table_name`,

		// Sequences.
		`SELECT sequence_schema, sequence_name, 'sequence',
			'CREATE SEQUENCE ' || sequence_schema || '.' || sequence_name ||
			' START WITH ' || start_value || ' INCREMENT BY ' || increment
		FROM information_schema.sequences
		WHERE sequence_schema = $1`,

		// Domains, reported as user types.
		`SELECT n.nspname, t.typname, 'type',
			'CREATE DOMAIN ' || n.nspname || '.' || t.typname || ' AS ' ||
			format_type(t.typbasetype, t.typtypmod)
		FROM pg_type t
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE t.typtype = 'd' AND n.nspname = $1`,
	}
}

var postgresDropKeyword = map[object.Type]string{
	object.Table:     "TABLE",
	object.Procedure: "PROCEDURE",
	object.Trigger:   "TRIGGER",
	object.Function:  "FUNCTION",
	object.View:      "VIEW",
	object.UserType:  "DOMAIN",
	object.Sequence:  "SEQUENCE",
}

// DropStatement drops routines by bare name, which assumes they are not
// overloaded; overloaded routines need manual reconciliation.
func (d *PostgresDialect) DropStatement(obj object.DBObject) string {
	if obj.Type == object.Trigger {
		// Trigger names are scoped to a table; the recorded definition is a
		// full CREATE TRIGGER, so an OR REPLACE re-execution is not possible
		// and the guard has no table to target. Rely on CREATE failing loudly.
		return ""
	}
	return fmt.Sprintf("DROP %s IF EXISTS %s.%s", postgresDropKeyword[obj.Type], obj.Schema, obj.Name)
}

// Transactional is true: Postgres runs DDL inside transactions.
func (d *PostgresDialect) Transactional() bool { return true }

func (d *PostgresDialect) BeforeApply(tx *sql.Tx) error {
	// Deferred constraint checking lets objects land in declared order even
	// when foreign keys point forward inside one batch.
	_, err := tx.Exec("SET CONSTRAINTS ALL DEFERRED")
	return err
}

func (d *PostgresDialect) AfterApply(tx *sql.Tx) error { return nil }
