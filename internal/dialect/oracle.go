package dialect

import (
	"database/sql"
	"fmt"

	"db-sync/internal/object"
)

type OracleDialect struct{}

func (d *OracleDialect) Name() string { return "oracle" }

// DefaultSchema returns the input unchanged. The USER_ views scope everything
// to the connected account, so the queries only consume the bind as a dummy.
func (d *OracleDialect) DefaultSchema(input string) string {
	return input
}

// ObjectQueries asks DBMS_METADATA for DDL wherever Oracle stores it and
// synthesizes the rest. Each query carries a dummy :1 clause so the standard
// single-bind call shape still works.
func (d *OracleDialect) ObjectQueries() []string {
	return []string{
		// Procedures, functions, triggers, views.
		`SELECT USER, object_name, LOWER(object_type),
			DBMS_METADATA.GET_DDL(object_type, object_name)
		FROM user_objects
		WHERE object_type IN ('PROCEDURE', 'FUNCTION', 'TRIGGER', 'VIEW')
			AND :1 IS NOT NULL`,

		// Tables.
		`SELECT USER, table_name, 'table',
			DBMS_METADATA.GET_DDL('TABLE', table_name)
		FROM user_tables
		WHERE :1 IS NOT NULL`,

		// Sequences.
		`SELECT USER, sequence_name, 'sequence',
			DBMS_METADATA.GET_DDL('SEQUENCE', sequence_name)
		FROM user_sequences
		WHERE :1 IS NOT NULL`,

		// Synonyms.
		`SELECT USER, synonym_name, 'synonym',
			'CREATE SYNONYM ' || synonym_name || ' FOR ' || table_owner || '.' || table_name
		FROM user_synonyms
		WHERE :1 IS NOT NULL`,

		// Object types.
		`SELECT USER, type_name, 'type',
			DBMS_METADATA.GET_DDL('TYPE', type_name)
		FROM user_types
		WHERE :1 IS NOT NULL`,
	}
}

var oracleDropKeyword = map[object.Type]string{
	object.Table:     "TABLE",
	object.Procedure: "PROCEDURE",
	object.Trigger:   "TRIGGER",
	object.Function:  "FUNCTION",
	object.View:      "VIEW",
	object.UserType:  "TYPE",
	object.Synonym:   "SYNONYM",
	object.Sequence:  "SEQUENCE",
}

// DropStatement wraps the drop in a PL/SQL block because Oracle has no
// DROP ... IF EXISTS; ORA-04043 and friends are swallowed, everything else
// propagates.
func (d *OracleDialect) DropStatement(obj object.DBObject) string {
	return fmt.Sprintf(
		`BEGIN
	EXECUTE IMMEDIATE 'DROP %s "%s"';
EXCEPTION
	WHEN OTHERS THEN
		IF SQLCODE NOT IN (-942, -4043, -2289, -1434) THEN
			RAISE;
		END IF;
END;`, oracleDropKeyword[obj.Type], obj.Name)
}

// Transactional is false: Oracle commits implicitly before and after every
// DDL statement, so a partially applied batch cannot be rolled back.
func (d *OracleDialect) Transactional() bool { return false }

func (d *OracleDialect) BeforeApply(tx *sql.Tx) error { return nil }

func (d *OracleDialect) AfterApply(tx *sql.Tx) error { return nil }
