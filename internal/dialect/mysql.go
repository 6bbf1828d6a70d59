package dialect

import (
	"database/sql"
	"fmt"

	"db-sync/internal/object"
)

type MysqlDialect struct{}

func (d *MysqlDialect) Name() string { return "mysql" }

// DefaultSchema keeps the configured value; the queries fall back to
// DATABASE() when it is empty, so the DSN's selected database wins.
func (d *MysqlDialect) DefaultSchema(input string) string {
	return input
}

// ObjectQueries reads routines, views and triggers from the information
// schema and synthesizes table DDL from COLUMNS. MySQL has no sequences,
// synonyms or user-defined types.
func (d *MysqlDialect) ObjectQueries() []string {
	return []string{
		// Procedures and functions. The parameter list is not part of
		// ROUTINE_DEFINITION; bodies are compared as recorded.
		`SELECT ROUTINE_SCHEMA, ROUTINE_NAME, LOWER(ROUTINE_TYPE),
			CONCAT('CREATE ', ROUTINE_TYPE, ' ` + "`" + `', ROUTINE_NAME, '` + "`" + `()\n', ROUTINE_DEFINITION)
		FROM information_schema.ROUTINES
		WHERE ROUTINE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())`,

		// Views.
		`SELECT TABLE_SCHEMA, TABLE_NAME, 'view',
			CONCAT('CREATE VIEW ` + "`" + `', TABLE_NAME, '` + "`" + ` AS ', VIEW_DEFINITION)
		FROM information_schema.VIEWS
		WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())`,

		// Triggers.
		`SELECT TRIGGER_SCHEMA, TRIGGER_NAME, 'trigger',
			CONCAT('CREATE TRIGGER ` + "`" + `', TRIGGER_NAME, '` + "`" + ` ',
				ACTION_TIMING, ' ', EVENT_MANIPULATION,
				' ON ` + "`" + `', EVENT_OBJECT_TABLE, '` + "`" + ` FOR EACH ROW ', ACTION_STATEMENT)
		FROM information_schema.TRIGGERS
		WHERE TRIGGER_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())`,

		// Tables.
		`SELECT c.TABLE_SCHEMA, c.TABLE_NAME, 'table',
			CONCAT('CREATE TABLE ` + "`" + `', c.TABLE_NAME, '` + "`" + ` (\n',
				GROUP_CONCAT(
					CONCAT('    ` + "`" + `', c.COLUMN_NAME, '` + "`" + ` ', c.COLUMN_TYPE,
						IF(c.IS_NULLABLE = 'NO', ' NOT NULL', ''))
					ORDER BY c.ORDINAL_POSITION SEPARATOR ',\n'),
				'\n)')
		FROM information_schema.COLUMNS c
		JOIN information_schema.TABLES t
			ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
		WHERE c.TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
			AND t.TABLE_TYPE = 'BASE TABLE'
		GROUP BY c.TABLE_SCHEMA, c.TABLE_NAME`,
	}
}

var mysqlDropKeyword = map[object.Type]string{
	object.Table:     "TABLE",
	object.Procedure: "PROCEDURE",
	object.Trigger:   "TRIGGER",
	object.Function:  "FUNCTION",
	object.View:      "VIEW",
}

func (d *MysqlDialect) DropStatement(obj object.DBObject) string {
	kw, ok := mysqlDropKeyword[obj.Type]
	if !ok {
		return ""
	}
	return fmt.Sprintf("DROP %s IF EXISTS `%s`", kw, obj.Name)
}

// Transactional is false: MySQL commits implicitly on every DDL statement,
// so a partially applied batch cannot be rolled back.
func (d *MysqlDialect) Transactional() bool { return false }

func (d *MysqlDialect) BeforeApply(tx *sql.Tx) error {
	_, err := tx.Exec("SET FOREIGN_KEY_CHECKS = 0")
	return err
}

func (d *MysqlDialect) AfterApply(tx *sql.Tx) error {
	_, err := tx.Exec("SET FOREIGN_KEY_CHECKS = 1")
	return err
}
