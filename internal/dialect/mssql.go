package dialect

import (
	"database/sql"
	"fmt"

	"db-sync/internal/object"
)

type MSSQLDialect struct{}

func (d *MSSQLDialect) Name() string { return "mssql" }

func (d *MSSQLDialect) DefaultSchema(input string) string {
	if input == "" {
		return "dbo"
	}
	return input
}

// ObjectQueries covers the eight managed kinds. Programmable objects come
// straight out of sys.sql_modules; tables, synonyms, sequences and user types
// have no stored source text, so their definitions are synthesized from the
// catalog views.
func (d *MSSQLDialect) ObjectQueries() []string {
	return []string{
		// Procedures, views, functions, triggers: stored source text.
		`SELECT s.name, o.name,
			CASE o.type
				WHEN 'P' THEN 'procedure'
				WHEN 'V' THEN 'view'
				WHEN 'TR' THEN 'trigger'
				ELSE 'function'
			END,
			m.definition
		FROM sys.sql_modules m
		JOIN sys.objects o ON o.object_id = m.object_id
		JOIN sys.schemas s ON s.schema_id = o.schema_id
		WHERE s.name = @p1 AND o.type IN ('P', 'V', 'TR', 'FN', 'IF', 'TF')`,

		// Tables: synthesize CREATE TABLE from sys.columns.
		`SELECT s.name, t.name, 'table',
			'CREATE TABLE [' + s.name + '].[' + t.name + '] (' + CHAR(10) + cols.body + CHAR(10) + ')'
		FROM sys.tables t
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		CROSS APPLY (
			SELECT STRING_AGG(CAST(
				'    [' + c.name + '] ' + UPPER(ty.name) +
				CASE WHEN ty.name IN ('varchar', 'nvarchar', 'char', 'nchar', 'varbinary') THEN
					'(' + CASE WHEN c.max_length = -1 THEN 'MAX' ELSE CAST(c.max_length AS VARCHAR(10)) END + ')'
				WHEN ty.name IN ('decimal', 'numeric') THEN
					'(' + CAST(c.precision AS VARCHAR(10)) + ',' + CAST(c.scale AS VARCHAR(10)) + ')'
				ELSE '' END +
				CASE WHEN c.is_identity = 1 THEN ' IDENTITY(1,1)' ELSE '' END +
				CASE WHEN c.is_nullable = 0 THEN ' NOT NULL' ELSE ' NULL' END
				AS NVARCHAR(MAX)), ',' + CHAR(10))
				WITHIN GROUP (ORDER BY c.column_id) AS body
			FROM sys.columns c
			JOIN sys.types ty ON ty.user_type_id = c.user_type_id
			WHERE c.object_id = t.object_id
		) cols
		WHERE s.name = @p1`,

		// Synonyms.
		`SELECT s.name, sy.name, 'synonym',
			'CREATE SYNONYM [' + s.name + '].[' + sy.name + '] FOR ' + sy.base_object_name
		FROM sys.synonyms sy
		JOIN sys.schemas s ON s.schema_id = sy.schema_id
		WHERE s.name = @p1`,

		// Sequences.
		`SELECT s.name, sq.name, 'sequence',
			'CREATE SEQUENCE [' + s.name + '].[' + sq.name + ']' +
			' START WITH ' + CAST(sq.start_value AS VARCHAR(40)) +
			' INCREMENT BY ' + CAST(sq.increment AS VARCHAR(40))
		FROM sys.sequences sq
		JOIN sys.schemas s ON s.schema_id = sq.schema_id
		WHERE s.name = @p1`,

		// User-defined alias types.
		`SELECT s.name, ut.name, 'type',
			'CREATE TYPE [' + s.name + '].[' + ut.name + '] FROM ' + UPPER(bt.name) +
			CASE WHEN bt.name IN ('varchar', 'nvarchar', 'char', 'nchar', 'varbinary') THEN
				'(' + CASE WHEN ut.max_length = -1 THEN 'MAX' ELSE CAST(ut.max_length AS VARCHAR(10)) END + ')'
			WHEN bt.name IN ('decimal', 'numeric') THEN
				'(' + CAST(ut.precision AS VARCHAR(10)) + ',' + CAST(ut.scale AS VARCHAR(10)) + ')'
			ELSE '' END +
			CASE WHEN ut.is_nullable = 0 THEN ' NOT NULL' ELSE '' END
		FROM sys.types ut
		JOIN sys.types bt ON bt.user_type_id = ut.system_type_id AND bt.is_user_defined = 0
		JOIN sys.schemas s ON s.schema_id = ut.schema_id
		WHERE ut.is_user_defined = 1 AND s.name = @p1`,
	}
}

var mssqlDropKeyword = map[object.Type]string{
	object.Table:     "TABLE",
	object.Procedure: "PROCEDURE",
	object.Trigger:   "TRIGGER",
	object.Function:  "FUNCTION",
	object.View:      "VIEW",
	object.UserType:  "TYPE",
	object.Synonym:   "SYNONYM",
	object.Sequence:  "SEQUENCE",
}

func (d *MSSQLDialect) DropStatement(obj object.DBObject) string {
	return fmt.Sprintf("DROP %s IF EXISTS [%s].[%s]", mssqlDropKeyword[obj.Type], obj.Schema, obj.Name)
}

// Transactional is true: SQL Server runs DDL inside transactions.
func (d *MSSQLDialect) Transactional() bool { return true }

func (d *MSSQLDialect) BeforeApply(tx *sql.Tx) error { return nil }

func (d *MSSQLDialect) AfterApply(tx *sql.Tx) error { return nil }
