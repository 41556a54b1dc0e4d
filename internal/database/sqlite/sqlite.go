/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package sqlite reads catalog metadata from SQLite files through the
// table-valued pragma functions.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

type sqliteHandler struct{}

var (
	_ database.DialectHandler   = (*sqliteHandler)(nil)
	_ database.SQLStateProvider = (*sqliteHandler)(nil)
)

var (
	typeArgsPattern       = regexp.MustCompile(`\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\)`)
	constraintNamePattern = regexp.MustCompile("(?i)CONSTRAINT\\s+(\"[^\"]+\"|\\[[^\\]]+\\]|`[^`]+`|\\w+)\\s*$")
)

var userTables = sq.And{
	sq.Eq{"type": "table"},
	sq.NotLike{"name": "sqlite_%"},
}

func (h sqliteHandler) CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	return nil, fmt.Errorf("cloud sql is not available for sqlite")
}

// CreateStandardPool opens the file named by cfg.DBName with foreign key
// enforcement enabled.
func (h sqliteHandler) CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DBName == "" {
		return nil, fmt.Errorf("sqlite requires a database file path in dbname")
	}
	dbPool, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", cfg.DBName))
	if err != nil {
		return nil, fmt.Errorf("sql.Open (sqlite): %w", err)
	}
	return dbPool, nil
}

// SQLState returns the primary result code of a sqlite error.
func (h sqliteHandler) SQLState(err error) string {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return strconv.Itoa(int(liteErr.Code))
	}
	return ""
}

func (h sqliteHandler) TableExists(ctx context.Context, db *database.DB, tableName string) (bool, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("sqlite_master").
		Where(userTables).
		Where(sq.Eq{"name": tableName}).
		ToSql()
	if err != nil {
		return false, err
	}
	return database.QueryExists(ctx, db, query, args...)
}

func (h sqliteHandler) ListTables(ctx context.Context, db *database.DB) ([]string, error) {
	query, args, err := sq.Select("name").
		From("sqlite_master").
		Where(userTables).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, err
	}
	return database.QueryStrings(ctx, db, query, args...)
}

const columnsQuery = `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`

// ListColumns reports the declared type verbatim. Length, precision and
// scale are read from the declaration's arguments. Primary key columns are
// never reported as nullable.
func (h sqliteHandler) ListColumns(ctx context.Context, db *database.DB, tableName string) ([]schema.Column, error) {
	rows, err := db.Pool.QueryContext(ctx, columnsQuery, tableName)
	if err != nil {
		return nil, fmt.Errorf("error querying columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var (
			col         schema.Column
			notNull, pk int
			def         sql.NullString
		)
		if err := rows.Scan(&col.Name, &col.DataType, &notNull, &def, &pk); err != nil {
			return nil, fmt.Errorf("error scanning column: %w", err)
		}
		col.IsNullable = notNull == 0 && pk == 0
		col.Default = database.StringPtr(def)
		applyTypeArgs(&col)
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	return columns, nil
}

func applyTypeArgs(col *schema.Column) {
	m := typeArgsPattern.FindStringSubmatch(col.DataType)
	if m == nil {
		return
	}
	first, _ := strconv.ParseInt(m[1], 10, 64)
	switch base := schema.NormalizeType(col.DataType); {
	case base == "decimal" || base == "numeric":
		col.NumericPrecision = &first
		if m[2] != "" {
			second, _ := strconv.ParseInt(m[2], 10, 64)
			col.NumericScale = &second
		}
	case strings.Contains(base, "char"):
		col.CharMaxLength = &first
	}
}

const primaryKeysQuery = `SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk`

func (h sqliteHandler) ListPrimaryKeys(ctx context.Context, db *database.DB, tableName string) ([]string, error) {
	return database.QueryStrings(ctx, db, primaryKeysQuery, tableName)
}

const foreignKeysQuery = `SELECT id, "table", "from", "to", on_update, on_delete FROM pragma_foreign_key_list(?) ORDER BY id, seq`

// ListForeignKeys names each constraint fk_<table>_<id>; SQLite keeps no
// constraint names in the catalog. A reference without a target column
// points at the referenced table's primary key.
func (h sqliteHandler) ListForeignKeys(ctx context.Context, db *database.DB, tableName string) ([]schema.ForeignKeyRef, error) {
	rows, err := db.Pool.QueryContext(ctx, foreignKeysQuery, tableName)
	if err != nil {
		return nil, fmt.Errorf("error querying foreign keys: %w", err)
	}

	var fks []schema.ForeignKeyRef
	for rows.Next() {
		var (
			id int
			fk schema.ForeignKeyRef
			to sql.NullString
		)
		if err := rows.Scan(&id, &fk.ReferencedTable, &fk.Column, &to, &fk.UpdateRule, &fk.DeleteRule); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning foreign key: %w", err)
		}
		fk.ReferencedColumn = to.String
		fk.ConstraintName = fmt.Sprintf("fk_%s_%d", tableName, id)
		fk.DeleteRule = database.NormalizeRule(fk.DeleteRule)
		fk.UpdateRule = database.NormalizeRule(fk.UpdateRule)
		fks = append(fks, fk)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("error iterating foreign keys: %w", err)
	}

	// Resolved after the cursor is closed so a single-connection pool
	// is not held twice.
	for i := range fks {
		if fks[i].ReferencedColumn != "" {
			continue
		}
		keys, err := h.ListPrimaryKeys(ctx, db, fks[i].ReferencedTable)
		if err != nil {
			return nil, err
		}
		if len(keys) > 0 {
			fks[i].ReferencedColumn = keys[0]
		}
	}
	return fks, nil
}

// ListEnumColumns returns an empty map: SQLite has no enumerated types.
func (h sqliteHandler) ListEnumColumns(ctx context.Context, db *database.DB, tableName string) (map[string][]string, error) {
	return map[string][]string{}, nil
}

// ListCheckConstraints parses CHECK clauses out of the table's CREATE
// statement. Unnamed checks are numbered in declaration order.
func (h sqliteHandler) ListCheckConstraints(ctx context.Context, db *database.DB, tableName string) ([]database.CheckConstraint, error) {
	query, args, err := sq.Select("sql").
		From("sqlite_master").
		Where(userTables).
		Where(sq.Eq{"name": tableName}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var ddl sql.NullString
	if err := db.Pool.QueryRowContext(ctx, query, args...).Scan(&ddl); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading table definition: %w", err)
	}
	return parseCheckConstraints(tableName, ddl.String), nil
}

func parseCheckConstraints(tableName, ddl string) []database.CheckConstraint {
	var checks []database.CheckConstraint
	upper := strings.ToUpper(ddl)
	for i := 0; i < len(ddl); {
		switch ddl[i] {
		case '\'', '"', '`':
			i = skipQuoted(ddl, i)
			continue
		case '[':
			if end := strings.IndexByte(ddl[i:], ']'); end >= 0 {
				i += end + 1
				continue
			}
		}
		if !strings.HasPrefix(upper[i:], "CHECK") || !wordBoundary(ddl, i, i+len("CHECK")) {
			i++
			continue
		}
		open := i + len("CHECK")
		for open < len(ddl) && (ddl[open] == ' ' || ddl[open] == '\t' || ddl[open] == '\n' || ddl[open] == '\r') {
			open++
		}
		if open >= len(ddl) || ddl[open] != '(' {
			i = open
			continue
		}
		closeAt := matchParen(ddl, open)
		if closeAt < 0 {
			break
		}
		name := fmt.Sprintf("%s_check_%d", tableName, len(checks)+1)
		if m := constraintNamePattern.FindStringSubmatch(ddl[:i]); m != nil {
			name = strings.Trim(m[1], "\"[]`")
		}
		checks = append(checks, database.CheckConstraint{
			Name:   name,
			Clause: "CHECK " + ddl[open:closeAt+1],
		})
		i = closeAt + 1
	}
	return checks
}

func wordBoundary(s string, start, end int) bool {
	isWord := func(b byte) bool {
		return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
	}
	if start > 0 && isWord(s[start-1]) {
		return false
	}
	return end >= len(s) || !isWord(s[end])
}

// skipQuoted returns the index just past the quoted run starting at i.
// A doubled quote character is an escaped quote.
func skipQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); {
		switch s[i] {
		case '\'', '"', '`':
			i = skipQuoted(s, i)
			continue
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
		i++
	}
	return -1
}

const uniqueConstraintsQuery = `
	SELECT il.name, ii.name
	FROM pragma_index_list(?) il
	JOIN pragma_index_info(il.name) ii
	WHERE il."unique" = 1
	AND il.origin <> 'pk'
	ORDER BY il.name, ii.seqno`

func (h sqliteHandler) ListUniqueConstraints(ctx context.Context, db *database.DB, tableName string) ([]database.UniqueConstraint, error) {
	return database.QueryUniqueConstraints(ctx, db, uniqueConstraintsQuery, tableName)
}

const referencingForeignKeysQuery = `
	SELECT m.name, fk."from", fk.on_delete
	FROM sqlite_master m
	JOIN pragma_foreign_key_list(m.name) fk
	WHERE m.type = 'table'
	AND fk."table" = ? COLLATE NOCASE
	ORDER BY m.name, fk."from"`

func (h sqliteHandler) ListReferencingForeignKeys(ctx context.Context, db *database.DB, tableName string) ([]schema.InboundReference, error) {
	rows, err := db.Pool.QueryContext(ctx, referencingForeignKeysQuery, tableName)
	if err != nil {
		return nil, fmt.Errorf("error querying referencing foreign keys: %w", err)
	}
	defer rows.Close()

	var refs []schema.InboundReference
	for rows.Next() {
		var ref schema.InboundReference
		if err := rows.Scan(&ref.Table, &ref.Field, &ref.DeleteRule); err != nil {
			return nil, fmt.Errorf("error scanning referencing foreign key: %w", err)
		}
		ref.DeleteRule = database.NormalizeRule(ref.DeleteRule)
		ref.Cascade = database.IsCascade(ref.DeleteRule)
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referencing foreign keys: %w", err)
	}
	return refs, nil
}

func init() {
	database.RegisterDialectHandler("sqlite", sqliteHandler{})
}
