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
package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

const libraryDDL = `
CREATE TABLE authors (
	id INTEGER PRIMARY KEY,
	name VARCHAR(120) NOT NULL,
	email TEXT UNIQUE,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE books (
	id INTEGER PRIMARY KEY,
	author_id INTEGER NOT NULL REFERENCES authors ON DELETE CASCADE,
	editor_id INTEGER REFERENCES authors(id) ON DELETE SET NULL,
	title TEXT NOT NULL,
	price DECIMAL(10,2),
	status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'published', 'it''s (odd)')),
	isbn CHAR(13),
	CONSTRAINT books_price_positive CHECK (price > 0),
	UNIQUE (author_id, title)
);
`

func newSQLiteDB(t *testing.T) (*database.DB, *sqliteHandler) {
	t.Helper()
	handler := sqliteHandler{}
	cfg := config.DatabaseConfig{Dialect: "sqlite", DBName: filepath.Join(t.TempDir(), "library.db")}
	pool, err := handler.CreateStandardPool(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	_, err = pool.Exec(libraryDDL)
	require.NoError(t, err)
	return &database.DB{Pool: pool, Handler: &handler, Config: cfg}, &handler
}

func TestSQLiteTables(t *testing.T) {
	db, handler := newSQLiteDB(t)
	ctx := context.Background()

	tables, err := handler.ListTables(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"authors", "books"}, tables)

	ok, err := handler.TableExists(ctx, db, "books")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = handler.TableExists(ctx, db, "ghosts")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteListColumns(t *testing.T) {
	db, handler := newSQLiteDB(t)

	cols, err := handler.ListColumns(context.Background(), db, "books")
	require.NoError(t, err)
	require.Len(t, cols, 7)

	byName := map[string]schema.Column{}
	for _, c := range cols {
		byName[c.Name] = c
	}
	assert.False(t, byName["id"].IsNullable)
	assert.False(t, byName["title"].IsNullable)
	assert.True(t, byName["editor_id"].IsNullable)

	require.NotNil(t, byName["price"].NumericPrecision)
	assert.Equal(t, int64(10), *byName["price"].NumericPrecision)
	assert.Equal(t, int64(2), *byName["price"].NumericScale)

	require.NotNil(t, byName["isbn"].CharMaxLength)
	assert.Equal(t, int64(13), *byName["isbn"].CharMaxLength)

	require.NotNil(t, byName["status"].Default)
	assert.Equal(t, "'draft'", *byName["status"].Default)
	assert.Nil(t, byName["title"].Default)
}

func TestSQLiteKeys(t *testing.T) {
	db, handler := newSQLiteDB(t)
	ctx := context.Background()

	pks, err := handler.ListPrimaryKeys(ctx, db, "books")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, pks)

	fks, err := handler.ListForeignKeys(ctx, db, "books")
	require.NoError(t, err)
	require.Len(t, fks, 2)

	byColumn := map[string]schema.ForeignKeyRef{}
	for _, fk := range fks {
		byColumn[fk.Column] = fk
	}
	author := byColumn["author_id"]
	assert.Equal(t, "authors", author.ReferencedTable)
	assert.Equal(t, "id", author.ReferencedColumn, "implicit target resolves to the primary key")
	assert.Equal(t, "CASCADE", author.DeleteRule)
	assert.Contains(t, author.ConstraintName, "fk_books_")

	editor := byColumn["editor_id"]
	assert.Equal(t, "id", editor.ReferencedColumn)
	assert.Equal(t, "SET NULL", editor.DeleteRule)
}

func TestSQLiteListReferencingForeignKeys(t *testing.T) {
	db, handler := newSQLiteDB(t)

	refs, err := handler.ListReferencingForeignKeys(context.Background(), db, "authors")
	require.NoError(t, err)
	want := []schema.InboundReference{
		{Table: "books", Field: "author_id", Cascade: true, DeleteRule: "CASCADE"},
		{Table: "books", Field: "editor_id", Cascade: false, DeleteRule: "SET NULL"},
	}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Errorf("ListReferencingForeignKeys() mismatch (-want +got):\n%s", diff)
	}

	refs, err = handler.ListReferencingForeignKeys(context.Background(), db, "books")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestSQLiteListUniqueConstraints(t *testing.T) {
	db, handler := newSQLiteDB(t)
	ctx := context.Background()

	uniques, err := handler.ListUniqueConstraints(ctx, db, "books")
	require.NoError(t, err)
	require.Len(t, uniques, 1)
	assert.Equal(t, []string{"author_id", "title"}, uniques[0].Columns)

	uniques, err = handler.ListUniqueConstraints(ctx, db, "authors")
	require.NoError(t, err)
	require.Len(t, uniques, 1)
	assert.Equal(t, []string{"email"}, uniques[0].Columns)
}

func TestSQLiteListCheckConstraints(t *testing.T) {
	db, handler := newSQLiteDB(t)
	ctx := context.Background()

	checks, err := handler.ListCheckConstraints(ctx, db, "books")
	require.NoError(t, err)
	want := []database.CheckConstraint{
		{Name: "books_check_1", Clause: "CHECK (status IN ('draft', 'published', 'it''s (odd)'))"},
		{Name: "books_price_positive", Clause: "CHECK (price > 0)"},
	}
	if diff := cmp.Diff(want, checks); diff != "" {
		t.Errorf("ListCheckConstraints() mismatch (-want +got):\n%s", diff)
	}

	checks, err = handler.ListCheckConstraints(ctx, db, "missing")
	require.NoError(t, err)
	assert.Empty(t, checks)
}

func TestSQLiteListEnumColumns(t *testing.T) {
	db, handler := newSQLiteDB(t)
	enums, err := handler.ListEnumColumns(context.Background(), db, "books")
	require.NoError(t, err)
	assert.NotNil(t, enums)
	assert.Empty(t, enums)
}

func TestParseCheckConstraintsIgnoresQuotedKeyword(t *testing.T) {
	ddl := `CREATE TABLE t (note TEXT DEFAULT 'CHECK (x)', "check" INT, n INT CHECK(n >= 0))`
	got := parseCheckConstraints("t", ddl)
	assert.Equal(t, []database.CheckConstraint{{Name: "t_check_1", Clause: "CHECK (n >= 0)"}}, got)
}

func TestSQLiteSQLState(t *testing.T) {
	handler := sqliteHandler{}
	assert.Equal(t, "1", handler.SQLState(sqlite3.Error{Code: sqlite3.ErrError}))
	assert.Equal(t, "", handler.SQLState(errors.New("x")))
}

func TestSQLiteCloudSQLUnsupported(t *testing.T) {
	_, err := sqliteHandler{}.CreateCloudSQLPool(config.DatabaseConfig{})
	assert.Error(t, err)
	_, err = sqliteHandler{}.CreateStandardPool(config.DatabaseConfig{})
	assert.Error(t, err)
}
