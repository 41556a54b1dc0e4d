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
package enricher

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/genai"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

// MockCatalog is a testify mock of database.Catalog.
type MockCatalog struct {
	mock.Mock
}

var _ database.Catalog = (*MockCatalog)(nil)

func (m *MockCatalog) TableExists(ctx context.Context, tableName string) (bool, error) {
	args := m.Called(ctx, tableName)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalog) ListTables(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	tables, _ := args.Get(0).([]string)
	return tables, args.Error(1)
}

func (m *MockCatalog) ListColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	args := m.Called(ctx, tableName)
	cols, _ := args.Get(0).([]schema.Column)
	return cols, args.Error(1)
}

func (m *MockCatalog) ListPrimaryKeys(ctx context.Context, tableName string) ([]string, error) {
	args := m.Called(ctx, tableName)
	pks, _ := args.Get(0).([]string)
	return pks, args.Error(1)
}

func (m *MockCatalog) ListForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKeyRef, error) {
	args := m.Called(ctx, tableName)
	fks, _ := args.Get(0).([]schema.ForeignKeyRef)
	return fks, args.Error(1)
}

func (m *MockCatalog) ListEnumColumns(ctx context.Context, tableName string) (map[string][]string, error) {
	args := m.Called(ctx, tableName)
	enums, _ := args.Get(0).(map[string][]string)
	return enums, args.Error(1)
}

func (m *MockCatalog) ListCheckConstraints(ctx context.Context, tableName string) ([]database.CheckConstraint, error) {
	args := m.Called(ctx, tableName)
	checks, _ := args.Get(0).([]database.CheckConstraint)
	return checks, args.Error(1)
}

func (m *MockCatalog) ListUniqueConstraints(ctx context.Context, tableName string) ([]database.UniqueConstraint, error) {
	args := m.Called(ctx, tableName)
	uniques, _ := args.Get(0).([]database.UniqueConstraint)
	return uniques, args.Error(1)
}

func (m *MockCatalog) ListReferencingForeignKeys(ctx context.Context, tableName string) ([]schema.InboundReference, error) {
	args := m.Called(ctx, tableName)
	refs, _ := args.Get(0).([]schema.InboundReference)
	return refs, args.Error(1)
}

// MockLLMClient is a testify mock of genai.LLMClient.
type MockLLMClient struct {
	mock.Mock
}

var _ genai.LLMClient = (*MockLLMClient)(nil)

func (m *MockLLMClient) GenerateFieldDescription(ctx context.Context, field genai.FieldInfo, knowledgeContext string) (string, error) {
	args := m.Called(ctx, field, knowledgeContext)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) IsAPIKeyValid(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockLLMClient) Close() error {
	return m.Called().Error(0)
}

// fakeTable is the catalog content served for one table.
type fakeTable struct {
	columns []schema.Column
	pks     []string
	fks     []schema.ForeignKeyRef
	enums   map[string][]string
	checks  []database.CheckConstraint
	uniques []database.UniqueConstraint
	refs    []schema.InboundReference
}

// expectTable registers every catalog call for name. Calls are optional so
// tests can share fixtures regardless of which tables get expanded.
func expectTable(m *MockCatalog, name string, t fakeTable) {
	m.On("TableExists", mock.Anything, name).Return(true, nil).Maybe()
	m.On("ListColumns", mock.Anything, name).Return(t.columns, nil).Maybe()
	m.On("ListPrimaryKeys", mock.Anything, name).Return(t.pks, nil).Maybe()
	m.On("ListForeignKeys", mock.Anything, name).Return(t.fks, nil).Maybe()
	m.On("ListEnumColumns", mock.Anything, name).Return(t.enums, nil).Maybe()
	m.On("ListCheckConstraints", mock.Anything, name).Return(t.checks, nil).Maybe()
	m.On("ListUniqueConstraints", mock.Anything, name).Return(t.uniques, nil).Maybe()
	m.On("ListReferencingForeignKeys", mock.Anything, name).Return(t.refs, nil).Maybe()
}

func expectMissingTable(m *MockCatalog, name string) {
	m.On("TableExists", mock.Anything, name).Return(false, nil).Maybe()
}

func int64Ptr(v int64) *int64 { return &v }

func col(name, dataType string, nullable bool) schema.Column {
	return schema.Column{Name: name, DataType: dataType, IsNullable: nullable}
}

var authorsTable = fakeTable{
	columns: []schema.Column{
		col("id", "integer", false),
		col("name", "character varying", false),
		col("email", "character varying", false),
		col("bio", "text", true),
		col("created_at", "timestamp without time zone", false),
	},
	pks:     []string{"id"},
	uniques: []database.UniqueConstraint{{Name: "authors_email_key", Columns: []string{"email"}}},
	refs:    []schema.InboundReference{{Table: "books", Field: "author_id", DeleteRule: "NO ACTION"}},
}

func booksTable() fakeTable {
	price := col("price", "numeric", false)
	price.NumericPrecision = int64Ptr(10)
	price.NumericScale = int64Ptr(2)
	return fakeTable{
		columns: []schema.Column{
			col("id", "integer", false),
			col("title", "character varying", false),
			col("author_id", "integer", false),
			price,
			col("status", "character varying", false),
		},
		pks: []string{"id"},
		fks: []schema.ForeignKeyRef{{
			Column:           "author_id",
			ReferencedTable:  "authors",
			ReferencedColumn: "id",
			ConstraintName:   "books_author_id_fkey",
			DeleteRule:       "CASCADE",
			UpdateRule:       "NO ACTION",
		}},
		checks: []database.CheckConstraint{
			{Name: "books_status_check", Column: "status", Clause: "CHECK (status IN ('draft', 'published'))"},
			{Name: "books_price_check", Clause: "CHECK (price > 0)"},
			{Name: "books_title_or_price", Clause: "CHECK (title <> '' OR price > 0)"},
		},
		uniques: []database.UniqueConstraint{{Name: "books_title_author_key", Columns: []string{"title", "author_id"}}},
	}
}
