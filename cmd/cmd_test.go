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
package cmd

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopDDL = `
CREATE TABLE customers (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	email VARCHAR(255) UNIQUE
);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY,
	customer_id INTEGER NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
	status TEXT NOT NULL CHECK (status IN ('open', 'shipped')),
	total NUMERIC(10,2)
);`

func newShopDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite3", "file:"+path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(shopDDL)
	require.NoError(t, err)
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestListTablesCommand(t *testing.T) {
	path := newShopDB(t)
	out := run(t, "list-tables", "--dialect", "sqlite", "--database", path, "--log-level", "error")
	assert.Equal(t, "customers\norders\n", out)
}

func TestInspectCommand(t *testing.T) {
	path := newShopDB(t)
	out := run(t, "inspect", "--dialect", "sqlite", "--database", path, "--log-level", "error",
		"--tables", "orders", "--output", "-", "--format", "json")

	var doc struct {
		TableName string `json:"tableName"`
		Columns   []struct {
			Name         string `json:"name"`
			FieldType    string `json:"fieldType"`
			DropdownInfo *struct {
				Endpoint      string   `json:"endpoint"`
				DisplayFields []string `json:"displayFields"`
			} `json:"dropdownInfo"`
			Constraint struct {
				Values []string `json:"values"`
			} `json:"constraint"`
		} `json:"columns"`
		ForeignKeys []struct {
			DeleteRule string `json:"deleteRule"`
		} `json:"foreignKeys"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "orders", doc.TableName)

	kinds := map[string]string{}
	for _, c := range doc.Columns {
		kinds[c.Name] = c.FieldType
		switch c.Name {
		case "customer_id":
			require.NotNil(t, c.DropdownInfo)
			assert.Equal(t, "/api/customers/options", c.DropdownInfo.Endpoint)
			assert.Equal(t, []string{"name", "email", "id"}, c.DropdownInfo.DisplayFields)
		case "status":
			assert.Equal(t, []string{"open", "shipped"}, c.Constraint.Values)
		}
	}
	assert.Equal(t, map[string]string{
		"id":          "primary-key",
		"customer_id": "foreign-key-dropdown",
		"status":      "enum-select",
		"total":       "currency",
	}, kinds)
	require.Len(t, doc.ForeignKeys, 1)
	assert.Equal(t, "CASCADE", doc.ForeignKeys[0].DeleteRule)
}

func TestSummaryCommand(t *testing.T) {
	path := newShopDB(t)
	out := run(t, "summary", "--dialect", "sqlite", "--database", path, "--log-level", "error",
		"--tables", "customers", "--no-color")

	assert.Contains(t, out, "Table customers")
	assert.Contains(t, out, "orders.customer_id")
	assert.NotContains(t, out, "Table orders")
}

func TestInspectRejectsUnknownFormat(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"inspect", "--dialect", "sqlite", "--database", "unused.db", "--log-level", "error", "--format", "xml"})
	err := rootCmd.Execute()
	assert.ErrorContains(t, err, "unsupported output format")
	inspectFormat = "json"
}
