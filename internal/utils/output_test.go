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
package utils

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

func sampleSchema(name string) *schema.TableSchema {
	return &schema.TableSchema{
		TableName: name,
		Columns: []schema.EnrichedColumn{{
			Column:    schema.Column{Name: "id", DataType: "integer", IsPrimaryKey: true},
			FieldType: schema.KindPrimaryKey,
		}},
		PrimaryKeys: []string{"id"},
		ErrorCodes:  schema.ErrorCodeMap{"NOT_FOUND": "USERS_NOT_FOUND"},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "yml": FormatYAML, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriteSchemasJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchemas(&buf, []*schema.TableSchema{sampleSchema("users")}, FormatJSON))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "users", decoded["tableName"])
	columns := decoded["columns"].([]interface{})
	require.Len(t, columns, 1)
	first := columns[0].(map[string]interface{})
	assert.Equal(t, "id", first["name"])
	assert.Equal(t, "primary-key", first["fieldType"])

	buf.Reset()
	require.NoError(t, WriteSchemas(&buf, []*schema.TableSchema{sampleSchema("users"), sampleSchema("orders")}, FormatJSON))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "["))
}

func TestWriteSchemasYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchemas(&buf, []*schema.TableSchema{sampleSchema("users")}, FormatYAML))

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "users", decoded["tableName"])
	columns := decoded["columns"].([]interface{})
	first := columns[0].(map[string]interface{})
	assert.Equal(t, "id", first["name"])
	assert.Equal(t, "primary-key", first["fieldType"])
}

func TestWriteSchemasToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, WriteSchemasToFile(path, []*schema.TableSchema{sampleSchema("users")}, FormatYAML))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "tableName: users")

	err = WriteSchemasToFile(filepath.Join(t.TempDir(), "missing", "out.json"), nil, FormatJSON)
	assert.ErrorContains(t, err, "failed to create output file")
}
