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

// Package classifier maps a catalog column to a semantic field kind.
//
// Resolution is an ordered decision list; the first step that matches wins:
//
//  1. the key identifier (or a non-foreign primary key) -> primary-key
//  2. audit column names -> audit-timestamp / audit-user
//  3. declared foreign key -> foreign-key-dropdown
//  4. enumeration or check-constraint domain -> enum-select
//  5. array catalog type -> array
//  6. catalog type table, refined by name patterns within the same family
//  7. name patterns alone
//  8. text
//
// Structural facts always outrank naming heuristics.
package classifier

import (
	"strings"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

// KeyIdentifier is the conventional primary key column name.
const KeyIdentifier = "id"

// Step identifies which rule of the decision list produced a kind.
type Step int

const (
	StepPrimaryKey Step = iota + 1
	StepAudit
	StepForeignKey
	StepEnum
	StepArray
	StepCatalogType
	StepNamePattern
	StepFallback
)

func (s Step) String() string {
	switch s {
	case StepPrimaryKey:
		return "primary_key"
	case StepAudit:
		return "audit"
	case StepForeignKey:
		return "foreign_key"
	case StepEnum:
		return "enum"
	case StepArray:
		return "array"
	case StepCatalogType:
		return "catalog_type"
	case StepNamePattern:
		return "name_pattern"
	case StepFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Decision is the outcome of classifying one column.
type Decision struct {
	Kind schema.FieldKind
	Step Step
}

// NeedsReview reports whether the decision rests on weak evidence.
func (d Decision) NeedsReview() bool {
	return d.Step == StepFallback || d.Kind == schema.KindCustom
}

var (
	auditTimestamps = map[string]bool{"created_at": true, "updated_at": true, "deleted_at": true}
	auditUsers      = map[string]bool{"created_by": true, "updated_by": true, "deleted_by": true}
)

// Classify returns the field kind for col.
func Classify(col schema.Column, isForeignKey, isEnumish bool) schema.FieldKind {
	return Resolve(col, isForeignKey, isEnumish).Kind
}

// Resolve runs the decision list and reports which step matched.
func Resolve(col schema.Column, isForeignKey, isEnumish bool) Decision {
	name := strings.ToLower(strings.TrimSpace(col.Name))

	if name == KeyIdentifier || (col.IsPrimaryKey && !isForeignKey) {
		return Decision{schema.KindPrimaryKey, StepPrimaryKey}
	}
	if auditTimestamps[name] {
		return Decision{schema.KindAuditTimestamp, StepAudit}
	}
	if auditUsers[name] {
		return Decision{schema.KindAuditUser, StepAudit}
	}
	if isForeignKey {
		return Decision{schema.KindForeignKeyDropdown, StepForeignKey}
	}
	if isEnumish {
		return Decision{schema.KindEnumSelect, StepEnum}
	}
	if col.IsArray() {
		return Decision{schema.KindArray, StepArray}
	}
	if base, ok := CatalogKind(col); ok {
		return Decision{refine(col.Name, base), StepCatalogType}
	}
	if kind, ok := matchPatterns(col.Name, fallbackPatterns); ok {
		return Decision{kind, StepNamePattern}
	}
	return Decision{schema.KindText, StepFallback}
}

// refine narrows a catalog-derived kind using the column name. Only textual
// and plain numeric kinds are refined, and only within their own family.
func refine(name string, base schema.FieldKind) schema.FieldKind {
	switch base {
	case schema.KindText, schema.KindChar, schema.KindLongText:
		if kind, ok := matchPatterns(name, textualPatterns); ok {
			return kind
		}
	case schema.KindInteger, schema.KindSmallInteger, schema.KindBigInteger, schema.KindDecimal, schema.KindFloat:
		if kind, ok := matchPatterns(name, numericPatterns); ok {
			return kind
		}
	}
	return base
}

// CatalogKind maps the column's catalog type to a base kind. The data type
// is consulted first, then the underlying type descriptor.
func CatalogKind(col schema.Column) (schema.FieldKind, bool) {
	if col.IsBoolean() {
		return schema.KindBoolean, true
	}
	if kind, ok := kindForType(schema.NormalizeType(col.DataType)); ok {
		return kind, true
	}
	return kindForType(schema.NormalizeType(col.UDTName))
}

func kindForType(t string) (schema.FieldKind, bool) {
	switch t {
	// numeric
	case "smallint", "int2", "tinyint":
		return schema.KindSmallInteger, true
	case "integer", "int", "int4", "mediumint", "year":
		return schema.KindInteger, true
	case "bigint", "int8":
		return schema.KindBigInteger, true
	case "serial", "serial4", "bigserial", "serial8", "smallserial", "serial2":
		return schema.KindSerial, true
	case "numeric", "decimal", "dec", "number":
		return schema.KindDecimal, true
	case "real", "float4", "float8", "float", "double", "double precision":
		return schema.KindFloat, true
	case "money", "smallmoney":
		return schema.KindCurrency, true

	// character
	case "character varying", "varchar", "nvarchar", "citext", "name", "varchar2", "nvarchar2":
		return schema.KindText, true
	case "character", "char", "bpchar", "nchar":
		return schema.KindChar, true
	case "text", "tinytext", "mediumtext", "longtext", "ntext", "clob":
		return schema.KindLongText, true

	// temporal
	case "date":
		return schema.KindDate, true
	case "time", "time without time zone", "timetz", "time with time zone":
		return schema.KindTime, true
	case "timestamp", "timestamp without time zone", "datetime", "datetime2", "smalldatetime":
		return schema.KindDateTime, true
	case "timestamptz", "timestamp with time zone", "datetimeoffset":
		return schema.KindDateTimeTZ, true
	case "interval":
		return schema.KindInterval, true

	case "boolean", "bool":
		return schema.KindBoolean, true

	// binary
	case "bytea", "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary", "image":
		return schema.KindBinary, true

	case "json", "jsonb":
		return schema.KindJSON, true

	// network
	case "inet":
		return schema.KindIPAddress, true
	case "cidr":
		return schema.KindCIDR, true
	case "macaddr", "macaddr8":
		return schema.KindMACAddress, true

	// bit strings
	case "bit", "bit varying", "varbit":
		return schema.KindBitString, true

	// geometric
	case "point":
		return schema.KindPoint, true
	case "line", "lseg", "box", "path", "polygon", "circle", "geometry", "geography",
		"linestring", "multipoint", "multilinestring", "multipolygon", "geometrycollection":
		return schema.KindGeometry, true

	case "uuid", "uniqueidentifier":
		return schema.KindUUID, true
	case "xml":
		return schema.KindXML, true
	case "tsvector", "tsquery":
		return schema.KindSearch, true

	// custom / user-defined
	case "user-defined", "hstore", "ltree", "composite", "domain":
		return schema.KindCustom, true
	default:
		return "", false
	}
}
