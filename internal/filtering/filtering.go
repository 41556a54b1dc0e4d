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

// Package filtering maps field kinds to the query predicates they support.
package filtering

import (
	"strings"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

// Categories reported in FilteringStrategy.Category.
const (
	CategoryIdentifier  = "identifier"
	CategoryNumeric     = "numeric"
	CategoryText        = "text"
	CategoryLongText    = "long_text"
	CategoryTemporal    = "temporal"
	CategoryBoolean     = "boolean"
	CategoryEnum        = "enum"
	CategoryReference   = "reference"
	CategoryArray       = "array"
	CategoryJSON        = "json"
	CategoryNetwork     = "network"
	CategoryBinary      = "binary"
	CategoryGeometric   = "geometric"
	CategorySensitive   = "sensitive"
	CategoryUnknown     = "unknown"
	CategoryAuditUser   = "audit_user"
	CategorySearchIndex = "search"
)

var (
	equality   = []schema.Predicate{schema.PredicateEquals}
	membership = []schema.Predicate{schema.PredicateEquals, schema.PredicateInArray, schema.PredicateNotInArray}
	ranged     = []schema.Predicate{schema.PredicateEquals, schema.PredicateRange, schema.PredicateInArray, schema.PredicateNotInArray}
	textual    = []schema.Predicate{schema.PredicateEquals, schema.PredicateContains, schema.PredicateStartsWith, schema.PredicateEndsWith, schema.PredicateInArray}
	longText   = []schema.Predicate{schema.PredicateEquals, schema.PredicateContains, schema.PredicateFulltext}
	temporal   = []schema.Predicate{schema.PredicateEquals, schema.PredicateRange}
)

// ResolveStrategy returns the filtering strategy for a column of the given
// kind. It always returns a strategy that includes equals; nullable columns
// additionally support null_check.
func ResolveStrategy(col schema.Column, kind schema.FieldKind) schema.FilteringStrategy {
	s, ok := byKind(kind)
	if !ok {
		s, ok = byCatalogType(schema.NormalizeType(col.DataType))
	}
	if !ok {
		s, ok = byTypeSubstring(strings.ToLower(col.DataType))
	}
	if !ok {
		s = strategy(CategoryUnknown, equality, "")
	}
	if col.IsNullable && !s.Allows(schema.PredicateNullCheck) {
		s.AllowedPredicates = append(s.AllowedPredicates, schema.PredicateNullCheck)
	}
	return s
}

func strategy(category string, predicates []schema.Predicate, format string) schema.FilteringStrategy {
	return schema.FilteringStrategy{
		Category:          category,
		AllowedPredicates: append([]schema.Predicate(nil), predicates...),
		Format:            format,
	}
}

func byKind(kind schema.FieldKind) (schema.FilteringStrategy, bool) {
	switch kind {
	case schema.KindPrimaryKey:
		return strategy(CategoryIdentifier, membership, ""), true
	case schema.KindForeignKeyDropdown:
		return strategy(CategoryReference, membership, ""), true
	case schema.KindEnumSelect:
		return strategy(CategoryEnum, membership, ""), true
	case schema.KindAuditTimestamp:
		return strategy(CategoryTemporal, temporal, "date-time"), true
	case schema.KindAuditUser:
		return strategy(CategoryAuditUser, membership, ""), true
	case schema.KindArray:
		return strategy(CategoryArray, []schema.Predicate{schema.PredicateEquals, schema.PredicateContains}, ""), true

	case schema.KindInteger, schema.KindSmallInteger, schema.KindBigInteger, schema.KindSerial,
		schema.KindDecimal, schema.KindFloat:
		return strategy(CategoryNumeric, ranged, ""), true
	case schema.KindCurrency:
		return strategy(CategoryNumeric, ranged, "currency"), true
	case schema.KindPercentage:
		return strategy(CategoryNumeric, ranged, "percentage"), true

	case schema.KindText, schema.KindChar, schema.KindColor, schema.KindSlug, schema.KindFile, schema.KindImage:
		return strategy(CategoryText, textual, ""), true
	case schema.KindEmail:
		return strategy(CategoryText, textual, "email"), true
	case schema.KindURL:
		return strategy(CategoryText, textual, "uri"), true
	case schema.KindPhone:
		return strategy(CategoryText, textual, "phone"), true
	case schema.KindLongText, schema.KindXML:
		return strategy(CategoryLongText, longText, ""), true
	case schema.KindSearch:
		return strategy(CategorySearchIndex, []schema.Predicate{schema.PredicateEquals, schema.PredicateFulltext}, ""), true
	case schema.KindPassword:
		return strategy(CategorySensitive, equality, ""), true

	case schema.KindDate:
		return strategy(CategoryTemporal, temporal, "date"), true
	case schema.KindTime:
		return strategy(CategoryTemporal, temporal, "time"), true
	case schema.KindDateTime, schema.KindDateTimeTZ:
		return strategy(CategoryTemporal, temporal, "date-time"), true
	case schema.KindInterval:
		return strategy(CategoryTemporal, temporal, "duration"), true

	case schema.KindBoolean:
		return strategy(CategoryBoolean, equality, ""), true
	case schema.KindUUID:
		return strategy(CategoryIdentifier, membership, "uuid"), true
	case schema.KindJSON:
		return strategy(CategoryJSON, []schema.Predicate{schema.PredicateEquals, schema.PredicateContains}, ""), true
	case schema.KindIPAddress, schema.KindCIDR, schema.KindMACAddress:
		return strategy(CategoryNetwork, membership, ""), true
	case schema.KindBinary, schema.KindBitString:
		return strategy(CategoryBinary, equality, ""), true
	case schema.KindPoint, schema.KindGeometry:
		return strategy(CategoryGeometric, equality, ""), true
	case schema.KindCustom:
		return strategy(CategoryUnknown, equality, ""), true
	default:
		return schema.FilteringStrategy{}, false
	}
}

// byCatalogType covers kinds produced outside the classifier by mapping the
// normalized catalog type directly.
func byCatalogType(t string) (schema.FilteringStrategy, bool) {
	switch t {
	case "integer", "int", "int4", "bigint", "int8", "smallint", "int2", "numeric", "decimal", "real", "double precision", "float", "money":
		return strategy(CategoryNumeric, ranged, ""), true
	case "character varying", "varchar", "character", "char", "nvarchar", "citext":
		return strategy(CategoryText, textual, ""), true
	case "text", "longtext", "mediumtext", "ntext":
		return strategy(CategoryLongText, longText, ""), true
	case "date":
		return strategy(CategoryTemporal, temporal, "date"), true
	case "timestamp", "timestamp without time zone", "timestamp with time zone", "timestamptz", "datetime", "datetime2":
		return strategy(CategoryTemporal, temporal, "date-time"), true
	case "boolean", "bool":
		return strategy(CategoryBoolean, equality, ""), true
	case "uuid", "uniqueidentifier":
		return strategy(CategoryIdentifier, membership, "uuid"), true
	case "json", "jsonb":
		return strategy(CategoryJSON, []schema.Predicate{schema.PredicateEquals, schema.PredicateContains}, ""), true
	default:
		return schema.FilteringStrategy{}, false
	}
}

func byTypeSubstring(t string) (schema.FilteringStrategy, bool) {
	switch {
	case t == "":
		return schema.FilteringStrategy{}, false
	case strings.Contains(t, "timestamp"), strings.Contains(t, "date"):
		return strategy(CategoryTemporal, temporal, ""), true
	case strings.Contains(t, "int"), strings.Contains(t, "numeric"), strings.Contains(t, "decimal"):
		return strategy(CategoryNumeric, ranged, ""), true
	case strings.Contains(t, "varchar"), strings.Contains(t, "text"), strings.Contains(t, "char"):
		return strategy(CategoryText, textual, ""), true
	case strings.Contains(t, "bool"):
		return strategy(CategoryBoolean, equality, ""), true
	case strings.Contains(t, "uuid"):
		return strategy(CategoryIdentifier, membership, "uuid"), true
	default:
		return schema.FilteringStrategy{}, false
	}
}

// IsFilterable reports whether a strategy supports anything beyond equality.
func IsFilterable(s schema.FilteringStrategy) bool {
	for _, p := range s.AllowedPredicates {
		if p != schema.PredicateEquals && p != schema.PredicateNullCheck {
			return true
		}
	}
	return false
}

// IsSearchable reports whether a strategy supports substring or full-text
// matching.
func IsSearchable(s schema.FilteringStrategy) bool {
	return s.Allows(schema.PredicateContains) || s.Allows(schema.PredicateFulltext)
}
