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
package filtering

import (
	"testing"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
	"github.com/stretchr/testify/assert"
)

func TestResolveStrategyIsTotal(t *testing.T) {
	kinds := append([]schema.FieldKind{"", "not-a-kind", "EMAIL"}, schema.AllKinds...)
	types := []string{"", "integer", "weird", "timestamp(3)", "USER-DEFINED"}
	for _, kind := range kinds {
		for _, dt := range types {
			for _, nullable := range []bool{true, false} {
				col := schema.Column{Name: "c", DataType: dt, IsNullable: nullable}
				s := ResolveStrategy(col, kind)
				assert.NotEmpty(t, s.Category, "%q/%q", kind, dt)
				assert.True(t, s.Allows(schema.PredicateEquals), "%q/%q lacks equals", kind, dt)
				assert.Equal(t, nullable, s.Allows(schema.PredicateNullCheck), "%q/%q null_check", kind, dt)
			}
		}
	}
}

func TestResolveStrategyByKind(t *testing.T) {
	tests := []struct {
		kind     schema.FieldKind
		category string
		format   string
		allows   []schema.Predicate
		denies   []schema.Predicate
	}{
		{schema.KindLongText, CategoryLongText, "", []schema.Predicate{schema.PredicateContains, schema.PredicateFulltext}, []schema.Predicate{schema.PredicateRange}},
		{schema.KindCurrency, CategoryNumeric, "currency", []schema.Predicate{schema.PredicateRange}, []schema.Predicate{schema.PredicateContains}},
		{schema.KindEmail, CategoryText, "email", []schema.Predicate{schema.PredicateContains, schema.PredicateStartsWith}, []schema.Predicate{schema.PredicateRange}},
		{schema.KindDateTimeTZ, CategoryTemporal, "date-time", []schema.Predicate{schema.PredicateRange}, nil},
		{schema.KindForeignKeyDropdown, CategoryReference, "", []schema.Predicate{schema.PredicateInArray, schema.PredicateNotInArray}, []schema.Predicate{schema.PredicateContains}},
		{schema.KindEnumSelect, CategoryEnum, "", []schema.Predicate{schema.PredicateInArray}, []schema.Predicate{schema.PredicateRange}},
		{schema.KindPassword, CategorySensitive, "", nil, []schema.Predicate{schema.PredicateContains, schema.PredicateInArray}},
		{schema.KindUUID, CategoryIdentifier, "uuid", []schema.Predicate{schema.PredicateInArray}, nil},
		{schema.KindBoolean, CategoryBoolean, "", nil, []schema.Predicate{schema.PredicateRange}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			s := ResolveStrategy(schema.Column{Name: "c", DataType: "text"}, tt.kind)
			assert.Equal(t, tt.category, s.Category)
			assert.Equal(t, tt.format, s.Format)
			for _, p := range tt.allows {
				assert.True(t, s.Allows(p), "expected %s", p)
			}
			for _, p := range tt.denies {
				assert.False(t, s.Allows(p), "unexpected %s", p)
			}
		})
	}
}

func TestResolveStrategyFallsBackToCatalogType(t *testing.T) {
	s := ResolveStrategy(schema.Column{DataType: "bigint"}, "legacy-kind")
	assert.Equal(t, CategoryNumeric, s.Category)
	assert.True(t, s.Allows(schema.PredicateRange))

	s = ResolveStrategy(schema.Column{DataType: "timestamp(6) with time zone"}, "legacy-kind")
	assert.Equal(t, CategoryTemporal, s.Category)
	assert.Equal(t, "date-time", s.Format)
}

func TestResolveStrategyFallsBackToSubstring(t *testing.T) {
	tests := []struct {
		dataType string
		category string
	}{
		{"smalldatetimeoffset", CategoryTemporal},
		{"unsigned_int_custom", CategoryNumeric},
		{"national varchar", CategoryText},
		{"boolish", CategoryBoolean},
		{"uuid_v7", CategoryIdentifier},
		{"hstore", CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.dataType, func(t *testing.T) {
			s := ResolveStrategy(schema.Column{DataType: tt.dataType}, "")
			assert.Equal(t, tt.category, s.Category)
		})
	}
}

func TestResolveStrategyDoesNotShareSlices(t *testing.T) {
	a := ResolveStrategy(schema.Column{IsNullable: true}, schema.KindInteger)
	b := ResolveStrategy(schema.Column{}, schema.KindInteger)
	a.AllowedPredicates[0] = "mutated"
	assert.Equal(t, schema.PredicateEquals, b.AllowedPredicates[0])
}

func TestResolveStrategyIsIdempotent(t *testing.T) {
	col := schema.Column{Name: "bio", DataType: "text", IsNullable: true}
	assert.Equal(t, ResolveStrategy(col, schema.KindLongText), ResolveStrategy(col, schema.KindLongText))
}

func TestFilterableAndSearchable(t *testing.T) {
	assert.True(t, IsFilterable(ResolveStrategy(schema.Column{}, schema.KindInteger)))
	assert.False(t, IsFilterable(ResolveStrategy(schema.Column{IsNullable: true}, schema.KindBoolean)))
	assert.True(t, IsSearchable(ResolveStrategy(schema.Column{}, schema.KindLongText)))
	assert.False(t, IsSearchable(ResolveStrategy(schema.Column{}, schema.KindDate)))
}
