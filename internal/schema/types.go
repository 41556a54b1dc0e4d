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
package schema

import "sort"

// ForeignKeyRef describes an outbound foreign key held by a column.
type ForeignKeyRef struct {
	Column           string `json:"column" yaml:"column"`
	ReferencedTable  string `json:"referencedTable" yaml:"referencedTable"`
	ReferencedColumn string `json:"referencedColumn" yaml:"referencedColumn"`
	ConstraintName   string `json:"constraintName" yaml:"constraintName"`
	DeleteRule       string `json:"deleteRule,omitempty" yaml:"deleteRule,omitempty"`
	UpdateRule       string `json:"updateRule,omitempty" yaml:"updateRule,omitempty"`
}

// Column is one physical column as reported by the catalog. It is built once
// per introspection pass and never modified afterwards; enrichment wraps it
// in an EnrichedColumn instead.
type Column struct {
	Name             string         `json:"name" yaml:"name"`
	DataType         string         `json:"dataType" yaml:"dataType"`
	UDTName          string         `json:"udtName,omitempty" yaml:"udtName,omitempty"`
	IsNullable       bool           `json:"isNullable" yaml:"isNullable"`
	Default          *string        `json:"default,omitempty" yaml:"default,omitempty"`
	CharMaxLength    *int64         `json:"charMaxLength,omitempty" yaml:"charMaxLength,omitempty"`
	NumericPrecision *int64         `json:"numericPrecision,omitempty" yaml:"numericPrecision,omitempty"`
	NumericScale     *int64         `json:"numericScale,omitempty" yaml:"numericScale,omitempty"`
	IsPrimaryKey     bool           `json:"isPrimaryKey" yaml:"isPrimaryKey"`
	IsForeignKey     bool           `json:"isForeignKey" yaml:"isForeignKey"`
	ForeignKey       *ForeignKeyRef `json:"foreignKey,omitempty" yaml:"foreignKey,omitempty"`
}

// ConstraintKind names where a column's value domain came from.
type ConstraintKind string

const (
	ConstraintEnum    ConstraintKind = "enum"
	ConstraintCheck   ConstraintKind = "check_constraint"
	ConstraintBoolean ConstraintKind = "boolean"
	ConstraintUnknown ConstraintKind = "unknown"
)

// Provenance records which catalog fact produced a value domain.
type Provenance string

const (
	ProvenanceEnum      Provenance = "postgres_enum"
	ProvenanceCheck     Provenance = "check_constraint"
	ProvenanceInference Provenance = "inference"
)

// ConstraintMetadata is the value domain derived for a single column.
// Values is empty only when Kind is ConstraintUnknown.
type ConstraintMetadata struct {
	Kind             ConstraintKind `json:"kind" yaml:"kind"`
	ConfidenceScore  int            `json:"confidenceScore" yaml:"confidenceScore"`
	CandidateDefault string         `json:"candidateDefault,omitempty" yaml:"candidateDefault,omitempty"`
	Provenance       Provenance     `json:"provenance" yaml:"provenance"`
	Values           []string       `json:"values" yaml:"values"`
	Nullable         bool           `json:"nullable" yaml:"nullable"`
}

// HasDomain reports whether the metadata describes a closed set of values
// coming from an enumeration or a check constraint.
func (m *ConstraintMetadata) HasDomain() bool {
	if m == nil {
		return false
	}
	return (m.Kind == ConstraintEnum || m.Kind == ConstraintCheck) && len(m.Values) > 0
}

// Predicate is a query operation a field can be filtered with.
type Predicate string

const (
	PredicateEquals     Predicate = "equals"
	PredicateRange      Predicate = "range"
	PredicateContains   Predicate = "contains"
	PredicateStartsWith Predicate = "starts_with"
	PredicateEndsWith   Predicate = "ends_with"
	PredicateInArray    Predicate = "in_array"
	PredicateNotInArray Predicate = "not_in_array"
	PredicateNullCheck  Predicate = "null_check"
	PredicateFulltext   Predicate = "fulltext"
)

// FilteringStrategy lists the predicates a field supports.
type FilteringStrategy struct {
	Category          string      `json:"category" yaml:"category"`
	AllowedPredicates []Predicate `json:"allowedPredicates" yaml:"allowedPredicates"`
	Format            string      `json:"format,omitempty" yaml:"format,omitempty"`
}

// Allows reports whether p is one of the strategy's predicates.
func (s FilteringStrategy) Allows(p Predicate) bool {
	for _, allowed := range s.AllowedPredicates {
		if allowed == p {
			return true
		}
	}
	return false
}

// DropdownInfo is the lookup description attached to foreign-key columns.
// DisplayFields always holds at least the referenced key.
type DropdownInfo struct {
	Endpoint         string       `json:"endpoint" yaml:"endpoint"`
	HasEndpoint      bool         `json:"hasEndpoint" yaml:"hasEndpoint"`
	DisplayFields    []string     `json:"displayFields" yaml:"displayFields"`
	ReferencedSchema *TableSchema `json:"referencedSchema" yaml:"referencedSchema,omitempty"`
	// Truncated is set when the referenced schema was not expanded because of
	// the depth limit or a reference cycle.
	Truncated bool `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// BusinessRule is a structural validation obligation for one field.
type BusinessRule struct {
	Field     string `json:"field" yaml:"field"`
	RuleType  string `json:"ruleType" yaml:"ruleType"`
	Message   string `json:"message" yaml:"message"`
	ErrorCode string `json:"errorCode" yaml:"errorCode"`
}

// ErrorCodeMap maps a symbolic reason (NOT_FOUND, DUPLICATE_EMAIL, ...) to
// its table-namespaced identifier.
type ErrorCodeMap map[string]string

// Keys returns the symbolic reasons in sorted order.
func (m ErrorCodeMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UniqueConstraints splits a table's unique constraints by arity.
type UniqueConstraints struct {
	SingleField []string   `json:"singleField" yaml:"singleField"`
	Composite   [][]string `json:"composite" yaml:"composite"`
}

// InboundReference is a foreign key in another table pointing at this one.
type InboundReference struct {
	Table      string `json:"table" yaml:"table"`
	Field      string `json:"field" yaml:"field"`
	Cascade    bool   `json:"cascade" yaml:"cascade"`
	DeleteRule string `json:"deleteRule" yaml:"deleteRule"`
}

// Capabilities summarizes a table for consumers deciding which artifacts
// to emit.
type Capabilities struct {
	TotalFields            int  `json:"totalFields" yaml:"totalFields"`
	HasPrimaryKey          bool `json:"hasPrimaryKey" yaml:"hasPrimaryKey"`
	ForeignKeyCount        int  `json:"foreignKeyCount" yaml:"foreignKeyCount"`
	HasForeignKeys         bool `json:"hasForeignKeys" yaml:"hasForeignKeys"`
	EnumFieldCount         int  `json:"enumFieldCount" yaml:"enumFieldCount"`
	HasEnums               bool `json:"hasEnums" yaml:"hasEnums"`
	HasAuditTimestamps     bool `json:"hasAuditTimestamps" yaml:"hasAuditTimestamps"`
	HasAuditUsers          bool `json:"hasAuditUsers" yaml:"hasAuditUsers"`
	HasSoftDelete          bool `json:"hasSoftDelete" yaml:"hasSoftDelete"`
	HasFileUploads         bool `json:"hasFileUploads" yaml:"hasFileUploads"`
	HasUniqueConstraints   bool `json:"hasUniqueConstraints" yaml:"hasUniqueConstraints"`
	IsReferenced           bool `json:"isReferenced" yaml:"isReferenced"`
	FilterableFieldCount   int  `json:"filterableFieldCount" yaml:"filterableFieldCount"`
	SearchableFieldCount   int  `json:"searchableFieldCount" yaml:"searchableFieldCount"`
	BusinessRuleCount      int  `json:"businessRuleCount" yaml:"businessRuleCount"`
	MissingLookupEndpoints int  `json:"missingLookupEndpoints" yaml:"missingLookupEndpoints"`
	FieldsNeedingReview    int  `json:"fieldsNeedingReview" yaml:"fieldsNeedingReview"`
}

// EnrichedColumn layers the derived semantic model over a catalog Column.
type EnrichedColumn struct {
	Column            `yaml:",inline"`
	FieldType         FieldKind           `json:"fieldType" yaml:"fieldType"`
	Constraint        *ConstraintMetadata `json:"constraint,omitempty" yaml:"constraint,omitempty"`
	FilteringStrategy FilteringStrategy   `json:"filteringStrategy" yaml:"filteringStrategy"`
	DropdownInfo      *DropdownInfo       `json:"dropdownInfo,omitempty" yaml:"dropdownInfo,omitempty"`
	Description       string              `json:"description,omitempty" yaml:"description,omitempty"`
	// NeedsReview is set when the kind was reached by the final fallback or
	// the catalog type is not understood.
	NeedsReview bool `json:"needsReview,omitempty" yaml:"needsReview,omitempty"`
}

// TableSchema is the enriched model of one table.
type TableSchema struct {
	TableName            string             `json:"tableName" yaml:"tableName"`
	Columns              []EnrichedColumn   `json:"columns" yaml:"columns"`
	PrimaryKeys          []string           `json:"primaryKeys" yaml:"primaryKeys"`
	ForeignKeys          []ForeignKeyRef    `json:"foreignKeys" yaml:"foreignKeys"`
	UniqueConstraints    UniqueConstraints  `json:"uniqueConstraints" yaml:"uniqueConstraints"`
	ForeignKeyReferences []InboundReference `json:"foreignKeyReferences" yaml:"foreignKeyReferences"`
	BusinessRules        []BusinessRule     `json:"businessRules" yaml:"businessRules"`
	ErrorCodes           ErrorCodeMap       `json:"errorCodes" yaml:"errorCodes"`
	Capabilities         Capabilities       `json:"capabilities" yaml:"capabilities"`
}

// Column returns the enriched column called name, or nil.
func (t *TableSchema) Column(name string) *EnrichedColumn {
	if t == nil {
		return nil
	}
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// CatalogTable is the raw, unclassified result of reading one table.
type CatalogTable struct {
	Name                 string
	Columns              []Column
	PrimaryKeys          []string
	ForeignKeys          []ForeignKeyRef
	UniqueConstraints    UniqueConstraints
	ForeignKeyReferences []InboundReference
	// EnumValues maps a column to its declared enumeration, in declared order.
	EnumValues map[string][]string
	// CheckClauses maps a column to the check expressions that mention only it.
	CheckClauses map[string][]string
}

// Column returns the raw column called name, or nil.
func (t *CatalogTable) Column(name string) *Column {
	if t == nil {
		return nil
	}
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}
