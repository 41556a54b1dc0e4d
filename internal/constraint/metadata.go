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
package constraint

import (
	"regexp"
	"strings"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

// Confidence levels by provenance.
const (
	ConfidenceDeclaredEnum = 100
	ConfidenceCheck        = 95
	ConfidenceBoolean      = 100
	ConfidenceUnknown      = 0
)

// source is one entry of the priority list. It returns ok=false when it has
// nothing to say about the column.
type source struct {
	kind       schema.ConstraintKind
	provenance schema.Provenance
	confidence int
	values     func(in Input) ([]string, bool)
}

// Input carries the catalog facts a domain can be derived from.
type Input struct {
	Column       schema.Column
	DeclaredEnum []string
	CheckClauses []string
}

// priority is consulted top to bottom; the first source that yields values wins.
var priority = []source{
	{
		kind:       schema.ConstraintEnum,
		provenance: schema.ProvenanceEnum,
		confidence: ConfidenceDeclaredEnum,
		values: func(in Input) ([]string, bool) {
			return in.DeclaredEnum, len(in.DeclaredEnum) > 0
		},
	},
	{
		kind:       schema.ConstraintCheck,
		provenance: schema.ProvenanceCheck,
		confidence: ConfidenceCheck,
		values: func(in Input) ([]string, bool) {
			for _, clause := range in.CheckClauses {
				if values := ExtractDomain(clause); len(values) > 0 {
					return values, true
				}
			}
			return nil, false
		},
	},
	{
		kind:       schema.ConstraintBoolean,
		provenance: schema.ProvenanceInference,
		confidence: ConfidenceBoolean,
		values: func(in Input) ([]string, bool) {
			if !in.Column.IsBoolean() {
				return nil, false
			}
			return []string{"true", "false"}, true
		},
	},
}

// CreateConstraintMetadata derives the value domain of a column. Declared
// enumerations take precedence over parsed check constraints, which take
// precedence over boolean inference. A column matching none of them yields
// kind unknown with confidence 0 and no values.
func CreateConstraintMetadata(in Input) *schema.ConstraintMetadata {
	for _, src := range priority {
		values, ok := src.values(in)
		if !ok {
			continue
		}
		values = append([]string(nil), values...)
		return &schema.ConstraintMetadata{
			Kind:             src.kind,
			ConfidenceScore:  src.confidence,
			CandidateDefault: candidateDefault(in.Column, values),
			Provenance:       src.provenance,
			Values:           values,
			Nullable:         in.Column.IsNullable,
		}
	}
	return &schema.ConstraintMetadata{
		Kind:            schema.ConstraintUnknown,
		ConfidenceScore: ConfidenceUnknown,
		Provenance:      schema.ProvenanceInference,
		Values:          []string{},
		Nullable:        in.Column.IsNullable,
	}
}

var (
	defaultLiteralPattern = regexp.MustCompile(`^\(*\s*(?:N|_\w+)?'((?:[^']|'')*)'`)
	functionCallPattern   = regexp.MustCompile(`\w\s*\(`)
)

// ParseDefault returns the literal value of a column default expression such
// as 'draft'::order_status, ((0)) or true. Function calls yield "".
func ParseDefault(expr *string) string {
	if expr == nil {
		return ""
	}
	s := strings.TrimSpace(*expr)
	if m := defaultLiteralPattern.FindStringSubmatch(s); m != nil {
		return strings.ReplaceAll(m[1], "''", "'")
	}
	if functionCallPattern.MatchString(s) {
		return ""
	}
	s = castSuffixPattern.ReplaceAllString(s, "")
	s = strings.Trim(s, " ()")
	if strings.Contains(s, " ") {
		return ""
	}
	return s
}

// candidateDefault prefers the declared default when it is in the domain.
// Otherwise a non-nullable column falls back to the first value.
func candidateDefault(col schema.Column, values []string) string {
	def := ParseDefault(col.Default)
	if col.IsBoolean() {
		def = normalizeBool(def)
	}
	for _, v := range values {
		if v == def {
			return def
		}
	}
	if !col.IsNullable && len(values) > 0 {
		return values[0]
	}
	return ""
}

func normalizeBool(v string) string {
	switch strings.ToLower(v) {
	case "true", "1", "t", "yes", "on":
		return "true"
	case "false", "0", "f", "no", "off":
		return "false"
	}
	return v
}
