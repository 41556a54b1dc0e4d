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
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

// Fixed symbolic reasons present in every table's map.
const (
	CodeNotFound                  = "NOT_FOUND"
	CodeValidationError           = "VALIDATION_ERROR"
	CodeCannotDeleteHasReferences = "CANNOT_DELETE_HAS_REFERENCES"
	duplicatePrefix               = "DUPLICATE_"
	cannotDeletePrefix            = "CANNOT_DELETE_HAS_"
)

var nonIdentifier = regexp.MustCompile(`[^A-Z0-9]+`)

// codeToken upper-cases s and collapses anything that is not a letter or
// digit into single underscores.
func codeToken(s string) string {
	return strings.Trim(nonIdentifier.ReplaceAllString(strings.ToUpper(s), "_"), "_")
}

type codeBuilder struct {
	prefix string
	codes  schema.ErrorCodeMap
}

// put adds key with a table-namespaced value. A key that is already present
// receives a numeric suffix so no entry is overwritten.
func (b *codeBuilder) put(key string) {
	candidate := key
	for n := 2; ; n++ {
		if _, exists := b.codes[candidate]; !exists {
			break
		}
		candidate = fmt.Sprintf("%s_%d", key, n)
	}
	b.codes[candidate] = b.prefix + "_" + candidate
}

// GenerateErrorCodes derives the error-code taxonomy of a table from its
// unique constraints, inbound references and business rules. Keys and
// values are upper-cased; values are prefixed with the table name.
func GenerateErrorCodes(tableName string, ts *schema.TableSchema) schema.ErrorCodeMap {
	b := &codeBuilder{prefix: codeToken(tableName), codes: schema.ErrorCodeMap{}}
	b.put(CodeNotFound)
	b.put(CodeValidationError)
	if ts == nil {
		return b.codes
	}

	for _, field := range ts.UniqueConstraints.SingleField {
		b.put(duplicatePrefix + codeToken(field))
	}
	for _, fields := range ts.UniqueConstraints.Composite {
		tokens := make([]string, 0, len(fields))
		for _, f := range fields {
			tokens = append(tokens, codeToken(f))
		}
		b.put(duplicatePrefix + strings.Join(tokens, "_"))
	}

	if len(ts.ForeignKeyReferences) > 0 {
		b.put(CodeCannotDeleteHasReferences)
	}
	perTable := map[string]int{}
	for _, ref := range ts.ForeignKeyReferences {
		perTable[strings.ToLower(ref.Table)]++
	}
	for _, ref := range ts.ForeignKeyReferences {
		key := cannotDeletePrefix + codeToken(ref.Table)
		if perTable[strings.ToLower(ref.Table)] > 1 {
			key += "_" + codeToken(ref.Field)
		}
		b.put(key)
	}

	for _, rule := range ts.BusinessRules {
		b.put(codeToken(rule.ErrorCode) + "_" + codeToken(rule.Field))
	}
	return b.codes
}
