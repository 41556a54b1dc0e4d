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

import (
	"regexp"
	"strings"
)

var (
	typeArgsPattern   = regexp.MustCompile(`\([^)]*\)`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeType lower-cases a catalog type name and strips length/precision
// arguments and MySQL display modifiers, e.g.
// "timestamp(6) without time zone" -> "timestamp without time zone".
func NormalizeType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = typeArgsPattern.ReplaceAllString(t, "")
	t = strings.ReplaceAll(t, " unsigned", "")
	t = strings.ReplaceAll(t, " zerofill", "")
	t = whitespacePattern.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// IsArray reports whether the catalog describes the column as an array.
// Postgres prefixes the element type's descriptor with an underscore.
func (c Column) IsArray() bool {
	if strings.HasPrefix(c.UDTName, "_") {
		return true
	}
	dt := strings.ToLower(strings.TrimSpace(c.DataType))
	return dt == "array" || strings.HasSuffix(dt, "[]")
}

// IsBoolean reports whether the column stores a boolean. MySQL exposes
// booleans as tinyint(1) and SQL Server as a bit without a length.
func (c Column) IsBoolean() bool {
	switch NormalizeType(c.DataType) {
	case "boolean", "bool":
		return true
	case "bit":
		return c.CharMaxLength == nil
	}
	return strings.EqualFold(strings.ReplaceAll(c.UDTName, " ", ""), "tinyint(1)")
}
