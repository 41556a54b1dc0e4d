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
package classifier

import (
	"strings"
	"unicode"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

// NamePattern associates a set of column-name keywords with a field kind.
type NamePattern struct {
	Kind     schema.FieldKind
	Keywords []string
}

// textualPatterns refine textual columns. Order is precedence.
var textualPatterns = []NamePattern{
	{schema.KindEmail, []string{"email", "e_mail", "mail"}},
	{schema.KindPassword, []string{"password", "passwd", "pwd", "secret"}},
	{schema.KindURL, []string{"url", "uri", "website", "link", "homepage", "href"}},
	{schema.KindPhone, []string{"phone", "mobile", "telephone", "tel", "fax", "cell"}},
	{schema.KindColor, []string{"color", "colour", "hex_color"}},
	{schema.KindLongText, []string{"description", "bio", "biography", "notes", "note", "content", "body", "summary", "comment", "comments", "about", "details"}},
	{schema.KindSlug, []string{"slug", "permalink", "handle"}},
	{schema.KindSearch, []string{"search", "keywords", "search_vector", "tsv"}},
	{schema.KindFile, []string{"file", "attachment", "document", "upload", "filename", "file_path"}},
	{schema.KindImage, []string{"image", "avatar", "photo", "picture", "thumbnail", "logo", "icon", "img"}},
}

// numericPatterns refine numeric columns. "rate" lands on percentage even for
// currency exchange rates; the precedence is kept as a tunable heuristic.
var numericPatterns = []NamePattern{
	{schema.KindCurrency, []string{"price", "amount", "cost", "total", "balance", "fee", "salary", "revenue", "subtotal", "payment"}},
	{schema.KindPercentage, []string{"percent", "percentage", "pct", "rate", "ratio"}},
}

// fallbackPatterns is consulted when the catalog type is not understood.
var fallbackPatterns = append(append([]NamePattern{}, textualPatterns...), numericPatterns...)

// NameTokens splits a column name into lower-case words on underscores,
// dashes, spaces and camelCase boundaries.
func NameTokens(name string) []string {
	var tokens []string
	var current strings.Builder
	runes := []rune(name)
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for i, r := range runes {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r):
			if i > 0 && unicode.IsLower(runes[i-1]) {
				flush()
			}
			current.WriteRune(unicode.ToLower(r))
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// NameMatches reports whether name matches one of keywords. Single-word
// keywords must equal a whole token; keywords containing an underscore match
// as a substring of the snake-cased name.
func NameMatches(name string, keywords []string) bool {
	tokens := NameTokens(name)
	joined := strings.Join(tokens, "_")
	for _, kw := range keywords {
		if strings.Contains(kw, "_") {
			if strings.Contains(joined, kw) {
				return true
			}
			continue
		}
		for _, tok := range tokens {
			if tok == kw {
				return true
			}
		}
	}
	return false
}

func matchPatterns(name string, patterns []NamePattern) (schema.FieldKind, bool) {
	for _, p := range patterns {
		if NameMatches(name, p.Keywords) {
			return p.Kind, true
		}
	}
	return "", false
}
