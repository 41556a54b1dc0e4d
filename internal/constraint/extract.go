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

// Package constraint recovers closed value domains from catalog check
// constraints and combines them with declared enumerations.
package constraint

import (
	"regexp"
	"strings"
)

var (
	checkPrefixPattern = regexp.MustCompile(`(?i)^\s*CHECK\s*`)
	inListPattern      = regexp.MustCompile(`(?i)(^|[^\w])(NOT\s+)?IN\s*\(`)
	anyArrayPattern    = regexp.MustCompile(`(?i)=\s*ANY\s*\(\s*(\(\s*)?ARRAY\s*\[`)
	orSplitPattern     = regexp.MustCompile(`(?i)\s+OR\s+`)
	equalityPattern    = regexp.MustCompile("(?is)^\\(*\\s*(\\[[^\\]]+\\]|\"[^\"]+\"|`[^`]+`|[\\w.]+)(?:::[\\w ]+)?\\s*\\)*\\s*=\\s*(.+?)\\s*\\)*$")
	quotedPattern      = regexp.MustCompile(`'((?:[^']|'')*)'`)
	castSuffixPattern  = regexp.MustCompile(`::.*$`)

	trailingCastPattern    = regexp.MustCompile(`::\s*\w+(?: \w+)?(?:\[\])?\s*$`)
	trailingIdentPattern   = regexp.MustCompile("(\\[[^\\]]+\\]|\"[^\"]+\"|`[^`]+`|[A-Za-z_][\\w.]*)\\s*$")
	trailingKeywordPattern = regexp.MustCompile(`(?i)(^|[^\w])(AND|OR|NOT)\s*$`)
	notKeywordPattern      = regexp.MustCompile(`(?i)(^|[^\w])NOT([^\w]|$)`)
)

// ExtractDomain returns the ordered list of allowed values expressed by a
// single-column check clause, or nil when the clause has no recognized shape.
//
// Recognized shapes:
//
//	status IN ('draft', 'published')
//	((status)::text = ANY ((ARRAY['a'::character varying, 'b'::character varying])::text[]))
//	(status = ANY (ARRAY['a', 'b']::text[]))
//	([status]='a' OR [status]='b')
func ExtractDomain(clause string) []string {
	clause = strings.ReplaceAll(clause, `\'`, `'`)
	clause = checkPrefixPattern.ReplaceAllString(clause, "")
	if strings.TrimSpace(clause) == "" {
		return nil
	}

	if loc := anyArrayPattern.FindStringIndex(clause); loc != nil {
		if !membershipOf(clause[:loc[0]]) {
			return nil
		}
		body, ok := enclosed(clause, loc[1], '[', ']')
		if !ok {
			return nil
		}
		return literals(body)
	}

	if m := inListPattern.FindStringSubmatchIndex(clause); m != nil {
		if m[4] >= 0 {
			// NOT IN excludes values rather than enumerating them.
			return nil
		}
		if !membershipOf(clause[:m[3]]) {
			return nil
		}
		body, ok := enclosed(clause, m[1], '(', ')')
		if !ok {
			return nil
		}
		return literals(body)
	}

	return orChain(clause)
}

// membershipOf reports whether prefix, the text before an IN or = ANY
// operator, ends with a plain column reference that no NOT negates.
func membershipOf(prefix string) bool {
	return columnOperand(prefix) && !negated(prefix)
}

// columnOperand reports whether s ends with a bare, quoted, parenthesized or
// cast column reference. Function calls and expressions do not qualify.
func columnOperand(s string) bool {
	s = strings.TrimRight(s, " \t\n")
	s = strings.TrimRight(trailingCastPattern.ReplaceAllString(s, ""), " \t\n")
	if strings.HasSuffix(s, ")") {
		open := openingParen(s)
		if open < 0 {
			return false
		}
		before := strings.TrimRight(s[:open], " \t\n")
		if before != "" && isWordByte(before[len(before)-1]) && !trailingKeywordPattern.MatchString(before) {
			return false
		}
		return columnOperand(s[open+1:len(s)-1]) && leadsOperand(before)
	}
	loc := trailingIdentPattern.FindStringIndex(s)
	if loc == nil {
		return false
	}
	return leadsOperand(s[:loc[0]])
}

// leadsOperand reports whether s can directly precede an operand.
func leadsOperand(s string) bool {
	s = strings.TrimRight(s, " \t\n")
	return s == "" || strings.HasSuffix(s, "(") || trailingKeywordPattern.MatchString(s)
}

// openingParen returns the index of the bracket matching the closing
// parenthesis that ends s, or -1.
func openingParen(s string) int {
	depth := 0
	inQuote := false
	for i := len(s) - 1; i >= 0; i-- {
		switch c := s[i]; {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == ')':
			depth++
		case c == '(':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// negated reports whether a NOT appears in prefix at the level of its end
// or at any enclosing level. Sibling groups and literals are ignored.
func negated(prefix string) bool {
	visible := make([]byte, 0, len(prefix))
	depth := 0
	inQuote := false
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			c = ' '
		case inQuote:
			c = ' '
		case c == ')':
			depth++
		case c == '(':
			if depth > 0 {
				depth--
				c = ' '
			}
		}
		if depth > 0 {
			c = ' '
		}
		visible = append(visible, c)
	}
	for i, j := 0, len(visible)-1; i < j; i, j = i+1, j-1 {
		visible[i], visible[j] = visible[j], visible[i]
	}
	return notKeywordPattern.Match(visible)
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// enclosed returns the text between start and the bracket that closes the
// bracket opened just before start. Quoted literals are skipped.
func enclosed(s string, start int, open, close byte) (string, bool) {
	depth := 1
	inQuote := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return s[start:i], true
			}
		}
	}
	return "", false
}

// splitTopLevel splits s on commas that are outside quotes and brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	inQuote := false
	last := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	return append(parts, s[last:])
}

func literals(body string) []string {
	var values []string
	for _, part := range splitTopLevel(body) {
		if v, ok := cleanLiteral(part); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

// cleanLiteral strips quoting, casts, charset introducers and grouping
// parentheses from one list element.
func cleanLiteral(raw string) (string, bool) {
	if m := quotedPattern.FindStringSubmatch(raw); m != nil {
		return strings.ReplaceAll(m[1], "''", "'"), true
	}
	v := castSuffixPattern.ReplaceAllString(raw, "")
	v = strings.Trim(v, " \t\n()")
	if v == "" {
		return "", false
	}
	return v, true
}

func orChain(clause string) []string {
	terms := orSplitPattern.Split(strings.TrimSpace(clause), -1)
	if len(terms) < 2 {
		return nil
	}
	var column string
	values := make([]string, 0, len(terms))
	for _, term := range terms {
		m := equalityPattern.FindStringSubmatch(strings.TrimSpace(term))
		if m == nil {
			return nil
		}
		name := unquoteIdentifier(m[1])
		if column == "" {
			column = name
		} else if !strings.EqualFold(column, name) {
			return nil
		}
		v, ok := cleanLiteral(m[2])
		if !ok {
			return nil
		}
		values = append(values, v)
	}
	return values
}

func unquoteIdentifier(s string) string {
	return strings.Trim(s, "[]\"`")
}

// ColumnOf returns the single column of names referenced by clause. It
// returns "" when no column or more than one column is referenced.
func ColumnOf(clause string, names []string) string {
	stripped := quotedPattern.ReplaceAllString(strings.ReplaceAll(clause, `\'`, `'`), "''")
	found := ""
	for _, name := range names {
		if name == "" {
			continue
		}
		p := regexp.MustCompile("(?i)(^|[^\\w])[\"`\\[]?" + regexp.QuoteMeta(name) + "[\"`\\]]?([^\\w]|$)")
		if !p.MatchString(stripped) {
			continue
		}
		if found != "" {
			return ""
		}
		found = name
	}
	return found
}
