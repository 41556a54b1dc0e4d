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

// Package rules derives structural validation rules and the error-code
// taxonomy of a classified table.
package rules

import (
	"fmt"
	"strings"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/classifier"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

// Rule types.
const (
	RuleNotFutureDate   = "not_future_date"
	RulePositiveNumber  = "positive_number"
	RuleEmailFormat     = "email_format"
	RuleURLFormat       = "url_format"
	RulePhoneFormat     = "phone_format"
	RulePercentageRange = "percentage_range"
)

// pattern is one entry of the rule catalog.
type pattern struct {
	ruleType string
	matches  func(col schema.EnrichedColumn) bool
	message  string
}

var (
	birthNames    = []string{"birth", "dob", "date_of_birth", "birthday", "born", "birthdate"}
	positiveNames = []string{"price", "amount", "quantity", "qty", "cost", "total", "fee", "salary", "stock"}
	emailNames    = []string{"email", "e_mail"}
	urlNames      = []string{"url", "website", "homepage", "link"}
	phoneNames    = []string{"phone", "mobile", "telephone"}
)

var catalog = []pattern{
	{
		ruleType: RuleNotFutureDate,
		matches: func(col schema.EnrichedColumn) bool {
			return isTemporal(col.FieldType) && classifier.NameMatches(col.Name, birthNames)
		},
		message: "%s cannot be in the future",
	},
	{
		ruleType: RulePositiveNumber,
		matches: func(col schema.EnrichedColumn) bool {
			return col.FieldType.Family() == schema.FamilyNumeric && classifier.NameMatches(col.Name, positiveNames)
		},
		message: "%s must be a positive number",
	},
	{
		ruleType: RuleEmailFormat,
		matches: func(col schema.EnrichedColumn) bool {
			return col.FieldType == schema.KindEmail || (isTextual(col.FieldType) && classifier.NameMatches(col.Name, emailNames))
		},
		message: "%s must be a valid email address",
	},
	{
		ruleType: RuleURLFormat,
		matches: func(col schema.EnrichedColumn) bool {
			return col.FieldType == schema.KindURL || (isTextual(col.FieldType) && classifier.NameMatches(col.Name, urlNames))
		},
		message: "%s must be a valid URL",
	},
	{
		ruleType: RulePhoneFormat,
		matches: func(col schema.EnrichedColumn) bool {
			return col.FieldType == schema.KindPhone || (isTextual(col.FieldType) && classifier.NameMatches(col.Name, phoneNames))
		},
		message: "%s must be a valid phone number",
	},
	{
		ruleType: RulePercentageRange,
		matches: func(col schema.EnrichedColumn) bool {
			return col.FieldType == schema.KindPercentage
		},
		message: "%s must be between 0 and 100",
	},
}

func isTemporal(k schema.FieldKind) bool {
	return k.Family() == schema.FamilyTemporal && k != schema.KindAuditTimestamp
}

func isTextual(k schema.FieldKind) bool {
	return k.Family() == schema.FamilyTextual && k != schema.KindPassword
}

// DeriveRules returns the business rules for columns, in column order. A
// column receives one rule for every catalog pattern it matches.
func DeriveRules(columns []schema.EnrichedColumn) []schema.BusinessRule {
	rules := []schema.BusinessRule{}
	for _, col := range columns {
		for _, p := range catalog {
			if !p.matches(col) {
				continue
			}
			rules = append(rules, schema.BusinessRule{
				Field:     col.Name,
				RuleType:  p.ruleType,
				Message:   fmt.Sprintf(p.message, humanize(col.Name)),
				ErrorCode: strings.ToUpper(p.ruleType),
			})
		}
	}
	return rules
}

// humanize turns a column name into a sentence subject: "date_of_birth" ->
// "Date of birth".
func humanize(name string) string {
	words := classifier.NameTokens(name)
	if len(words) == 0 {
		return name
	}
	s := strings.Join(words, " ")
	return strings.ToUpper(s[:1]) + s[1:]
}
