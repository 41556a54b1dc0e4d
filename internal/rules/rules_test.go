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
	"testing"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enriched(name string, kind schema.FieldKind) schema.EnrichedColumn {
	return schema.EnrichedColumn{Column: schema.Column{Name: name}, FieldType: kind}
}

func ruleTypes(rules []schema.BusinessRule, field string) []string {
	var out []string
	for _, r := range rules {
		if r.Field == field {
			out = append(out, r.RuleType)
		}
	}
	return out
}

func TestDeriveRules(t *testing.T) {
	cols := []schema.EnrichedColumn{
		enriched("id", schema.KindPrimaryKey),
		enriched("email", schema.KindEmail),
		enriched("date_of_birth", schema.KindDate),
		enriched("price", schema.KindCurrency),
		enriched("quantity", schema.KindInteger),
		enriched("website", schema.KindURL),
		enriched("phone", schema.KindPhone),
		enriched("discount_pct", schema.KindPercentage),
		enriched("created_at", schema.KindAuditTimestamp),
		enriched("notes", schema.KindLongText),
	}
	rules := DeriveRules(cols)

	assert.Empty(t, ruleTypes(rules, "id"))
	assert.Equal(t, []string{RuleEmailFormat}, ruleTypes(rules, "email"))
	assert.Equal(t, []string{RuleNotFutureDate}, ruleTypes(rules, "date_of_birth"))
	assert.Equal(t, []string{RulePositiveNumber}, ruleTypes(rules, "price"))
	assert.Equal(t, []string{RulePositiveNumber}, ruleTypes(rules, "quantity"))
	assert.Equal(t, []string{RuleURLFormat}, ruleTypes(rules, "website"))
	assert.Equal(t, []string{RulePhoneFormat}, ruleTypes(rules, "phone"))
	assert.Equal(t, []string{RulePercentageRange}, ruleTypes(rules, "discount_pct"))
	assert.Empty(t, ruleTypes(rules, "created_at"))
	assert.Empty(t, ruleTypes(rules, "notes"))

	// Emission follows column order.
	require.NotEmpty(t, rules)
	assert.Equal(t, "email", rules[0].Field)
	assert.Equal(t, "EMAIL_FORMAT", rules[0].ErrorCode)
	assert.Equal(t, "Email must be a valid email address", rules[0].Message)
	assert.Equal(t, "Date of birth cannot be in the future", rules[1].Message)
}

func TestDeriveRulesMultiplePerColumn(t *testing.T) {
	// A text column named like both a URL and a phone gets both rules.
	rules := DeriveRules([]schema.EnrichedColumn{enriched("phone_link", schema.KindText)})
	assert.Equal(t, []string{RuleURLFormat, RulePhoneFormat}, ruleTypes(rules, "phone_link"))
}

func TestDeriveRulesRequiresMatchingFamily(t *testing.T) {
	rules := DeriveRules([]schema.EnrichedColumn{
		enriched("price", schema.KindText),
		enriched("birthday", schema.KindText),
		enriched("email", schema.KindEnumSelect),
		enriched("email_verified", schema.KindBoolean),
	})
	assert.Empty(t, rules)
	assert.NotNil(t, rules)
}

func TestGenerateErrorCodes(t *testing.T) {
	ts := &schema.TableSchema{
		TableName: "users",
		UniqueConstraints: schema.UniqueConstraints{
			SingleField: []string{"email", "username"},
			Composite:   [][]string{{"tenant_id", "slug"}},
		},
		ForeignKeyReferences: []schema.InboundReference{
			{Table: "orders", Field: "user_id", Cascade: false, DeleteRule: "NO ACTION"},
		},
		BusinessRules: []schema.BusinessRule{
			{Field: "email", RuleType: RuleEmailFormat, ErrorCode: "EMAIL_FORMAT"},
		},
	}
	codes := GenerateErrorCodes("users", ts)

	want := schema.ErrorCodeMap{
		"NOT_FOUND":                    "USERS_NOT_FOUND",
		"VALIDATION_ERROR":             "USERS_VALIDATION_ERROR",
		"DUPLICATE_EMAIL":              "USERS_DUPLICATE_EMAIL",
		"DUPLICATE_USERNAME":           "USERS_DUPLICATE_USERNAME",
		"DUPLICATE_TENANT_ID_SLUG":     "USERS_DUPLICATE_TENANT_ID_SLUG",
		"CANNOT_DELETE_HAS_REFERENCES": "USERS_CANNOT_DELETE_HAS_REFERENCES",
		"CANNOT_DELETE_HAS_ORDERS":     "USERS_CANNOT_DELETE_HAS_ORDERS",
		"EMAIL_FORMAT_EMAIL":           "USERS_EMAIL_FORMAT_EMAIL",
	}
	assert.Equal(t, want, codes)
}

func TestGenerateErrorCodesSameTableReferencesTwice(t *testing.T) {
	ts := &schema.TableSchema{
		ForeignKeyReferences: []schema.InboundReference{
			{Table: "transfers", Field: "from_account_id"},
			{Table: "transfers", Field: "to_account_id"},
			{Table: "statements", Field: "account_id"},
		},
	}
	codes := GenerateErrorCodes("accounts", ts)
	assert.Contains(t, codes, "CANNOT_DELETE_HAS_TRANSFERS_FROM_ACCOUNT_ID")
	assert.Contains(t, codes, "CANNOT_DELETE_HAS_TRANSFERS_TO_ACCOUNT_ID")
	assert.Contains(t, codes, "CANNOT_DELETE_HAS_STATEMENTS")
	assert.Len(t, codes, 6)
}

func TestGenerateErrorCodesNeverOverwrites(t *testing.T) {
	ts := &schema.TableSchema{
		UniqueConstraints: schema.UniqueConstraints{
			SingleField: []string{"a_b"},
			Composite:   [][]string{{"a", "b"}},
		},
	}
	codes := GenerateErrorCodes("t", ts)
	assert.Equal(t, "T_DUPLICATE_A_B", codes["DUPLICATE_A_B"])
	assert.Equal(t, "T_DUPLICATE_A_B_2", codes["DUPLICATE_A_B_2"])

	seen := map[string]bool{}
	for _, v := range codes {
		assert.False(t, seen[v], "duplicate value %s", v)
		seen[v] = true
	}
}

func TestGenerateErrorCodesNormalizesNames(t *testing.T) {
	codes := GenerateErrorCodes("order-items", &schema.TableSchema{
		UniqueConstraints: schema.UniqueConstraints{SingleField: []string{"SKU Code"}},
	})
	assert.Equal(t, "ORDER_ITEMS_DUPLICATE_SKU_CODE", codes["DUPLICATE_SKU_CODE"])
}

func TestGenerateErrorCodesNilSchema(t *testing.T) {
	codes := GenerateErrorCodes("things", nil)
	assert.Equal(t, []string{"NOT_FOUND", "VALIDATION_ERROR"}, codes.Keys())
}
