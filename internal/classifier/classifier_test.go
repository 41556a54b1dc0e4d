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
	"testing"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
	"github.com/stretchr/testify/assert"
)

func col(name, dataType, udt string) schema.Column {
	return schema.Column{Name: name, DataType: dataType, UDTName: udt, IsNullable: true}
}

func TestClassifyForeignKeyOutranksEverything(t *testing.T) {
	cols := []schema.Column{
		col("author_id", "uuid", "uuid"),
		col("owner_email", "character varying", "varchar"),
		col("status", "USER-DEFINED", "order_status"),
		col("tags", "ARRAY", "_text"),
		col("price", "numeric", "numeric"),
	}
	for _, c := range cols {
		t.Run(c.Name, func(t *testing.T) {
			assert.Equal(t, schema.KindForeignKeyDropdown, Classify(c, true, true))
		})
	}
}

func TestClassifyKeyIdentifier(t *testing.T) {
	tests := []struct {
		name string
		col  schema.Column
		fk   bool
	}{
		{"uuid id", col("id", "uuid", "uuid"), false},
		{"integer id", col("id", "integer", "int4"), false},
		{"text id", col("id", "text", "text"), false},
		{"upper case", col("ID", "bigint", "int8"), false},
		{"id that is also a foreign key", col("id", "uuid", "uuid"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, schema.KindPrimaryKey, Classify(tt.col, tt.fk, false))
		})
	}
}

func TestClassifyPrimaryKeyFlag(t *testing.T) {
	c := col("user_code", "character varying", "varchar")
	c.IsPrimaryKey = true
	assert.Equal(t, schema.KindPrimaryKey, Classify(c, false, false))

	// A composite key member that is also a foreign key stays a dropdown.
	assert.Equal(t, schema.KindForeignKeyDropdown, Classify(c, true, false))
}

func TestClassifyAuditColumns(t *testing.T) {
	for _, name := range []string{"created_at", "updated_at", "deleted_at"} {
		assert.Equal(t, schema.KindAuditTimestamp, Classify(col(name, "timestamp without time zone", "timestamp"), false, false), name)
	}
	for _, name := range []string{"created_by", "updated_by", "deleted_by"} {
		assert.Equal(t, schema.KindAuditUser, Classify(col(name, "uuid", "uuid"), false, false), name)
	}
	// Audit names win over a foreign key declaration.
	assert.Equal(t, schema.KindAuditUser, Classify(col("created_by", "uuid", "uuid"), true, false))
}

func TestClassifyEnumAndArray(t *testing.T) {
	assert.Equal(t, schema.KindEnumSelect, Classify(col("status", "USER-DEFINED", "order_status"), false, true))
	assert.Equal(t, schema.KindEnumSelect, Classify(col("email", "character varying", "varchar"), false, true))
	assert.Equal(t, schema.KindArray, Classify(col("tags", "ARRAY", "_text"), false, false))
	assert.Equal(t, schema.KindArray, Classify(col("scores", "integer[]", ""), false, false))
}

func TestClassifyCatalogTypes(t *testing.T) {
	tests := []struct {
		dataType string
		udt      string
		want     schema.FieldKind
	}{
		{"smallint", "int2", schema.KindSmallInteger},
		{"integer", "int4", schema.KindInteger},
		{"int(11)", "", schema.KindInteger},
		{"int unsigned", "", schema.KindInteger},
		{"bigint", "int8", schema.KindBigInteger},
		{"numeric", "numeric", schema.KindDecimal},
		{"decimal(10,2)", "", schema.KindDecimal},
		{"double precision", "float8", schema.KindFloat},
		{"money", "money", schema.KindCurrency},
		{"character varying", "varchar", schema.KindText},
		{"nvarchar", "", schema.KindText},
		{"character", "bpchar", schema.KindChar},
		{"text", "text", schema.KindLongText},
		{"longtext", "", schema.KindLongText},
		{"date", "date", schema.KindDate},
		{"time without time zone", "time", schema.KindTime},
		{"timestamp(6) without time zone", "timestamp", schema.KindDateTime},
		{"datetime2", "", schema.KindDateTime},
		{"timestamp with time zone", "timestamptz", schema.KindDateTimeTZ},
		{"interval", "interval", schema.KindInterval},
		{"boolean", "bool", schema.KindBoolean},
		{"bytea", "bytea", schema.KindBinary},
		{"varbinary", "", schema.KindBinary},
		{"jsonb", "jsonb", schema.KindJSON},
		{"inet", "inet", schema.KindIPAddress},
		{"cidr", "cidr", schema.KindCIDR},
		{"macaddr", "macaddr", schema.KindMACAddress},
		{"bit varying", "varbit", schema.KindBitString},
		{"point", "point", schema.KindPoint},
		{"polygon", "polygon", schema.KindGeometry},
		{"uuid", "uuid", schema.KindUUID},
		{"uniqueidentifier", "", schema.KindUUID},
		{"xml", "xml", schema.KindXML},
		{"tsvector", "tsvector", schema.KindSearch},
		{"USER-DEFINED", "hstore", schema.KindCustom},
	}
	for _, tt := range tests {
		t.Run(tt.dataType, func(t *testing.T) {
			got := Classify(col("value", tt.dataType, tt.udt), false, false)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyBooleanEncodings(t *testing.T) {
	mysqlBool := col("active", "tinyint", "tinyint(1)")
	assert.Equal(t, schema.KindBoolean, Classify(mysqlBool, false, false))

	sqlServerBit := col("active", "bit", "")
	assert.Equal(t, schema.KindBoolean, Classify(sqlServerBit, false, false))

	length := int64(8)
	pgBit := col("flags", "bit", "bit")
	pgBit.CharMaxLength = &length
	assert.Equal(t, schema.KindBitString, Classify(pgBit, false, false))
}

func TestClassifyTextualRefinement(t *testing.T) {
	tests := []struct {
		name string
		col  schema.Column
		want schema.FieldKind
	}{
		{"email", col("email", "character varying", "varchar"), schema.KindEmail},
		{"contact email", col("contact_email", "varchar(255)", ""), schema.KindEmail},
		{"camel case", col("contactEmail", "varchar", ""), schema.KindEmail},
		{"password", col("password_hash", "text", "text"), schema.KindPassword},
		{"website", col("website", "varchar", ""), schema.KindURL},
		{"phone", col("phone_number", "varchar", ""), schema.KindPhone},
		{"color", col("hex_color", "char", "bpchar"), schema.KindColor},
		{"bio", col("bio", "text", "text"), schema.KindLongText},
		{"varchar description", col("description", "varchar", ""), schema.KindLongText},
		{"slug", col("slug", "varchar", ""), schema.KindSlug},
		{"avatar", col("avatar_url", "varchar", ""), schema.KindURL},
		{"image", col("profile_image", "varchar", ""), schema.KindImage},
		{"attachment", col("attachment", "varchar", ""), schema.KindFile},
		{"plain name", col("name", "character varying", "varchar"), schema.KindText},
		{"title", col("title", "varchar", ""), schema.KindText},
		{"substring does not match", col("email_count", "integer", "int4"), schema.KindInteger},
		{"partial token", col("telemetry", "varchar", ""), schema.KindText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.col, false, false))
		})
	}
}

func TestClassifyNumericRefinement(t *testing.T) {
	assert.Equal(t, schema.KindCurrency, Classify(col("price", "numeric", "numeric"), false, false))
	assert.Equal(t, schema.KindCurrency, Classify(col("total_amount", "decimal(12,2)", ""), false, false))
	assert.Equal(t, schema.KindPercentage, Classify(col("discount_pct", "real", "float4"), false, false))
	// Exchange rates land on percentage; the precedence is a tunable heuristic.
	assert.Equal(t, schema.KindPercentage, Classify(col("exchange_rate", "numeric", "numeric"), false, false))
	// Serial columns and non-numeric types are never refined.
	assert.Equal(t, schema.KindSerial, Classify(col("total", "serial", ""), false, false))
	assert.Equal(t, schema.KindDateTime, Classify(col("payment_date", "timestamp", ""), false, false))
	assert.Equal(t, schema.KindBoolean, Classify(col("email_verified", "boolean", "bool"), false, false))
}

func TestClassifyFallbacks(t *testing.T) {
	d := Resolve(col("contact_email", "mystery_type", "mystery_type"), false, false)
	assert.Equal(t, schema.KindEmail, d.Kind)
	assert.Equal(t, StepNamePattern, d.Step)
	assert.False(t, d.NeedsReview())

	d = Resolve(col("unit_price", "", ""), false, false)
	assert.Equal(t, schema.KindCurrency, d.Kind)

	d = Resolve(col("payload", "mystery_type", ""), false, false)
	assert.Equal(t, schema.KindText, d.Kind)
	assert.Equal(t, StepFallback, d.Step)
	assert.True(t, d.NeedsReview())
}

func TestClassifyResultIsAlwaysAKnownKind(t *testing.T) {
	types := []string{"", "integer", "text", "weird", "ARRAY", "USER-DEFINED", "bit", "geography"}
	names := []string{"id", "x", "email", "created_at", "price", "status"}
	for _, dt := range types {
		for _, n := range names {
			for _, fk := range []bool{true, false} {
				for _, enum := range []bool{true, false} {
					kind := Classify(col(n, dt, ""), fk, enum)
					assert.True(t, kind.IsValid(), "%s %s -> %q", n, dt, kind)
				}
			}
		}
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	c := col("email", "character varying", "varchar")
	first := Resolve(c, false, false)
	second := Resolve(c, false, false)
	assert.Equal(t, first, second)
}

func TestClassifyAuthorsAndBooks(t *testing.T) {
	authors := map[string]struct {
		col  schema.Column
		want schema.FieldKind
	}{
		"id":         {col("id", "uuid", "uuid"), schema.KindPrimaryKey},
		"name":       {col("name", "character varying", "varchar"), schema.KindText},
		"email":      {col("email", "character varying", "varchar"), schema.KindEmail},
		"bio":        {col("bio", "text", "text"), schema.KindLongText},
		"created_at": {col("created_at", "timestamp without time zone", "timestamp"), schema.KindAuditTimestamp},
	}
	for name, tt := range authors {
		assert.Equal(t, tt.want, Classify(tt.col, false, false), "authors.%s", name)
	}

	assert.Equal(t, schema.KindForeignKeyDropdown, Classify(col("author_id", "uuid", "uuid"), true, false))
	assert.Equal(t, schema.KindText, Classify(col("title", "character varying", "varchar"), false, false))
	assert.Equal(t, schema.KindCurrency, Classify(col("price", "numeric", "numeric"), false, false))
}

func TestNameTokens(t *testing.T) {
	assert.Equal(t, []string{"contact", "email"}, NameTokens("contact_email"))
	assert.Equal(t, []string{"contact", "email"}, NameTokens("contactEmail"))
	assert.Equal(t, []string{"url"}, NameTokens("URL"))
	assert.Equal(t, []string{"a", "b", "c"}, NameTokens("a-b c"))
	assert.Empty(t, NameTokens("__"))
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "catalog_type", StepCatalogType.String())
	assert.Equal(t, "unknown", Step(0).String())
}
