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

// FieldKind is the semantic classification of a column. The set is closed:
// every value produced by the classifier is one of the constants below.
type FieldKind string

const (
	// Structural kinds, decided from keys, audit conventions and constraints.
	KindPrimaryKey         FieldKind = "primary-key"
	KindAuditTimestamp     FieldKind = "audit-timestamp"
	KindAuditUser          FieldKind = "audit-user"
	KindForeignKeyDropdown FieldKind = "foreign-key-dropdown"
	KindEnumSelect         FieldKind = "enum-select"
	KindArray              FieldKind = "array"

	// Numeric
	KindInteger      FieldKind = "integer"
	KindSmallInteger FieldKind = "smallint"
	KindBigInteger   FieldKind = "bigint"
	KindSerial       FieldKind = "serial"
	KindDecimal      FieldKind = "decimal"
	KindFloat        FieldKind = "float"
	KindCurrency     FieldKind = "currency"
	KindPercentage   FieldKind = "percentage"

	// Textual
	KindText     FieldKind = "text"
	KindChar     FieldKind = "char"
	KindLongText FieldKind = "long-text"
	KindEmail    FieldKind = "email"
	KindPassword FieldKind = "password"
	KindURL      FieldKind = "url"
	KindPhone    FieldKind = "phone"
	KindColor    FieldKind = "color"
	KindSlug     FieldKind = "slug"
	KindSearch   FieldKind = "search"
	KindFile     FieldKind = "file"
	KindImage    FieldKind = "image"
	KindXML      FieldKind = "xml"

	// Temporal
	KindDate       FieldKind = "date"
	KindTime       FieldKind = "time"
	KindDateTime   FieldKind = "datetime"
	KindDateTimeTZ FieldKind = "datetime-tz"
	KindInterval   FieldKind = "interval"

	KindBoolean FieldKind = "boolean"
	KindUUID    FieldKind = "uuid"
	KindBinary  FieldKind = "binary"
	KindJSON    FieldKind = "json"

	// Network
	KindIPAddress  FieldKind = "ip-address"
	KindCIDR       FieldKind = "cidr"
	KindMACAddress FieldKind = "mac-address"

	KindBitString FieldKind = "bit-string"

	// Geometric
	KindPoint    FieldKind = "point"
	KindGeometry FieldKind = "geometry"

	// KindCustom covers user-defined catalog types that are not enumerations.
	KindCustom FieldKind = "custom"
)

// Family groups field kinds that share storage semantics. Name-pattern
// refinement never moves a column out of its family.
type Family string

const (
	FamilyStructural Family = "structural"
	FamilyNumeric    Family = "numeric"
	FamilyTextual    Family = "textual"
	FamilyTemporal   Family = "temporal"
	FamilyBoolean    Family = "boolean"
	FamilyIdentifier Family = "identifier"
	FamilyBinary     Family = "binary"
	FamilyJSON       Family = "json"
	FamilyNetwork    Family = "network"
	FamilyGeometric  Family = "geometric"
	FamilyOther      Family = "other"
)

// AllKinds lists every FieldKind in declaration order.
var AllKinds = []FieldKind{
	KindPrimaryKey, KindAuditTimestamp, KindAuditUser, KindForeignKeyDropdown, KindEnumSelect, KindArray,
	KindInteger, KindSmallInteger, KindBigInteger, KindSerial, KindDecimal, KindFloat, KindCurrency, KindPercentage,
	KindText, KindChar, KindLongText, KindEmail, KindPassword, KindURL, KindPhone, KindColor, KindSlug, KindSearch,
	KindFile, KindImage, KindXML,
	KindDate, KindTime, KindDateTime, KindDateTimeTZ, KindInterval,
	KindBoolean, KindUUID, KindBinary, KindJSON,
	KindIPAddress, KindCIDR, KindMACAddress, KindBitString,
	KindPoint, KindGeometry,
	KindCustom,
}

// Family returns the storage family of k. Unknown values map to FamilyOther.
func (k FieldKind) Family() Family {
	switch k {
	case KindPrimaryKey, KindAuditUser, KindForeignKeyDropdown, KindEnumSelect, KindArray:
		return FamilyStructural
	case KindInteger, KindSmallInteger, KindBigInteger, KindSerial, KindDecimal, KindFloat, KindCurrency, KindPercentage:
		return FamilyNumeric
	case KindText, KindChar, KindLongText, KindEmail, KindPassword, KindURL, KindPhone, KindColor, KindSlug,
		KindSearch, KindFile, KindImage, KindXML:
		return FamilyTextual
	case KindAuditTimestamp, KindDate, KindTime, KindDateTime, KindDateTimeTZ, KindInterval:
		return FamilyTemporal
	case KindBoolean:
		return FamilyBoolean
	case KindUUID:
		return FamilyIdentifier
	case KindBinary, KindBitString:
		return FamilyBinary
	case KindJSON:
		return FamilyJSON
	case KindIPAddress, KindCIDR, KindMACAddress:
		return FamilyNetwork
	case KindPoint, KindGeometry:
		return FamilyGeometric
	default:
		return FamilyOther
	}
}

// IsValid reports whether k is a member of the closed kind set.
func (k FieldKind) IsValid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k FieldKind) String() string {
	return string(k)
}
