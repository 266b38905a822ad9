package types

import (
	"slices"
	"strings"
)

// TypeKind is a scalar column type tag.
type TypeKind string

const (
	TypeInt32      TypeKind = "TYPE_INT32"
	TypeInt64      TypeKind = "TYPE_INT64"
	TypeUint32     TypeKind = "TYPE_UINT32"
	TypeUint64     TypeKind = "TYPE_UINT64"
	TypeBool       TypeKind = "TYPE_BOOL"
	TypeFloat      TypeKind = "TYPE_FLOAT"
	TypeDouble     TypeKind = "TYPE_DOUBLE"
	TypeString     TypeKind = "TYPE_STRING"
	TypeBytes      TypeKind = "TYPE_BYTES"
	TypeDate       TypeKind = "TYPE_DATE"
	TypeTimestamp  TypeKind = "TYPE_TIMESTAMP"
	TypeTime       TypeKind = "TYPE_TIME"
	TypeDatetime   TypeKind = "TYPE_DATETIME"
	TypeNumeric    TypeKind = "TYPE_NUMERIC"
	TypeBignumeric TypeKind = "TYPE_BIGNUMERIC"
	TypeJSON       TypeKind = "TYPE_JSON"
	TypeInterval   TypeKind = "TYPE_INTERVAL"
	TypeGeography  TypeKind = "TYPE_GEOGRAPHY"

	// only produced by analysis, never valid on a column
	TypeUnknown TypeKind = "TYPE_UNKNOWN"
)

var typeKinds = []TypeKind{
	TypeInt32, TypeInt64, TypeUint32, TypeUint64, TypeBool, TypeFloat, TypeDouble,
	TypeString, TypeBytes, TypeDate, TypeTimestamp, TypeTime, TypeDatetime, TypeNumeric,
	TypeBignumeric, TypeJSON, TypeInterval, TypeGeography,
}

// short names accepted in catalog files and DDL
var typeAliases = map[string]TypeKind{
	"INT32": TypeInt32, "INT64": TypeInt64, "INT": TypeInt64, "INTEGER": TypeInt64,
	"UINT32": TypeUint32, "UINT64": TypeUint64, "BOOL": TypeBool, "BOOLEAN": TypeBool,
	"FLOAT": TypeFloat, "FLOAT64": TypeDouble, "DOUBLE": TypeDouble, "STRING": TypeString,
	"BYTES": TypeBytes, "DATE": TypeDate, "TIMESTAMP": TypeTimestamp, "TIME": TypeTime,
	"DATETIME": TypeDatetime, "NUMERIC": TypeNumeric, "BIGNUMERIC": TypeBignumeric,
	"JSON": TypeJSON, "INTERVAL": TypeInterval, "GEOGRAPHY": TypeGeography,
}

func TypeKinds() []TypeKind { return slices.Clone(typeKinds) }

func (t TypeKind) IsValid() bool { return slices.Contains(typeKinds, t) }

func (t TypeKind) IsNumeric() bool {
	switch t {
	case TypeInt32, TypeInt64, TypeUint32, TypeUint64, TypeFloat, TypeDouble,
		TypeNumeric, TypeBignumeric:
		return true
	}
	return false
}

func (t TypeKind) IsInteger() bool {
	switch t {
	case TypeInt32, TypeInt64, TypeUint32, TypeUint64:
		return true
	}
	return false
}

// SQLName is the short name used when rendering DDL.
func (t TypeKind) SQLName() string {
	if t == TypeDouble {
		return "FLOAT64"
	}
	return strings.TrimPrefix(string(t), "TYPE_")
}

// RequiredFeature is the language feature a column of this type needs, if any.
func (t TypeKind) RequiredFeature() (LanguageFeature, bool) {
	switch t {
	case TypeNumeric:
		return FeatureNumericType, true
	case TypeBignumeric:
		return FeatureBignumericType, true
	case TypeJSON:
		return FeatureJSONType, true
	case TypeGeography:
		return FeatureGeography, true
	case TypeInterval:
		return FeatureIntervalType, true
	case TypeDatetime, TypeTime:
		return FeatureCivilTime, true
	}
	return "", false
}

// ParseTypeKind accepts either the full tag (TYPE_INT64) or its short name (INT64).
func ParseTypeKind(s string) (TypeKind, bool) {
	if t := TypeKind(s); t.IsValid() {
		return t, true
	}
	t, ok := typeAliases[strings.ToUpper(strings.TrimSpace(s))]
	return t, ok
}
