package types_test

import (
	"testing"

	. "github.com/tobsdb/sqlanalyzer/pkg/types"
	"gotest.tools/assert"
)

func TestParseTypeKind(t *testing.T) {
	for input, want := range map[string]TypeKind{
		"TYPE_INT64": TypeInt64,
		"INT64":      TypeInt64,
		"string":     TypeString,
		"float64":    TypeDouble,
		" json ":     TypeJSON,
	} {
		got, ok := ParseTypeKind(input)
		assert.Assert(t, ok, input)
		assert.Equal(t, got, want, input)
	}

	_, ok := ParseTypeKind("VARCHAR")
	assert.Assert(t, !ok)
	_, ok = ParseTypeKind(string(TypeUnknown))
	assert.Assert(t, !ok)
}

func TestSQLName(t *testing.T) {
	assert.Equal(t, TypeInt64.SQLName(), "INT64")
	assert.Equal(t, TypeDouble.SQLName(), "FLOAT64")
	assert.Equal(t, TypeBignumeric.SQLName(), "BIGNUMERIC")
}

func TestRequiredFeature(t *testing.T) {
	f, ok := TypeNumeric.RequiredFeature()
	assert.Assert(t, ok)
	assert.Equal(t, f, FeatureNumericType)

	_, ok = TypeString.RequiredFeature()
	assert.Assert(t, !ok)
}

func TestLanguageOptions(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		opts := DefaultLanguageOptions()
		assert.Assert(t, opts.SupportsStatement(StatementQuery))
		assert.Assert(t, !opts.SupportsStatement(StatementInsert))
		assert.Assert(t, !opts.FeatureEnabled(FeatureAnalyticFunctions))
	})

	t.Run("empty statement kinds means queries only", func(t *testing.T) {
		opts := LanguageOptions{}
		assert.Assert(t, opts.SupportsStatement(StatementQuery))
		assert.Assert(t, !opts.SupportsStatement(StatementDelete))
	})

	t.Run("maximum", func(t *testing.T) {
		opts := MaximumLanguageOptions()
		for _, f := range AllLanguageFeatures() {
			assert.Assert(t, opts.FeatureEnabled(f), f)
		}
		for _, k := range AllStatementKinds() {
			assert.Assert(t, opts.SupportsStatement(k), k)
		}
	})

	t.Run("enable feature once", func(t *testing.T) {
		opts := LanguageOptions{}
		opts.EnableFeature(FeatureJSONType)
		opts.EnableFeature(FeatureJSONType)
		assert.Equal(t, len(opts.EnabledLanguageFeatures), 1)
	})
}

func TestAnalyzerOptionsNormalized(t *testing.T) {
	opts := AnalyzerOptions{}.Normalized()
	assert.Equal(t, opts.ErrorMessageMode, ErrorMessageOneLine)
	assert.Equal(t, opts.ParseLocationRecordType, ParseLocationRecordNone)

	opts = AnalyzerOptions{ErrorMessageMode: ErrorMessageWithPayload}.Normalized()
	assert.Equal(t, opts.ErrorMessageMode, ErrorMessageWithPayload)
}
