package types

import "slices"

type LanguageFeature string

const (
	FeatureAnalyticFunctions LanguageFeature = "FEATURE_ANALYTIC_FUNCTIONS"
	FeatureWithRecursive     LanguageFeature = "FEATURE_V_1_3_WITH_RECURSIVE"
	FeatureGroupByRollup     LanguageFeature = "FEATURE_V_1_2_GROUP_BY_ROLLUP"
	FeatureNumericType       LanguageFeature = "FEATURE_NUMERIC_TYPE"
	FeatureBignumericType    LanguageFeature = "FEATURE_BIGNUMERIC_TYPE"
	FeatureJSONType          LanguageFeature = "FEATURE_JSON_TYPE"
	FeatureGeography         LanguageFeature = "FEATURE_GEOGRAPHY"
	FeatureIntervalType      LanguageFeature = "FEATURE_INTERVAL_TYPE"
	FeatureCivilTime         LanguageFeature = "FEATURE_V_1_2_CIVIL_TIME"
)

var allFeatures = []LanguageFeature{
	FeatureAnalyticFunctions, FeatureWithRecursive, FeatureGroupByRollup,
	FeatureNumericType, FeatureBignumericType, FeatureJSONType, FeatureGeography,
	FeatureIntervalType, FeatureCivilTime,
}

func AllLanguageFeatures() []LanguageFeature { return slices.Clone(allFeatures) }

func (f LanguageFeature) IsValid() bool { return slices.Contains(allFeatures, f) }

type StatementKind string

const (
	StatementQuery       StatementKind = "RESOLVED_QUERY_STMT"
	StatementInsert      StatementKind = "RESOLVED_INSERT_STMT"
	StatementUpdate      StatementKind = "RESOLVED_UPDATE_STMT"
	StatementDelete      StatementKind = "RESOLVED_DELETE_STMT"
	StatementCreateTable StatementKind = "RESOLVED_CREATE_TABLE_STMT"
	StatementDrop        StatementKind = "RESOLVED_DROP_STMT"
	StatementExplain     StatementKind = "RESOLVED_EXPLAIN_STMT"
)

var allStatementKinds = []StatementKind{
	StatementQuery, StatementInsert, StatementUpdate, StatementDelete,
	StatementCreateTable, StatementDrop, StatementExplain,
}

func AllStatementKinds() []StatementKind { return slices.Clone(allStatementKinds) }

type LanguageOptions struct {
	EnabledLanguageFeatures []LanguageFeature `json:"enabledLanguageFeatures,omitempty" yaml:"enabledLanguageFeatures,omitempty"`
	// empty means queries only
	SupportedStatementKinds []StatementKind `json:"supportedStatementKinds,omitempty" yaml:"supportedStatementKinds,omitempty"`
}

func DefaultLanguageOptions() LanguageOptions {
	return LanguageOptions{SupportedStatementKinds: []StatementKind{StatementQuery}}
}

func MaximumLanguageOptions() LanguageOptions {
	opts := LanguageOptions{}
	opts.EnableMaximumLanguageFeatures()
	opts.SupportedStatementKinds = AllStatementKinds()
	return opts
}

// EnableMaximumLanguageFeatures turns on every optional feature, leaving statement kinds alone.
func (o *LanguageOptions) EnableMaximumLanguageFeatures() {
	o.EnabledLanguageFeatures = AllLanguageFeatures()
}

func (o *LanguageOptions) EnableFeature(f LanguageFeature) {
	if !o.FeatureEnabled(f) {
		o.EnabledLanguageFeatures = append(o.EnabledLanguageFeatures, f)
	}
}

func (o LanguageOptions) FeatureEnabled(f LanguageFeature) bool {
	return slices.Contains(o.EnabledLanguageFeatures, f)
}

func (o LanguageOptions) SupportsStatement(kind StatementKind) bool {
	if len(o.SupportedStatementKinds) == 0 {
		return kind == StatementQuery
	}
	return slices.Contains(o.SupportedStatementKinds, kind)
}

type ErrorMessageMode string

const (
	ErrorMessageWithPayload        ErrorMessageMode = "ERROR_MESSAGE_WITH_PAYLOAD"
	ErrorMessageOneLine            ErrorMessageMode = "ERROR_MESSAGE_ONE_LINE"
	ErrorMessageMultiLineWithCaret ErrorMessageMode = "ERROR_MESSAGE_MULTI_LINE_WITH_CARET"
)

func (m ErrorMessageMode) IsValid() bool {
	switch m {
	case ErrorMessageWithPayload, ErrorMessageOneLine, ErrorMessageMultiLineWithCaret:
		return true
	}
	return false
}

type ParseLocationRecordType string

const (
	ParseLocationRecordNone          ParseLocationRecordType = "PARSE_LOCATION_RECORD_NONE"
	ParseLocationRecordFullNodeScope ParseLocationRecordType = "PARSE_LOCATION_RECORD_FULL_NODE_SCOPE"
	ParseLocationRecordCodeSearch    ParseLocationRecordType = "PARSE_LOCATION_RECORD_CODE_SEARCH"
)

func (r ParseLocationRecordType) IsValid() bool {
	switch r {
	case ParseLocationRecordNone, ParseLocationRecordFullNodeScope, ParseLocationRecordCodeSearch:
		return true
	}
	return false
}

// AnalyzerOptions travel with every analyze request.
type AnalyzerOptions struct {
	ParseLocationRecordType ParseLocationRecordType `json:"parseLocationRecordType,omitempty"`
	ErrorMessageMode        ErrorMessageMode        `json:"errorMessageMode,omitempty"`
	LanguageOptions         LanguageOptions         `json:"languageOptions"`
}

// Normalized fills in defaults for unset fields.
func (o AnalyzerOptions) Normalized() AnalyzerOptions {
	if o.ParseLocationRecordType == "" {
		o.ParseLocationRecordType = ParseLocationRecordNone
	}
	if o.ErrorMessageMode == "" {
		o.ErrorMessageMode = ErrorMessageOneLine
	}
	return o
}
