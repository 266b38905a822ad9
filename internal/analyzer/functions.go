package analyzer

import (
	"github.com/tobsdb/sqlanalyzer/pkg"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
)

type functionKind int

const (
	scalarFunction functionKind = iota
	aggregateFunction
	// only callable with an OVER clause
	analyticFunction
)

type function struct {
	name    string
	kind    functionKind
	feature types.LanguageFeature
	minArgs int
	// -1 for variadic
	maxArgs int
	returns func(args []types.TypeKind) types.TypeKind
}

func (f *function) acceptsArgs(n int) bool {
	return n >= f.minArgs && (f.maxArgs < 0 || n <= f.maxArgs)
}

// builtin functions by lower-case name
var builtin_functions = pkg.Map[string, *function]{}

func fixed(t types.TypeKind) func([]types.TypeKind) types.TypeKind {
	return func([]types.TypeKind) types.TypeKind { return t }
}

func argType(i int) func([]types.TypeKind) types.TypeKind {
	return func(args []types.TypeKind) types.TypeKind {
		if i < len(args) {
			return args[i]
		}
		return types.TypeUnknown
	}
}

// first argument whose type is known
func firstKnown(args []types.TypeKind) types.TypeKind {
	for _, t := range args {
		if t != types.TypeUnknown {
			return t
		}
	}
	return types.TypeUnknown
}

func integerOrDouble(args []types.TypeKind) types.TypeKind {
	if len(args) > 0 && args[0].IsInteger() {
		return types.TypeInt64
	}
	return types.TypeDouble
}

func sumType(args []types.TypeKind) types.TypeKind {
	if len(args) == 0 {
		return types.TypeUnknown
	}
	switch t := args[0]; {
	case t.IsInteger():
		return types.TypeInt64
	case t == types.TypeNumeric || t == types.TypeBignumeric:
		return t
	case t == types.TypeUnknown:
		return types.TypeUnknown
	}
	return types.TypeDouble
}

func stringOrBytes(args []types.TypeKind) types.TypeKind {
	if len(args) > 0 && args[0] == types.TypeBytes {
		return types.TypeBytes
	}
	return types.TypeString
}

func register(kind functionKind, feature types.LanguageFeature, min_args, max_args int,
	returns func([]types.TypeKind) types.TypeKind, names ...string,
) {
	for _, name := range names {
		builtin_functions.Set(name, &function{name, kind, feature, min_args, max_args, returns})
	}
}

func init() {
	// numeric
	register(scalarFunction, "", 1, 1, argType(0), "abs", "sign")
	register(scalarFunction, "", 1, 1, integerOrDouble, "ceil", "ceiling", "floor")
	register(scalarFunction, "", 1, 2, fixed(types.TypeDouble), "round", "trunc", "truncate", "log")
	register(scalarFunction, "", 1, 1, fixed(types.TypeDouble), "sqrt", "exp", "ln", "log10")
	register(scalarFunction, "", 2, 2, fixed(types.TypeDouble), "pow", "power", "atan2")
	register(scalarFunction, "", 2, 2, integerOrDouble, "mod")
	register(scalarFunction, "", 2, 2, fixed(types.TypeInt64), "div")
	register(scalarFunction, "", 0, 1, fixed(types.TypeDouble), "rand")
	register(scalarFunction, "", 1, -1, firstKnown, "greatest", "least")
	register(scalarFunction, types.FeatureNumericType, 1, 1, fixed(types.TypeNumeric), "parse_numeric")
	register(scalarFunction, types.FeatureBignumericType, 1, 1, fixed(types.TypeBignumeric), "parse_bignumeric")

	// string
	register(scalarFunction, "", 1, 1, fixed(types.TypeInt64),
		"length", "char_length", "character_length", "octet_length", "byte_length", "ascii")
	register(scalarFunction, "", 1, 1, argType(0), "lower", "upper", "lcase", "ucase", "reverse")
	register(scalarFunction, "", 1, -1, stringOrBytes, "concat")
	register(scalarFunction, "", 2, 3, argType(0), "substr", "substring")
	register(scalarFunction, "", 1, -1, fixed(types.TypeString), "trim", "ltrim", "rtrim", "format")
	register(scalarFunction, "", 2, 3, fixed(types.TypeString), "lpad", "rpad", "regexp_extract")
	register(scalarFunction, "", 2, 2, fixed(types.TypeString), "repeat")
	register(scalarFunction, "", 3, 3, fixed(types.TypeString), "replace", "regexp_replace")
	register(scalarFunction, "", 2, 2, fixed(types.TypeBool), "starts_with", "ends_with", "regexp_contains")
	register(scalarFunction, "", 2, -1, fixed(types.TypeInt64), "strpos", "instr", "locate")
	register(scalarFunction, "", 1, 2, fixed(types.TypeUnknown), "split")
	register(scalarFunction, "", 1, 1, fixed(types.TypeString), "to_base64", "to_hex")
	register(scalarFunction, "", 1, 1, fixed(types.TypeBytes), "from_base64", "from_hex", "md5", "sha1", "sha256")

	// conditional
	register(scalarFunction, "", 1, -1, firstKnown, "coalesce")
	register(scalarFunction, "", 2, 2, firstKnown, "ifnull", "nullif")
	register(scalarFunction, "", 3, 3, func(args []types.TypeKind) types.TypeKind {
		return firstKnown(args[1:])
	}, "if")

	// date and time
	register(scalarFunction, "", 0, 1, fixed(types.TypeDate), "current_date", "curdate")
	register(scalarFunction, "", 0, 1, fixed(types.TypeTimestamp), "current_timestamp", "now")
	register(scalarFunction, types.FeatureCivilTime, 0, 1, fixed(types.TypeTime), "current_time", "curtime")
	register(scalarFunction, types.FeatureCivilTime, 0, 1, fixed(types.TypeDatetime), "current_datetime")
	register(scalarFunction, "", 1, -1, fixed(types.TypeDate), "date", "parse_date")
	register(scalarFunction, "", 1, -1, fixed(types.TypeTimestamp), "timestamp", "parse_timestamp",
		"timestamp_add", "timestamp_sub")
	register(scalarFunction, types.FeatureCivilTime, 1, -1, fixed(types.TypeDatetime), "datetime")
	register(scalarFunction, types.FeatureCivilTime, 1, -1, fixed(types.TypeTime), "time")
	register(scalarFunction, "", 2, -1, argType(0), "date_add", "date_sub", "date_trunc")
	register(scalarFunction, "", 2, -1, fixed(types.TypeInt64),
		"date_diff", "datediff", "timestamp_diff", "timestampdiff", "extract")
	register(scalarFunction, "", 2, -1, fixed(types.TypeString), "format_date", "format_timestamp")
	register(scalarFunction, "", 0, 1, fixed(types.TypeInt64), "unix_seconds", "unix_timestamp")

	// json
	register(scalarFunction, "", 1, 2, argType(0), "json_extract", "json_query")
	register(scalarFunction, "", 1, 2, fixed(types.TypeString), "json_value", "json_extract_scalar", "to_json_string")
	register(scalarFunction, types.FeatureJSONType, 1, -1, fixed(types.TypeJSON), "parse_json", "to_json")

	// geography
	register(scalarFunction, types.FeatureGeography, 2, 2, fixed(types.TypeGeography), "st_geogpoint")
	register(scalarFunction, types.FeatureGeography, 2, 3, fixed(types.TypeDouble), "st_distance")
	register(scalarFunction, types.FeatureGeography, 1, 1, fixed(types.TypeString), "st_astext")

	// misc
	register(scalarFunction, "", 0, 0, fixed(types.TypeString),
		"generate_uuid", "uuid", "session_user", "current_user", "user")

	// aggregate
	register(aggregateFunction, "", 0, -1, fixed(types.TypeInt64), "count", "count_if", "countif",
		"approx_count_distinct")
	register(aggregateFunction, "", 1, 1, sumType, "sum")
	register(aggregateFunction, "", 1, 1, fixed(types.TypeDouble), "avg", "stddev", "stddev_pop",
		"stddev_samp", "variance", "var_pop", "var_samp")
	register(aggregateFunction, "", 1, 1, argType(0), "min", "max", "any_value")
	register(aggregateFunction, "", 1, -1, stringOrBytes, "group_concat", "string_agg")
	register(aggregateFunction, "", 1, 1, fixed(types.TypeInt64), "bit_and", "bit_or", "bit_xor")
	register(aggregateFunction, "", 1, 1, fixed(types.TypeBool), "logical_and", "logical_or")
	register(aggregateFunction, "", 1, -1, fixed(types.TypeUnknown), "array_agg")

	// analytic
	register(analyticFunction, types.FeatureAnalyticFunctions, 0, 0, fixed(types.TypeInt64),
		"row_number", "rank", "dense_rank")
	register(analyticFunction, types.FeatureAnalyticFunctions, 0, 0, fixed(types.TypeDouble),
		"percent_rank", "cume_dist")
	register(analyticFunction, types.FeatureAnalyticFunctions, 1, 1, fixed(types.TypeInt64), "ntile")
	register(analyticFunction, types.FeatureAnalyticFunctions, 1, 3, argType(0),
		"lag", "lead", "first_value", "last_value", "nth_value")
}
