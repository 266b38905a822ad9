// Package analyzer parses and resolves SQL statements against a registered
// catalog. Statements are parsed with the TiDB parser; names, functions and
// language features are checked here.
package analyzer

import (
	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
	"github.com/tobsdb/sqlanalyzer/pkg/protocol"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
)

// Analyze resolves one statement against cat. Failures are *Error values.
func Analyze(sql string, cat *catalog.SimpleCatalog, options types.AnalyzerOptions) (*protocol.AnalyzeResponse, error) {
	parsed, err := parseStatement(sql)
	if err != nil {
		return nil, err
	}

	r := newResolver(parsed, cat, options)
	kind, cols, err := r.resolveStatement(parsed.stmt)
	if err != nil {
		return nil, err
	}

	outputs := make([]protocol.OutputColumn, 0, len(cols))
	for _, c := range cols {
		outputs = append(outputs, protocol.OutputColumn{Name: c.name, Type: c.typ})
	}
	return &protocol.AnalyzeResponse{
		StatementKind:     kind,
		OutputColumns:     outputs,
		ReferencedTables:  r.tables,
		ReferencedColumns: r.columns,
	}, nil
}
