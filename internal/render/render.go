// Package render prints analysis results for people (go-pretty tables) or
// for programs (indented JSON).
package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
	"github.com/tobsdb/sqlanalyzer/pkg/client"
	"github.com/tobsdb/sqlanalyzer/pkg/protocol"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func TableNames(w io.Writer, names []catalog.TableName) {
	if len(names) == 0 {
		fmt.Fprintln(w, "(0 tables)")
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Table"})
	for i, name := range names {
		t.AppendRow(table.Row{i + 1, name.String()})
	}
	t.Render()
}

func Analysis(w io.Writer, res *protocol.AnalyzeResponse) {
	fmt.Fprintln(w, "Statement:", res.StatementKind)

	if len(res.OutputColumns) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"Column", "Type"})
		for _, col := range res.OutputColumns {
			t.AppendRow(table.Row{col.Name, col.Type.SQLName()})
		}
		t.Render()
	}

	if len(res.ReferencedTables) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"Referenced table", "Location"})
		for _, ref := range res.ReferencedTables {
			t.AppendRow(table.Row{ref.TableName.String(), formatRange(ref.Location)})
		}
		t.Render()
	}

	if len(res.ReferencedColumns) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"Table", "Referenced column", "Type", "Location"})
		for _, col := range res.ReferencedColumns {
			t.AppendRow(table.Row{col.Table, col.Column, col.Type.SQLName(), formatRange(col.Location)})
		}
		t.Render()
	}
}

// Failure prints one classified analyze failure. Positions are 0-based.
func Failure(w io.Writer, failure client.AnalyzeFailure) {
	switch failure.Outcome {
	case client.OutcomeSucceeded:
		fmt.Fprintln(w, "no error")
	case client.OutcomeFailedParsed:
		fmt.Fprintf(w, "line: %d, char: %d, message: %s\n",
			failure.Detail.Line, failure.Detail.Column, failure.Detail.Message)
	default:
		fmt.Fprintf(w, "%s: %s\n", failure.Code, failure.Raw)
	}
}

// FailureJSON is the machine readable form of an analyze failure.
type FailureJSON struct {
	Outcome string `json:"outcome"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    *int   `json:"line,omitempty"`
	Column  *int   `json:"column,omitempty"`
}

func NewFailureJSON(failure client.AnalyzeFailure) FailureJSON {
	res := FailureJSON{Outcome: failure.Outcome.String(), Code: failure.Code.String(), Message: failure.Raw}
	if failure.Outcome == client.OutcomeFailedParsed {
		line, col := failure.Detail.Line, failure.Detail.Column
		res.Message, res.Line, res.Column = failure.Detail.Message, &line, &col
	}
	return res
}

func formatRange(r *protocol.Range) string {
	if r == nil {
		return "-"
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}
