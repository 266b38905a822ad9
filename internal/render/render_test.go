package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	. "github.com/tobsdb/sqlanalyzer/internal/render"
	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
	"github.com/tobsdb/sqlanalyzer/pkg/client"
	"github.com/tobsdb/sqlanalyzer/pkg/protocol"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
	"google.golang.org/grpc/codes"
	"gotest.tools/assert"
)

func TestTableNames(t *testing.T) {
	var out bytes.Buffer
	TableNames(&out, []catalog.TableName{catalog.NewTableName("p", "d", "users")})
	assert.Assert(t, strings.Contains(out.String(), "p.d.users"))

	out.Reset()
	TableNames(&out, nil)
	assert.Equal(t, out.String(), "(0 tables)\n")
}

func TestAnalysis(t *testing.T) {
	var out bytes.Buffer
	Analysis(&out, &protocol.AnalyzeResponse{
		StatementKind:     types.StatementQuery,
		OutputColumns:     []protocol.OutputColumn{{Name: "total", Type: types.TypeDouble}},
		ReferencedTables:  []protocol.ReferencedTable{{TableName: catalog.NewTableName("p", "d", "orders"), Location: &protocol.Range{Start: 18, End: 28}}},
		ReferencedColumns: []protocol.ReferencedColumn{{Table: "p.d.orders", Column: "total", Type: types.TypeDouble}},
	})
	text := out.String()
	assert.Assert(t, strings.HasPrefix(text, "Statement: RESOLVED_QUERY_STMT\n"))
	assert.Assert(t, strings.Contains(text, "FLOAT64"))
	assert.Assert(t, strings.Contains(text, "18-28"))
	assert.Assert(t, strings.Contains(text, "p.d.orders"))
}

func TestFailure(t *testing.T) {
	parsed := client.AnalyzeFailure{
		Outcome: client.OutcomeFailedParsed,
		Code:    codes.InvalidArgument,
		Detail:  client.ErrorDetail{Message: "Syntax error: Unexpected keyword INNER", Line: 2, Column: 5},
	}
	var out bytes.Buffer
	Failure(&out, parsed)
	assert.Equal(t, out.String(), "line: 2, char: 5, message: Syntax error: Unexpected keyword INNER\n")

	out.Reset()
	Failure(&out, client.AnalyzeFailure{Outcome: client.OutcomeFailedRaw, Code: codes.NotFound, Raw: "Registered catalog 9 not found"})
	assert.Equal(t, out.String(), "NotFound: Registered catalog 9 not found\n")

	out.Reset()
	assert.NilError(t, JSON(&out, NewFailureJSON(parsed)))
	var back map[string]any
	assert.NilError(t, json.Unmarshal(out.Bytes(), &back))
	assert.Equal(t, back["line"], float64(2))
	assert.Equal(t, back["column"], float64(5))
	assert.Equal(t, back["code"], "InvalidArgument")
}
