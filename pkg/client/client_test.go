package client_test

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tobsdb/sqlanalyzer/internal/conn"
	"github.com/tobsdb/sqlanalyzer/internal/registry"
	. "github.com/tobsdb/sqlanalyzer/pkg/client"
	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gotest.tools/assert"
)

const valid_sql = "select *\n" +
	"from `sample-shop`.default_dataset.users\n" +
	"inner join `sample-shop`.default_dataset.orders on users.id = orders.user_id\n" +
	"where users.name like '%John%';"

const invalid_sql = "select *\n" +
	"from `sample-shop`.default_dataset.users\n" +
	"join inner `sample-shop`.default_dataset.orders on users.id = orders.user_id\n" +
	"where users.name like '%John%';"

func startService(t *testing.T) string {
	ws, err := registry.NewWriteSettings("", true, 0)
	assert.NilError(t, err)
	reg, err := registry.New(ws)
	assert.NilError(t, err)
	ts := httptest.NewServer(conn.NewServer(reg, "test").Handler())
	t.Cleanup(ts.Close)
	return strings.TrimPrefix(ts.URL, "http://")
}

func dial(t *testing.T) *Client {
	c, err := Dial(context.Background(), startService(t), Options{RequestTimeout: 5 * time.Second})
	assert.NilError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleCatalog(t *testing.T, options types.LanguageOptions) *catalog.SimpleCatalog {
	cat, err := catalog.Build("sample-shop", "default_dataset", []catalog.TableSpec{
		{Name: "users", Columns: []catalog.ColumnSpec{{Name: "id", Type: "INT64"}, {Name: "name", Type: "STRING"}}},
		{Name: "orders", Columns: []catalog.ColumnSpec{{Name: "user_id", Type: "INT64"}}},
	})
	assert.NilError(t, err)
	cat.AddBuiltinFunctions(catalog.BuiltinFunctionOptions{LanguageOptions: options})
	return cat
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("127.0.0.1:50005", Options{})
	assert.NilError(t, err)
	assert.Equal(t, c.Url.String(), "ws://127.0.0.1:50005/")
	assert.Assert(t, !c.Connected())

	_, err = NewClient("http://127.0.0.1:50005", Options{})
	assert.Assert(t, errors.Is(err, ErrConnection))
}

func TestDialFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	addr := l.Addr().String()
	l.Close()

	_, err = Dial(context.Background(), addr, Options{})
	assert.Assert(t, errors.Is(err, ErrConnection), err)
}

func TestSampleFlow(t *testing.T) {
	ctx := context.Background()
	c := dial(t)

	options, err := c.LanguageOptions(ctx, true)
	assert.NilError(t, err)
	assert.DeepEqual(t, options, types.MaximumLanguageOptions())

	id, err := c.RegisterCatalog(ctx, sampleCatalog(t, options))
	assert.NilError(t, err)
	assert.Equal(t, id, int64(1))

	names, err := c.ExtractTableNames(ctx, valid_sql)
	assert.NilError(t, err)
	assert.Equal(t, len(names), 2)
	assert.Equal(t, names[0].String(), "sample-shop.default_dataset.users")

	analyzer_options := types.AnalyzerOptions{
		ParseLocationRecordType: types.ParseLocationRecordCodeSearch,
		ErrorMessageMode:        types.ErrorMessageOneLine,
		LanguageOptions:         options,
	}
	res, err := c.Analyze(ctx, valid_sql, id, analyzer_options)
	assert.NilError(t, err)
	assert.Equal(t, res.StatementKind, types.StatementQuery)
	assert.Equal(t, len(res.OutputColumns), 3)

	_, err = c.Analyze(ctx, invalid_sql, id, analyzer_options)
	assert.Assert(t, errors.Is(err, ErrAnalysis))
	assert.Equal(t, status.Code(err), codes.InvalidArgument)

	failure := InspectAnalyzeError(err)
	assert.Equal(t, failure.Outcome, OutcomeFailedParsed)
	assert.DeepEqual(t, failure.Detail, ErrorDetail{
		Message: "Syntax error: Unexpected keyword INNER",
		Line:    2,
		Column:  5,
	})

	catalogs, err := c.ListCatalogs(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(catalogs), 1)

	assert.NilError(t, c.UnregisterCatalog(ctx, id))
	err = c.UnregisterCatalog(ctx, id)
	assert.Assert(t, errors.Is(err, ErrRegistration))
	assert.Equal(t, status.Code(err), codes.NotFound)
}

func TestAnalyzeUnknownCatalog(t *testing.T) {
	c := dial(t)
	_, err := c.Analyze(context.Background(), valid_sql, 404, types.AnalyzerOptions{})
	assert.Assert(t, errors.Is(err, ErrAnalysis))

	failure := InspectAnalyzeError(err)
	assert.Equal(t, failure.Outcome, OutcomeFailedRaw)
	assert.Equal(t, failure.Code, codes.NotFound)
}

func TestExtractSyntaxError(t *testing.T) {
	c := dial(t)
	_, err := c.ExtractTableNames(context.Background(), "select * from")
	assert.Assert(t, errors.Is(err, ErrExtraction))

	var e *Error
	assert.Assert(t, errors.As(err, &e))
	assert.Equal(t, e.Code, codes.InvalidArgument)
	assert.Assert(t, e.Location != nil)
}

func TestRegisterInvalidCatalog(t *testing.T) {
	c := dial(t)
	cat := catalog.NewSimpleCatalog(catalog.RootName)
	cat.Tables = append(cat.Tables, &catalog.SimpleTable{Name: "t", Columns: []*catalog.SimpleColumn{
		{Name: "c", Type: "TYPE_MONEY"},
	}})

	_, err := c.RegisterCatalog(context.Background(), cat)
	assert.Assert(t, errors.Is(err, ErrRegistration))
	assert.Equal(t, status.Code(err), codes.InvalidArgument)
}

func TestCancelledContext(t *testing.T) {
	c := dial(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListCatalogs(ctx)
	assert.Assert(t, errors.Is(err, ErrConnection), err)

	// the connection stays usable
	_, err = c.ListCatalogs(context.Background())
	assert.NilError(t, err)
}

func TestParseErrorDetail(t *testing.T) {
	detail, err := ParseErrorDetail("Syntax error: Unexpected keyword INNER [at 3:6]")
	assert.NilError(t, err)
	assert.DeepEqual(t, detail, ErrorDetail{Message: "Syntax error: Unexpected keyword INNER", Line: 2, Column: 5})

	detail, err = ParseErrorDetail("Unrecognized name: x [at 1:8]\nselect x\n       ^")
	assert.NilError(t, err)
	assert.Equal(t, detail.Message, "Unrecognized name: x")

	_, err = ParseErrorDetail("Registered catalog 4 not found")
	assert.Assert(t, errors.Is(err, ErrUnparsedDetail))
	var unparsed *UnparsedDetailError
	assert.Assert(t, errors.As(err, &unparsed))
	assert.Equal(t, unparsed.Detail, "Registered catalog 4 not found")
}

func TestInspectAnalyzeError(t *testing.T) {
	assert.Equal(t, InspectAnalyzeError(nil).Outcome, OutcomeSucceeded)

	failure := InspectAnalyzeError(errors.New("boom"))
	assert.Equal(t, failure.Outcome, OutcomeFailedRaw)
	assert.Equal(t, failure.Raw, "boom")

	failure = InspectAnalyzeError(&Error{Code: codes.InvalidArgument, Details: "no position here"})
	assert.Equal(t, failure.Outcome, OutcomeFailedRaw)
}
