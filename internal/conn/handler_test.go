package conn_test

import (
	"encoding/json"
	"strings"
	"testing"

	. "github.com/tobsdb/sqlanalyzer/internal/conn"
	"github.com/tobsdb/sqlanalyzer/internal/registry"
	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
	"github.com/tobsdb/sqlanalyzer/pkg/protocol"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
	"google.golang.org/grpc/codes"
	"gotest.tools/assert"
)

const valid_sql = "select *\n" +
	"from `sample-shop`.default_dataset.users\n" +
	"inner join `sample-shop`.default_dataset.orders on users.id = orders.user_id\n" +
	"where users.name like '%John%';"

func newTestServer(t *testing.T) *Server {
	ws, err := registry.NewWriteSettings("", true, 0)
	assert.NilError(t, err)
	reg, err := registry.New(ws)
	assert.NilError(t, err)
	return NewServer(reg, "test")
}

func sampleCatalog(t *testing.T) *catalog.SimpleCatalog {
	cat, err := catalog.Build("sample-shop", "default_dataset", []catalog.TableSpec{
		{Name: "users", Columns: []catalog.ColumnSpec{{Name: "id", Type: "INT64"}, {Name: "name", Type: "STRING"}}},
		{Name: "orders", Columns: []catalog.ColumnSpec{{Name: "user_id", Type: "INT64"}}},
	})
	assert.NilError(t, err)
	cat.AddBuiltinFunctions(catalog.BuiltinFunctionOptions{LanguageOptions: types.MaximumLanguageOptions()})
	return cat
}

func reqEncode(action protocol.Action, payload map[string]any) []byte {
	body := map[string]any{"action": action}
	for k, v := range payload {
		body[k] = v
	}
	v, _ := json.Marshal(body)
	return v
}

func decode[T any](t *testing.T, res protocol.Response) T {
	t.Helper()
	buf, err := json.Marshal(res.Data)
	assert.NilError(t, err)
	var v T
	assert.NilError(t, json.Unmarshal(buf, &v))
	return v
}

func register(t *testing.T, s *Server) int64 {
	res := RegisterCatalogReqHandler(s, reqEncode(protocol.ActionRegisterCatalog,
		map[string]any{"catalog": sampleCatalog(t)}))
	assert.Equal(t, res.Code, codes.OK, res.Message)
	return decode[protocol.RegisterCatalogResponse](t, res).RegisteredID
}

func TestActionHandlerUnknownAction(t *testing.T) {
	res := ActionHandler(newTestServer(t), "dropEverything", []byte(`{"action":"dropEverything"}`))
	assert.Equal(t, res.Code, codes.Unimplemented)
	assert.Equal(t, res.Message, "unknown action: dropEverything")
}

func TestTestConnectionReqHandler(t *testing.T) {
	res := ActionHandler(newTestServer(t), protocol.ActionTestConnection, nil)
	assert.Equal(t, res.Code, codes.OK)
	assert.Equal(t, res.Message, "connected")
}

func TestLanguageOptionsReqHandler(t *testing.T) {
	res := LanguageOptionsReqHandler(reqEncode(protocol.ActionGetLanguageOptions,
		map[string]any{"maximumFeatures": true}))
	assert.Equal(t, res.Code, codes.OK)
	assert.DeepEqual(t, res.Data, types.MaximumLanguageOptions())

	res = LanguageOptionsReqHandler(reqEncode(protocol.ActionGetLanguageOptions, nil))
	assert.DeepEqual(t, res.Data, types.DefaultLanguageOptions())

	res = LanguageOptionsReqHandler([]byte(`{"maximumFeatures": "yes"}`))
	assert.Equal(t, res.Code, codes.InvalidArgument)
}

func TestRegisterCatalogReqHandler(t *testing.T) {
	s := newTestServer(t)

	t.Run("register", func(t *testing.T) {
		assert.Equal(t, register(t, s), int64(1))
		assert.Equal(t, register(t, s), int64(2))
	})

	t.Run("missing catalog", func(t *testing.T) {
		res := RegisterCatalogReqHandler(s, reqEncode(protocol.ActionRegisterCatalog, nil))
		assert.Equal(t, res.Code, codes.InvalidArgument)
		assert.Equal(t, res.Message, "missing catalog")
	})

	t.Run("invalid column type", func(t *testing.T) {
		raw := []byte(`{"action":"registerCatalog","catalog":{"name":"catalog","tables":[
			{"name":"t","columns":[{"name":"c","type":"TYPE_MONEY"}]}]}}`)
		res := RegisterCatalogReqHandler(s, raw)
		assert.Equal(t, res.Code, codes.InvalidArgument)
		assert.Assert(t, strings.Contains(res.Message, "invalid column type"), res.Message)
	})

	for name, raw := range map[string]string{
		"null table":   `{"action":"registerCatalog","catalog":{"name":"c","tables":[null]}}`,
		"null catalog": `{"action":"registerCatalog","catalog":{"name":"c","catalogs":[null]}}`,
		"null column":  `{"action":"registerCatalog","catalog":{"name":"c","tables":[{"name":"t","columns":[null]}]}}`,
	} {
		t.Run(name, func(t *testing.T) {
			res := RegisterCatalogReqHandler(s, []byte(raw))
			assert.Equal(t, res.Code, codes.InvalidArgument)
			assert.Assert(t, strings.Contains(res.Message, name), res.Message)
		})
	}
}

func TestUnregisterAndListCatalogs(t *testing.T) {
	s := newTestServer(t)
	id := register(t, s)
	register(t, s)

	res := ListCatalogsReqHandler(s)
	list := decode[protocol.ListCatalogsResponse](t, res)
	assert.Equal(t, len(list.Catalogs), 2)
	assert.Equal(t, list.Catalogs[0].TableCount, 2)
	assert.Equal(t, list.Catalogs[0].Name, catalog.RootName)

	res = UnregisterCatalogReqHandler(s, reqEncode(protocol.ActionUnregisterCatalog,
		map[string]any{"registeredId": id}))
	assert.Equal(t, res.Code, codes.OK, res.Message)

	res = UnregisterCatalogReqHandler(s, reqEncode(protocol.ActionUnregisterCatalog,
		map[string]any{"registeredId": id}))
	assert.Equal(t, res.Code, codes.NotFound)

	list = decode[protocol.ListCatalogsResponse](t, ListCatalogsReqHandler(s))
	assert.Equal(t, len(list.Catalogs), 1)
}

func TestExtractTableNamesReqHandler(t *testing.T) {
	res := ExtractTableNamesReqHandler(reqEncode(protocol.ActionExtractTableNames,
		map[string]any{"sqlStatement": valid_sql}))
	assert.Equal(t, res.Code, codes.OK, res.Message)
	names := decode[protocol.ExtractTableNamesResponse](t, res)
	assert.DeepEqual(t, names.TableName, []catalog.TableName{
		catalog.NewTableName("sample-shop", "default_dataset", "users"),
		catalog.NewTableName("sample-shop", "default_dataset", "orders"),
	})

	res = ExtractTableNamesReqHandler(reqEncode(protocol.ActionExtractTableNames,
		map[string]any{"sqlStatement": "select * from t join inner u"}))
	assert.Equal(t, res.Code, codes.InvalidArgument)
	assert.Equal(t, res.Message, "Syntax error: Unexpected keyword INNER [at 1:22]")
	assert.DeepEqual(t, res.Location, &protocol.Location{Line: 1, Column: 22, Offset: 21})
}

func TestAnalyzeReqHandler(t *testing.T) {
	s := newTestServer(t)
	id := register(t, s)

	analyze := func(sql string, catalog_id int64, options types.AnalyzerOptions) protocol.Response {
		return AnalyzeReqHandler(s, reqEncode(protocol.ActionAnalyze, map[string]any{
			"sqlStatement":        sql,
			"registeredCatalogId": catalog_id,
			"options":             options,
		}))
	}
	options := types.AnalyzerOptions{
		ParseLocationRecordType: types.ParseLocationRecordCodeSearch,
		ErrorMessageMode:        types.ErrorMessageOneLine,
		LanguageOptions:         types.MaximumLanguageOptions(),
	}

	t.Run("valid statement", func(t *testing.T) {
		res := analyze(valid_sql, id, options)
		assert.Equal(t, res.Code, codes.OK, res.Message)
		out := decode[protocol.AnalyzeResponse](t, res)
		assert.Equal(t, out.StatementKind, types.StatementQuery)
		assert.Equal(t, len(out.OutputColumns), 3)
		assert.Equal(t, len(out.ReferencedTables), 2)
	})

	t.Run("one line error", func(t *testing.T) {
		res := analyze("select nope from `sample-shop`.default_dataset.users", id, options)
		assert.Equal(t, res.Code, codes.InvalidArgument)
		assert.Equal(t, res.Message, "Unrecognized name: nope [at 1:8]")
	})

	t.Run("caret error", func(t *testing.T) {
		caret := options
		caret.ErrorMessageMode = types.ErrorMessageMultiLineWithCaret
		res := analyze("select nope from `sample-shop`.default_dataset.users", id, caret)
		assert.Equal(t, res.Code, codes.InvalidArgument)
		assert.Equal(t, res.Message, "Unrecognized name: nope [at 1:8]\n"+
			"select nope from `sample-shop`.default_dataset.users\n"+
			"       ^")
	})

	t.Run("payload error", func(t *testing.T) {
		payload := options
		payload.ErrorMessageMode = types.ErrorMessageWithPayload
		res := analyze("select nope from `sample-shop`.default_dataset.users", id, payload)
		assert.Equal(t, res.Message, "Unrecognized name: nope")
		assert.DeepEqual(t, res.Location, &protocol.Location{Line: 1, Column: 8, Offset: 7})
	})

	t.Run("unknown catalog", func(t *testing.T) {
		res := analyze(valid_sql, 99, options)
		assert.Equal(t, res.Code, codes.NotFound)
	})

	t.Run("invalid mode", func(t *testing.T) {
		bad := options
		bad.ErrorMessageMode = "ERROR_MESSAGE_LOUD"
		res := analyze(valid_sql, id, bad)
		assert.Equal(t, res.Code, codes.InvalidArgument)
	})
}
