package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
	"github.com/tobsdb/sqlanalyzer/pkg/client"
	. "github.com/tobsdb/sqlanalyzer/pkg/session"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
	"gotest.tools/assert"
)

func sampleCatalog(t *testing.T) *catalog.SimpleCatalog {
	cat, err := catalog.Build("sample-shop", "default_dataset", []catalog.TableSpec{
		{Name: "users", Columns: []catalog.ColumnSpec{{Name: "id", Type: "INT64"}, {Name: "name", Type: "STRING"}}},
		{Name: "orders", Columns: []catalog.ColumnSpec{{Name: "user_id", Type: "INT64"}}},
	})
	assert.NilError(t, err)
	return cat
}

func TestSession(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Options{ErrorMessageMode: types.ErrorMessageOneLine})
	assert.NilError(t, err)
	defer s.Close(ctx)

	assert.DeepEqual(t, s.LanguageOptions(), types.MaximumLanguageOptions())
	assert.Equal(t, s.AnalyzerOptions().ParseLocationRecordType, types.ParseLocationRecordNone)
	assert.Equal(t, s.LastOutcome(), client.OutcomeIdle)

	_, err = s.Analyze(ctx, "select 1")
	assert.Assert(t, errors.Is(err, ErrNotRegistered))

	cat := sampleCatalog(t)
	id, err := s.Register(ctx, cat)
	assert.NilError(t, err)
	assert.Assert(t, cat.BuiltinFunctionOptions != nil)

	res, err := s.Analyze(ctx, "select name from `sample-shop`.default_dataset.users")
	assert.NilError(t, err)
	assert.Equal(t, len(res.OutputColumns), 1)
	assert.Equal(t, s.LastOutcome(), client.OutcomeSucceeded)

	_, err = s.Analyze(ctx, "select nope from `sample-shop`.default_dataset.users")
	assert.Assert(t, errors.Is(err, client.ErrAnalysis))
	assert.Equal(t, s.LastOutcome(), client.OutcomeFailedParsed)

	// registering again replaces the earlier catalog
	next, err := s.Register(ctx, sampleCatalog(t))
	assert.NilError(t, err)
	assert.Assert(t, next != id)
	catalogs, err := s.Client().ListCatalogs(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(catalogs), 1)

	assert.NilError(t, s.Close(ctx))
	assert.Assert(t, !s.Client().Connected())
}

func TestSessionDefaultLanguage(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Options{DefaultLanguage: true})
	assert.NilError(t, err)
	defer s.Close(ctx)

	assert.DeepEqual(t, s.LanguageOptions(), types.DefaultLanguageOptions())
	_, err = s.Register(ctx, sampleCatalog(t))
	assert.NilError(t, err)

	_, err = s.Analyze(ctx, "select name, row_number() over (order by id) from `sample-shop`.default_dataset.users")
	assert.Assert(t, errors.Is(err, client.ErrAnalysis))
}

func TestOpenUnreachable(t *testing.T) {
	_, err := Open(context.Background(), Options{Addr: "127.0.0.1:1"})
	assert.Assert(t, errors.Is(err, client.ErrConnection))
}
