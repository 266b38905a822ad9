// Package demo runs the sample-shop walkthrough: launch a service, register
// a small catalog, extract table names and analyze one good and one bad
// statement.
package demo

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tobsdb/sqlanalyzer/internal/render"
	"github.com/tobsdb/sqlanalyzer/pkg"
	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
	"github.com/tobsdb/sqlanalyzer/pkg/client"
	"github.com/tobsdb/sqlanalyzer/pkg/launcher"
	"github.com/tobsdb/sqlanalyzer/pkg/session"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
)

const DefaultPort = 50005

const (
	ProjectID   = "sample-shop"
	DatasetName = "default_dataset"
)

const ValidSQL = "select *\n" +
	"from `sample-shop`.default_dataset.users\n" +
	"inner join `sample-shop`.default_dataset.orders on users.id = orders.user_id\n" +
	"where users.name like '%John%';"

// InvalidSQL has its join keywords swapped.
const InvalidSQL = "select *\n" +
	"from `sample-shop`.default_dataset.users\n" +
	"join inner `sample-shop`.default_dataset.orders on users.id = orders.user_id\n" +
	"where users.name like '%John%';"

type Options struct {
	// connect here instead of launching a service
	Addr   string
	Launch launcher.Options
	Client client.Options
	// registered in place of SampleCatalog when set
	Catalog *catalog.SimpleCatalog
}

func SampleCatalog() (*catalog.SimpleCatalog, error) {
	return catalog.Build(ProjectID, DatasetName, []catalog.TableSpec{
		{Name: "users", Columns: []catalog.ColumnSpec{{Name: "id", Type: "INT64"}, {Name: "name", Type: "STRING"}}},
		{Name: "orders", Columns: []catalog.ColumnSpec{{Name: "user_id", Type: "INT64"}}},
	})
}

// Run writes the walkthrough to w. Only a failure to reach the service is
// returned; failed queries are reported and the walkthrough moves on.
func Run(ctx context.Context, w io.Writer, opts Options) error {
	if opts.Addr == "" && opts.Launch.Port == 0 {
		opts.Launch.Port = DefaultPort
	}

	s, err := session.Open(ctx, session.Options{
		Addr:                    opts.Addr,
		Launch:                  opts.Launch,
		Client:                  opts.Client,
		ParseLocationRecordType: types.ParseLocationRecordCodeSearch,
		ErrorMessageMode:        types.ErrorMessageOneLine,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(context.Background()); err != nil {
			pkg.WarnLog("closing session", err)
		}
	}()
	fmt.Fprintln(w, "Connected to sqlanalyzer")

	cat := opts.Catalog
	if cat == nil {
		if cat, err = SampleCatalog(); err != nil {
			return err
		}
	}
	id, err := s.Register(ctx, cat)
	if err != nil {
		pkg.ErrorLog("registering catalog", err)
	} else {
		fmt.Fprintf(w, "Registered catalog %d\n", id)
	}

	names, err := s.ExtractTableNames(ctx, ValidSQL)
	if err != nil {
		pkg.ErrorLog("extracting table names", err)
	} else {
		fmt.Fprintln(w, "Extracted table names:")
		render.TableNames(w, names)
	}

	res, err := s.Analyze(ctx, ValidSQL)
	if err != nil {
		pkg.ErrorLog("analyzing valid statement", err)
	} else {
		fmt.Fprintln(w, "Analyzed valid statement:")
		render.Analysis(w, res)
	}

	_, err = s.Analyze(ctx, InvalidSQL)
	if errors.Is(err, client.ErrConnection) {
		return err
	}
	fmt.Fprintln(w, "Analyzed invalid statement:")
	render.Failure(w, client.InspectAnalyzeError(err))
	return nil
}
