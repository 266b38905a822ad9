package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
	"github.com/tobsdb/sqlanalyzer/pkg/protocol"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
)

// TestConnection is a liveness probe.
func (c *Client) TestConnection(ctx context.Context) error {
	if err := c.query(ctx, protocol.ActionTestConnection, nil, nil); err != nil {
		return wrap(ErrConnection, err)
	}
	return nil
}

// LanguageOptions returns the service's maximum language options, or its
// defaults when maximum is false.
func (c *Client) LanguageOptions(ctx context.Context, maximum bool) (types.LanguageOptions, error) {
	var options types.LanguageOptions
	err := c.query(ctx, protocol.ActionGetLanguageOptions,
		protocol.LanguageOptionsRequest{MaximumFeatures: maximum}, &options)
	return options, err
}

func (c *Client) RegisterCatalog(ctx context.Context, cat *catalog.SimpleCatalog) (int64, error) {
	var res protocol.RegisterCatalogResponse
	err := c.query(ctx, protocol.ActionRegisterCatalog, protocol.RegisterCatalogRequest{Catalog: cat}, &res)
	if err != nil {
		return 0, wrap(ErrRegistration, err)
	}
	return res.RegisteredID, nil
}

func (c *Client) UnregisterCatalog(ctx context.Context, id int64) error {
	err := c.query(ctx, protocol.ActionUnregisterCatalog, protocol.UnregisterCatalogRequest{RegisteredID: id}, nil)
	if err != nil {
		return wrap(ErrRegistration, err)
	}
	return nil
}

func (c *Client) ListCatalogs(ctx context.Context) ([]protocol.CatalogInfo, error) {
	var res protocol.ListCatalogsResponse
	if err := c.query(ctx, protocol.ActionListCatalogs, nil, &res); err != nil {
		return nil, err
	}
	return res.Catalogs, nil
}

func (c *Client) ExtractTableNames(ctx context.Context, sql string) ([]catalog.TableName, error) {
	var res protocol.ExtractTableNamesResponse
	err := c.query(ctx, protocol.ActionExtractTableNames, protocol.ExtractTableNamesRequest{SQLStatement: sql}, &res)
	if err != nil {
		return nil, wrap(ErrExtraction, err)
	}
	return res.TableName, nil
}

func (c *Client) Analyze(ctx context.Context, sql string, id int64, options types.AnalyzerOptions) (*protocol.AnalyzeResponse, error) {
	var res protocol.AnalyzeResponse
	err := c.query(ctx, protocol.ActionAnalyze, protocol.AnalyzeRequest{
		SQLStatement:        sql,
		RegisteredCatalogID: id,
		Options:             options,
	}, &res)
	if err != nil {
		return nil, wrap(ErrAnalysis, err)
	}
	return &res, nil
}

// wrap tags err with the operation sentinel. Transport failures keep
// matching ErrConnection as well.
func wrap(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
