package conn

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tobsdb/sqlanalyzer/internal/analyzer"
	"github.com/tobsdb/sqlanalyzer/internal/registry"
	"github.com/tobsdb/sqlanalyzer/pkg"
	"github.com/tobsdb/sqlanalyzer/pkg/protocol"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
	"google.golang.org/grpc/codes"
)

func TestConnectionReqHandler(s *Server) protocol.Response {
	return protocol.NewResponse("connected", map[string]any{"version": s.Version})
}

func LanguageOptionsReqHandler(raw []byte) protocol.Response {
	var req protocol.LanguageOptionsRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return protocol.NewErrorResponse(codes.InvalidArgument, err.Error())
	}

	options := types.DefaultLanguageOptions()
	if req.MaximumFeatures {
		options = types.MaximumLanguageOptions()
	}
	return protocol.NewResponse("language options", options)
}

func RegisterCatalogReqHandler(s *Server, raw []byte) protocol.Response {
	var req protocol.RegisterCatalogRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return protocol.NewErrorResponse(codes.InvalidArgument, err.Error())
	}
	if req.Catalog == nil {
		return protocol.NewErrorResponse(codes.InvalidArgument, "missing catalog")
	}

	id, err := s.Registry.Register(req.Catalog)
	if err != nil {
		return protocol.NewErrorResponse(codes.InvalidArgument, err.Error())
	}
	return protocol.NewResponse(
		fmt.Sprintf("Registered catalog %s with id %d", req.Catalog.Name, id),
		protocol.RegisterCatalogResponse{RegisteredID: id},
	)
}

func UnregisterCatalogReqHandler(s *Server, raw []byte) protocol.Response {
	var req protocol.UnregisterCatalogRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return protocol.NewErrorResponse(codes.InvalidArgument, err.Error())
	}
	if !s.Registry.Unregister(req.RegisteredID) {
		return catalogNotFound(req.RegisteredID)
	}
	return protocol.NewResponse(fmt.Sprintf("Unregistered catalog %d", req.RegisteredID), nil)
}

func ListCatalogsReqHandler(s *Server) protocol.Response {
	res := protocol.ListCatalogsResponse{
		Catalogs: pkg.MapSlice(s.Registry.List(), func(entry *registry.Entry) protocol.CatalogInfo {
			return protocol.CatalogInfo{
				RegisteredID: entry.ID,
				Name:         entry.Catalog.Name,
				TableCount:   entry.Catalog.TableCount(),
			}
		}),
	}
	return protocol.NewResponse(fmt.Sprintf("Found %d catalogs", len(res.Catalogs)), res)
}

func ExtractTableNamesReqHandler(raw []byte) protocol.Response {
	var req protocol.ExtractTableNamesRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return protocol.NewErrorResponse(codes.InvalidArgument, err.Error())
	}

	names, err := analyzer.ExtractTableNames(req.SQLStatement)
	if err != nil {
		return analysisError(err, req.SQLStatement, types.ErrorMessageOneLine)
	}
	return protocol.NewResponse(
		fmt.Sprintf("Found %d tables", len(names)),
		protocol.ExtractTableNamesResponse{TableName: names},
	)
}

func AnalyzeReqHandler(s *Server, raw []byte) protocol.Response {
	var req protocol.AnalyzeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return protocol.NewErrorResponse(codes.InvalidArgument, err.Error())
	}

	options := req.Options.Normalized()
	if !options.ErrorMessageMode.IsValid() {
		return protocol.NewErrorResponse(codes.InvalidArgument,
			fmt.Sprintf("invalid error message mode: %s", options.ErrorMessageMode))
	}
	if !options.ParseLocationRecordType.IsValid() {
		return protocol.NewErrorResponse(codes.InvalidArgument,
			fmt.Sprintf("invalid parse location record type: %s", options.ParseLocationRecordType))
	}

	cat, ok := s.Registry.Get(req.RegisteredCatalogID)
	if !ok {
		return catalogNotFound(req.RegisteredCatalogID)
	}

	res, err := analyzer.Analyze(req.SQLStatement, cat, options)
	if err != nil {
		return analysisError(err, req.SQLStatement, options.ErrorMessageMode)
	}
	return protocol.NewResponse("analyzed "+string(res.StatementKind), res)
}

func catalogNotFound(id int64) protocol.Response {
	return protocol.NewErrorResponse(codes.NotFound, fmt.Sprintf("Registered catalog %d not found", id))
}

// analysisError renders an analyzer failure in the requested message mode.
// The location is always attached so callers need not parse the message.
func analysisError(err error, sql string, mode types.ErrorMessageMode) protocol.Response {
	var aerr *analyzer.Error
	if !errors.As(err, &aerr) {
		return protocol.NewErrorResponse(codes.Internal, err.Error())
	}
	loc := aerr.Location(sql)
	res := protocol.NewErrorResponse(codes.InvalidArgument,
		protocol.FormatErrorDetail(aerr.Message, sql, loc, mode))
	res.Location = loc
	return res
}
