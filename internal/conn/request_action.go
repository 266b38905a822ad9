package conn

import (
	"fmt"

	"github.com/tobsdb/sqlanalyzer/pkg/protocol"
	"google.golang.org/grpc/codes"
)

func ActionHandler(s *Server, action protocol.Action, raw []byte) protocol.Response {
	switch action {
	case protocol.ActionTestConnection:
		return TestConnectionReqHandler(s)
	case protocol.ActionGetLanguageOptions:
		return LanguageOptionsReqHandler(raw)
	case protocol.ActionRegisterCatalog:
		return RegisterCatalogReqHandler(s, raw)
	case protocol.ActionUnregisterCatalog:
		return UnregisterCatalogReqHandler(s, raw)
	case protocol.ActionListCatalogs:
		return ListCatalogsReqHandler(s)
	case protocol.ActionExtractTableNames:
		return ExtractTableNamesReqHandler(raw)
	case protocol.ActionAnalyze:
		return AnalyzeReqHandler(s, raw)
	default:
		return protocol.NewErrorResponse(codes.Unimplemented, fmt.Sprintf("unknown action: %s", action))
	}
}
