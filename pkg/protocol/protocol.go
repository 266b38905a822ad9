package protocol

import (
	"encoding/json"

	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
	"google.golang.org/grpc/codes"
)

type Action string

const (
	ActionTestConnection     Action = "testConnection"
	ActionGetLanguageOptions Action = "getLanguageOptions"

	// catalog actions
	ActionRegisterCatalog   Action = "registerCatalog"
	ActionUnregisterCatalog Action = "unregisterCatalog"
	ActionListCatalogs      Action = "listCatalogs"

	// statement actions
	ActionExtractTableNames Action = "extractTableNames"
	ActionAnalyze           Action = "analyze"
)

// IsReadOnly reports whether the action leaves the registry untouched.
func (a Action) IsReadOnly() bool {
	return a != ActionRegisterCatalog && a != ActionUnregisterCatalog
}

// Request is the envelope every message carries. Action payload fields sit
// alongside it in the same JSON object.
type Request struct {
	Action Action `json:"action"`
	ReqID  int    `json:"__sqlanalyzer_req_id__"`
}

// Location is 1-based line and column plus the 0-based byte offset.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

type Response struct {
	Code     codes.Code `json:"code"`
	Message  string     `json:"message"`
	Data     any        `json:"data,omitempty"`
	Location *Location  `json:"location,omitempty"`
	// copied from the request
	ReqID int `json:"__sqlanalyzer_req_id__"`
}

// RawResponse is Response as seen by a client before the payload is decoded.
type RawResponse struct {
	Code     codes.Code      `json:"code"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data,omitempty"`
	Location *Location       `json:"location,omitempty"`
	ReqID    int             `json:"__sqlanalyzer_req_id__"`
}

func NewErrorResponse(code codes.Code, message string) Response {
	return Response{Code: code, Message: message}
}

func NewResponse(message string, data any) Response {
	return Response{Code: codes.OK, Message: message, Data: data}
}

func (r Response) Marshal() []byte {
	buf, err := json.Marshal(r)
	if err != nil {
		buf, _ = json.Marshal(NewErrorResponse(codes.Internal, err.Error()))
	}
	return buf
}

type LanguageOptionsRequest struct {
	MaximumFeatures bool `json:"maximumFeatures"`
}

type RegisterCatalogRequest struct {
	Catalog *catalog.SimpleCatalog `json:"catalog"`
}

type RegisterCatalogResponse struct {
	RegisteredID int64 `json:"registeredId"`
}

type UnregisterCatalogRequest struct {
	RegisteredID int64 `json:"registeredId"`
}

type CatalogInfo struct {
	RegisteredID int64  `json:"registeredId"`
	Name         string `json:"name"`
	TableCount   int    `json:"tableCount"`
}

type ListCatalogsResponse struct {
	Catalogs []CatalogInfo `json:"catalogs"`
}

type ExtractTableNamesRequest struct {
	SQLStatement string `json:"sqlStatement"`
}

type ExtractTableNamesResponse struct {
	TableName []catalog.TableName `json:"tableName"`
}

type AnalyzeRequest struct {
	SQLStatement        string                `json:"sqlStatement"`
	RegisteredCatalogID int64                 `json:"registeredCatalogId"`
	Options             types.AnalyzerOptions `json:"options"`
}

// Range is a half-open byte range into the analyzed statement.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type OutputColumn struct {
	Name string         `json:"name"`
	Type types.TypeKind `json:"type"`
}

type ReferencedTable struct {
	TableName catalog.TableName `json:"tableName"`
	Location  *Range            `json:"location,omitempty"`
}

type ReferencedColumn struct {
	Table    string         `json:"table"`
	Column   string         `json:"column"`
	Type     types.TypeKind `json:"type"`
	Location *Range         `json:"location,omitempty"`
}

type AnalyzeResponse struct {
	StatementKind     types.StatementKind `json:"statementKind"`
	OutputColumns     []OutputColumn      `json:"outputColumns"`
	ReferencedTables  []ReferencedTable   `json:"referencedTables"`
	ReferencedColumns []ReferencedColumn  `json:"referencedColumns"`
}
