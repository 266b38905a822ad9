package protocol_test

import (
	"encoding/json"
	"testing"

	. "github.com/tobsdb/sqlanalyzer/pkg/protocol"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
	"google.golang.org/grpc/codes"
	"gotest.tools/assert"
)

func TestFormatErrorDetail(t *testing.T) {
	sql := "select *\nfrom t join inner u"
	loc := LocationAt(sql, 21)
	assert.Equal(t, loc.Line, 2)
	assert.Equal(t, loc.Column, 13)

	msg := "Syntax error: Unexpected keyword INNER"

	t.Run("one line", func(t *testing.T) {
		got := FormatErrorDetail(msg, sql, loc, types.ErrorMessageOneLine)
		assert.Equal(t, got, msg+" [at 2:13]")
	})

	t.Run("caret", func(t *testing.T) {
		got := FormatErrorDetail(msg, sql, loc, types.ErrorMessageMultiLineWithCaret)
		assert.Equal(t, got, msg+" [at 2:13]\nfrom t join inner u\n            ^")
	})

	t.Run("payload", func(t *testing.T) {
		got := FormatErrorDetail(msg, sql, loc, types.ErrorMessageWithPayload)
		assert.Equal(t, got, msg)
	})

	t.Run("no location", func(t *testing.T) {
		got := FormatErrorDetail(msg, sql, nil, types.ErrorMessageOneLine)
		assert.Equal(t, got, msg)
	})
}

func TestLocationAtClamps(t *testing.T) {
	loc := LocationAt("abc", 10)
	assert.Equal(t, loc.Offset, 3)
	assert.Equal(t, loc.Column, 4)

	loc = LocationAt("abc", -1)
	assert.Equal(t, loc.Offset, 0)
}

func TestResponseMarshal(t *testing.T) {
	res := NewErrorResponse(codes.InvalidArgument, "bad")
	res.ReqID = 4

	var raw RawResponse
	assert.NilError(t, json.Unmarshal(res.Marshal(), &raw))
	assert.Equal(t, raw.Code, codes.InvalidArgument)
	assert.Equal(t, raw.ReqID, 4)
	assert.Equal(t, raw.Message, "bad")
	assert.Assert(t, raw.Data == nil)
}

func TestActionIsReadOnly(t *testing.T) {
	assert.Assert(t, ActionAnalyze.IsReadOnly())
	assert.Assert(t, !ActionRegisterCatalog.IsReadOnly())
	assert.Assert(t, !ActionUnregisterCatalog.IsReadOnly())
}
